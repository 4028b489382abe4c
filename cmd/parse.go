package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse [question]",
	Short: "Print the structured intent of a question",
	Long: `Run normalization and intent extraction and print the resulting IR.

Examples:
  aldq parse "trace_001 and trace_002 pressure compare"
  aldq parse "2024-01-01부터 2024-01-31까지 vg12 p95" -o yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		engine, err := newEngine(cfg)
		if err != nil {
			return err
		}
		p, err := engine.Parse(strings.Join(args, " "))
		if err != nil {
			return answerError(err)
		}

		out := cmd.OutOrStdout()
		if output == "text" {
			fmt.Fprintln(out, describeIntent(p))
			if !p.Filters.IsZero() {
				fmt.Fprintln(out, describeFilters(p.Filters))
			}
			return nil
		}
		return writeStructured(out, output, p)
	},
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize [question]",
	Short: "Print the canonical form of a question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spans, _ := cmd.Flags().GetBool("spans")

		engine, err := newEngine(cfg)
		if err != nil {
			return err
		}
		nt := engine.Normalize(strings.Join(args, " "))

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, nt.Text)
		if spans {
			for _, s := range nt.Spans {
				fmt.Fprintf(out, "  %-20s -> %s:%s\n", s.Alias, s.Category, s.Key)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(normalizeCmd)

	parseCmd.Flags().StringP("output", "o", "json", "output format: json, yaml or text")
	normalizeCmd.Flags().Bool("spans", false, "list each alias substitution")
}
