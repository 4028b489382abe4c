package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sayoon01/ald-nl2sql-stats/internal/intent"
)

var sqlCmd = &cobra.Command{
	Use:   "sql [file]",
	Short: "Compile an intent document into SQL",
	Long: `Compile a ParsedIntent given as JSON or YAML (from a file, or stdin when
no file or "-" is given) without running the extractor.

Examples:
  aldq parse "vg11 max by step" -o yaml > intent.yaml
  aldq sql intent.yaml --dialect postgres`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		var (
			data []byte
			err  error
		)
		if len(args) == 0 || args[0] == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("read intent: %w", err)
		}

		p, err := decodeIntent(data)
		if err != nil {
			return err
		}

		engine, err := newEngine(cfg)
		if err != nil {
			return err
		}
		st, err := engine.Compiler().Compile(p)
		if err != nil {
			return answerError(err)
		}

		out := cmd.OutOrStdout()
		if output == "text" {
			fmt.Fprintln(out, st.SQL)
			fmt.Fprintf(out, "\nParams: %s\n", formatParams(st.Params))
			return nil
		}
		return writeStructured(out, output, st)
	},
}

// decodeIntent accepts JSON too, since JSON is valid YAML.
func decodeIntent(data []byte) (intent.ParsedIntent, error) {
	var p intent.ParsedIntent
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("decode intent: %w", err)
	}
	if p.Category == "" {
		return p, fmt.Errorf("decode intent: analysis_type is required")
	}
	if p.Metric == "" {
		p.Metric = intent.MetricAvg
	}
	if p.Order == "" {
		p.Order = intent.OrderDesc
	}
	return p, nil
}

func init() {
	rootCmd.AddCommand(sqlCmd)

	sqlCmd.Flags().StringP("output", "o", "text", "output format: text, json or yaml")
}
