package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sayoon01/ald-nl2sql-stats/internal/suggest"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest [query]",
	Short: "List example questions",
	Long: `List example questions, those containing the query first.

Examples:
  aldq suggest 압력
  aldq suggest --topic 유량
  aldq suggest --popular`,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		topic, _ := cmd.Flags().GetString("topic")
		popular, _ := cmd.Flags().GetBool("popular")
		out := cmd.OutOrStdout()

		switch {
		case popular:
			for _, q := range suggest.Popular(limit) {
				fmt.Fprintln(out, q)
			}
			return nil
		case cmd.Flags().Changed("topic"):
			if topic == "" {
				fmt.Fprintf(out, "Topics: %s\n", strings.Join(suggest.Topics(), ", "))
				return nil
			}
			for _, q := range suggest.ByTopic(topic) {
				fmt.Fprintln(out, q)
			}
			return nil
		}

		engine, err := newEngine(cfg)
		if err != nil {
			return err
		}
		catalog := suggest.New(engine.Store(), nil)
		for _, s := range catalog.Suggest(strings.Join(args, " "), limit) {
			fmt.Fprintf(out, "%-12s %s\n", "["+string(s.Kind)+"]", s.Question)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(suggestCmd)

	suggestCmd.Flags().IntP("limit", "n", suggest.DefaultLimit, "maximum number of suggestions")
	suggestCmd.Flags().String("topic", "", "list one topic's examples (empty lists topics)")
	suggestCmd.Flags().Bool("popular", false, "list the most asked questions")
}
