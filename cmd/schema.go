package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Show the loaded field, metric and grouping vocabulary",
	RunE: func(cmd *cobra.Command, args []string) error {
		collisions, _ := cmd.Flags().GetBool("collisions")

		engine, err := newEngine(cfg)
		if err != nil {
			return err
		}
		store := engine.Store()
		out := cmd.OutOrStdout()

		if store.IsEmpty() {
			fmt.Fprintln(out, "No schema loaded (empty definition).")
			return nil
		}

		meta := store.Meta()
		fmt.Fprintf(out, "Table: %s  (timestamp=%s trace=%s step=%s)\n", meta.Table, meta.TimestampColumn, meta.TraceColumn, meta.StepColumn)
		fmt.Fprintf(out, "Default field: %s  Default metric: %s\n\n", store.DefaultField(), store.DefaultMetric())

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "FIELD\tNAME\tUNIT\tCOLUMN\tALIASES")
		fmt.Fprintln(tw, "-----\t----\t----\t------\t-------")
		for _, key := range store.AllFields() {
			f, _ := store.FieldMeta(key)
			col, _ := store.StorageColumn(key)
			if !store.IsAllowedColumn(col) {
				col += " (blocked)"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", key, f.DomainName, orNone(f.Unit), col, strings.Join(f.Aliases, ", "))
		}
		tw.Flush()

		fmt.Fprintln(out)
		tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "METRIC\tLABEL\tALIASES")
		fmt.Fprintln(tw, "------\t-----\t-------")
		for _, key := range store.AllMetrics() {
			m, _ := store.MetricLabel(key)
			fmt.Fprintf(tw, "%s\t%s\t%s\n", key, m.Label, strings.Join(m.Aliases, ", "))
		}
		tw.Flush()

		fmt.Fprintln(out)
		tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "GROUP\tKIND\tALIASES")
		fmt.Fprintln(tw, "-----\t----\t-------")
		for _, key := range store.Definition().GroupOrder {
			g, _ := store.GroupMeta(key)
			fmt.Fprintf(tw, "%s\t%s\t%s\n", key, g.Kind, strings.Join(g.Aliases, ", "))
		}
		tw.Flush()

		if collisions {
			fmt.Fprintln(out, "\nAlias collisions (first owner kept):")
			index := engine.Index()
			if len(index.Collisions()) == 0 {
				fmt.Fprintln(out, "  none")
			}
			for _, c := range index.Collisions() {
				fmt.Fprintf(out, "  %q\n", c.Alias)
				fmt.Fprintf(out, "    kept:    %s:%s\n", c.Kept.Category, c.Kept.Key)
				fmt.Fprintf(out, "    lost:    %s:%s\n", c.Lost.Category, c.Lost.Key)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)

	schemaCmd.Flags().Bool("collisions", false, "list aliases claimed by more than one key")
}
