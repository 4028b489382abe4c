package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/sayoon01/ald-nl2sql-stats/internal/pipeline"
	"github.com/sayoon01/ald-nl2sql-stats/internal/runner"
	"github.com/sayoon01/ald-nl2sql-stats/internal/settings"
)

// overridesFromFlags collects only the flags the user actually set, so
// config and environment still apply to the rest.
func overridesFromFlags(fs *pflag.FlagSet) settings.Overrides {
	var o settings.Overrides
	str := func(name string) string {
		if !fs.Changed(name) {
			return ""
		}
		v, _ := fs.GetString(name)
		return v
	}
	o.SchemaPath = str("schema")
	o.RulesPath = str("rules")
	o.Dialect = str("dialect")
	o.Table = str("table")
	o.DatabaseDriver = str("driver")
	o.DatabaseDSN = str("dsn")

	if fs.Changed("z-threshold") {
		v, _ := fs.GetFloat64("z-threshold")
		o.OutlierThreshold = &v
	}
	if fs.Changed("include-stats") {
		v, _ := fs.GetBool("include-stats")
		o.IncludeStats = &v
	}
	if fs.Changed("debug") {
		v, _ := fs.GetBool("debug")
		o.Debug = &v
	}
	return o
}

func newEngine(s settings.Settings) (*pipeline.Engine, error) {
	return pipeline.New(pipeline.Options{
		SchemaPath:       s.SchemaPath,
		RulesPath:        s.RulesPath,
		Dialect:          s.Dialect,
		Table:            s.Table,
		OutlierThreshold: s.OutlierThreshold,
		IncludeStats:     s.IncludeStats,
		Logger:           logger,
	})
}

// executionSettings aligns the dialect with the configured driver unless a
// dialect was chosen explicitly.
func executionSettings(s settings.Settings, dialectSet bool) (settings.Settings, error) {
	if !s.Database.Configured() {
		return s, fmt.Errorf("--execute needs a database: set --driver and --dsn or database.driver/database.dsn")
	}
	if dialectSet {
		return s, nil
	}
	d, err := runner.DialectFor(s.Database.Driver)
	if err != nil {
		return s, err
	}
	s.Dialect = d.Name()
	return s, nil
}

func writeStructured(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q (use json or yaml)", format)
	}
}

func formatParams(params []any) string {
	if len(params) == 0 {
		return "(none)"
	}
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = fmt.Sprintf("%d=%q", i+1, fmt.Sprint(p))
	}
	return strings.Join(parts, " ")
}

func renderRows(w io.Writer, rows *runner.Rows) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(rows.Columns, "\t")))
	sep := make([]string, len(rows.Columns))
	for i, c := range rows.Columns {
		sep[i] = strings.Repeat("-", len(c))
	}
	fmt.Fprintln(tw, strings.Join(sep, "\t"))
	for _, row := range rows.Values {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatCell(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()

	fmt.Fprintf(w, "(%d rows", len(rows.Values))
	if rows.Truncated {
		fmt.Fprint(w, ", truncated")
	}
	fmt.Fprintln(w, ")")
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case float64:
		return fmt.Sprintf("%.4g", x)
	case float32:
		return fmt.Sprintf("%.4g", x)
	default:
		return fmt.Sprint(x)
	}
}
