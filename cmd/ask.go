package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sayoon01/ald-nl2sql-stats/internal/intent"
	"github.com/sayoon01/ald-nl2sql-stats/internal/pipeline"
	"github.com/sayoon01/ald-nl2sql-stats/internal/runner"
	"github.com/sayoon01/ald-nl2sql-stats/internal/settings"
	"github.com/sayoon01/ald-nl2sql-stats/internal/sqlgen"
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Compile a question into SQL, optionally running it",
	Long: `Normalize the question, extract its intent and compile it into one
parameterized SQL statement.

Examples:
  aldq ask "VG11 pressure average"
  aldq ask "스텝별 압력 평균 하위 3개" --dialect postgres
  aldq ask "압력 이상치 상위 10개" --execute --driver sqlite --dsn ./traces.db`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")
		execute, _ := cmd.Flags().GetBool("execute")
		output, _ := cmd.Flags().GetString("output")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		s := cfg
		if execute {
			var err error
			if s, err = executionSettings(s, s.Dialect != settings.DefaultDialect); err != nil {
				return err
			}
		}

		engine, err := newEngine(s)
		if err != nil {
			return err
		}
		res, err := engine.Ask(question)
		if err != nil {
			return answerError(err)
		}

		var rows *runner.Rows
		if execute {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			if rows, err = runStatement(ctx, s.Database.Driver, s.Database.DSN, res.Statement); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		if output != "" && output != "text" {
			return writeStructured(out, output, askOutput{Result: res, Rows: rows})
		}
		printResult(out, res)
		if rows != nil {
			fmt.Fprintln(out)
			renderRows(out, rows)
		}
		return nil
	},
}

type askOutput struct {
	pipeline.Result `yaml:",inline"`
	Rows            *runner.Rows `json:"result,omitempty" yaml:"result,omitempty"`
}

func runStatement(ctx context.Context, driver, dsn string, st sqlgen.Statement) (*runner.Rows, error) {
	r, err := runner.Open(ctx, driver, dsn, logger)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.Query(ctx, st)
}

// answerError marks errors that mean the question itself cannot be
// answered, as opposed to configuration or database faults.
func answerError(err error) error {
	var (
		unresolved  *intent.UnresolvedFieldError
		disallowed  *sqlgen.DisallowedFieldError
		unsupported *sqlgen.UnsupportedError
	)
	if errors.As(err, &unresolved) || errors.As(err, &disallowed) || errors.As(err, &unsupported) || errors.Is(err, sqlgen.ErrFieldRequired) {
		return fmt.Errorf("question could not be answered: %w", err)
	}
	return err
}

func printResult(w io.Writer, res pipeline.Result) {
	p := res.Intent
	fmt.Fprintf(w, "Question:   %s\n", res.Question)
	fmt.Fprintf(w, "Normalized: %s\n", res.Normalized)
	fmt.Fprintf(w, "Intent:     %s\n", describeIntent(p))
	if !p.Filters.IsZero() {
		fmt.Fprintf(w, "Filters:    %s\n", describeFilters(p.Filters))
	}
	fmt.Fprintf(w, "Template:   %s (%s)\n\n", res.Statement.Template, res.Statement.Dialect)
	fmt.Fprintln(w, res.Statement.SQL)
	fmt.Fprintf(w, "\nParams:     %s\n", formatParams(res.Statement.Params))
}

func describeIntent(p intent.ParsedIntent) string {
	parts := []string{
		"metric=" + string(p.Metric),
		"field=" + orNone(p.Field),
		"category=" + string(p.Category),
		"order=" + string(p.Order),
	}
	if p.GroupBy != intent.GroupNone {
		parts = append(parts, "group_by="+string(p.GroupBy))
	}
	if p.HasLimit() {
		parts = append(parts, fmt.Sprintf("top_n=%d", p.LimitValue()))
	}
	var flags []string
	for _, f := range []struct {
		name string
		on   bool
	}{
		{"trace_compare", p.Flags.IsTraceCompare},
		{"outlier", p.Flags.IsOutlier},
		{"overshoot", p.Flags.IsOvershoot},
		{"dwell_time", p.Flags.IsDwellTime},
		{"stable_avg", p.Flags.IsStableAvg},
	} {
		if f.on {
			flags = append(flags, f.name)
		}
	}
	if len(flags) > 0 {
		parts = append(parts, "flags="+strings.Join(flags, ","))
	}
	return strings.Join(parts, " ")
}

func describeFilters(f intent.Filters) string {
	var parts []string
	if f.TraceID != "" {
		parts = append(parts, "trace="+f.TraceID)
	}
	if len(f.TraceIDs) > 0 {
		parts = append(parts, "traces="+strings.Join(f.TraceIDs, ","))
	}
	if f.StepName != "" {
		parts = append(parts, "step="+f.StepName)
	}
	if len(f.StepNames) > 0 {
		parts = append(parts, "steps="+strings.Join(f.StepNames, ","))
	}
	if f.DateStart != "" {
		parts = append(parts, "from="+f.DateStart)
	}
	if f.DateEnd != "" {
		parts = append(parts, "to="+f.DateEnd)
	}
	return strings.Join(parts, " ")
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().Bool("execute", false, "run the statement against the configured database")
	askCmd.Flags().StringP("output", "o", "text", "output format: text, json or yaml")
	askCmd.Flags().Duration("timeout", 30*time.Second, "query timeout for --execute")
}
