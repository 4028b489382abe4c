package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sayoon01/ald-nl2sql-stats/internal/runner"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database operations",
	Long:  `Inspect the database configured for 'aldq ask --execute'.`,
}

var dbPingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check the configured database connection",
	RunE: func(cmd *cobra.Command, args []string) error {
		db := cfg.Database
		out := cmd.OutOrStdout()
		if !db.Configured() {
			fmt.Fprintln(out, "No database configured.")
			fmt.Fprintln(out, "Usage: aldq db ping --driver sqlite --dsn ./traces.db")
			return nil
		}

		dialect, err := runner.DialectFor(db.Driver)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		start := time.Now()
		r, err := runner.Open(ctx, db.Driver, db.DSN, logger)
		if err != nil {
			return err
		}
		defer r.Close()

		fmt.Fprintf(out, "Connected (%s, %s dialect) in %s\n", r.Driver(), dialect.Name(), time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbPingCmd)
}
