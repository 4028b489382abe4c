package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sayoon01/ald-nl2sql-stats/internal/settings"
)

var cfgFile string

var (
	// cfg and logger are set in PersistentPreRunE.
	cfg    settings.Settings
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "aldq",
	Short: "Compile ALD process-trace questions into SQL",
	Long: `aldq turns short Korean/English questions about ALD process traces into a
structured query and compiles it into parameterized SQL.

Examples:
  aldq ask "스텝별 압력 평균 상위 5개"
  aldq ask "standard_trace_001과 standard_trace_002 압력 비교" --execute
  aldq parse "VG11 pressure average" -o json`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings.Resolve(viper.GetViper(), overridesFromFlags(cmd.Flags()))
		if err != nil {
			return fmt.Errorf("configuration: %w", err)
		}
		cfg = s
		logger = newLogger(s.Debug)
		slog.SetDefault(logger)
		if used := viper.ConfigFileUsed(); used != "" {
			logger.Debug("using config file", "path", used)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.aldq.yaml)")
	pf.Bool("debug", false, "enable debug logging on stderr")
	pf.String("schema", "", "schema document (or set ALDQ_SCHEMA_PATH; default: built-in)")
	pf.String("rules", "", "resolution rules document (or set ALDQ_RULES_PATH; default: built-in)")
	pf.String("dialect", "", "SQL dialect: duckdb, postgres, mysql, sqlite (or set ALDQ_DIALECT)")
	pf.String("table", "", "source table or view (default: the schema's table)")
	pf.Float64("z-threshold", settings.DefaultOutlierThreshold, "outlier z-score threshold")
	pf.Bool("include-stats", false, "add n/std/min/max companion columns")
	pf.String("driver", "", "database driver for --execute: postgres, mysql, sqlite")
	pf.String("dsn", "", "database DSN for --execute (or set ALDQ_DATABASE_DSN)")
}

// initConfig reads in config file if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(settings.ConfigName)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
	}
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	}))
}
