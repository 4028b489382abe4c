package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sayoon01/ald-nl2sql-stats/internal/settings"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage aldq configuration",
	Long:  `Create and inspect the aldq configuration file.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	Long:  `Create a default configuration file in your home directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := cfgFile
		if configPath == "" {
			var err error
			if configPath, err = settings.DefaultPath(); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		if err := settings.WriteDefault(configPath); err != nil {
			if errors.Is(err, settings.ErrConfigExists) {
				fmt.Fprintf(out, "Configuration file already exists at %s\n", configPath)
				return nil
			}
			return err
		}

		fmt.Fprintf(out, "Configuration file created at %s\n", configPath)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Display the settings after applying flags, the configuration file and
ALDQ_* environment variables, in that order of priority.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		out := cmd.OutOrStdout()

		if path := settingsFileUsed(); path != "" {
			fmt.Fprintf(out, "# Configuration file: %s\n", path)
		} else {
			fmt.Fprintln(out, "# No configuration file found. Run 'aldq config init' to create one.")
		}

		shown := cfg
		if shown.Database.DSN != "" {
			shown.Database.DSN = "********"
		}
		return writeStructured(out, output, shown)
	},
}

func settingsFileUsed() string {
	path := viper.ConfigFileUsed()
	if path == "" {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	configShowCmd.Flags().StringP("output", "o", "yaml", "output format: yaml or json")
}
