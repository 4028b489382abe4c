package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ConfigName is the config file base name looked up in $HOME.
const ConfigName = ".aldq"

// ErrConfigExists is returned by WriteDefault when the file is present.
var ErrConfigExists = errors.New("configuration file already exists")

const defaultConfig = `# aldq configuration

# Schema and resolution-rule documents. Empty selects the built-in ones.
schema_path: ""
rules_path: ""

# SQL dialect: duckdb, postgres, mysql or sqlite.
dialect: duckdb

# Source table or view. Empty uses the schema's table (traces_dedup).
table: ""

outlier:
  z_threshold: 1.0   # samples above this |z| count as outliers

compiler:
  include_stats: false   # add n/std/min/max columns to grouped results

# Optional database for 'aldq ask --execute'.
database:
  driver: ""   # postgres, mysql or sqlite
  dsn: ""

debug: false
`

// DefaultPath is $HOME/.aldq.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("error finding home directory: %w", err)
	}
	return filepath.Join(home, ConfigName+".yaml"), nil
}

// WriteDefault creates a commented default config at path.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s: %w", path, ErrConfigExists)
	}
	if err := os.WriteFile(path, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("error creating config file: %w", err)
	}
	return nil
}
