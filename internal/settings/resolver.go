// Package settings resolves runtime configuration.
// Priority: flag > config file > ALDQ_* environment > default.
package settings

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

const EnvPrefix = "ALDQ"

// Configuration keys.
const (
	KeySchemaPath       = "schema_path"
	KeyRulesPath        = "rules_path"
	KeyDialect          = "dialect"
	KeyTable            = "table"
	KeyOutlierThreshold = "outlier.z_threshold"
	KeyIncludeStats     = "compiler.include_stats"
	KeyDatabaseDriver   = "database.driver"
	KeyDatabaseDSN      = "database.dsn"
	KeyDebug            = "debug"
)

const (
	DefaultDialect          = "duckdb"
	DefaultOutlierThreshold = 1.0
)

// Database is the optional execution target.
type Database struct {
	Driver string `json:"driver" yaml:"driver"`
	DSN    string `json:"dsn" yaml:"dsn"`
}

// Configured reports whether a driver and DSN are both set.
func (d Database) Configured() bool {
	return d.Driver != "" && d.DSN != ""
}

type Settings struct {
	SchemaPath       string   `json:"schema_path" yaml:"schema_path"`
	RulesPath        string   `json:"rules_path" yaml:"rules_path"`
	Dialect          string   `json:"dialect" yaml:"dialect"`
	Table            string   `json:"table,omitempty" yaml:"table,omitempty"`
	OutlierThreshold float64  `json:"outlier_z_threshold" yaml:"outlier_z_threshold"`
	IncludeStats     bool     `json:"include_stats" yaml:"include_stats"`
	Database         Database `json:"database" yaml:"database"`
	Debug            bool     `json:"debug" yaml:"debug"`
}

// Overrides carry command-line values. Nil pointers and empty strings mean
// the flag was not given.
type Overrides struct {
	SchemaPath       string
	RulesPath        string
	Dialect          string
	Table            string
	OutlierThreshold *float64
	IncludeStats     *bool
	DatabaseDriver   string
	DatabaseDSN      string
	Debug            *bool
}

// EnvName is the environment variable consulted for key.
func EnvName(key string) string {
	r := strings.NewReplacer(".", "_", "-", "_")
	return EnvPrefix + "_" + strings.ToUpper(r.Replace(key))
}

// ResolveString returns the first non-empty of flag, config and env.
func ResolveString(v *viper.Viper, key, flagValue string) string {
	if s := strings.TrimSpace(flagValue); s != "" {
		return s
	}
	if v != nil && v.InConfig(key) {
		if s := strings.TrimSpace(v.GetString(key)); s != "" {
			return s
		}
	}
	return strings.TrimSpace(os.Getenv(EnvName(key)))
}

// lookup returns the raw config or env value for key.
func lookup(v *viper.Viper, key string) (any, string, bool) {
	if v != nil && v.InConfig(key) {
		return v.Get(key), "config", true
	}
	if env, ok := os.LookupEnv(EnvName(key)); ok && strings.TrimSpace(env) != "" {
		return strings.TrimSpace(env), EnvName(key), true
	}
	return nil, "", false
}

func resolveFloat(v *viper.Viper, key string, flagValue *float64, fallback float64) (float64, error) {
	if flagValue != nil {
		return *flagValue, nil
	}
	raw, source, ok := lookup(v, key)
	if !ok {
		return fallback, nil
	}
	f, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, fmt.Errorf("%s (%s): %w", key, source, err)
	}
	return f, nil
}

func resolveBool(v *viper.Viper, key string, flagValue *bool) (bool, error) {
	if flagValue != nil {
		return *flagValue, nil
	}
	raw, source, ok := lookup(v, key)
	if !ok {
		return false, nil
	}
	b, err := cast.ToBoolE(raw)
	if err != nil {
		return false, fmt.Errorf("%s (%s): %w", key, source, err)
	}
	return b, nil
}

// Resolve builds Settings from flags, the loaded config and the
// environment.
func Resolve(v *viper.Viper, o Overrides) (Settings, error) {
	s := Settings{
		SchemaPath: ResolveString(v, KeySchemaPath, o.SchemaPath),
		RulesPath:  ResolveString(v, KeyRulesPath, o.RulesPath),
		Dialect:    strings.ToLower(ResolveString(v, KeyDialect, o.Dialect)),
		Table:      ResolveString(v, KeyTable, o.Table),
		Database: Database{
			Driver: strings.ToLower(ResolveString(v, KeyDatabaseDriver, o.DatabaseDriver)),
			DSN:    ResolveString(v, KeyDatabaseDSN, o.DatabaseDSN),
		},
	}
	if s.Dialect == "" {
		s.Dialect = DefaultDialect
	}

	var err error
	if s.OutlierThreshold, err = resolveFloat(v, KeyOutlierThreshold, o.OutlierThreshold, DefaultOutlierThreshold); err != nil {
		return Settings{}, err
	}
	if s.OutlierThreshold <= 0 {
		return Settings{}, fmt.Errorf("%s must be positive, got %v", KeyOutlierThreshold, s.OutlierThreshold)
	}
	if s.IncludeStats, err = resolveBool(v, KeyIncludeStats, o.IncludeStats); err != nil {
		return Settings{}, err
	}
	if s.Debug, err = resolveBool(v, KeyDebug, o.Debug); err != nil {
		return Settings{}, err
	}
	return s, nil
}
