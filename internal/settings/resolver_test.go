package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadConfig(t *testing.T, body string) *viper.Viper {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aldq.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	return v
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "ALDQ_OUTLIER_Z_THRESHOLD", EnvName(KeyOutlierThreshold))
	assert.Equal(t, "ALDQ_DATABASE_DSN", EnvName(KeyDatabaseDSN))
	assert.Equal(t, "ALDQ_SCHEMA_PATH", EnvName(KeySchemaPath))
}

func TestResolveDefaults(t *testing.T) {
	s, err := Resolve(viper.New(), Overrides{})
	require.NoError(t, err)
	assert.Equal(t, DefaultDialect, s.Dialect)
	assert.Equal(t, DefaultOutlierThreshold, s.OutlierThreshold)
	assert.False(t, s.IncludeStats)
	assert.False(t, s.Database.Configured())
	assert.Empty(t, s.SchemaPath)
}

func TestResolvePriority(t *testing.T) {
	v := loadConfig(t, `
dialect: postgres
outlier:
  z_threshold: 2
database:
  driver: Postgres
`)
	t.Setenv("ALDQ_DIALECT", "mysql")
	t.Setenv("ALDQ_TABLE", "env_table")
	t.Setenv("ALDQ_OUTLIER_Z_THRESHOLD", "3")
	t.Setenv("ALDQ_DATABASE_DSN", "postgres://localhost/ald")
	t.Setenv("ALDQ_COMPILER_INCLUDE_STATS", "true")

	s, err := Resolve(v, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "postgres", s.Dialect, "config beats env")
	assert.Equal(t, "env_table", s.Table, "env fills what config lacks")
	assert.Equal(t, 2.0, s.OutlierThreshold)
	assert.True(t, s.IncludeStats)
	assert.Equal(t, Database{Driver: "postgres", DSN: "postgres://localhost/ald"}, s.Database)
	assert.True(t, s.Database.Configured())

	threshold := 1.5
	stats := false
	s, err = Resolve(v, Overrides{Dialect: "sqlite", OutlierThreshold: &threshold, IncludeStats: &stats})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", s.Dialect, "flag beats config")
	assert.Equal(t, 1.5, s.OutlierThreshold)
	assert.False(t, s.IncludeStats)
}

func TestResolveRejectsBadValues(t *testing.T) {
	t.Setenv("ALDQ_OUTLIER_Z_THRESHOLD", "high")
	_, err := Resolve(nil, Overrides{})
	assert.ErrorContains(t, err, "ALDQ_OUTLIER_Z_THRESHOLD")

	zero := 0.0
	_, err = Resolve(nil, Overrides{OutlierThreshold: &zero})
	assert.Error(t, err)

	v := loadConfig(t, "debug: maybe\n")
	_, err = Resolve(v, Overrides{})
	assert.ErrorContains(t, err, "debug (config)")
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".aldq.yaml")
	require.NoError(t, WriteDefault(path))
	assert.ErrorIs(t, WriteDefault(path), ErrConfigExists)

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	s, err := Resolve(v, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "duckdb", s.Dialect)
	assert.Equal(t, 1.0, s.OutlierThreshold)
	assert.False(t, s.Database.Configured())
}
