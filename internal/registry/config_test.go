package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testJournalValidator struct{}

func (testJournalValidator) Type() string { return "test-journal" }

func (testJournalValidator) Validate(config *InternalConfig) error {
	if config.Journal.BufferSize <= 0 {
		return errors.New("buffer_size must be greater than 0")
	}
	return nil
}

func init() {
	RegisterValidator(testJournalValidator{})
}

func TestDefaults(t *testing.T) {
	cfg := DefaultInternalConfig()
	assert.Equal(t, DriverMySQL, cfg.Database.Driver)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, "utf8", cfg.Database.Charset)
	assert.True(t, cfg.Database.Autocommit)
	assert.Equal(t, 1, cfg.Database.MinSize)
	assert.Equal(t, 10, cfg.Database.MaxSize)
	assert.Empty(t, cfg.Journal.Type)
}

func TestLoadFromYAML(t *testing.T) {
	cm := NewConfigManager()
	err := cm.LoadFromYAML([]byte(`
database:
  driver: postgres
  host: db.internal
  port: 5432
  user: www-data
  password: www-data
  database: awesome
  max_size: 4
  connection_timeout: 3s
journal:
  type: test-journal
drainer:
  rate: 5
`))
	require.NoError(t, err)
	cfg := cm.GetConfig()
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 4, cfg.Database.MaxSize)
	assert.Equal(t, 1, cfg.Database.MinSize, "unset keys keep their defaults")
	assert.Equal(t, 3*time.Second, cfg.Database.ConnectionTimeout)
	assert.Equal(t, "test-journal", cfg.Journal.Type)
	assert.Equal(t, 5, cfg.Drainer.Rate)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rowmap.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"database":{"driver":"sqlite","database":"/tmp/x.db"}}`), 0o600))

	cm := NewConfigManager()
	require.NoError(t, cm.LoadFromFile(path))
	assert.Equal(t, DriverSQLite, cm.GetConfig().Database.Driver)

	bad := filepath.Join(dir, "rowmap.toml")
	require.NoError(t, os.WriteFile(bad, []byte(""), 0o600))
	assert.Error(t, cm.LoadFromFile(bad))
	assert.Error(t, cm.LoadFromFile(filepath.Join(dir, "missing.yaml")))
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing user", "database: {database: d}"},
		{"bad driver", "database: {driver: oracle, user: u, database: d}"},
		{"bad port", "database: {user: u, database: d, port: 70000}"},
		{"missing database", "database: {user: u}"},
		{"min above max", "database: {user: u, database: d, min_size: 5, max_size: 2}"},
		{"zero max", "database: {user: u, database: d, max_size: 0}"},
		{"unknown journal", "database: {user: u, database: d}\njournal: {type: carrier-pigeon}"},
		{"journal strategy", "database: {user: u, database: d}\njournal: {type: test-journal, buffer_size: -1}"},
		{"drainer rate", "database: {user: u, database: d}\ndrainer: {rate: 0}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cm := NewConfigManager()
			assert.Error(t, cm.LoadFromYAML([]byte(tt.yaml)))
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ROWMAP_DATABASE_DRIVER", "mysql")
	t.Setenv("ROWMAP_DATABASE_USER", "www-data")
	t.Setenv("ROWMAP_DATABASE_NAME", "awesome")
	t.Setenv("ROWMAP_DATABASE_MAX_SIZE", "20")
	t.Setenv("ROWMAP_DATABASE_AUTOCOMMIT", "false")
	t.Setenv("ROWMAP_JOURNAL_KAFKA_BROKERS", "k1:9092,k2:9092")

	cm := NewConfigManager()
	require.NoError(t, cm.LoadFromEnv())
	cfg := cm.GetConfig()
	assert.Equal(t, "www-data", cfg.Database.User)
	assert.Equal(t, "awesome", cfg.Database.Database)
	assert.Equal(t, 20, cfg.Database.MaxSize)
	assert.False(t, cfg.Database.Autocommit)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Journal.KafkaConfig.Brokers)
}

func TestApplyEnvOverridesFile(t *testing.T) {
	cm := NewConfigManager()
	require.NoError(t, cm.LoadFromYAML([]byte("database: {user: u, database: d, host: from-file}")))

	t.Setenv("ROWMAP_DATABASE_HOST", "from-env")
	require.NoError(t, cm.ApplyEnv())
	assert.Equal(t, "from-env", cm.GetConfig().Database.Host)
	assert.Equal(t, "u", cm.GetConfig().Database.User)
}

func TestRegisterValidatorPanics(t *testing.T) {
	assert.Panics(t, func() { RegisterValidator(nil) })
	assert.Panics(t, func() { RegisterValidator(testJournalValidator{}) })
}
