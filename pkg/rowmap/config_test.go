package rowmap

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/rzpsarthak13/rowmap/internal/registry"
)

func TestDefaultConfigMatchesInternalDefaults(t *testing.T) {
	data, err := yaml.Marshal(DefaultConfig())
	require.NoError(t, err)

	internal := &registry.InternalConfig{}
	require.NoError(t, yaml.Unmarshal(data, internal))
	assert.Equal(t, registry.DefaultInternalConfig(), internal)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "rowmap.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
database:
  driver: postgres
  host: db.internal
  port: 5432
  user: app
  database: awesome
  max_size: 4
journal:
  type: memory
drainer:
  poll_interval: 250ms
`), 0o600))

	config, err := LoadConfig(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "postgres", config.Database.Driver)
	assert.Equal(t, 5432, config.Database.Port)
	assert.Equal(t, 4, config.Database.MaxSize)
	assert.Equal(t, 1, config.Database.MinSize)
	assert.True(t, config.Database.Autocommit)
	assert.Equal(t, "memory", config.Journal.Type)
	assert.Equal(t, 250*time.Millisecond, config.Drainer.PollInterval)
	assert.Equal(t, 50, config.Drainer.Rate)

	jsonPath := filepath.Join(dir, "rowmap.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"database": {"driver": "sqlite", "database": "app.db"}}`), 0o600))
	config, err = LoadConfig(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", config.Database.Driver)
	assert.Equal(t, "app.db", config.Database.Database)
	assert.Equal(t, 10, config.Database.MaxSize)

	_, err = LoadConfig(filepath.Join(dir, "rowmap.toml"))
	assert.Error(t, err)

	tomlPath := filepath.Join(dir, "present.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte("x = 1"), 0o600))
	_, err = LoadConfig(tomlPath)
	assert.ErrorContains(t, err, "unsupported config file format")
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("ROWMAP_DATABASE_DRIVER", "sqlite")
	t.Setenv("ROWMAP_DATABASE_NAME", "env.db")
	t.Setenv("ROWMAP_DATABASE_MAX_SIZE", "3")
	t.Setenv("ROWMAP_DATABASE_AUTOCOMMIT", "false")
	t.Setenv("ROWMAP_JOURNAL_TYPE", "memory")
	t.Setenv("ROWMAP_DRAINER_POLL_INTERVAL", "1s")

	config, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", config.Database.Driver)
	assert.Equal(t, "env.db", config.Database.Database)
	assert.Equal(t, 3, config.Database.MaxSize)
	assert.False(t, config.Database.Autocommit)
	assert.Equal(t, "memory", config.Journal.Type)
	assert.Equal(t, time.Second, config.Drainer.PollInterval)
}

func TestConfigFromEnvInvalid(t *testing.T) {
	t.Setenv("ROWMAP_DATABASE_DRIVER", "oracle")
	t.Setenv("ROWMAP_DATABASE_NAME", "env.db")

	_, err := ConfigFromEnv()
	assert.ErrorContains(t, err, "database.driver")
}

func TestZeroConnectionTimeoutSurvivesHandOff(t *testing.T) {
	config := DefaultConfig()
	config.Database.Driver = "sqlite"
	config.Database.Database = "app.db"
	config.Database.ConnectionTimeout = 0

	data, err := (&configProvider{config: config}).GetYAML()
	require.NoError(t, err)

	configMgr := registry.NewConfigManager()
	require.NoError(t, configMgr.LoadFromYAML(data))
	assert.Zero(t, configMgr.GetConfig().Database.ConnectionTimeout)

	config.Database.ConnectionTimeout = 3 * time.Second
	data, err = (&configProvider{config: config}).GetYAML()
	require.NoError(t, err)
	require.NoError(t, configMgr.LoadFromYAML(data))
	assert.Equal(t, 3*time.Second, configMgr.GetConfig().Database.ConnectionTimeout)
}
