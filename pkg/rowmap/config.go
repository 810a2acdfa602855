package rowmap

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rzpsarthak13/rowmap/internal/registry"
)

// Config represents the root configuration for a rowmap client.
// Every field can also be overridden through ROWMAP_* environment variables
// when the client is opened.
type Config struct {
	// Database configures the connection pool.
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Journal configures the optional change journal. Leave Type empty to disable it.
	Journal JournalConfig `yaml:"journal" json:"journal"`

	// Drainer controls how fast journal events are consumed.
	Drainer DrainerConfig `yaml:"drainer" json:"drainer"`
}

// DatabaseConfig contains configuration for the connection pool.
type DatabaseConfig struct {
	// Driver is one of "mysql", "postgres" or "sqlite".
	Driver string `yaml:"driver" json:"driver"`

	// Host is the database host address. Ignored for sqlite.
	Host string `yaml:"host" json:"host"`

	// Port is the database port number. Ignored for sqlite.
	Port int `yaml:"port" json:"port"`

	// User is the database username.
	User string `yaml:"user" json:"user"`

	// Password is the database password.
	Password string `yaml:"password,omitempty" json:"password,omitempty"`

	// Database is the database name, or the file path for sqlite.
	Database string `yaml:"database" json:"database"`

	// Charset is the MySQL connection character set.
	Charset string `yaml:"charset" json:"charset"`

	// SSLMode is the PostgreSQL sslmode (e.g. "require", "disable").
	SSLMode string `yaml:"ssl_mode,omitempty" json:"ssl_mode,omitempty"`

	// Autocommit selects the session commit mode. When false, every entity
	// write runs in its own transaction.
	Autocommit bool `yaml:"autocommit" json:"autocommit"`

	// MinSize is the number of connections established when the pool opens.
	MinSize int `yaml:"min_size" json:"min_size"`

	// MaxSize bounds the number of open connections. Callers block when
	// every connection is in use.
	MaxSize int `yaml:"max_size" json:"max_size"`

	// ConnMaxLifetime is the maximum amount of time a connection may be reused.
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime,omitempty" json:"conn_max_lifetime,omitempty"`

	// ConnectionTimeout bounds establishing the initial connections. Zero disables it.
	ConnectionTimeout time.Duration `yaml:"connection_timeout" json:"connection_timeout"`
}

// JournalConfig selects the change journal backend.
type JournalConfig struct {
	// Type is "memory", "redis", "kafka" or "dynamodb".
	Type string `yaml:"type" json:"type"`

	// BufferSize bounds the memory journal.
	BufferSize int `yaml:"buffer_size,omitempty" json:"buffer_size,omitempty"`

	RedisConfig    RedisConfig    `yaml:"redis_config,omitempty" json:"redis_config,omitempty"`
	KafkaConfig    KafkaConfig    `yaml:"kafka_config,omitempty" json:"kafka_config,omitempty"`
	DynamoDBConfig DynamoDBConfig `yaml:"dynamodb_config,omitempty" json:"dynamodb_config,omitempty"`
}

// RedisConfig contains configuration for the Redis list journal.
type RedisConfig struct {
	// Endpoints lists the Redis addresses. More than one selects cluster mode.
	Endpoints []string `yaml:"endpoints" json:"endpoints"`

	Password string `yaml:"password,omitempty" json:"password,omitempty"`
	DB       int    `yaml:"db,omitempty" json:"db,omitempty"`
	PoolSize int    `yaml:"pool_size,omitempty" json:"pool_size,omitempty"`

	// Key is the Redis list holding the events.
	Key string `yaml:"key,omitempty" json:"key,omitempty"`

	DialTimeout  time.Duration `yaml:"dial_timeout,omitempty" json:"dial_timeout,omitempty"`
	ReadTimeout  time.Duration `yaml:"read_timeout,omitempty" json:"read_timeout,omitempty"`
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty" json:"write_timeout,omitempty"`
}

// KafkaConfig contains configuration for the Kafka journal.
type KafkaConfig struct {
	// Brokers is a list of Kafka broker addresses (e.g., ["localhost:9092"]).
	Brokers []string `yaml:"brokers" json:"brokers"`

	// Topic receives one message per change, keyed by table name.
	Topic string `yaml:"topic" json:"topic"`

	// GroupID is the consumer group used by drainers.
	GroupID string `yaml:"group_id" json:"group_id"`

	BatchSize    int           `yaml:"batch_size" json:"batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout" json:"batch_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`

	// RequiredAcks is the number of acknowledgments required (0, 1, or -1 for all).
	RequiredAcks int `yaml:"required_acks" json:"required_acks"`

	MinBytes int           `yaml:"min_bytes" json:"min_bytes"`
	MaxBytes int           `yaml:"max_bytes" json:"max_bytes"`
	MaxWait  time.Duration `yaml:"max_wait" json:"max_wait"`
}

// DynamoDBConfig contains configuration for the DynamoDB journal.
type DynamoDBConfig struct {
	Region    string `yaml:"region" json:"region"`
	TableName string `yaml:"table_name" json:"table_name"`

	// Endpoint overrides the service endpoint, e.g. for LocalStack.
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`

	// AccessKeyID and SecretAccessKey are optional; the default AWS
	// credential chain is used when they are empty.
	AccessKeyID     string `yaml:"access_key_id,omitempty" json:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" json:"secret_access_key,omitempty"`
}

// DrainerConfig contains configuration for journal drainers.
type DrainerConfig struct {
	// Rate is the maximum number of events handed to the handler per second.
	Rate int `yaml:"rate" json:"rate"`

	// BatchSize is how many events are read from the journal at once.
	BatchSize int `yaml:"batch_size" json:"batch_size"`

	// PollInterval is how long to wait when the journal is empty.
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`
}

// DefaultConfig returns a configuration with sensible defaults.
// Database.User and Database.Database must still be set.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:            "mysql",
			Host:              "localhost",
			Port:              3306,
			Charset:           "utf8",
			Autocommit:        true,
			MinSize:           1,
			MaxSize:           10,
			ConnectionTimeout: 10 * time.Second,
		},
		Journal: JournalConfig{
			BufferSize: 10000,
			RedisConfig: RedisConfig{
				Endpoints:    []string{"localhost:6379"},
				PoolSize:     10,
				Key:          "rowmap:journal",
				DialTimeout:  5 * time.Second,
				ReadTimeout:  3 * time.Second,
				WriteTimeout: 3 * time.Second,
			},
			KafkaConfig: KafkaConfig{
				Brokers:      []string{"localhost:9092"},
				Topic:        "rowmap-changes",
				GroupID:      "rowmap-changes",
				BatchSize:    100,
				BatchTimeout: 10 * time.Millisecond,
				WriteTimeout: 10 * time.Second,
				ReadTimeout:  10 * time.Second,
				RequiredAcks: -1, // All replicas
				MinBytes:     1,
				MaxBytes:     10 * 1024 * 1024, // 10MB
				MaxWait:      100 * time.Millisecond,
			},
			DynamoDBConfig: DynamoDBConfig{
				Region:    "us-east-1",
				TableName: "rowmap-changes",
			},
		},
		Drainer: DrainerConfig{
			Rate:         50,
			BatchSize:    10,
			PollInterval: 100 * time.Millisecond,
		},
	}
}

// LoadConfig reads a YAML (.yaml, .yml) or JSON (.json) file on top of DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	case ".json":
		err = json.Unmarshal(data, config)
	default:
		return nil, fmt.Errorf("unsupported config file format: %s (supported: .yaml, .yml, .json)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return config, nil
}

// ConfigFromEnv builds a configuration from the defaults and ROWMAP_*
// environment variables (e.g. ROWMAP_DATABASE_DRIVER, ROWMAP_DATABASE_USER,
// ROWMAP_JOURNAL_TYPE). The result is validated.
func ConfigFromEnv() (*Config, error) {
	configMgr := registry.NewConfigManager()
	if err := configMgr.LoadFromEnv(); err != nil {
		return nil, err
	}

	data, err := yaml.Marshal(configMgr.GetConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return config, nil
}
