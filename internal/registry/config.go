package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigValidator is the Strategy interface for validating configuration.
// Each journal backend (redis, kafka, dynamodb, ...) provides its own
// validator for its section of the configuration.
type ConfigValidator interface {
	// Validate validates the journal-specific part of the configuration.
	Validate(config *InternalConfig) error

	// Type returns the journal type this validator handles (e.g. "redis").
	Type() string
}

var (
	// validatorRegistry stores all registered config validators.
	validatorRegistry = make(map[string]ConfigValidator)

	// validatorRegistryMutex protects the validator registry from concurrent access.
	validatorRegistryMutex sync.RWMutex
)

// RegisterValidator registers a config validator. It is called from the
// init() function of each journal backend.
// Panics if validator is nil, type is empty, or type is already registered.
func RegisterValidator(validator ConfigValidator) {
	if validator == nil {
		panic("validator cannot be nil")
	}
	if validator.Type() == "" {
		panic("validator type cannot be empty")
	}

	validatorRegistryMutex.Lock()
	defer validatorRegistryMutex.Unlock()

	if _, exists := validatorRegistry[validator.Type()]; exists {
		panic(fmt.Sprintf("validator for type %q is already registered", validator.Type()))
	}

	validatorRegistry[validator.Type()] = validator
}

// GetValidator retrieves a validator by type.
func GetValidator(validatorType string) (ConfigValidator, bool) {
	validatorRegistryMutex.RLock()
	defer validatorRegistryMutex.RUnlock()

	validator, exists := validatorRegistry[validatorType]
	return validator, exists
}

// Supported database drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ConfigManager handles loading and managing configuration from various sources.
type ConfigManager struct {
	config *InternalConfig
}

// NewConfigManager creates a new configuration manager with default configuration.
func NewConfigManager() *ConfigManager {
	return &ConfigManager{
		config: DefaultInternalConfig(),
	}
}

// DefaultInternalConfig returns a configuration with sensible defaults.
func DefaultInternalConfig() *InternalConfig {
	return &InternalConfig{
		Database: InternalDatabaseConfig{
			Driver:            DriverMySQL,
			Host:              "localhost",
			Port:              3306,
			Charset:           "utf8",
			Autocommit:        true,
			MinSize:           1,
			MaxSize:           10,
			ConnMaxLifetime:   0,
			ConnectionTimeout: 10 * time.Second,
		},
		Journal: InternalJournalConfig{
			Type:       "",
			BufferSize: 10000,
			RedisConfig: InternalRedisConfig{
				Endpoints:    []string{"localhost:6379"},
				PoolSize:     10,
				Key:          "rowmap:journal",
				DialTimeout:  5 * time.Second,
				ReadTimeout:  3 * time.Second,
				WriteTimeout: 3 * time.Second,
			},
			KafkaConfig: InternalKafkaConfig{
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
			DynamoDBConfig: InternalDynamoDBConfig{
				Region:    "us-east-1",
				TableName: "rowmap-changes",
			},
		},
		Drainer: InternalDrainerConfig{
			Rate:         50,
			BatchSize:    10,
			PollInterval: 100 * time.Millisecond,
		},
	}
}

// LoadFromFile loads configuration from a YAML or JSON file.
// The file format is determined by the file extension (.yaml, .yml, or .json).
func (cm *ConfigManager) LoadFromFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".yaml", ".yml":
		return cm.LoadFromYAML(data)
	case ".json":
		return cm.LoadFromJSON(data)
	default:
		return fmt.Errorf("unsupported config file format: %s (supported: .yaml, .yml, .json)", ext)
	}
}

// LoadFromYAML loads configuration from YAML data on top of the defaults.
func (cm *ConfigManager) LoadFromYAML(data []byte) error {
	config := DefaultInternalConfig()
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}
	return cm.setConfig(config)
}

// LoadFromJSON loads configuration from JSON data on top of the defaults.
func (cm *ConfigManager) LoadFromJSON(data []byte) error {
	config := DefaultInternalConfig()
	if len(data) > 0 {
		if err := json.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse JSON config: %w", err)
		}
	}
	return cm.setConfig(config)
}

// LoadFromEnv loads configuration from the defaults plus environment variables.
// See ApplyEnv for the recognised variables.
func (cm *ConfigManager) LoadFromEnv() error {
	config := DefaultInternalConfig()
	applyEnv(config)
	return cm.setConfig(config)
}

// ApplyEnv overrides the current configuration with environment variables.
// Environment variables follow the pattern ROWMAP_<SECTION>_<KEY>, e.g.:
//   - ROWMAP_DATABASE_DRIVER=postgres
//   - ROWMAP_DATABASE_HOST=db.internal
//   - ROWMAP_DATABASE_MAX_SIZE=20
//   - ROWMAP_JOURNAL_TYPE=kafka
//   - ROWMAP_JOURNAL_KAFKA_BROKERS=k1:9092,k2:9092
//   - ROWMAP_DRAINER_RATE=100
func (cm *ConfigManager) ApplyEnv() error {
	config := *cm.config
	applyEnv(&config)
	return cm.setConfig(&config)
}

func applyEnv(config *InternalConfig) {
	// Database configuration
	envString("ROWMAP_DATABASE_DRIVER", &config.Database.Driver)
	envString("ROWMAP_DATABASE_HOST", &config.Database.Host)
	envInt("ROWMAP_DATABASE_PORT", &config.Database.Port)
	envString("ROWMAP_DATABASE_USER", &config.Database.User)
	envString("ROWMAP_DATABASE_PASSWORD", &config.Database.Password)
	envString("ROWMAP_DATABASE_NAME", &config.Database.Database)
	envString("ROWMAP_DATABASE_CHARSET", &config.Database.Charset)
	envString("ROWMAP_DATABASE_SSL_MODE", &config.Database.SSLMode)
	envBool("ROWMAP_DATABASE_AUTOCOMMIT", &config.Database.Autocommit)
	envInt("ROWMAP_DATABASE_MIN_SIZE", &config.Database.MinSize)
	envInt("ROWMAP_DATABASE_MAX_SIZE", &config.Database.MaxSize)
	envDuration("ROWMAP_DATABASE_CONN_MAX_LIFETIME", &config.Database.ConnMaxLifetime)
	envDuration("ROWMAP_DATABASE_CONNECTION_TIMEOUT", &config.Database.ConnectionTimeout)

	// Journal configuration
	envString("ROWMAP_JOURNAL_TYPE", &config.Journal.Type)
	envInt("ROWMAP_JOURNAL_BUFFER_SIZE", &config.Journal.BufferSize)
	envList("ROWMAP_JOURNAL_REDIS_ENDPOINTS", &config.Journal.RedisConfig.Endpoints)
	envString("ROWMAP_JOURNAL_REDIS_PASSWORD", &config.Journal.RedisConfig.Password)
	envInt("ROWMAP_JOURNAL_REDIS_DB", &config.Journal.RedisConfig.DB)
	envString("ROWMAP_JOURNAL_REDIS_KEY", &config.Journal.RedisConfig.Key)
	envList("ROWMAP_JOURNAL_KAFKA_BROKERS", &config.Journal.KafkaConfig.Brokers)
	envString("ROWMAP_JOURNAL_KAFKA_TOPIC", &config.Journal.KafkaConfig.Topic)
	envString("ROWMAP_JOURNAL_KAFKA_GROUP_ID", &config.Journal.KafkaConfig.GroupID)
	envString("ROWMAP_JOURNAL_DYNAMODB_REGION", &config.Journal.DynamoDBConfig.Region)
	envString("ROWMAP_JOURNAL_DYNAMODB_TABLE_NAME", &config.Journal.DynamoDBConfig.TableName)
	envString("ROWMAP_JOURNAL_DYNAMODB_ENDPOINT", &config.Journal.DynamoDBConfig.Endpoint)

	// Drainer configuration
	envInt("ROWMAP_DRAINER_RATE", &config.Drainer.Rate)
	envInt("ROWMAP_DRAINER_BATCH_SIZE", &config.Drainer.BatchSize)
	envDuration("ROWMAP_DRAINER_POLL_INTERVAL", &config.Drainer.PollInterval)
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		*dst = val == "true" || val == "1"
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

func envList(key string, dst *[]string) {
	if val := os.Getenv(key); val != "" {
		*dst = strings.Split(val, ",")
	}
}

func (cm *ConfigManager) setConfig(config *InternalConfig) error {
	if err := cm.validateConfig(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cm.config = config
	return nil
}

// GetConfig returns the current internal configuration.
func (cm *ConfigManager) GetConfig() *InternalConfig {
	return cm.config
}

// validateConfig validates the configuration and returns an error if invalid.
// Journal sections are validated by the strategy registered for the journal type.
func (cm *ConfigManager) validateConfig(config *InternalConfig) error {
	db := config.Database
	switch db.Driver {
	case DriverMySQL, DriverPostgres:
		if db.Host == "" {
			return fmt.Errorf("database.host is required")
		}
		if db.Port <= 0 || db.Port > 65535 {
			return fmt.Errorf("database.port must be between 1 and 65535")
		}
		if db.User == "" {
			return fmt.Errorf("database.user is required")
		}
	case DriverSQLite:
	case "":
		return fmt.Errorf("database.driver is required")
	default:
		return fmt.Errorf("database.driver must be 'mysql', 'postgres' or 'sqlite'")
	}
	if db.Database == "" {
		return fmt.Errorf("database.database is required")
	}
	if db.MaxSize <= 0 {
		return fmt.Errorf("database.max_size must be greater than 0")
	}
	if db.MinSize < 0 || db.MinSize > db.MaxSize {
		return fmt.Errorf("database.min_size must be between 0 and database.max_size")
	}

	if config.Journal.Type != "" {
		validator, exists := GetValidator(config.Journal.Type)
		if !exists {
			return fmt.Errorf("unsupported journal type: %s", config.Journal.Type)
		}
		if err := validator.Validate(config); err != nil {
			return fmt.Errorf("journal validation failed: %w", err)
		}
	}

	if config.Drainer.Rate <= 0 {
		return fmt.Errorf("drainer.rate must be greater than 0")
	}
	if config.Drainer.BatchSize <= 0 {
		return fmt.Errorf("drainer.batch_size must be greater than 0")
	}

	return nil
}
