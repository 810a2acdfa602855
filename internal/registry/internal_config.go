package registry

import (
	"time"
)

// InternalConfig represents the internal configuration structure.
// This is a copy of the public Config type to avoid import cycles.
type InternalConfig struct {
	Database InternalDatabaseConfig `yaml:"database" json:"database"`
	Journal  InternalJournalConfig  `yaml:"journal" json:"journal"`
	Drainer  InternalDrainerConfig  `yaml:"drainer" json:"drainer"`
}

// InternalDatabaseConfig contains the connection pool configuration.
type InternalDatabaseConfig struct {
	Driver            string        `yaml:"driver" json:"driver"`
	Host              string        `yaml:"host" json:"host"`
	Port              int           `yaml:"port" json:"port"`
	User              string        `yaml:"user" json:"user"`
	Password          string        `yaml:"password,omitempty" json:"password,omitempty"`
	Database          string        `yaml:"database" json:"database"`
	Charset           string        `yaml:"charset" json:"charset"`
	SSLMode           string        `yaml:"ssl_mode,omitempty" json:"ssl_mode,omitempty"`
	Autocommit        bool          `yaml:"autocommit" json:"autocommit"`
	MinSize           int           `yaml:"min_size" json:"min_size"`
	MaxSize           int           `yaml:"max_size" json:"max_size"`
	ConnMaxLifetime   time.Duration `yaml:"conn_max_lifetime,omitempty" json:"conn_max_lifetime,omitempty"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout" json:"connection_timeout"`
}

// InternalJournalConfig selects and configures the change journal.
// An empty Type disables the journal.
type InternalJournalConfig struct {
	Type           string                 `yaml:"type" json:"type"`
	BufferSize     int                    `yaml:"buffer_size,omitempty" json:"buffer_size,omitempty"`
	RedisConfig    InternalRedisConfig    `yaml:"redis_config,omitempty" json:"redis_config,omitempty"`
	KafkaConfig    InternalKafkaConfig    `yaml:"kafka_config,omitempty" json:"kafka_config,omitempty"`
	DynamoDBConfig InternalDynamoDBConfig `yaml:"dynamodb_config,omitempty" json:"dynamodb_config,omitempty"`
}

// InternalRedisConfig contains Redis-specific configuration.
type InternalRedisConfig struct {
	Endpoints    []string      `yaml:"endpoints" json:"endpoints"`
	Password     string        `yaml:"password,omitempty" json:"password,omitempty"`
	DB           int           `yaml:"db,omitempty" json:"db,omitempty"`
	PoolSize     int           `yaml:"pool_size,omitempty" json:"pool_size,omitempty"`
	Key          string        `yaml:"key,omitempty" json:"key,omitempty"`
	DialTimeout  time.Duration `yaml:"dial_timeout,omitempty" json:"dial_timeout,omitempty"`
	ReadTimeout  time.Duration `yaml:"read_timeout,omitempty" json:"read_timeout,omitempty"`
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty" json:"write_timeout,omitempty"`
}

// InternalKafkaConfig contains Kafka-specific configuration.
type InternalKafkaConfig struct {
	Brokers      []string      `yaml:"brokers" json:"brokers"`
	Topic        string        `yaml:"topic" json:"topic"`
	GroupID      string        `yaml:"group_id" json:"group_id"`
	BatchSize    int           `yaml:"batch_size" json:"batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout" json:"batch_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	RequiredAcks int           `yaml:"required_acks" json:"required_acks"`
	MinBytes     int           `yaml:"min_bytes" json:"min_bytes"`
	MaxBytes     int           `yaml:"max_bytes" json:"max_bytes"`
	MaxWait      time.Duration `yaml:"max_wait" json:"max_wait"`
}

// InternalDynamoDBConfig contains DynamoDB-specific configuration.
type InternalDynamoDBConfig struct {
	Region          string `yaml:"region" json:"region"`
	TableName       string `yaml:"table_name" json:"table_name"`
	Endpoint        string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" json:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" json:"secret_access_key,omitempty"`
}

// InternalDrainerConfig controls how fast journal events are consumed.
type InternalDrainerConfig struct {
	Rate         int           `yaml:"rate" json:"rate"` // Events per second
	BatchSize    int           `yaml:"batch_size" json:"batch_size"`
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`
}
