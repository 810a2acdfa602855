package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/rzpsarthak13/rowmap/internal/core"
	"github.com/rzpsarthak13/rowmap/internal/registry"
)

// RedisJournal stores events in a Redis list: RPUSH to append, LPOP to read.
type RedisJournal struct {
	client redis.UniversalClient
	key    string
	mu     sync.RWMutex
	closed bool
}

// NewRedisJournal connects to Redis and verifies the connection.
// More than one endpoint selects a cluster client.
func NewRedisJournal(config registry.InternalRedisConfig) (*RedisJournal, error) {
	if len(config.Endpoints) == 0 {
		return nil, fmt.Errorf("at least one endpoint is required")
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        config.Endpoints,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), config.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Printf("[REDIS] Journal ready on %v (key: %s)", config.Endpoints, config.Key)
	return NewRedisJournalFromClient(client, config.Key), nil
}

// NewRedisJournalFromClient wraps an existing client.
func NewRedisJournalFromClient(client redis.UniversalClient, key string) *RedisJournal {
	if key == "" {
		key = "rowmap:journal"
	}
	return &RedisJournal{client: client, key: key}
}

func (j *RedisJournal) isClosed() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.closed
}

// Append serializes the event as JSON and pushes it to the tail of the list.
func (j *RedisJournal) Append(ctx context.Context, event *core.ChangeEvent) error {
	if j.isClosed() {
		return ErrJournalClosed
	}
	if err := checkEvent(event); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}
	if err := j.client.RPush(ctx, j.key, data).Err(); err != nil {
		log.Printf("[REDIS] ERROR: Failed to append to %s: %v", j.key, err)
		return fmt.Errorf("failed to append change event: %w", err)
	}
	return nil
}

// Read pops up to batchSize events from the head of the list.
// Entries that fail to decode are skipped.
func (j *RedisJournal) Read(ctx context.Context, batchSize int) ([]*core.ChangeEvent, error) {
	if j.isClosed() {
		return nil, ErrJournalClosed
	}
	batchSize = batchOrDefault(batchSize)
	events := make([]*core.ChangeEvent, 0, batchSize)

	for i := 0; i < batchSize; i++ {
		data, err := j.client.LPop(ctx, j.key).Bytes()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return events, fmt.Errorf("failed to read change event: %w", err)
		}

		var event core.ChangeEvent
		if err := json.Unmarshal(data, &event); err != nil {
			log.Printf("[REDIS] ERROR: Skipping undecodable journal entry: %v", err)
			continue
		}
		events = append(events, &event)
	}
	return events, nil
}

// Size returns the list length, or 0 if Redis cannot be reached.
func (j *RedisJournal) Size() int {
	if j.isClosed() {
		return 0
	}
	n, err := j.client.LLen(context.Background(), j.key).Result()
	if err != nil {
		return 0
	}
	return int(n)
}

// Close closes the Redis client.
func (j *RedisJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true
	return j.client.Close()
}

type redisFactory struct{}

func (redisFactory) Type() string { return "redis" }

func (redisFactory) Create(config registry.InternalJournalConfig) (core.ChangeJournal, error) {
	j, err := NewRedisJournal(config.RedisConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis journal: %w", err)
	}
	return j, nil
}

func validateRedis(config registry.InternalJournalConfig) error {
	rc := config.RedisConfig
	if len(rc.Endpoints) == 0 {
		return fmt.Errorf("at least one endpoint is required for Redis")
	}
	if rc.DB < 0 || rc.DB > 15 {
		return fmt.Errorf("Redis DB must be between 0 and 15, got: %d", rc.DB)
	}
	if rc.PoolSize <= 0 {
		return fmt.Errorf("pool_size must be greater than 0, got: %d", rc.PoolSize)
	}
	if rc.DialTimeout <= 0 {
		return fmt.Errorf("dial_timeout must be greater than 0, got: %v", rc.DialTimeout)
	}
	if rc.ReadTimeout <= 0 {
		return fmt.Errorf("read_timeout must be greater than 0, got: %v", rc.ReadTimeout)
	}
	if rc.WriteTimeout <= 0 {
		return fmt.Errorf("write_timeout must be greater than 0, got: %v", rc.WriteTimeout)
	}
	return nil
}

func init() {
	register(redisFactory{}, validateRedis)
}
