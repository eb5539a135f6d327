package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings for the Redis backend
type RedisConfig struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

// Redis is a Store shared between processes. Ids come from INCR, which
// serializes allocation across all writers.
type Redis struct {
	client *redis.Client
	prefix string
	opts   options
}

// NewRedis connects to Redis and verifies the connection
func NewRedis(cfg RedisConfig, opts ...Option) (*Redis, error) {
	if cfg.Address == "" {
		return nil, errors.New("redis address cannot be empty")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "seo"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Redis{client: client, prefix: cfg.KeyPrefix, opts: buildOptions(opts)}, nil
}

func (r *Redis) seqKey() string {
	return r.prefix + ":analysis:seq"
}

func (r *Redis) listKey() string {
	return r.prefix + ":analyses"
}

func (r *Redis) urlKey() string {
	return r.prefix + ":analysis:url"
}

func (r *Redis) recordKey(id int64) string {
	return r.prefix + ":analysis:" + strconv.FormatInt(id, 10)
}

// Append allocates an id and stores rec under it
func (r *Redis) Append(ctx context.Context, rec Record) (StoredRecord, error) {
	id, err := r.client.Incr(ctx, r.seqKey()).Result()
	if err != nil {
		return StoredRecord{}, fmt.Errorf("failed to allocate id: %w", err)
	}

	stored := StoredRecord{
		ID:        id,
		Record:    cloneRecord(rec),
		CreatedAt: formatCreatedAt(r.opts.now()),
	}
	payload, err := json.Marshal(stored)
	if err != nil {
		return StoredRecord{}, fmt.Errorf("failed to marshal record: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.recordKey(id), payload, 0)
		pipe.LPush(ctx, r.listKey(), id)
		pipe.HSetNX(ctx, r.urlKey(), rec.URL, id)
		return nil
	})
	if err != nil {
		return StoredRecord{}, fmt.Errorf("failed to store record %d: %w", id, err)
	}
	return stored, nil
}

// ListRecent returns up to limit records, most recent first
func (r *Redis) ListRecent(ctx context.Context, limit int) ([]StoredRecord, error) {
	limit = normalizeLimit(limit)

	ids, err := r.client.LRange(ctx, r.listKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	if len(ids) == 0 {
		return []StoredRecord{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.prefix + ":analysis:" + id
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	records := make([]StoredRecord, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var rec StoredRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}
		records = append(records, rec)
	}
	sortRecent(records)
	return records, nil
}

// Get returns the record with the given id
func (r *Redis) Get(ctx context.Context, id int64) (StoredRecord, error) {
	payload, err := r.client.Get(ctx, r.recordKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return StoredRecord{}, ErrNotFound
		}
		return StoredRecord{}, fmt.Errorf("failed to load record %d: %w", id, err)
	}

	var rec StoredRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return StoredRecord{}, fmt.Errorf("failed to decode record %d: %w", id, err)
	}
	return rec, nil
}

// FindByURL returns the first record stored for url
func (r *Redis) FindByURL(ctx context.Context, url string) (StoredRecord, error) {
	id, err := r.client.HGet(ctx, r.urlKey(), url).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return StoredRecord{}, ErrNotFound
		}
		return StoredRecord{}, fmt.Errorf("failed to look up %s: %w", url, err)
	}
	return r.Get(ctx, id)
}

// Close closes the Redis connection
func (r *Redis) Close() error {
	return r.client.Close()
}
