package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rewired-gh/oisentry/internal/models"
)

// DefaultRedisKey is the list holding one JSON tick per element.
const DefaultRedisKey = "oisentry:history"

// Redis keeps the history in a list, oldest at the head.
type Redis struct {
	client *redis.Client
	key    string
}

func NewRedis(ctx context.Context, addr, password string, db int, key string) (*Redis, error) {
	if key == "" {
		key = DefaultRedisKey
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &Redis{client: client, key: key}, nil
}

func (r *Redis) Load(ctx context.Context) ([]models.Tick, error) {
	items, err := r.client.LRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history list: %w", err)
	}
	ticks := make([]models.Tick, 0, len(items))
	for i, item := range items {
		t, err := decodeListTick(item)
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrCorruptState, i, err)
		}
		ticks = append(ticks, t)
	}
	return ticks, nil
}

func decodeListTick(item string) (models.Tick, error) {
	var t models.Tick
	if err := json.Unmarshal([]byte(item), &t); err != nil {
		return models.Tick{}, err
	}
	if err := t.Validate(); err != nil {
		return models.Tick{}, err
	}
	return t, nil
}

// Save replaces the list inside MULTI/EXEC.
func (r *Redis) Save(ctx context.Context, ticks []models.Tick) error {
	values := make([]interface{}, 0, len(ticks))
	for _, t := range ticks {
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("failed to encode tick: %w", err)
		}
		values = append(values, b)
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key)
		if len(values) > 0 {
			pipe.RPush(ctx, r.key, values...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write history list: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
