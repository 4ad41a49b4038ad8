package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stocktakehq/stocktake/internal/models"
)

// Redis key layout. Sessions live in a hash so ListSessions is a single
// HGETALL; the current slot and settings are plain keys.
const (
	redisKeyCurrent  = "stocktake:session:current"
	redisKeySessions = "stocktake:sessions"
	redisKeySettings = "stocktake:settings"
)

// RedisRepository provides Redis-backed data access with the same
// last-writer-wins semantics as the SQLite repository.
type RedisRepository struct {
	client *redis.Client
}

// NewRedis connects to Redis and returns a repository
func NewRedis(redisURL string) (*RedisRepository, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opt.MaxRetries = 3

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisRepository{client: client}, nil
}

// NewRedisWithClient wraps an existing client (tests)
func NewRedisWithClient(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

// Close closes the Redis connection
func (r *RedisRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Ping checks the Redis connection
func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// GetCurrent reads the current-session slot
func (r *RedisRepository) GetCurrent(ctx context.Context) (*models.FloorSession, error) {
	payload, err := r.client.Get(ctx, redisKeyCurrent).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var session models.FloorSession
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		return nil, fmt.Errorf("corrupt current session payload: %w", err)
	}
	return &session, nil
}

// SaveCurrent overwrites the current-session slot
func (r *RedisRepository) SaveCurrent(ctx context.Context, session *models.FloorSession) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisKeyCurrent, string(payload), 0).Err()
}

// ClearCurrent empties the current-session slot
func (r *RedisRepository) ClearCurrent(ctx context.Context) error {
	return r.client.Del(ctx, redisKeyCurrent).Err()
}

// GetSession reads one session from the collection
func (r *RedisRepository) GetSession(ctx context.Context, id string) (*models.FloorSession, error) {
	payload, err := r.client.HGet(ctx, redisKeySessions, id).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var session models.FloorSession
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		return nil, fmt.Errorf("corrupt session payload for %s: %w", id, err)
	}
	return &session, nil
}

// ListSessions returns every session in the collection
func (r *RedisRepository) ListSessions(ctx context.Context) ([]models.FloorSession, error) {
	payloads, err := r.client.HGetAll(ctx, redisKeySessions).Result()
	if err != nil {
		return nil, err
	}

	sessions := make([]models.FloorSession, 0, len(payloads))
	for id, payload := range payloads {
		var session models.FloorSession
		if err := json.Unmarshal([]byte(payload), &session); err != nil {
			return nil, fmt.Errorf("corrupt session payload for %s: %w", id, err)
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// CreateSession inserts a session into the collection
func (r *RedisRepository) CreateSession(ctx context.Context, session *models.FloorSession) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	created, err := r.client.HSetNX(ctx, redisKeySessions, session.ID, string(payload)).Result()
	if err != nil {
		return err
	}
	if !created {
		return ErrDuplicateID
	}
	return nil
}

// UpdateSession replaces a session in the collection if it exists
func (r *RedisRepository) UpdateSession(ctx context.Context, session *models.FloorSession) (bool, error) {
	exists, err := r.client.HExists(ctx, redisKeySessions, session.ID).Result()
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return false, err
	}
	if err := r.client.HSet(ctx, redisKeySessions, session.ID, string(payload)).Err(); err != nil {
		return false, err
	}
	return true, nil
}

// GetSetting retrieves a setting value by key
func (r *RedisRepository) GetSetting(ctx context.Context, key string) (string, error) {
	value, err := r.client.HGet(ctx, redisKeySettings, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return value, err
}

// SetSetting stores a setting value
func (r *RedisRepository) SetSetting(ctx context.Context, key, value string) error {
	return r.client.HSet(ctx, redisKeySettings, key, value).Err()
}
