package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each session in a hash at session:<id> with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient connects to redisURL (redis://host:port/db) and verifies the connection.
func NewRedisClient(redisURL, password string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if password != "" {
		opts.Password = password
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func key(id string) string {
	return "session:" + id
}

func (s *RedisStore) Load(ctx context.Context, id string) (Data, error) {
	fields, err := s.client.HGetAll(ctx, key(id)).Result()
	if err != nil {
		return Data{}, err
	}
	if len(fields) == 0 {
		return Data{}, ErrNoSession
	}

	data := Data{UserID: fields["user_id"]}
	if v, ok := fields["num_visits"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Data{}, fmt.Errorf("invalid num_visits in session %s: %w", id, err)
		}
		data.NumVisits = n
	}
	return data, nil
}

// Save upserts the hash and pushes the expiry out by the full TTL.
func (s *RedisStore) Save(ctx context.Context, id string, data Data) error {
	k := key(id)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, k, map[string]any{
			"user_id":    data.UserID,
			"num_visits": data.NumVisits,
		})
		pipe.Expire(ctx, k, s.ttl)
		return nil
	})
	return err
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, key(id)).Err()
}
