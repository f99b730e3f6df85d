package auth

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"consolegw/internal/constants"
)

// RedisStore keeps token records in redis with native TTL expiry, so a pool
// of gateway processes can share one authorization backend.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(host, port, username, password string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Username: username,
		Password: password,
		DB:       0,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

func (st *RedisStore) Issue(ctx context.Context, info *ConnectInfo, ttl time.Duration) (string, error) {
	if err := info.Validate(); err != nil {
		return "", err
	}

	jsonData, err := json.Marshal(info)
	if err != nil {
		return "", err
	}

	token := uuid.New().String()
	key := constants.RedisKeyPrefix + hashToken(token)
	if err := st.client.Set(ctx, key, jsonData, ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

func (st *RedisStore) Resolve(ctx context.Context, token string) (*ConnectInfo, bool) {
	if token == "" {
		return nil, false
	}

	key := constants.RedisKeyPrefix + hashToken(token)
	data, err := st.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("Failed to get console token from Redis: %v", err)
		return nil, false
	}

	var info ConnectInfo
	if err := json.Unmarshal([]byte(data), &info); err != nil {
		log.Printf("Failed to unmarshal connect info: %v", err)
		return nil, false
	}

	return &info, true
}

func (st *RedisStore) Close() error {
	return st.client.Close()
}
