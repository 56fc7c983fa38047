package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/bookingflow"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "booking_session:"

type RedisStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Create(ctx context.Context, sel *bookingflow.Selection) (string, error) {
	body, err := json.Marshal(sel)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	ok, err := s.rdb.SetNX(ctx, keyPrefix+id, body, s.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("create booking session: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("create booking session: id collision")
	}
	return id, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*bookingflow.Selection, error) {
	body, err := s.rdb.GetEx(ctx, keyPrefix+id, s.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load booking session: %w", err)
	}
	var sel bookingflow.Selection
	if err := json.Unmarshal(body, &sel); err != nil {
		return nil, fmt.Errorf("decode booking session: %w", err)
	}
	return &sel, nil
}

func (s *RedisStore) Save(ctx context.Context, id string, sel *bookingflow.Selection) error {
	body, err := json.Marshal(sel)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetXX(ctx, keyPrefix+id, body, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("save booking session: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, keyPrefix+id).Err()
}
