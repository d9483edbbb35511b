package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"savingsplanner/internal/module/savings/rate/domain"
)

// rateKeyPrefix namespaces rate rows in the shared redis instance.
const rateKeyPrefix = "savings:rate:"

// rateTTL bounds how long a written-through rate survives in redis. Far
// longer than the in-memory freshness window: the point is restart
// recovery, and a week-old rate is still a better stale fallback than none.
const rateTTL = 14 * 24 * time.Hour

// redisRepository is the redis-backed write-through store, used instead of
// the gorm one when a redis connection is configured. Failures are the
// caller's to tolerate; the in-memory cache remains the source of truth
// within a process lifetime.
type redisRepository struct {
	client *redis.Client
}

// NewRedis constructs a redis-backed Repository.
func NewRedis(client *redis.Client) Repository {
	return &redisRepository{client: client}
}

func rateKey(from, to string) string {
	return rateKeyPrefix + from + ":" + to
}

func (r *redisRepository) Get(ctx context.Context, from, to string) (*domain.RateRecord, error) {
	raw, err := r.client.Get(ctx, rateKey(from, to)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec domain.RateRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *redisRepository) Upsert(ctx context.Context, rec *domain.RateRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, rateKey(rec.FromCurrency, rec.ToCurrency), raw, rateTTL).Err()
}
