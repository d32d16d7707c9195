package nutrition

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/habitpet/caloriecam/internal/estimation"
	"github.com/habitpet/caloriecam/internal/telemetry/tracing"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultCacheTTL = 6 * time.Hour
	cacheKeyPrefix  = "caloriecam||priors||"
)

// RedisCache is a read-through cache in front of another PriorsDB.
type RedisCache struct {
	redisClient *redis.Client
	next        PriorsDB
	ttl         time.Duration
}

func NewRedisCache(redisClient *redis.Client, next PriorsDB, ttl time.Duration) *RedisCache {
	return &RedisCache{
		redisClient: redisClient,
		next:        next,
		ttl:         ttl,
	}
}

func (c *RedisCache) GetPriors(ctx context.Context, label string) (_ estimation.FoodPriors, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "cache.nutrition.priors.get")
	defer func() {
		if !errors.Is(err, ErrPriorsNotFound) {
			tracing.EndSpanWithErrCheck(span, err)
		} else {
			span.End()
		}
	}()

	key := cacheKeyPrefix + Canonicalize(label)

	cached, err := c.redisClient.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var priors estimation.FoodPriors
		jsonErr := json.Unmarshal(cached, &priors)
		if jsonErr == nil {
			span.SetAttributes(attribute.Bool("cache-hit", true))
			return priors, nil
		}
		log.Warnf("priors cache, unmarshal [%s]: %s", key, jsonErr)
	case errors.Is(err, redis.Nil):
		// miss
	default:
		log.Errorf("priors cache, get [%s]: %s", key, err)
	}
	span.SetAttributes(attribute.Bool("cache-hit", false))

	priors, err := c.next.GetPriors(ctx, label)
	if err != nil {
		return estimation.FoodPriors{}, err
	}

	if raw, jsonErr := json.Marshal(priors); jsonErr == nil {
		if setErr := c.redisClient.Set(ctx, key, raw, c.ttl).Err(); setErr != nil {
			log.Errorf("priors cache, set [%s]: %s", key, setErr)
		}
	}

	return priors, nil
}
