package analyzer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/habitpet/caloriecam/internal/estimation"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultCacheSize = 8 * 1024 * 1024
	DefaultCacheTTL  = 10 * time.Minute
)

// CachedAnalyzer memoizes successful observations per image content.
type CachedAnalyzer struct {
	next  Analyzer
	cache *freecache.Cache
	ttl   time.Duration
}

func NewCachedAnalyzer(next Analyzer, cacheSize int, ttl time.Duration) *CachedAnalyzer {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedAnalyzer{
		next:  next,
		cache: freecache.NewCache(cacheSize),
		ttl:   ttl,
	}
}

func (c *CachedAnalyzer) Analyze(ctx context.Context, image []byte, mimeType string) (*estimation.AnalyzerObservation, error) {
	key := cacheKey(image, mimeType)

	if cached, err := c.cache.Get(key); err == nil {
		var obs estimation.AnalyzerObservation
		if err := json.Unmarshal(cached, &obs); err == nil {
			return &obs, nil
		}
		log.Warnf("analyzer cache: drop corrupt entry")
		c.cache.Del(key)
	}

	obs, err := c.next.Analyze(ctx, image, mimeType)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(obs); err == nil {
		if err := c.cache.Set(key, raw, int(c.ttl.Seconds())); err != nil {
			log.Warnf("analyzer cache set: %s", err)
		}
	}

	return obs, nil
}

func (c *CachedAnalyzer) EntryCount() int64 {
	return c.cache.EntryCount()
}

func cacheKey(image []byte, mimeType string) []byte {
	h := sha256.New()
	h.Write([]byte(mimeType))
	h.Write([]byte{0})
	h.Write(image)
	return []byte(hex.EncodeToString(h.Sum(nil)))
}
