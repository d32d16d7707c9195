package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/habitpet/caloriecam/pkg"

	"github.com/coocood/freecache"
)

const verifiedTokenTTL = 15 * time.Minute

// AppTokenChecker validates app tokens against a bcrypt hash. Tokens that
// passed are cached for verifiedTokenTTL.
type AppTokenChecker struct {
	secretHash string
	verified   *freecache.Cache
}

func NewAppTokenChecker(secretHash string) *AppTokenChecker {
	return &AppTokenChecker{
		secretHash: secretHash,
		verified:   freecache.NewCache(512 * 1024),
	}
}

func (c *AppTokenChecker) IsValid(_ context.Context, token string) (bool, error) {
	if c.secretHash == "" {
		return false, errors.New("app secret hash not set")
	}

	key := []byte(token)
	if _, err := c.verified.Get(key); err == nil {
		return true, nil
	}

	if !pkg.CheckPasswordHash(token, c.secretHash) {
		return false, nil
	}

	_ = c.verified.Set(key, []byte{1}, int(verifiedTokenTTL.Seconds()))
	return true, nil
}
