package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"

	"github.com/smallbiznis/deskhive/internal/config"
)

const keyQuoteCaller = "quote:caller:%s"

// QuoteLimiter throttles the public quote endpoint per caller. Disabled
// (nil) when no redis address is configured.
type QuoteLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewQuoteLimiter(cfg config.Config) *QuoteLimiter {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
	return &QuoteLimiter{
		bucket: NewTokenBucket(client),
		rate:   cfg.QuoteRateLimit,
		burst:  cfg.QuoteRateBurst,
	}
}

func (l *QuoteLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow fails open on limiter errors; quote pricing is read-only and a
// redis outage should not take it down.
func (l *QuoteLimiter) Allow(ctx context.Context, caller string) bool {
	if !l.Enabled() {
		return true
	}
	allowed, err := l.bucket.Allow(ctx, fmt.Sprintf(keyQuoteCaller, strings.TrimSpace(caller)), l.rate, l.burst)
	if err != nil {
		return true
	}
	return allowed
}
