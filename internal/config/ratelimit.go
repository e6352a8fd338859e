package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// RateLimitConfig controls the Redis token bucket placed in front of the
// credential endpoints (register and login).  Variables are read with the
// RATE_LIMIT_ prefix, e.g. RATE_LIMIT_CAPACITY.
type RateLimitConfig struct {
	Enabled        bool          `split_words:"true" default:"true"`
	Capacity       int           `split_words:"true" default:"10"`
	RefillTokens   int           `split_words:"true" default:"1"`
	RefillInterval time.Duration `split_words:"true" default:"6s"`
	TTL            time.Duration `split_words:"true" default:"10m"`
	KeyStrategy    string        `split_words:"true" default:"ip_route"`
	Prefix         string        `split_words:"true" default:"rl"`
	Debug          bool          `split_words:"true" default:"false"`
}

// LoadRateLimitConfig reads RATE_LIMIT_* and clamps values that would
// disable the bucket.
func LoadRateLimitConfig() (RateLimitConfig, error) {
	var def RateLimitConfig
	if err := envconfig.Process("RATE_LIMIT", &def); err != nil {
		return RateLimitConfig{}, fmt.Errorf("load rate limit config: %w", err)
	}
	if def.Capacity < 1 {
		def.Capacity = 1
	}
	if def.RefillTokens < 1 {
		def.RefillTokens = 1
	}
	if def.RefillInterval <= 0 {
		def.RefillInterval = time.Second
	}
	minTTL := 5 * def.RefillInterval
	if def.TTL < minTTL {
		def.TTL = minTTL
	}
	return def, nil
}
