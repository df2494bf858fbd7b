package config

import "time"

// RateLimitConfig configures the Redis token bucket in front of the public
// registration endpoints. Attendees are anonymous, so buckets are keyed by
// client IP (optionally combined with the route).
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string // ip | route | ip_route
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig reads RATE_LIMIT_* and clamps nonsensical values.
func LoadRateLimitConfig() RateLimitConfig {
	rl := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 20),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", 3*time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_route"),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "rl:register"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	if b := envInt("RATE_LIMIT_BURST", -1); b > 0 {
		rl.Capacity = b
	}
	rl.Capacity = max(rl.Capacity, 1)
	rl.RefillTokens = max(rl.RefillTokens, 1)
	if rl.RefillInterval <= 0 {
		rl.RefillInterval = time.Second
	}
	rl.TTL = max(rl.TTL, 5*rl.RefillInterval)
	return rl
}
