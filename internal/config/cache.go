package config

import "time"

// CacheConfig defines settings for the metric read cache middleware.  Only
// GET responses are cached, and cache keys always include the authenticated
// user so one account's health data can never be served to another.  When
// Enabled is false or no Redis client is configured, caching is disabled.
type CacheConfig struct {
    Enabled      bool
    TTL          time.Duration
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults keep entries short-lived: a fresh sync should become visible on
// the read path within seconds.
func LoadCacheConfig() CacheConfig {
    return CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        TTL:          envDur("CACHE_TTL", 15*time.Second),
        Prefix:       envStr("CACHE_PREFIX", "cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
}
