package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache in front of the public
// query endpoints.  Marketplace reads change on every purchase, so the TTL is
// short and, with InvalidateOnActivity, the whole namespace is dropped after
// each committed operation.
type CacheConfig struct {
	Enabled              bool
	Methods              map[string]bool
	TTL                  time.Duration
	KeyStrategy          string
	Prefix               string
	MaxBodyBytes         int
	InvalidateOnActivity bool
}

// LoadCacheConfig reads CACHE_* variables.  Defaults are used when variables
// are not set.  All methods are upper-cased.
func LoadCacheConfig() CacheConfig {
	methods := map[string]bool{}
	for _, m := range envList("CACHE_METHODS", "GET") {
		methods[strings.ToUpper(m)] = true
	}
	return CacheConfig{
		Enabled:              envBool("CACHE_ENABLED", true),
		Methods:              methods,
		TTL:                  envDur("CACHE_TTL", 5*time.Second),
		KeyStrategy:          getenv("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:               getenv("CACHE_PREFIX", "market:cache"),
		MaxBodyBytes:         envInt("CACHE_MAX_BODY_BYTES", 1<<20),
		InvalidateOnActivity: envBool("CACHE_INVALIDATE_ON_ACTIVITY", true),
	}
}
