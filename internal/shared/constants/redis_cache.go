package constants

import (
	"fmt"
	"time"
)

// Redis Cache Configuration
// This file centralizes all Redis keys and TTL values for the check-in service
// Pattern: lumacheckin:{module}:{operation}:{identifier}:{params?}

// ================== CACHE TTL DURATIONS ==================

// Static Data (Long TTL: rarely changes)
const (
	TTL_STATIC_LONG   = 24 * time.Hour // 24 hours - for pinned third-party assets
	TTL_STATIC_MEDIUM = 12 * time.Hour // 12 hours - for refresh cadence
)

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "lumacheckin"
)

// ================== ASSETS MODULE ==================

// Asset Cache Keys
const (
	CACHE_KEY_ASSET_SCRIPT = CACHE_PREFIX + ":assets:script:" // + script name
)

// Asset Cache TTLs
const (
	TTL_ASSET_SCRIPT = TTL_STATIC_LONG // 24 hours
)

// ================== RATE LIMIT MODULE ==================

const (
	CACHE_KEY_RATELIMIT = CACHE_PREFIX + ":ratelimit:" // + ip:type
)

// ================== CACHE INVALIDATION PATTERNS ==================

const (
	PATTERN_INVALIDATE_ASSETS_ALL = CACHE_PREFIX + ":assets:*"
)

// ================== HELPER FUNCTIONS ==================

// BuildAssetScriptKey returns the key holding a cached script body
// Example: BuildAssetScriptKey("html5-qrcode.min.js") -> "lumacheckin:assets:script:html5-qrcode.min.js"
func BuildAssetScriptKey(name string) string {
	return CACHE_KEY_ASSET_SCRIPT + name
}

// BuildRateLimitKey returns the sliding window key for a client and limit type
func BuildRateLimitKey(clientIP, limitType string) string {
	return fmt.Sprintf("%s%s:%s", CACHE_KEY_RATELIMIT, clientIP, limitType)
}
