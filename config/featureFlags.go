package config

import (
	"os"
	"strings"
	"time"
)

// StrictDocumentTransitions switches quote/invoice status changes from a free
// label to the explicit transition table.
//
// Set via env:
// - STRICT_DOCUMENT_TRANSITIONS=true
func StrictDocumentTransitions() bool {
	return boolFromEnv("STRICT_DOCUMENT_TRANSITIONS")
}

// AllowNegativeStock lets an outbound confirmation take an inventory item below zero.
//
// Set via env:
// - ALLOW_NEGATIVE_STOCK=true
func AllowNegativeStock() bool {
	return boolFromEnv("ALLOW_NEGATIVE_STOCK")
}

// DefaultCurrency is used when a document is created without a currency.
func DefaultCurrency() string {
	v := strings.ToUpper(strings.TrimSpace(os.Getenv("DEFAULT_CURRENCY")))
	if v == "" {
		return "USD"
	}
	return v
}

// JwtSecret signs and verifies bearer tokens resolved by the tenant middleware.
func JwtSecret() string {
	return os.Getenv("JWT_SECRET")
}

// ReportCacheEnabled turns on the Redis cache for report results.
//
// Set via env:
// - ENABLE_REPORT_CACHE=true
// - REPORT_CACHE_TTL_SECONDS (default 120)
func ReportCacheEnabled() bool {
	return boolFromEnv("ENABLE_REPORT_CACHE")
}

func ReportCacheTTL() time.Duration {
	return time.Duration(positiveIntFromEnv("REPORT_CACHE_TTL_SECONDS", 120)) * time.Second
}

// SlowReportThreshold is how long a report may run before it is logged as slow (REPORT_SLOW_MS).
func SlowReportThreshold() time.Duration {
	return time.Duration(positiveIntFromEnv("REPORT_SLOW_MS", 500)) * time.Millisecond
}

func positiveIntFromEnv(key string, def int) int {
	if n := intFromEnv(key, def); n > 0 {
		return n
	}
	return def
}
