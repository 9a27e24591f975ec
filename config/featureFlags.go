package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func envBool(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y" || v == "on"
}

func envSeconds(key string, def int) time.Duration {
	n := def
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			n = parsed
		}
	}
	return time.Duration(n) * time.Second
}

// StoreBackend selects the document store.
//
// Set via env:
// - STORE_BACKEND=mysql (default) | badger
func StoreBackend() string {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("STORE_BACKEND")))
	if v == "" {
		return "mysql"
	}
	return v
}

// SummaryCacheEnabled turns on redis caching of per-year village summaries.
//
// Set via env:
// - ENABLE_SUMMARY_CACHE=true
// - SUMMARY_CACHE_TTL_SECONDS=300
func SummaryCacheEnabled() bool {
	return envBool("ENABLE_SUMMARY_CACHE")
}

func SummaryCacheTTL() time.Duration {
	return envSeconds("SUMMARY_CACHE_TTL_SECONDS", 300)
}

// SlowSummaryThreshold is REPORT_SLOW_MS, default 500ms.
func SlowSummaryThreshold() time.Duration {
	ms := intFromEnv("REPORT_SLOW_MS", 500)
	if ms <= 0 {
		ms = 500
	}
	return time.Duration(ms) * time.Millisecond
}

// StatisticsEventsEnabled publishes a Pub/Sub message after each statistics save.
//
// Set via env:
// - ENABLE_STATISTICS_EVENTS=true
// - STATISTICS_EVENTS_TOPIC=village-statistics-updated
func StatisticsEventsEnabled() bool {
	return envBool("ENABLE_STATISTICS_EVENTS")
}

func StatisticsEventsTopic() string {
	return strings.TrimSpace(os.Getenv("STATISTICS_EVENTS_TOPIC"))
}

// ReportArchivePrefix is the GCS folder archived reports go under.
func ReportArchivePrefix() string {
	v := strings.Trim(strings.TrimSpace(os.Getenv("REPORT_ARCHIVE_PREFIX")), "/")
	if v == "" {
		return "reports"
	}
	return v
}

func IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production")
}
