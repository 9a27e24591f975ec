package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/grampanchayat/villagestats_backend/config"
)

// ErrLockNotObtained means another instance holds the tenant lock.
var ErrLockNotObtained = errors.New("could not obtain lock for tenant")

func SummaryCacheKey(tenantId string, year int) string {
	return fmt.Sprintf("VillageSummary:%s:%d", tenantId, year)
}

func summaryIndexKey(tenantId string) string {
	return "VillageSummaryKeys:" + tenantId
}

// RememberSummaryKey records a cached summary so a registry change can drop every year at once.
func RememberSummaryKey(ctx context.Context, tenantId string, key string) error {
	return config.AddRedisSet(ctx, summaryIndexKey(tenantId), key)
}

// InvalidateSummaryCache drops cached summaries of the given years, or of
// every year when none are given.
func InvalidateSummaryCache(ctx context.Context, tenantId string, years ...int) error {
	if config.GetRedisDB() == nil {
		return nil
	}
	if len(years) > 0 {
		keys := make([]string, 0, len(years))
		for _, y := range years {
			keys = append(keys, SummaryCacheKey(tenantId, y))
		}
		return config.RemoveRedisKey(ctx, keys...)
	}
	keys, err := config.GetRedisSetMembers(ctx, summaryIndexKey(tenantId))
	if err != nil {
		return err
	}
	return config.RemoveRedisKey(ctx, append(keys, summaryIndexKey(tenantId))...)
}

// TenantLock serializes maintenance work per tenant across instances. Without
// redis it degrades to a no-op lock.
func TenantLock(ctx context.Context, tenantId string, lockType string, moduleName string, functionName string) (func(), error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		return func() {}, nil
	}
	lockKey := fmt.Sprintf("%s:%s", lockType, tenantId)
	lock, err := locker.Obtain(ctx, lockKey, 2*time.Minute, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		config.LogError(logger, moduleName, functionName, "Could not obtain lock for tenant", tenantId, err)
		return nil, ErrLockNotObtained
	} else if err != nil {
		config.LogError(logger, moduleName, functionName, "Error obtaining lock for tenant", tenantId, err)
		return nil, err
	}
	return func() {
		_ = lock.Release(context.Background())
	}, nil
}
