package reports

import (
	"context"
	"time"

	"github.com/grampanchayat/villagestats_backend/config"
	"github.com/grampanchayat/villagestats_backend/utils"
	"github.com/sirupsen/logrus"
)

func summaryCacheUsable() bool {
	return config.SummaryCacheEnabled() && config.GetRedisDB() != nil
}

func logSlowReport(ctx context.Context, name string, started time.Time, extra map[string]any) {
	d := time.Since(started)
	if d < config.SlowSummaryThreshold() {
		return
	}
	tenant, _ := utils.GetTenantIdFromContext(ctx)
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	config.GetLogger().WithFields(logrus.Fields{
		"report":         name,
		"ms":             d.Milliseconds(),
		"tenant_id":      tenant,
		"correlation_id": cid,
		"extra":          extra,
	}).Warn("slow_report")
}

func cacheGet[T any](ctx context.Context, key string, dest *T) (bool, error) {
	return config.GetRedisObject(ctx, key, dest)
}

// cacheSet stores obj and records the key so registry changes can drop it.
func cacheSet(ctx context.Context, tenantId string, key string, obj any) error {
	if err := config.SetRedisObject(ctx, key, obj, config.SummaryCacheTTL()); err != nil {
		return err
	}
	return utils.RememberSummaryKey(ctx, tenantId, key)
}
