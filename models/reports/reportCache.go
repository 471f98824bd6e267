package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sitebooks/backoffice/config"
	"github.com/sitebooks/backoffice/utils"
)

func logSlowReport(ctx context.Context, name string, started time.Time, extra map[string]any) {
	d := time.Since(started)
	if d < config.SlowReportThreshold() {
		return
	}
	biz, _ := utils.GetBusinessIdFromContext(ctx)
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	config.GetLogger().WithFields(logrus.Fields{
		"report":         name,
		"ms":             d.Milliseconds(),
		"business_id":    biz,
		"correlation_id": cid,
		"extra":          extra,
	}).Warn("slow report")
}

// reportCacheKey is scoped by business so tenants never share an entry.
func reportCacheKey(name string, businessId string, parts ...any) string {
	key := fmt.Sprintf("report:%s:%s", name, businessId)
	for _, p := range parts {
		key += ":" + fmt.Sprint(p)
	}
	return key
}

func cacheGet[T any](ctx context.Context, key string, dest *T) (bool, error) {
	if !config.ReportCacheEnabled() {
		return false, nil
	}
	return config.GetRedisObject(ctx, key, dest)
}

func cacheSet(ctx context.Context, businessId string, key string, obj any) {
	if !config.ReportCacheEnabled() {
		return
	}
	if err := config.SetRedisObject(ctx, key, obj, config.ReportCacheTTL()); err != nil {
		config.LogError(config.GetLogger(), "Reports", "cacheSet", "cache report", key, err)
		return
	}
	_ = config.AddRedisSet(ctx, reportKeySet(businessId), key)
}

func reportKeySet(businessId string) string {
	return "report_keys:" + businessId
}

// InvalidateReportCache drops every cached report of the business.
func InvalidateReportCache(ctx context.Context, businessId string) error {
	keys, err := config.GetRedisSetMembers(ctx, reportKeySet(businessId))
	if err != nil {
		return err
	}
	keys = append(keys, reportKeySet(businessId))
	return config.RemoveRedisKey(ctx, keys...)
}
