package model

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"gorm.io/gorm"

	"github.com/bedrock-gateway/bedrock-assumerole/common/logger"
)

const (
	EndpointInvoke = "invoke"
	EndpointChat   = "chat"

	maxLogPageSize = 100
)

// InvocationLog is one Bedrock InvokeModel call.
type InvocationLog struct {
	Id                int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	RequestId         string `json:"request_id" gorm:"type:varchar(64);index"`
	CreatedAt         int64  `json:"created_at" gorm:"bigint;index"`
	Endpoint          string `json:"endpoint" gorm:"type:varchar(16)"`
	ItemIndex         int    `json:"item_index"`
	ConfiguredModelId string `json:"configured_model_id" gorm:"type:varchar(255);index"`
	EffectiveModelId  string `json:"effective_model_id" gorm:"type:varchar(512)"`
	Family            string `json:"family" gorm:"type:varchar(32)"`
	TaskType          string `json:"task_type,omitempty" gorm:"type:varchar(32)"`
	Region            string `json:"region" gorm:"type:varchar(32)"`
	InputTokens       int    `json:"input_tokens"`
	OutputTokens      int    `json:"output_tokens"`
	StopReason        string `json:"stop_reason,omitempty" gorm:"type:varchar(32)"`
	LatencyMs         int64  `json:"latency_ms"`
	Success           bool   `json:"success" gorm:"index"`
	ErrorMessage      string `json:"error_message,omitempty" gorm:"type:text"`
}

// InvocationLogQuery filters ListInvocationLogs. Zero values match everything.
type InvocationLogQuery struct {
	ConfiguredModelId string
	RequestId         string
	Success           *bool
	Offset            int
	Limit             int
}

// RecordInvocation inserts entry, stamping CreatedAt when unset. A nil DB is a no-op.
func RecordInvocation(ctx context.Context, entry *InvocationLog) error {
	if DB == nil || entry == nil {
		return nil
	}
	if entry.CreatedAt == 0 {
		entry.CreatedAt = time.Now().UTC().UnixMilli()
	}

	err := withSQLiteBusyRetry(ctx, func() error {
		return DB.WithContext(ctx).Create(entry).Error
	})
	if err != nil {
		return errors.Wrap(err, "insert invocation log")
	}

	logger.Logger.Debug("invocation recorded",
		zap.Int64("id", entry.Id),
		zap.String("configured_model_id", entry.ConfiguredModelId),
		zap.Bool("success", entry.Success))
	return nil
}

// ListInvocationLogs returns the newest entries first.
func ListInvocationLogs(ctx context.Context, q InvocationLogQuery) ([]*InvocationLog, error) {
	if DB == nil {
		return nil, nil
	}

	limit := q.Limit
	if limit <= 0 || limit > maxLogPageSize {
		limit = maxLogPageSize
	}
	offset := max(q.Offset, 0)

	tx := DB.WithContext(ctx).Model(&InvocationLog{})
	if q.ConfiguredModelId != "" {
		tx = tx.Where("configured_model_id = ?", q.ConfiguredModelId)
	}
	if q.RequestId != "" {
		tx = tx.Where("request_id = ?", q.RequestId)
	}
	if q.Success != nil {
		tx = tx.Where("success = ?", *q.Success)
	}

	var logs []*InvocationLog
	if err := tx.Order("id desc").Limit(limit).Offset(offset).Find(&logs).Error; err != nil {
		return nil, errors.Wrap(err, "list invocation logs")
	}
	return logs, nil
}

// InvocationStats aggregates token usage per configured model.
type InvocationStats struct {
	ConfiguredModelId string `json:"configured_model_id"`
	Invocations       int64  `json:"invocations"`
	Failures          int64  `json:"failures"`
	InputTokens       int64  `json:"input_tokens"`
	OutputTokens      int64  `json:"output_tokens"`
}

// SumInvocationStats groups entries created at or after since (unix ms).
func SumInvocationStats(ctx context.Context, since int64) ([]InvocationStats, error) {
	if DB == nil {
		return nil, nil
	}

	var stats []InvocationStats
	err := DB.WithContext(ctx).Model(&InvocationLog{}).
		Select("configured_model_id, count(*) as invocations, " +
			"sum(case when success then 0 else 1 end) as failures, " +
			"coalesce(sum(input_tokens), 0) as input_tokens, " +
			"coalesce(sum(output_tokens), 0) as output_tokens").
		Where("created_at >= ?", since).
		Group("configured_model_id").
		Order("configured_model_id").
		Scan(&stats).Error
	if err != nil {
		return nil, errors.Wrap(err, "sum invocation stats")
	}
	return stats, nil
}

// CleanExpiredInvocationLogs deletes entries older than retentionDays.
func CleanExpiredInvocationLogs(ctx context.Context, retentionDays int) (int64, error) {
	if DB == nil || retentionDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().UTC().Add(-time.Duration(retentionDays) * 24 * time.Hour).UnixMilli()
	var tx *gorm.DB
	err := withSQLiteBusyRetry(ctx, func() error {
		tx = DB.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&InvocationLog{})
		return tx.Error
	})
	if err != nil {
		return 0, errors.Wrap(err, "delete expired invocation logs")
	}
	return tx.RowsAffected, nil
}

const retentionSweepInterval = 24 * time.Hour

// StartRetentionCleaner sweeps expired invocation logs once now and then daily until ctx ends.
func StartRetentionCleaner(ctx context.Context, retentionDays int) {
	if retentionDays <= 0 {
		logger.Logger.Debug("invocation log retention disabled")
		return
	}

	sweep := func() {
		deleted, err := CleanExpiredInvocationLogs(ctx, retentionDays)
		if err != nil {
			logger.Logger.Warn("invocation log retention sweep failed", zap.Error(err))
			return
		}
		if deleted > 0 {
			logger.Logger.Info("deleted expired invocation logs",
				zap.Int64("deleted_rows", deleted), zap.Int("retention_days", retentionDays))
		}
	}

	sweep()
	go func() {
		ticker := time.NewTicker(retentionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Logger.Info("invocation log retention cleaner stopped")
				return
			case <-ticker.C:
				sweep()
			}
		}
	}()
}
