package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"douyin_copy_v1_202608/internal/model"
)

// ==================== 仓储接口 ====================

// GenerationLogRepository 生成调用日志仓储接口
type GenerationLogRepository interface {
	Create(ctx context.Context, log *model.GenerationLog) error
	GetByRequestID(ctx context.Context, requestID string) (*model.GenerationLog, error)

	// 统计查询
	GetUsageByUser(ctx context.Context, userID int64, startTime, endTime time.Time) (*GenerationUsageStats, error)
	GetDailyUsage(ctx context.Context, startDate, endDate time.Time) ([]DailyGenerationStats, error)

	// 保留策略
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ==================== 统计结构 ====================

// GenerationUsageStats 用户用量统计
type GenerationUsageStats struct {
	TotalCalls    int64   `json:"total_calls"`
	RelayCalls    int64   `json:"relay_calls"`
	DirectCalls   int64   `json:"direct_calls"`
	MediaCalls    int64   `json:"media_calls"`
	TotalAttempts int64   `json:"total_attempts"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
	SuccessCount  int64   `json:"success_count"`
	FailedCount   int64   `json:"failed_count"`
}

// DailyGenerationStats 每日用量统计
type DailyGenerationStats struct {
	Date         string `json:"date"`
	TotalCalls   int64  `json:"total_calls"`
	SuccessCount int64  `json:"success_count"`
	FailedCount  int64  `json:"failed_count"`
}

// ==================== 仓储实现 ====================

type generationLogRepo struct {
	db *gorm.DB
}

// NewGenerationLogRepository 创建生成日志仓储
func NewGenerationLogRepository(db *gorm.DB) GenerationLogRepository {
	return &generationLogRepo{db: db}
}

func (r *generationLogRepo) Create(ctx context.Context, log *model.GenerationLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *generationLogRepo) GetByRequestID(ctx context.Context, requestID string) (*model.GenerationLog, error) {
	var log model.GenerationLog
	if err := r.db.WithContext(ctx).Where("request_id = ?", requestID).First(&log).Error; err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *generationLogRepo) GetUsageByUser(ctx context.Context, userID int64, startTime, endTime time.Time) (*GenerationUsageStats, error) {
	var stats GenerationUsageStats

	query := r.db.WithContext(ctx).Model(&model.GenerationLog{}).Where("user_id = ?", userID)
	if !startTime.IsZero() {
		query = query.Where("created_at >= ?", startTime)
	}
	if !endTime.IsZero() {
		query = query.Where("created_at <= ?", endTime)
	}

	err := query.Select(`
		COUNT(*) as total_calls,
		SUM(CASE WHEN transport = 'relay' THEN 1 ELSE 0 END) as relay_calls,
		SUM(CASE WHEN transport = 'direct' THEN 1 ELSE 0 END) as direct_calls,
		SUM(CASE WHEN has_media THEN 1 ELSE 0 END) as media_calls,
		COALESCE(SUM(attempts), 0) as total_attempts,
		COALESCE(AVG(duration_ms), 0) as avg_duration_ms,
		SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END) as success_count,
		SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END) as failed_count
	`).Scan(&stats).Error

	return &stats, err
}

func (r *generationLogRepo) GetDailyUsage(ctx context.Context, startDate, endDate time.Time) ([]DailyGenerationStats, error) {
	var stats []DailyGenerationStats

	err := r.db.WithContext(ctx).Model(&model.GenerationLog{}).
		Where("created_at >= ? AND created_at <= ?", startDate, endDate).
		Select(`
			DATE(created_at) as date,
			COUNT(*) as total_calls,
			SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END) as success_count,
			SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END) as failed_count
		`).
		Group("DATE(created_at)").
		Order("date ASC").
		Scan(&stats).Error

	return stats, err
}

// PurgeOlderThan 物理删除过期日志，返回删除行数
func (r *generationLogRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Unscoped().
		Where("created_at < ?", cutoff).
		Delete(&model.GenerationLog{})
	return result.RowsAffected, result.Error
}
