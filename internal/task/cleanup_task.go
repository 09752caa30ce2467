package task

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"douyin_copy_v1_202608/internal/repository"
)

// ==================== CleanupTask 日志保留任务 ====================

// CleanupTask 定时清理超过保留期的生成日志
type CleanupTask struct {
	logRepo       repository.GenerationLogRepository
	retentionDays int
	cron          *cron.Cron
}

// NewCleanupTask 创建清理任务
func NewCleanupTask(logRepo repository.GenerationLogRepository, retentionDays int) *CleanupTask {
	return &CleanupTask{
		logRepo:       logRepo,
		retentionDays: retentionDays,
		cron:          cron.New(),
	}
}

// Start 注册定时任务，每天凌晨 3 点执行
func (t *CleanupTask) Start() error {
	if t.retentionDays <= 0 {
		log.Println("日志保留期未配置，清理任务不启动")
		return nil
	}

	_, err := t.cron.AddFunc("0 3 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		if err := t.RunOnce(ctx); err != nil {
			log.Printf("日志清理失败: %v", err)
		}
	})
	if err != nil {
		return err
	}

	t.cron.Start()
	log.Printf("日志清理任务已启动，保留最近 %d 天", t.retentionDays)
	return nil
}

// Stop 停止定时任务
func (t *CleanupTask) Stop() {
	t.cron.Stop()
}

// RunOnce 执行一次清理
func (t *CleanupTask) RunOnce(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, -t.retentionDays)
	deleted, err := t.logRepo.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		log.Printf("日志清理完成，删除 %d 条（早于 %s）", deleted, cutoff.Format("2006-01-02"))
	}
	return nil
}
