package model

import (
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// GenerationLog 生成调用日志：每次走网关的请求记一行
type GenerationLog struct {
	BaseModel

	UserID    int64  `gorm:"index;comment:用户ID"`
	RequestID string `gorm:"size:64;uniqueIndex;comment:请求ID"`

	// 调用信息
	Transport string `gorm:"size:32;index;comment:命中的传输通道(relay/direct)"`
	ModelName string `gorm:"size:64;comment:命中的模型"`
	Attempts  int    `gorm:"default:0;comment:总尝试次数"`
	HasMedia  bool   `gorm:"default:false;comment:是否携带媒体"`

	// 性能
	DurationMs int64 `gorm:"comment:耗时(毫秒)"`

	// 状态
	Status        string `gorm:"size:32;index;default:success;comment:状态(success/failed)"`
	ErrorCategory string `gorm:"size:32;comment:失败类别"`
	ErrorMsg      string `gorm:"size:1024;comment:错误信息"`

	// 结果快照（归一化之后的 JSON，失败时为空）
	Result datatypes.JSON `gorm:"comment:归一化结果快照"`

	// 本次结果的话题标签，便于后台按题材统计（仅 Postgres 填充）
	Tags pq.StringArray `gorm:"type:text[]"`
}

func (GenerationLog) TableName() string {
	return "generation_logs"
}

// ==================== 传输通道常量 ====================

const (
	TransportRelay  = "relay"
	TransportDirect = "direct"
)

// ==================== 状态常量 ====================

const (
	GenerationStatusSuccess = "success"
	GenerationStatusFailed  = "failed"
)
