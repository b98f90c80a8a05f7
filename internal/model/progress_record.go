package model

import (
	"time"
)

type ProgressStatus string

const (
	ProgressNotStarted ProgressStatus = "not_started"
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
)

// ProgressRecord 用户对单个内容项的学习进度，(user_id, content_id) 唯一
// 状态只允许 not_started → in_progress → completed 单向推进
// swagger:model ProgressRecord
type ProgressRecord struct {
	BaseModel
	UserID             uint           `gorm:"uniqueIndex:idx_user_content;type:bigint unsigned;not null" json:"userId"`
	ContentID          uint           `gorm:"uniqueIndex:idx_user_content;type:bigint unsigned;not null" json:"contentId"`
	ModuleID           uint           `gorm:"index;type:bigint unsigned;not null" json:"moduleId"` // 冗余自内容项，便于按模块聚合
	Status             ProgressStatus `gorm:"size:20;default:'not_started';index" json:"status"`
	ProgressPercentage int            `gorm:"default:0" json:"progressPercentage"` // 记录内部进度，如视频播放位置
	TimeSpent          int            `gorm:"default:0" json:"timeSpent"`          // 秒
	Attempts           int            `gorm:"default:0" json:"attempts"`
	LastPosition       int            `gorm:"default:0" json:"lastPosition"`
	Score              int            `gorm:"default:0" json:"score"`
	StartedAt          *time.Time     `json:"startedAt"`
	CompletedAt        *time.Time     `json:"completedAt"`
	LastAccessedAt     time.Time      `json:"lastAccessedAt"`
	IsActive           bool           `gorm:"default:true" json:"isActive"`
}

func (ProgressRecord) TableName() string {
	return "progress_records"
}
