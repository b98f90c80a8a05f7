package model

import (
	"time"
)

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentPaused    EnrollmentStatus = "paused"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentDropped   EnrollmentStatus = "dropped"
)

// Enrollment 用户×模块的报名记录，附带冗余的进度汇总字段
//
// ProgressPercentage / CompletedSections / TotalSections / IsCompleted
// 四个派生字段只允许聚合服务写入，其余代码一律只读
// swagger:model Enrollment
type Enrollment struct {
	BaseModel
	UserID             uint             `gorm:"uniqueIndex:idx_user_module;type:bigint unsigned;not null" json:"userId"`
	ModuleID           uint             `gorm:"uniqueIndex:idx_user_module;type:bigint unsigned;not null" json:"moduleId"`
	Status             EnrollmentStatus `gorm:"size:20;default:'active';index" json:"status"`
	ProgressPercentage int              `gorm:"default:0" json:"progressPercentage"`
	CompletedSections  int              `gorm:"default:0" json:"completedSections"`
	TotalSections      int              `gorm:"default:0" json:"totalSections"` // 由 SectionCountService 刷新的快照
	IsCompleted        bool             `gorm:"default:false" json:"isCompleted"`
	EnrolledAt         time.Time        `json:"enrolledAt"`
	CompletedAt        *time.Time       `json:"completedAt"`
	LastAccessedAt     time.Time        `json:"lastAccessedAt"`
}

func (Enrollment) TableName() string {
	return "enrollment_rollups"
}

// Live 报名是否处于可学习状态（进度事件的前置条件）
func (e *Enrollment) Live() bool {
	return e.Status == EnrollmentActive || e.Status == EnrollmentCompleted
}
