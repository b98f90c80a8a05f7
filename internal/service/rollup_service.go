package service

import (
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/pkg/monitoring"
	"math"
	"time"

	"gorm.io/gorm"
)

// RollupService 报名汇总的唯一写入方。
// Recompute 从进度记录重算四个派生字段，结果与调用次数无关（不动点），
// 无变化时不落库，因此事件路径和批量对账可以随意并发调用。
type RollupService struct {
	EnrollmentRepo *repository.EnrollmentRepository
	ProgressRepo   *repository.ProgressRepository
}

func NewRollupService(enrollmentRepo *repository.EnrollmentRepository, progressRepo *repository.ProgressRepository) *RollupService {
	return &RollupService{
		EnrollmentRepo: enrollmentRepo,
		ProgressRepo:   progressRepo,
	}
}

// RollupSnapshot 汇总字段在某一时刻的取值
type RollupSnapshot struct {
	Status             model.EnrollmentStatus `json:"status"`
	ProgressPercentage int                    `json:"progressPercentage"`
	CompletedSections  int                    `json:"completedSections"`
	TotalSections      int                    `json:"totalSections"`
	IsCompleted        bool                   `json:"isCompleted"`
	CompletedAt        *time.Time             `json:"completedAt,omitempty"`
}

type RollupResult struct {
	Skipped bool            `json:"skipped"`
	Changed bool            `json:"changed"`
	Before  *RollupSnapshot `json:"before,omitempty"`
	After   *RollupSnapshot `json:"after,omitempty"`
}

// Recompute 重算并按需落库
func (s *RollupService) Recompute(userID, moduleID uint) (*RollupResult, error) {
	return s.recompute(userID, moduleID, false)
}

// Preview 只算不写，供 dry-run 对账预估变更量
func (s *RollupService) Preview(userID, moduleID uint) (*RollupResult, error) {
	return s.recompute(userID, moduleID, true)
}

func (s *RollupService) recompute(userID, moduleID uint, dryRun bool) (*RollupResult, error) {
	enrollment, err := s.EnrollmentRepo.FindByUserAndModule(userID, moduleID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			// 无报名不是错误，批量调用方据此跳过
			monitoring.RollupRecomputes.WithLabelValues("skipped").Inc()
			return &RollupResult{Skipped: true}, nil
		}
		return nil, err
	}
	if enrollment.Status == model.EnrollmentDropped {
		monitoring.RollupRecomputes.WithLabelValues("skipped").Inc()
		return &RollupResult{Skipped: true}, nil
	}

	completed64, err := s.ProgressRepo.CountCompletedActive(userID, moduleID)
	if err != nil {
		return nil, err
	}
	completed := int(completed64)

	// 分母用报名上的快照，不在这里回查内容表；刷新快照是 SectionCountService 的职责
	total := enrollment.TotalSections

	percentage := 0
	if total > 0 {
		percentage = int(math.Round(float64(completed) * 100 / float64(total)))
	}

	// 完成标记只进不出：模块后续扩充内容会拉低百分比，但不撤销已达成的完成
	isCompleted := enrollment.IsCompleted || (total > 0 && completed >= total)

	before := snapshotOf(enrollment)
	after := &RollupSnapshot{
		Status:             enrollment.Status,
		ProgressPercentage: percentage,
		CompletedSections:  completed,
		TotalSections:      total,
		IsCompleted:        isCompleted,
		CompletedAt:        enrollment.CompletedAt,
	}

	changed := percentage != enrollment.ProgressPercentage ||
		completed != enrollment.CompletedSections ||
		isCompleted != enrollment.IsCompleted

	newlyCompleted := isCompleted && !enrollment.IsCompleted
	if newlyCompleted {
		now := time.Now()
		after.CompletedAt = &now
		if enrollment.Status == model.EnrollmentActive {
			after.Status = model.EnrollmentCompleted
		}
	}

	result := &RollupResult{Changed: changed, Before: before, After: after}

	if !changed || dryRun {
		if !dryRun {
			monitoring.RollupRecomputes.WithLabelValues("unchanged").Inc()
		}
		return result, nil
	}

	now := time.Now()
	fields := map[string]interface{}{
		"progress_percentage": percentage,
		"completed_sections":  completed,
		"is_completed":        isCompleted,
		"last_accessed_at":    now,
		"updated_at":          now,
	}
	if newlyCompleted {
		// completedAt 只在首次完成时写入，此后不再清除
		if enrollment.CompletedAt == nil {
			fields["completed_at"] = after.CompletedAt
		}
		if after.Status != enrollment.Status {
			fields["status"] = after.Status
		}
	}

	if err := s.EnrollmentRepo.UpdateRollup(enrollment.ID, fields); err != nil {
		return nil, err
	}

	monitoring.RollupRecomputes.WithLabelValues("changed").Inc()
	return result, nil
}

func snapshotOf(e *model.Enrollment) *RollupSnapshot {
	return &RollupSnapshot{
		Status:             e.Status,
		ProgressPercentage: e.ProgressPercentage,
		CompletedSections:  e.CompletedSections,
		TotalSections:      e.TotalSections,
		IsCompleted:        e.IsCompleted,
		CompletedAt:        e.CompletedAt,
	}
}
