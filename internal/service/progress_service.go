package service

import (
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProgressService 进度事件入口：start / complete / updatePosition。
// 负责校验前置条件（内容存在且激活、用户持有有效报名）和
// not_started → in_progress → completed 的单向状态机，
// 每次真实变更后同步触发所在报名的增量汇总。
type ProgressService struct {
	ContentRepo    *repository.ContentRepository
	ProgressRepo   *repository.ProgressRepository
	EnrollmentRepo *repository.EnrollmentRepository
	Rollup         *RollupService
}

func NewProgressService(
	contentRepo *repository.ContentRepository,
	progressRepo *repository.ProgressRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	rollup *RollupService,
) *ProgressService {
	return &ProgressService{
		ContentRepo:    contentRepo,
		ProgressRepo:   progressRepo,
		EnrollmentRepo: enrollmentRepo,
		Rollup:         rollup,
	}
}

type StartResult struct {
	Record         *model.ProgressRecord `json:"progress"`
	AlreadyStarted bool                  `json:"alreadyStarted"`
}

// checkPreconditions 内容必须存在且激活，用户必须持有可学习状态的报名
func (s *ProgressService) checkPreconditions(userID, contentID uint) (*model.ContentItem, error) {
	content, err := s.ContentRepo.FindActiveByID(contentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrContentNotFound
		}
		return nil, err
	}

	enrollment, err := s.EnrollmentRepo.FindByUserAndModule(userID, content.ModuleID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrNotEnrolled
		}
		return nil, err
	}
	if !enrollment.Live() {
		return nil, util.ErrNotEnrolled
	}

	return content, nil
}

// Start 首次学习某内容。已开始/已完成的记录原样返回且不写任何字段，
// 保证重复 start 完全无副作用。
func (s *ProgressService) Start(userID, contentID uint) (*StartResult, error) {
	content, err := s.checkPreconditions(userID, contentID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	record := &model.ProgressRecord{
		UserID:             userID,
		ContentID:          contentID,
		ModuleID:           content.ModuleID,
		Status:             model.ProgressInProgress,
		ProgressPercentage: 1,
		Attempts:           1,
		StartedAt:          &now,
		LastAccessedAt:     now,
		IsActive:           true,
	}

	created, err := s.ProgressRepo.CreateIfAbsent(record)
	if err != nil {
		return nil, err
	}
	if created {
		s.triggerRollup(userID, content.ModuleID)
		return &StartResult{Record: record, AlreadyStarted: false}, nil
	}

	// 并发 start 或重复 start：读取已有记录
	existing, err := s.ProgressRepo.FindByUserAndContent(userID, contentID)
	if err != nil {
		return nil, err
	}

	if existing.Status == model.ProgressNotStarted {
		existing.Status = model.ProgressInProgress
		if existing.ProgressPercentage < 1 {
			existing.ProgressPercentage = 1
		}
		if existing.StartedAt == nil {
			existing.StartedAt = &now
		}
		existing.Attempts++
		existing.LastAccessedAt = now
		if err := s.ProgressRepo.Save(existing); err != nil {
			return nil, err
		}
		s.triggerRollup(userID, content.ModuleID)
		return &StartResult{Record: existing, AlreadyStarted: false}, nil
	}

	return &StartResult{Record: existing, AlreadyStarted: true}, nil
}

// Complete 标记内容完成。已完成的记录幂等返回；
// 未 start 过的记录按"隐式 start 后立即完成"处理。
func (s *ProgressService) Complete(userID, contentID uint, score *int) (*model.ProgressRecord, error) {
	content, err := s.checkPreconditions(userID, contentID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	record, err := s.ProgressRepo.FindByUserAndContent(userID, contentID)
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}
		record = &model.ProgressRecord{
			UserID:    userID,
			ContentID: contentID,
			ModuleID:  content.ModuleID,
			Attempts:  1,
			IsActive:  true,
		}
		if _, err := s.ProgressRepo.CreateIfAbsent(record); err != nil {
			return nil, err
		}
		// 冲突时拿回并发写入的那条
		record, err = s.ProgressRepo.FindByUserAndContent(userID, contentID)
		if err != nil {
			return nil, err
		}
	}

	if record.Status == model.ProgressCompleted {
		return record, nil
	}

	record.Status = model.ProgressCompleted
	record.ProgressPercentage = 100
	if record.StartedAt == nil {
		record.StartedAt = &now
	}
	if record.CompletedAt == nil {
		record.CompletedAt = &now
	}
	if score != nil {
		record.Score = *score
	}
	record.LastAccessedAt = now

	if err := s.ProgressRepo.Save(record); err != nil {
		return nil, err
	}

	s.triggerRollup(userID, content.ModuleID)
	return record, nil
}

// UpdatePosition 记录内部进度（如视频播放位置），只在 in_progress 状态下有效
func (s *ProgressService) UpdatePosition(userID, contentID uint, percentage, position int) (*model.ProgressRecord, error) {
	content, err := s.checkPreconditions(userID, contentID)
	if err != nil {
		return nil, err
	}

	record, err := s.ProgressRepo.FindByUserAndContent(userID, contentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrInvalidTransition
		}
		return nil, err
	}

	switch record.Status {
	case model.ProgressInProgress:
		// ok
	default:
		// completed 不允许回退，not_started 必须先 start
		return nil, util.ErrInvalidTransition
	}

	if percentage < 1 {
		percentage = 1
	}
	if percentage > 99 {
		percentage = 99
	}

	record.ProgressPercentage = percentage
	record.LastPosition = position
	record.LastAccessedAt = time.Now()

	if err := s.ProgressRepo.Save(record); err != nil {
		return nil, err
	}

	s.triggerRollup(userID, content.ModuleID)
	return record, nil
}

// triggerRollup 事件路径的增量汇总。汇总失败不阻断进度写入本身——
// 记录日志后交由批量对账兜底修正。
func (s *ProgressService) triggerRollup(userID, moduleID uint) {
	if _, err := s.Rollup.Recompute(userID, moduleID); err != nil {
		logger.Log.Error("incremental rollup failed",
			zap.Uint("userID", userID),
			zap.Uint("moduleID", moduleID),
			zap.Error(err))
	}
}
