package service

import (
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

// EnrollmentService 报名生命周期管理。
// 报名创建时固化 total_sections 快照，之后由 SectionCountService 统一刷新。
type EnrollmentService struct {
	EnrollmentRepo *repository.EnrollmentRepository
	ContentRepo    *repository.ContentRepository
	ProgressRepo   *repository.ProgressRepository
	SectionCount   *SectionCountService
	Rollup         *RollupService
}

func NewEnrollmentService(
	enrollmentRepo *repository.EnrollmentRepository,
	contentRepo *repository.ContentRepository,
	progressRepo *repository.ProgressRepository,
	sectionCount *SectionCountService,
	rollup *RollupService,
) *EnrollmentService {
	return &EnrollmentService{
		EnrollmentRepo: enrollmentRepo,
		ContentRepo:    contentRepo,
		ProgressRepo:   progressRepo,
		SectionCount:   sectionCount,
		Rollup:         rollup,
	}
}

// Enroll 为用户创建模块报名。重复报名返回 ErrAlreadyEnrolled，
// 曾退出（dropped）的报名重新激活并保留历史进度。
func (s *EnrollmentService) Enroll(userID, moduleID uint) (*model.Enrollment, error) {
	module, err := s.ContentRepo.FindModuleByID(moduleID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrModuleNotFound
		}
		return nil, err
	}
	if !module.IsActive {
		return nil, util.ErrModuleNotFound
	}

	existing, err := s.EnrollmentRepo.FindByUserAndModule(userID, moduleID)
	if err == nil {
		if existing.Status != model.EnrollmentDropped {
			return nil, util.ErrAlreadyEnrolled
		}
		// 重新报名：恢复 active 并重算，历史进度记录仍然有效
		if err := s.EnrollmentRepo.UpdateStatus(existing.ID, model.EnrollmentActive); err != nil {
			return nil, err
		}
		if _, err := s.Rollup.Recompute(userID, moduleID); err != nil {
			return nil, err
		}
		return s.EnrollmentRepo.FindByID(existing.ID)
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	total, err := s.SectionCount.CurrentTotal(moduleID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	enrollment := &model.Enrollment{
		UserID:         userID,
		ModuleID:       moduleID,
		Status:         model.EnrollmentActive,
		TotalSections:  total,
		EnrolledAt:     now,
		LastAccessedAt: now,
	}
	if err := s.EnrollmentRepo.Create(enrollment); err != nil {
		return nil, err
	}
	return enrollment, nil
}

// Drop 退出报名。进度记录保留，汇总字段冻结在退出时刻。
func (s *EnrollmentService) Drop(userID, moduleID uint) error {
	enrollment, err := s.EnrollmentRepo.FindByUserAndModule(userID, moduleID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return util.ErrEnrollmentNotFound
		}
		return err
	}
	if enrollment.Status == model.EnrollmentDropped {
		return nil
	}
	return s.EnrollmentRepo.UpdateStatus(enrollment.ID, model.EnrollmentDropped)
}

// Pause 暂停学习，汇总照常维护但进度事件会被拒绝
func (s *EnrollmentService) Pause(userID, moduleID uint) error {
	enrollment, err := s.EnrollmentRepo.FindByUserAndModule(userID, moduleID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return util.ErrEnrollmentNotFound
		}
		return err
	}
	if enrollment.Status != model.EnrollmentActive {
		return util.ErrInvalidTransition
	}
	return s.EnrollmentRepo.UpdateStatus(enrollment.ID, model.EnrollmentPaused)
}

// Resume 恢复暂停的报名
func (s *EnrollmentService) Resume(userID, moduleID uint) error {
	enrollment, err := s.EnrollmentRepo.FindByUserAndModule(userID, moduleID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return util.ErrEnrollmentNotFound
		}
		return err
	}
	if enrollment.Status != model.EnrollmentPaused {
		return util.ErrInvalidTransition
	}
	return s.EnrollmentRepo.UpdateStatus(enrollment.ID, model.EnrollmentActive)
}

func (s *EnrollmentService) MyEnrollments(userID uint) ([]model.Enrollment, error) {
	return s.EnrollmentRepo.ListByUser(userID)
}

// ModuleProgress 某报名下全部进度记录明细
func (s *EnrollmentService) ModuleProgress(userID, moduleID uint) (*model.Enrollment, []model.ProgressRecord, error) {
	enrollment, err := s.EnrollmentRepo.FindByUserAndModule(userID, moduleID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, util.ErrEnrollmentNotFound
		}
		return nil, nil, err
	}

	records, err := s.ProgressRepo.ListByUserAndModule(userID, moduleID)
	if err != nil {
		return nil, nil, err
	}
	return enrollment, records, nil
}
