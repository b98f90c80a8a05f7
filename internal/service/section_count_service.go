package service

import (
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	GranularitySections = "sections"
	GranularityItems    = "items"
)

// SectionCountService 维护报名上的 total_sections 分母快照。
// 内容增删改或批量迁移时调用；先写新分母、再重算受影响报名，
// 顺序反过来会出现短暂的错误百分比。
type SectionCountService struct {
	ContentRepo    *repository.ContentRepository
	EnrollmentRepo *repository.EnrollmentRepository
	Rollup         *RollupService
	Granularity    string
}

func NewSectionCountService(
	contentRepo *repository.ContentRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	rollup *RollupService,
	granularity string,
) *SectionCountService {
	if granularity == "" {
		granularity = GranularitySections
	}
	return &SectionCountService{
		ContentRepo:    contentRepo,
		EnrollmentRepo: enrollmentRepo,
		Rollup:         rollup,
		Granularity:    granularity,
	}
}

// CurrentTotal 按配置的粒度从内容表算出模块当前的分母
func (s *SectionCountService) CurrentTotal(moduleID uint) (int, error) {
	var (
		count int64
		err   error
	)
	if s.Granularity == GranularityItems {
		count, err = s.ContentRepo.CountActiveItems(moduleID)
	} else {
		count, err = s.ContentRepo.CountActiveSections(moduleID)
	}
	return int(count), err
}

// UpdateModuleSectionCounts 刷新模块下所有报名的分母快照，
// 返回被更新的报名数。单条报名失败只记日志，不中断其余报名。
func (s *SectionCountService) UpdateModuleSectionCounts(moduleID uint) (int, error) {
	if _, err := s.ContentRepo.FindModuleByID(moduleID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, util.ErrModuleNotFound
		}
		return 0, err
	}

	total, err := s.CurrentTotal(moduleID)
	if err != nil {
		return 0, err
	}

	stale, err := s.EnrollmentRepo.ListStaleTotals(moduleID, total)
	if err != nil {
		return 0, err
	}

	updated := 0
	for i := range stale {
		enrollment := &stale[i]

		// 第一步：写新分母
		if err := s.EnrollmentRepo.UpdateTotalSections(enrollment.ID, total); err != nil {
			logger.Log.Error("update total_sections failed",
				zap.Uint("enrollmentID", enrollment.ID),
				zap.Uint("moduleID", moduleID),
				zap.Error(err))
			continue
		}

		// 第二步：分母变了，派生字段必须跟着重算
		if _, err := s.Rollup.Recompute(enrollment.UserID, moduleID); err != nil {
			logger.Log.Error("rollup recompute after section count change failed",
				zap.Uint("userID", enrollment.UserID),
				zap.Uint("moduleID", moduleID),
				zap.Error(err))
			continue
		}

		updated++
	}

	if updated > 0 {
		logger.Log.Info("module section counts refreshed",
			zap.Uint("moduleID", moduleID),
			zap.Int("total", total),
			zap.Int("enrollmentsUpdated", updated))
	}

	return updated, nil
}
