package service

import (
	"context"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"
	"sync"
	"time"

	"go.uber.org/zap"
)

// rollupRecomputer 对账引擎对聚合器的依赖面
type rollupRecomputer interface {
	Recompute(userID, moduleID uint) (*RollupResult, error)
	Preview(userID, moduleID uint) (*RollupResult, error)
}

// ReconcileService 批量对账：按固定批次遍历报名，逐条重算汇总。
// 单条失败只计数不中断；批与批之间响应取消，重跑总是安全的。
type ReconcileService struct {
	EnrollmentRepo *repository.EnrollmentRepository
	Rollup         rollupRecomputer
	SectionCount   *SectionCountService
	BatchSize      int
	Workers        int
}

func NewReconcileService(
	enrollmentRepo *repository.EnrollmentRepository,
	rollup *RollupService,
	sectionCount *SectionCountService,
	batchSize, workers int,
) *ReconcileService {
	if batchSize <= 0 {
		batchSize = 100
	}
	if workers <= 0 {
		workers = 8
	}
	return &ReconcileService{
		EnrollmentRepo: enrollmentRepo,
		Rollup:         rollup,
		SectionCount:   sectionCount,
		BatchSize:      batchSize,
		Workers:        workers,
	}
}

type ReconcileOptions struct {
	BatchSize int  `json:"batchSize"`
	DryRun    bool `json:"dryRun"`
	UserID    uint `json:"userId,omitempty"`   // 0 表示不过滤
	ModuleID  uint `json:"moduleId,omitempty"` // 0 表示不过滤
	// RefreshSectionCounts 先刷新范围内所有模块的分母再对账，
	// 全量迁移必须打开（历史数据的分母可能从未正确过）
	RefreshSectionCounts bool `json:"refreshSectionCounts"`
}

type ReconcileError struct {
	EnrollmentID uint   `json:"enrollmentId"`
	UserID       uint   `json:"userId"`
	ModuleID     uint   `json:"moduleId"`
	Message      string `json:"message"`
}

// DriftItem 对账前存量百分比与重算值不一致的报名
type DriftItem struct {
	EnrollmentID uint `json:"enrollmentId"`
	UserID       uint `json:"userId"`
	ModuleID     uint `json:"moduleId"`
	StoredPct    int  `json:"storedPct"`
	ComputedPct  int  `json:"computedPct"`
}

type ReconcileReport struct {
	TotalEnrollments int64            `json:"totalEnrollments"`
	Processed        int              `json:"processed"`
	Updated          int              `json:"updated"`
	Skipped          int              `json:"skipped"`
	Errors           int              `json:"errors"`
	ErrorDetails     []ReconcileError `json:"errorDetails,omitempty"`
	Drifted          []DriftItem      `json:"drifted,omitempty"`
	SuccessRate      float64          `json:"successRate"`
	DryRun           bool             `json:"dryRun"`
	Interrupted      bool             `json:"interrupted"`
	DurationMS       int64            `json:"durationMs"`
}

// BulkRecalculate 全量/按范围对账
func (s *ReconcileService) BulkRecalculate(ctx context.Context, opts ReconcileOptions) (*ReconcileReport, error) {
	start := time.Now()

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = s.BatchSize
	}

	mode := "live"
	if opts.DryRun {
		mode = "dry_run"
	}
	monitoring.ReconcileRuns.WithLabelValues(mode).Inc()

	report := &ReconcileReport{DryRun: opts.DryRun}

	// 全量迁移先把分母修对，否则后面的百分比全是基于错误分母的
	if opts.RefreshSectionCounts && !opts.DryRun {
		moduleIDs, err := s.EnrollmentRepo.DistinctModuleIDs(opts.UserID, opts.ModuleID)
		if err != nil {
			return nil, err
		}
		for _, id := range moduleIDs {
			if _, err := s.SectionCount.UpdateModuleSectionCounts(id); err != nil {
				logger.Log.Error("section count refresh failed during reconciliation",
					zap.Uint("moduleID", id),
					zap.Error(err))
			}
		}
	}

	total, err := s.EnrollmentRepo.CountForReconcile(opts.UserID, opts.ModuleID)
	if err != nil {
		return nil, err
	}
	report.TotalEnrollments = total

	for offset := 0; ; offset += batchSize {
		// 批间检查取消：每条都是独立的幂等重算，半途而废的运行重跑即可续完
		select {
		case <-ctx.Done():
			report.Interrupted = true
			s.finish(report, start)
			return report, nil
		default:
		}

		batch, err := s.EnrollmentRepo.FindBatch(offset, batchSize, opts.UserID, opts.ModuleID)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}

		s.processBatch(batch, opts.DryRun, report)

		if len(batch) < batchSize {
			break
		}
	}

	s.finish(report, start)
	return report, nil
}

// processBatch 批内用固定大小的工作池并发重算，避免对数据库无界放大
func (s *ReconcileService) processBatch(batch []model.Enrollment, dryRun bool, report *ReconcileReport) {
	workers := s.Workers
	if workers > len(batch) {
		workers = len(batch)
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	jobs := make(chan *model.Enrollment)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for enrollment := range jobs {
				result, err := s.recomputeOne(enrollment, dryRun)

				mu.Lock()
				report.Processed++
				if err != nil {
					report.Errors++
					report.ErrorDetails = append(report.ErrorDetails, ReconcileError{
						EnrollmentID: enrollment.ID,
						UserID:       enrollment.UserID,
						ModuleID:     enrollment.ModuleID,
						Message:      err.Error(),
					})
					mu.Unlock()

					monitoring.ReconcileItemErrors.Inc()
					logger.Log.Error("enrollment reconciliation failed",
						zap.Uint("enrollmentID", enrollment.ID),
						zap.Uint("userID", enrollment.UserID),
						zap.Uint("moduleID", enrollment.ModuleID),
						zap.Error(err))
					continue
				}

				if result.Skipped {
					report.Skipped++
				} else if result.Changed {
					report.Updated++
				}
				if !result.Skipped && result.Before != nil && result.After != nil &&
					result.Before.ProgressPercentage != result.After.ProgressPercentage {
					report.Drifted = append(report.Drifted, DriftItem{
						EnrollmentID: enrollment.ID,
						UserID:       enrollment.UserID,
						ModuleID:     enrollment.ModuleID,
						StoredPct:    result.Before.ProgressPercentage,
						ComputedPct:  result.After.ProgressPercentage,
					})
				}
				mu.Unlock()
			}
		}()
	}

	for i := range batch {
		jobs <- &batch[i]
	}
	close(jobs)
	wg.Wait()
}

func (s *ReconcileService) recomputeOne(enrollment *model.Enrollment, dryRun bool) (*RollupResult, error) {
	if dryRun {
		return s.Rollup.Preview(enrollment.UserID, enrollment.ModuleID)
	}
	return s.Rollup.Recompute(enrollment.UserID, enrollment.ModuleID)
}

func (s *ReconcileService) finish(report *ReconcileReport, start time.Time) {
	if report.Processed > 0 {
		report.SuccessRate = float64(report.Processed-report.Errors) * 100 / float64(report.Processed)
	}
	report.DurationMS = time.Since(start).Milliseconds()

	logger.Log.Info("reconciliation run finished",
		zap.Int64("total", report.TotalEnrollments),
		zap.Int("processed", report.Processed),
		zap.Int("updated", report.Updated),
		zap.Int("skipped", report.Skipped),
		zap.Int("errors", report.Errors),
		zap.Bool("dryRun", report.DryRun),
		zap.Bool("interrupted", report.Interrupted))
}

// SyncUserEnrollments 只对账某个用户的全部报名
func (s *ReconcileService) SyncUserEnrollments(ctx context.Context, userID uint) (*ReconcileReport, error) {
	return s.BulkRecalculate(ctx, ReconcileOptions{UserID: userID})
}

// SyncModuleEnrollments 只对账某个模块的全部报名，先刷新该模块的分母
func (s *ReconcileService) SyncModuleEnrollments(ctx context.Context, moduleID uint) (*ReconcileReport, error) {
	return s.BulkRecalculate(ctx, ReconcileOptions{ModuleID: moduleID, RefreshSectionCounts: true})
}
