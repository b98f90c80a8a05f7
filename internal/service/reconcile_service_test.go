package service

import (
	"context"
	"errors"
	"lms_backend/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedEnrolledUsers(t *testing.T, e *testEngine, moduleID uint, userIDs ...uint) {
	t.Helper()
	for _, userID := range userIDs {
		mustEnroll(t, e, userID, moduleID)
	}
}

func corruptPercentage(t *testing.T, e *testEngine, userID, moduleID uint, pct int) {
	t.Helper()
	enrollment := reloadEnrollment(t, e, userID, moduleID)
	require.NoError(t, e.enrollmentRepo.UpdateRollup(enrollment.ID, map[string]interface{}{
		"progress_percentage": pct,
	}))
}

func TestBulkRecalculateRepairsDrift(t *testing.T) {
	e := newTestEngine(t)
	module, items := seedModule(t, e, "s1", "s2")
	seedEnrolledUsers(t, e, module.ID, 1, 2, 3)

	_, err := e.progress.Complete(1, items[0].ID, nil)
	require.NoError(t, err)

	corruptPercentage(t, e, 1, module.ID, 13)

	report, err := e.reconcile.BulkRecalculate(context.Background(), ReconcileOptions{})
	require.NoError(t, err)

	assert.Equal(t, int64(3), report.TotalEnrollments)
	assert.Equal(t, 3, report.Processed)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 0, report.Errors)
	assert.False(t, report.Interrupted)

	require.Len(t, report.Drifted, 1)
	assert.Equal(t, uint(1), report.Drifted[0].UserID)
	assert.Equal(t, 13, report.Drifted[0].StoredPct)
	assert.Equal(t, 50, report.Drifted[0].ComputedPct)

	assert.Equal(t, 50, reloadEnrollment(t, e, 1, module.ID).ProgressPercentage)
}

func TestBulkRecalculateDryRunParity(t *testing.T) {
	e := newTestEngine(t)
	module, items := seedModule(t, e, "s1", "s2")
	seedEnrolledUsers(t, e, module.ID, 1, 2)

	_, err := e.progress.Complete(2, items[1].ID, nil)
	require.NoError(t, err)
	corruptPercentage(t, e, 2, module.ID, 99)

	dry, err := e.reconcile.BulkRecalculate(context.Background(), ReconcileOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, dry.DryRun)
	assert.Equal(t, 2, dry.Processed)
	assert.Equal(t, 1, dry.Updated)
	require.Len(t, dry.Drifted, 1)

	// dry-run 不落库
	assert.Equal(t, 99, reloadEnrollment(t, e, 2, module.ID).ProgressPercentage)

	live, err := e.reconcile.BulkRecalculate(context.Background(), ReconcileOptions{})
	require.NoError(t, err)

	// 实跑的计数与预览一致
	assert.Equal(t, dry.TotalEnrollments, live.TotalEnrollments)
	assert.Equal(t, dry.Processed, live.Processed)
	assert.Equal(t, dry.Updated, live.Updated)
	assert.Equal(t, 50, reloadEnrollment(t, e, 2, module.ID).ProgressPercentage)
}

func TestBulkRecalculateScopeFilters(t *testing.T) {
	e := newTestEngine(t)
	moduleA, _ := seedModule(t, e, "s1")
	moduleB, _ := seedModule(t, e, "s1")
	mustEnroll(t, e, 1, moduleA.ID)
	mustEnroll(t, e, 1, moduleB.ID)
	mustEnroll(t, e, 2, moduleA.ID)

	byUser, err := e.reconcile.BulkRecalculate(context.Background(), ReconcileOptions{UserID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), byUser.TotalEnrollments)
	assert.Equal(t, 2, byUser.Processed)

	byModule, err := e.reconcile.BulkRecalculate(context.Background(), ReconcileOptions{ModuleID: moduleA.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), byModule.TotalEnrollments)

	both, err := e.reconcile.BulkRecalculate(context.Background(), ReconcileOptions{UserID: 2, ModuleID: moduleA.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), both.TotalEnrollments)
}

func TestBulkRecalculateSmallBatches(t *testing.T) {
	e := newTestEngine(t)
	module, _ := seedModule(t, e, "s1")
	seedEnrolledUsers(t, e, module.ID, 1, 2, 3, 4, 5, 6, 7)

	report, err := e.reconcile.BulkRecalculate(context.Background(), ReconcileOptions{BatchSize: 3})
	require.NoError(t, err)
	assert.Equal(t, 7, report.Processed)
	assert.Equal(t, 0, report.Errors)
}

func TestBulkRecalculateCountsDroppedAsSkipped(t *testing.T) {
	e := newTestEngine(t)
	module, _ := seedModule(t, e, "s1")
	seedEnrolledUsers(t, e, module.ID, 1, 2)
	require.NoError(t, e.enrollment.Drop(2, module.ID))

	report, err := e.reconcile.BulkRecalculate(context.Background(), ReconcileOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 1, report.Skipped)
}

// flakyRecomputer 对指定用户固定失败，其余透传给真实聚合器
type flakyRecomputer struct {
	real     *RollupService
	failUser uint
}

func (f *flakyRecomputer) Recompute(userID, moduleID uint) (*RollupResult, error) {
	if userID == f.failUser {
		return nil, errors.New("simulated recompute failure")
	}
	return f.real.Recompute(userID, moduleID)
}

func (f *flakyRecomputer) Preview(userID, moduleID uint) (*RollupResult, error) {
	if userID == f.failUser {
		return nil, errors.New("simulated recompute failure")
	}
	return f.real.Preview(userID, moduleID)
}

func TestBulkRecalculateIsolatesItemErrors(t *testing.T) {
	e := newTestEngine(t)
	module, items := seedModule(t, e, "s1", "s2")
	seedEnrolledUsers(t, e, module.ID, 1, 2, 3)

	_, err := e.progress.Complete(3, items[0].ID, nil)
	require.NoError(t, err)
	corruptPercentage(t, e, 3, module.ID, 5)

	svc := &ReconcileService{
		EnrollmentRepo: e.enrollmentRepo,
		Rollup:         &flakyRecomputer{real: e.rollup, failUser: 2},
		SectionCount:   e.sectionCount,
		BatchSize:      100,
		Workers:        2,
	}

	report, err := svc.BulkRecalculate(context.Background(), ReconcileOptions{})
	require.NoError(t, err)

	// 单条失败不中断整体，其余照常修复
	assert.Equal(t, 3, report.Processed)
	assert.Equal(t, 1, report.Errors)
	assert.Equal(t, 1, report.Updated)
	require.Len(t, report.ErrorDetails, 1)
	assert.Equal(t, uint(2), report.ErrorDetails[0].UserID)
	assert.Contains(t, report.ErrorDetails[0].Message, "simulated")
	assert.InDelta(t, 66.7, report.SuccessRate, 0.1)

	assert.Equal(t, 50, reloadEnrollment(t, e, 3, module.ID).ProgressPercentage)
}

func TestBulkRecalculateHonorsCancellation(t *testing.T) {
	e := newTestEngine(t)
	module, _ := seedModule(t, e, "s1")
	seedEnrolledUsers(t, e, module.ID, 1, 2, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := e.reconcile.BulkRecalculate(ctx, ReconcileOptions{})
	require.NoError(t, err)
	assert.True(t, report.Interrupted)
	assert.Equal(t, 0, report.Processed)
}

func TestSyncModuleRefreshesDenominator(t *testing.T) {
	e := newTestEngine(t)
	module, _ := seedModule(t, e, "s1")
	mustEnroll(t, e, 1, module.ID)

	extra := model.ContentItem{
		ModuleID: module.ID,
		Section:  "s2",
		Title:    "Content 2",
		Type:     model.ContentArticle,
		IsActive: true,
	}
	require.NoError(t, e.contentRepo.Create(&extra))

	_, err := e.reconcile.SyncModuleEnrollments(context.Background(), module.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, reloadEnrollment(t, e, 1, module.ID).TotalSections)
}
