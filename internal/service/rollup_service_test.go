package service

import (
	"lms_backend/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecomputeIsFixpoint(t *testing.T) {
	e := newTestEngine(t)
	_, items := seedModule(t, e, "s1", "s2", "s3")
	module := items[0].ModuleID
	mustEnroll(t, e, 1, module)

	_, err := e.progress.Complete(1, items[0].ID, nil)
	require.NoError(t, err)

	// 事件路径已经算过一次，再算必须无变化
	result, err := e.rollup.Recompute(1, module)
	require.NoError(t, err)
	assert.False(t, result.Changed)
	assert.False(t, result.Skipped)

	result, err = e.rollup.Recompute(1, module)
	require.NoError(t, err)
	assert.False(t, result.Changed)
}

func TestRecomputeRounding(t *testing.T) {
	e := newTestEngine(t)
	_, items := seedModule(t, e, "s1", "s2", "s3")
	module := items[0].ModuleID
	mustEnroll(t, e, 1, module)

	_, err := e.progress.Complete(1, items[0].ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 33, reloadEnrollment(t, e, 1, module).ProgressPercentage)

	_, err = e.progress.Complete(1, items[1].ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 67, reloadEnrollment(t, e, 1, module).ProgressPercentage)
}

func TestRecomputeZeroTotal(t *testing.T) {
	e := newTestEngine(t)

	module := &model.Module{Title: "Empty", IsActive: true}
	require.NoError(t, e.contentRepo.CreateModule(module))
	mustEnroll(t, e, 1, module.ID)

	result, err := e.rollup.Recompute(1, module.ID)
	require.NoError(t, err)
	assert.False(t, result.Changed)

	enrollment := reloadEnrollment(t, e, 1, module.ID)
	assert.Equal(t, 0, enrollment.ProgressPercentage)
	assert.Equal(t, 0, enrollment.TotalSections)
	assert.False(t, enrollment.IsCompleted)
}

func TestRecomputeSkipsMissingEnrollment(t *testing.T) {
	e := newTestEngine(t)

	result, err := e.rollup.Recompute(42, 42)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
}

func TestRecomputeSkipsDroppedEnrollment(t *testing.T) {
	e := newTestEngine(t)
	_, items := seedModule(t, e, "s1")
	module := items[0].ModuleID
	mustEnroll(t, e, 1, module)
	require.NoError(t, e.enrollment.Drop(1, module))

	result, err := e.rollup.Recompute(1, module)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
}

func TestPreviewDoesNotWrite(t *testing.T) {
	e := newTestEngine(t)
	_, items := seedModule(t, e, "s1", "s2")
	module := items[0].ModuleID
	mustEnroll(t, e, 1, module)

	_, err := e.progress.Complete(1, items[0].ID, nil)
	require.NoError(t, err)

	// 人为制造漂移
	enrollment := reloadEnrollment(t, e, 1, module)
	require.NoError(t, e.enrollmentRepo.UpdateRollup(enrollment.ID, map[string]interface{}{
		"progress_percentage": 7,
	}))

	result, err := e.rollup.Preview(1, module)
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Equal(t, 7, result.Before.ProgressPercentage)
	assert.Equal(t, 50, result.After.ProgressPercentage)

	// preview 不落库
	assert.Equal(t, 7, reloadEnrollment(t, e, 1, module).ProgressPercentage)
}

func TestRollupOnlyWritesOnChange(t *testing.T) {
	e := newTestEngine(t)
	_, items := seedModule(t, e, "s1", "s2")
	module := items[0].ModuleID
	mustEnroll(t, e, 1, module)

	_, err := e.progress.Complete(1, items[0].ID, nil)
	require.NoError(t, err)

	before := reloadEnrollment(t, e, 1, module)

	result, err := e.rollup.Recompute(1, module)
	require.NoError(t, err)
	require.False(t, result.Changed)

	// 无变化时不得触碰行，updated_at 保持不变
	after := reloadEnrollment(t, e, 1, module)
	assert.True(t, before.UpdatedAt.Equal(after.UpdatedAt))
	assert.True(t, before.LastAccessedAt.Equal(after.LastAccessedAt))
}

func TestCompletionIsSticky(t *testing.T) {
	e := newTestEngine(t)
	_, items := seedModule(t, e, "s1", "s2")
	module := items[0].ModuleID
	mustEnroll(t, e, 1, module)

	for _, item := range items {
		_, err := e.progress.Complete(1, item.ID, nil)
		require.NoError(t, err)
	}

	enrollment := reloadEnrollment(t, e, 1, module)
	require.True(t, enrollment.IsCompleted)
	require.NotNil(t, enrollment.CompletedAt)
	completedAt := *enrollment.CompletedAt

	// 手动把分母改大模拟模块扩容后，完成标记仍然保留
	require.NoError(t, e.enrollmentRepo.UpdateTotalSections(enrollment.ID, 4))

	result, err := e.rollup.Recompute(1, module)
	require.NoError(t, err)
	assert.True(t, result.Changed)

	enrollment = reloadEnrollment(t, e, 1, module)
	assert.Equal(t, 50, enrollment.ProgressPercentage)
	assert.True(t, enrollment.IsCompleted)
	assert.Equal(t, model.EnrollmentCompleted, enrollment.Status)
	require.NotNil(t, enrollment.CompletedAt)
	assert.True(t, completedAt.Equal(*enrollment.CompletedAt))
}
