package service

import (
	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartCreatesRecord(t *testing.T) {
	e := newTestEngine(t)
	_, items := seedModule(t, e, "s1", "s2")
	module := items[0].ModuleID
	mustEnroll(t, e, 1, module)

	result, err := e.progress.Start(1, items[0].ID)
	require.NoError(t, err)

	assert.False(t, result.AlreadyStarted)
	assert.Equal(t, model.ProgressInProgress, result.Record.Status)
	assert.Equal(t, 1, result.Record.ProgressPercentage)
	assert.Equal(t, 1, result.Record.Attempts)
	require.NotNil(t, result.Record.StartedAt)
	assert.Nil(t, result.Record.CompletedAt)
	assert.Equal(t, module, result.Record.ModuleID)
}

func TestStartIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	_, items := seedModule(t, e, "s1")
	mustEnroll(t, e, 1, items[0].ModuleID)

	first, err := e.progress.Start(1, items[0].ID)
	require.NoError(t, err)
	startedAt := *first.Record.StartedAt

	second, err := e.progress.Start(1, items[0].ID)
	require.NoError(t, err)

	assert.True(t, second.AlreadyStarted)
	assert.Equal(t, first.Record.ID, second.Record.ID)
	assert.Equal(t, model.ProgressInProgress, second.Record.Status)
	assert.Equal(t, 1, second.Record.Attempts)
	require.NotNil(t, second.Record.StartedAt)
	assert.True(t, startedAt.Equal(*second.Record.StartedAt))

	var count int64
	e.db.Model(&model.ProgressRecord{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestStartRequiresEnrollment(t *testing.T) {
	e := newTestEngine(t)
	_, items := seedModule(t, e, "s1")

	_, err := e.progress.Start(1, items[0].ID)
	assert.ErrorIs(t, err, util.ErrNotEnrolled)
}

func TestStartRejectsDroppedEnrollment(t *testing.T) {
	e := newTestEngine(t)
	_, items := seedModule(t, e, "s1")
	mustEnroll(t, e, 1, items[0].ModuleID)
	require.NoError(t, e.enrollment.Drop(1, items[0].ModuleID))

	_, err := e.progress.Start(1, items[0].ID)
	assert.ErrorIs(t, err, util.ErrNotEnrolled)
}

func TestStartRejectsPausedEnrollment(t *testing.T) {
	e := newTestEngine(t)
	_, items := seedModule(t, e, "s1")
	mustEnroll(t, e, 1, items[0].ModuleID)
	require.NoError(t, e.enrollment.Pause(1, items[0].ModuleID))

	_, err := e.progress.Start(1, items[0].ID)
	assert.ErrorIs(t, err, util.ErrNotEnrolled)
}

func TestStartContentNotFound(t *testing.T) {
	e := newTestEngine(t)
	_, items := seedModule(t, e, "s1")
	mustEnroll(t, e, 1, items[0].ModuleID)

	_, err := e.progress.Start(1, 9999)
	assert.ErrorIs(t, err, util.ErrContentNotFound)
}

func TestStartInactiveContent(t *testing.T) {
	e := newTestEngine(t)
	_, items := seedModule(t, e, "s1", "s2")
	mustEnroll(t, e, 1, items[0].ModuleID)

	items[1].IsActive = false
	require.NoError(t, e.contentRepo.Save(&items[1]))

	_, err := e.progress.Start(1, items[1].ID)
	assert.ErrorIs(t, err, util.ErrContentNotFound)
}

func TestCompleteRollsUpPercentages(t *testing.T) {
	e := newTestEngine(t)
	_, items := seedModule(t, e, "s1", "s2", "s3", "s4")
	module := items[0].ModuleID
	mustEnroll(t, e, 1, module)

	expected := []int{25, 50, 75, 100}
	for i, item := range items {
		_, err := e.progress.Start(1, item.ID)
		require.NoError(t, err)
		_, err = e.progress.Complete(1, item.ID, nil)
		require.NoError(t, err)

		enrollment := reloadEnrollment(t, e, 1, module)
		assert.Equal(t, expected[i], enrollment.ProgressPercentage)
		assert.Equal(t, i+1, enrollment.CompletedSections)
		assert.Equal(t, 4, enrollment.TotalSections)
	}

	enrollment := reloadEnrollment(t, e, 1, module)
	assert.True(t, enrollment.IsCompleted)
	assert.Equal(t, model.EnrollmentCompleted, enrollment.Status)
	require.NotNil(t, enrollment.CompletedAt)
}

func TestCompleteIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	_, items := seedModule(t, e, "s1")
	mustEnroll(t, e, 1, items[0].ModuleID)

	score := 90
	first, err := e.progress.Complete(1, items[0].ID, &score)
	require.NoError(t, err)
	require.NotNil(t, first.CompletedAt)
	completedAt := *first.CompletedAt

	time.Sleep(10 * time.Millisecond)

	otherScore := 50
	second, err := e.progress.Complete(1, items[0].ID, &otherScore)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 90, second.Score)
	require.NotNil(t, second.CompletedAt)
	assert.True(t, completedAt.Equal(*second.CompletedAt))
}

func TestCompleteWithoutStart(t *testing.T) {
	e := newTestEngine(t)
	_, items := seedModule(t, e, "s1", "s2")
	module := items[0].ModuleID
	mustEnroll(t, e, 1, module)

	// 隐式 start：直接完成未开始的内容
	record, err := e.progress.Complete(1, items[0].ID, nil)
	require.NoError(t, err)

	assert.Equal(t, model.ProgressCompleted, record.Status)
	assert.Equal(t, 100, record.ProgressPercentage)
	require.NotNil(t, record.StartedAt)
	require.NotNil(t, record.CompletedAt)

	enrollment := reloadEnrollment(t, e, 1, module)
	assert.Equal(t, 50, enrollment.ProgressPercentage)
}

func TestUpdatePositionRequiresInProgress(t *testing.T) {
	e := newTestEngine(t)
	_, items := seedModule(t, e, "s1")
	mustEnroll(t, e, 1, items[0].ModuleID)

	// 未开始
	_, err := e.progress.UpdatePosition(1, items[0].ID, 50, 120)
	assert.ErrorIs(t, err, util.ErrInvalidTransition)

	// 已完成后不允许回退
	_, err = e.progress.Complete(1, items[0].ID, nil)
	require.NoError(t, err)
	_, err = e.progress.UpdatePosition(1, items[0].ID, 50, 120)
	assert.ErrorIs(t, err, util.ErrInvalidTransition)
}

func TestUpdatePositionClampsPercentage(t *testing.T) {
	e := newTestEngine(t)
	_, items := seedModule(t, e, "s1")
	mustEnroll(t, e, 1, items[0].ModuleID)

	_, err := e.progress.Start(1, items[0].ID)
	require.NoError(t, err)

	// 100 会被钳到 99：记录内部进度不等于完成
	record, err := e.progress.UpdatePosition(1, items[0].ID, 100, 300)
	require.NoError(t, err)
	assert.Equal(t, 99, record.ProgressPercentage)
	assert.Equal(t, 300, record.LastPosition)
	assert.Equal(t, model.ProgressInProgress, record.Status)

	record, err = e.progress.UpdatePosition(1, items[0].ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, record.ProgressPercentage)
}

func TestCompletedContentOnlyCountedWhileActive(t *testing.T) {
	e := newTestEngine(t)
	_, items := seedModule(t, e, "s1", "s2")
	module := items[0].ModuleID
	mustEnroll(t, e, 1, module)

	_, err := e.progress.Complete(1, items[0].ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 50, reloadEnrollment(t, e, 1, module).ProgressPercentage)

	// 停用已完成的内容项后重算，完成数随之下降
	items[0].IsActive = false
	require.NoError(t, e.contentRepo.Save(&items[0]))
	_, err = e.sectionCount.UpdateModuleSectionCounts(module)
	require.NoError(t, err)

	enrollment := reloadEnrollment(t, e, 1, module)
	assert.Equal(t, 1, enrollment.TotalSections)
	assert.Equal(t, 0, enrollment.CompletedSections)
	assert.Equal(t, 0, enrollment.ProgressPercentage)
}
