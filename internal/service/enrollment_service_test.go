package service

import (
	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrollSnapshotsSectionTotal(t *testing.T) {
	e := newTestEngine(t)
	module, _ := seedModule(t, e, "s1", "s2", "s3")

	enrollment, err := e.enrollment.Enroll(1, module.ID)
	require.NoError(t, err)

	assert.Equal(t, model.EnrollmentActive, enrollment.Status)
	assert.Equal(t, 3, enrollment.TotalSections)
	assert.Equal(t, 0, enrollment.ProgressPercentage)
	assert.False(t, enrollment.EnrolledAt.IsZero())
}

func TestEnrollRejectsDuplicate(t *testing.T) {
	e := newTestEngine(t)
	module, _ := seedModule(t, e, "s1")
	mustEnroll(t, e, 1, module.ID)

	_, err := e.enrollment.Enroll(1, module.ID)
	assert.ErrorIs(t, err, util.ErrAlreadyEnrolled)
}

func TestEnrollUnknownModule(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.enrollment.Enroll(1, 9999)
	assert.ErrorIs(t, err, util.ErrModuleNotFound)
}

func TestEnrollInactiveModule(t *testing.T) {
	e := newTestEngine(t)
	module, _ := seedModule(t, e, "s1")
	module.IsActive = false
	require.NoError(t, e.contentRepo.SaveModule(module))

	_, err := e.enrollment.Enroll(1, module.ID)
	assert.ErrorIs(t, err, util.ErrModuleNotFound)
}

func TestReEnrollAfterDropKeepsProgress(t *testing.T) {
	e := newTestEngine(t)
	module, items := seedModule(t, e, "s1", "s2")
	mustEnroll(t, e, 1, module.ID)

	_, err := e.progress.Complete(1, items[0].ID, nil)
	require.NoError(t, err)
	require.NoError(t, e.enrollment.Drop(1, module.ID))

	enrollment, err := e.enrollment.Enroll(1, module.ID)
	require.NoError(t, err)

	assert.Equal(t, model.EnrollmentActive, enrollment.Status)
	assert.Equal(t, 1, enrollment.CompletedSections)
	assert.Equal(t, 50, enrollment.ProgressPercentage)
}

func TestDropIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	module, _ := seedModule(t, e, "s1")
	mustEnroll(t, e, 1, module.ID)

	require.NoError(t, e.enrollment.Drop(1, module.ID))
	require.NoError(t, e.enrollment.Drop(1, module.ID))

	assert.Equal(t, model.EnrollmentDropped, reloadEnrollment(t, e, 1, module.ID).Status)
}

func TestDropWithoutEnrollment(t *testing.T) {
	e := newTestEngine(t)
	module, _ := seedModule(t, e, "s1")

	err := e.enrollment.Drop(1, module.ID)
	assert.ErrorIs(t, err, util.ErrEnrollmentNotFound)
}

func TestPauseResumeTransitions(t *testing.T) {
	e := newTestEngine(t)
	module, _ := seedModule(t, e, "s1")
	mustEnroll(t, e, 1, module.ID)

	require.NoError(t, e.enrollment.Pause(1, module.ID))
	assert.Equal(t, model.EnrollmentPaused, reloadEnrollment(t, e, 1, module.ID).Status)

	// 已暂停的报名不能再次暂停
	assert.ErrorIs(t, e.enrollment.Pause(1, module.ID), util.ErrInvalidTransition)

	require.NoError(t, e.enrollment.Resume(1, module.ID))
	assert.Equal(t, model.EnrollmentActive, reloadEnrollment(t, e, 1, module.ID).Status)

	assert.ErrorIs(t, e.enrollment.Resume(1, module.ID), util.ErrInvalidTransition)
}

func TestModuleProgressDetail(t *testing.T) {
	e := newTestEngine(t)
	module, items := seedModule(t, e, "s1", "s2")
	mustEnroll(t, e, 1, module.ID)

	_, err := e.progress.Start(1, items[0].ID)
	require.NoError(t, err)
	_, err = e.progress.Complete(1, items[1].ID, nil)
	require.NoError(t, err)

	enrollment, records, err := e.enrollment.ModuleProgress(1, module.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, enrollment.ProgressPercentage)
	require.Len(t, records, 2)
	assert.Equal(t, model.ProgressInProgress, records[0].Status)
	assert.Equal(t, model.ProgressCompleted, records[1].Status)
}
