package service

import (
	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentTotalBySections(t *testing.T) {
	e := newTestEngine(t)
	module, _ := seedModule(t, e, "s1", "s1", "s2", "s3")

	// 同 section 的多个内容项只算一次
	total, err := e.sectionCount.CurrentTotal(module.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestCurrentTotalByItems(t *testing.T) {
	e := newTestEngine(t)
	module, _ := seedModule(t, e, "s1", "s1", "s2")

	itemCount := NewSectionCountService(e.contentRepo, e.enrollmentRepo, e.rollup, GranularityItems)
	total, err := itemCount.CurrentTotal(module.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestUpdateModuleSectionCountsModuleNotFound(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.sectionCount.UpdateModuleSectionCounts(9999)
	assert.ErrorIs(t, err, util.ErrModuleNotFound)
}

func TestUpdateModuleSectionCountsSkipsFreshEnrollments(t *testing.T) {
	e := newTestEngine(t)
	module, _ := seedModule(t, e, "s1", "s2")
	mustEnroll(t, e, 1, module.ID)

	// 报名时快照已是 2，无需刷新
	updated, err := e.sectionCount.UpdateModuleSectionCounts(module.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, updated)
}

func TestModuleGrowthAfterCompletion(t *testing.T) {
	e := newTestEngine(t)
	module, items := seedModule(t, e, "s1", "s2", "s3", "s4")
	mustEnroll(t, e, 1, module.ID)

	for _, item := range items {
		_, err := e.progress.Complete(1, item.ID, nil)
		require.NoError(t, err)
	}

	enrollment := reloadEnrollment(t, e, 1, module.ID)
	require.True(t, enrollment.IsCompleted)
	require.Equal(t, 100, enrollment.ProgressPercentage)
	completedAt := *enrollment.CompletedAt

	// 模块扩容第 5 个 section
	extra := model.ContentItem{
		ModuleID: module.ID,
		Section:  "s5",
		Title:    "Content 5",
		Type:     model.ContentArticle,
		IsActive: true,
	}
	require.NoError(t, e.contentRepo.Create(&extra))

	updated, err := e.sectionCount.UpdateModuleSectionCounts(module.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	enrollment = reloadEnrollment(t, e, 1, module.ID)
	assert.Equal(t, 5, enrollment.TotalSections)
	assert.Equal(t, 4, enrollment.CompletedSections)
	assert.Equal(t, 80, enrollment.ProgressPercentage)

	// 完成标记只进不出
	assert.True(t, enrollment.IsCompleted)
	assert.Equal(t, model.EnrollmentCompleted, enrollment.Status)
	require.NotNil(t, enrollment.CompletedAt)
	assert.True(t, completedAt.Equal(*enrollment.CompletedAt))

	// 再算一次必须收敛
	result, err := e.rollup.Recompute(1, module.ID)
	require.NoError(t, err)
	assert.False(t, result.Changed)
}

func TestUpdateModuleSectionCountsTouchesAllEnrollments(t *testing.T) {
	e := newTestEngine(t)
	module, _ := seedModule(t, e, "s1")
	mustEnroll(t, e, 1, module.ID)
	mustEnroll(t, e, 2, module.ID)
	mustEnroll(t, e, 3, module.ID)

	extra := model.ContentItem{
		ModuleID: module.ID,
		Section:  "s2",
		Title:    "Content 2",
		Type:     model.ContentArticle,
		IsActive: true,
	}
	require.NoError(t, e.contentRepo.Create(&extra))

	updated, err := e.sectionCount.UpdateModuleSectionCounts(module.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, updated)

	for _, userID := range []uint{1, 2, 3} {
		assert.Equal(t, 2, reloadEnrollment(t, e, userID, module.ID).TotalSections)
	}
}
