package service

import (
	"fmt"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/pkg/logger"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	logger.Log = zap.NewNop()
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// 每个测试独立的共享内存库，测试间互不可见
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.Course{},
		&model.Phase{},
		&model.Module{},
		&model.ContentItem{},
		&model.Enrollment{},
		&model.ProgressRecord{},
	))
	return db
}

type testEngine struct {
	db             *gorm.DB
	contentRepo    *repository.ContentRepository
	progressRepo   *repository.ProgressRepository
	enrollmentRepo *repository.EnrollmentRepository

	rollup       *RollupService
	sectionCount *SectionCountService
	progress     *ProgressService
	enrollment   *EnrollmentService
	reconcile    *ReconcileService
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	db := newTestDB(t)
	contentRepo := repository.NewContentRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)

	rollup := NewRollupService(enrollmentRepo, progressRepo)
	sectionCount := NewSectionCountService(contentRepo, enrollmentRepo, rollup, GranularitySections)
	progress := NewProgressService(contentRepo, progressRepo, enrollmentRepo, rollup)
	enrollment := NewEnrollmentService(enrollmentRepo, contentRepo, progressRepo, sectionCount, rollup)
	reconcile := NewReconcileService(enrollmentRepo, rollup, sectionCount, 100, 4)

	return &testEngine{
		db:             db,
		contentRepo:    contentRepo,
		progressRepo:   progressRepo,
		enrollmentRepo: enrollmentRepo,
		rollup:         rollup,
		sectionCount:   sectionCount,
		progress:       progress,
		enrollment:     enrollment,
		reconcile:      reconcile,
	}
}

// seedModule 建一个模块，每个 section 名对应一个内容项，返回模块和按序的内容项
func seedModule(t *testing.T, e *testEngine, sections ...string) (*model.Module, []model.ContentItem) {
	t.Helper()

	module := &model.Module{Title: "Test Module", IsActive: true}
	require.NoError(t, e.contentRepo.CreateModule(module))

	items := make([]model.ContentItem, 0, len(sections))
	for i, section := range sections {
		item := model.ContentItem{
			ModuleID: module.ID,
			Section:  section,
			Title:    fmt.Sprintf("Content %d", i+1),
			Type:     model.ContentArticle,
			Order:    i,
			IsActive: true,
		}
		require.NoError(t, e.contentRepo.Create(&item))
		items = append(items, item)
	}
	return module, items
}

func mustEnroll(t *testing.T, e *testEngine, userID, moduleID uint) *model.Enrollment {
	t.Helper()
	enrollment, err := e.enrollment.Enroll(userID, moduleID)
	require.NoError(t, err)
	return enrollment
}

func reloadEnrollment(t *testing.T, e *testEngine, userID, moduleID uint) *model.Enrollment {
	t.Helper()
	enrollment, err := e.enrollmentRepo.FindByUserAndModule(userID, moduleID)
	require.NoError(t, err)
	return enrollment
}
