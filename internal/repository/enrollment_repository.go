package repository

import (
	"lms_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

func (r *EnrollmentRepository) Create(enrollment *model.Enrollment) error {
	return r.DB.Create(enrollment).Error
}

func (r *EnrollmentRepository) FindByID(id uint) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.DB.First(&enrollment, id).Error
	return &enrollment, err
}

func (r *EnrollmentRepository) FindByUserAndModule(userID, moduleID uint) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.DB.Where("user_id = ? AND module_id = ?", userID, moduleID).First(&enrollment).Error
	return &enrollment, err
}

func (r *EnrollmentRepository) ListByUser(userID uint) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.DB.Where("user_id = ?", userID).Order("id ASC").Find(&enrollments).Error
	return enrollments, err
}

func (r *EnrollmentRepository) Save(enrollment *model.Enrollment) error {
	return r.DB.Save(enrollment).Error
}

// UpdateRollup 写入聚合服务算出的派生字段，其他代码不得直接更新这些列
func (r *EnrollmentRepository) UpdateRollup(id uint, fields map[string]interface{}) error {
	return r.DB.Model(&model.Enrollment{}).Where("id = ?", id).Updates(fields).Error
}

func (r *EnrollmentRepository) UpdateStatus(id uint, status model.EnrollmentStatus) error {
	return r.DB.Model(&model.Enrollment{}).Where("id = ?", id).Update("status", status).Error
}

// CountForReconcile 对账目标集合的总数，userID/moduleID 为 0 表示不过滤
func (r *EnrollmentRepository) CountForReconcile(userID, moduleID uint) (int64, error) {
	var count int64
	err := r.reconcileScope(userID, moduleID).Count(&count).Error
	return count, err
}

// FindBatch 按 id 升序取一批对账目标，offset 分页保证可中断后重跑
func (r *EnrollmentRepository) FindBatch(offset, limit int, userID, moduleID uint) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.reconcileScope(userID, moduleID).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&enrollments).Error
	return enrollments, err
}

func (r *EnrollmentRepository) reconcileScope(userID, moduleID uint) *gorm.DB {
	q := r.DB.Model(&model.Enrollment{})
	if userID > 0 {
		q = q.Where("user_id = ?", userID)
	}
	if moduleID > 0 {
		q = q.Where("module_id = ?", moduleID)
	}
	return q
}

// DistinctModuleIDs 对账范围内涉及的模块，供迁移先刷新分母
func (r *EnrollmentRepository) DistinctModuleIDs(userID, moduleID uint) ([]uint, error) {
	var ids []uint
	err := r.reconcileScope(userID, moduleID).
		Distinct().
		Pluck("module_id", &ids).Error
	return ids, err
}

// ListStaleTotals 返回某模块下 total_sections 与给定值不一致的报名记录
func (r *EnrollmentRepository) ListStaleTotals(moduleID uint, total int) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.DB.Where("module_id = ? AND total_sections != ?", moduleID, total).
		Order("id ASC").
		Find(&enrollments).Error
	return enrollments, err
}

// UpdateTotalSections 刷新分母快照；Updates(map) 不会自动维护 updated_at，显式带上
func (r *EnrollmentRepository) UpdateTotalSections(id uint, total int) error {
	return r.DB.Model(&model.Enrollment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_sections": total,
			"updated_at":     time.Now(),
		}).Error
}
