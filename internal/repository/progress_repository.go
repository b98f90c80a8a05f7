package repository

import (
	"lms_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) FindByUserAndContent(userID, contentID uint) (*model.ProgressRecord, error) {
	var record model.ProgressRecord
	err := r.DB.Where("user_id = ? AND content_id = ?", userID, contentID).First(&record).Error
	return &record, err
}

// CreateIfAbsent 原子化的 create-if-absent：并发 start 只有一个能真正插入，
// 其余通过唯一索引冲突落空。返回是否发生了插入。
func (r *ProgressRepository) CreateIfAbsent(record *model.ProgressRecord) (bool, error) {
	result := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "content_id"}},
		DoNothing: true,
	}).Create(record)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *ProgressRepository) Save(record *model.ProgressRecord) error {
	return r.DB.Save(record).Error
}

// CountCompletedActive 统计某用户在某模块下已完成的进度记录数，
// 只计当前仍激活的内容项（停用内容不参与完成度）
func (r *ProgressRepository) CountCompletedActive(userID, moduleID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.ProgressRecord{}).
		Joins("JOIN content_items ON content_items.id = progress_records.content_id").
		Where("progress_records.user_id = ? AND progress_records.module_id = ?", userID, moduleID).
		Where("progress_records.status = ? AND progress_records.is_active = ?", model.ProgressCompleted, true).
		Where("content_items.is_active = ? AND content_items.deleted_at IS NULL", true).
		Count(&count).Error
	return count, err
}

func (r *ProgressRepository) ListByUserAndModule(userID, moduleID uint) ([]model.ProgressRecord, error) {
	var records []model.ProgressRecord
	err := r.DB.Where("user_id = ? AND module_id = ?", userID, moduleID).
		Order("id ASC").
		Find(&records).Error
	return records, err
}

// Deactivate 软停用进度记录（本引擎不做硬删除）
func (r *ProgressRepository) Deactivate(userID, contentID uint) error {
	return r.DB.Model(&model.ProgressRecord{}).
		Where("user_id = ? AND content_id = ?", userID, contentID).
		Update("is_active", false).
		Error
}
