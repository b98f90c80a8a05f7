package repository

import (
	"lms_backend/internal/model"

	"gorm.io/gorm"
)

type ContentRepository struct {
	DB *gorm.DB
}

func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{DB: db}
}

func (r *ContentRepository) FindByID(id uint) (*model.ContentItem, error) {
	var item model.ContentItem
	err := r.DB.First(&item, id).Error
	return &item, err
}

// FindActiveByID 仅返回处于激活状态的内容项
func (r *ContentRepository) FindActiveByID(id uint) (*model.ContentItem, error) {
	var item model.ContentItem
	err := r.DB.Where("id = ? AND is_active = ?", id, true).First(&item).Error
	return &item, err
}

func (r *ContentRepository) ListActiveByModule(moduleID uint) ([]model.ContentItem, error) {
	var items []model.ContentItem
	err := r.DB.Where("module_id = ? AND is_active = ?", moduleID, true).
		Order("`order` ASC, id ASC").
		Find(&items).Error
	return items, err
}

// CountActiveSections 模块内不同 section 分组键的数量
func (r *ContentRepository) CountActiveSections(moduleID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.ContentItem{}).
		Where("module_id = ? AND is_active = ?", moduleID, true).
		Distinct("section").
		Count(&count).Error
	return count, err
}

// CountActiveItems 模块内激活内容项的数量
func (r *ContentRepository) CountActiveItems(moduleID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.ContentItem{}).
		Where("module_id = ? AND is_active = ?", moduleID, true).
		Count(&count).Error
	return count, err
}

func (r *ContentRepository) Create(item *model.ContentItem) error {
	return r.DB.Create(item).Error
}

func (r *ContentRepository) Save(item *model.ContentItem) error {
	return r.DB.Save(item).Error
}

func (r *ContentRepository) FindModuleByID(id uint) (*model.Module, error) {
	var module model.Module
	err := r.DB.First(&module, id).Error
	return &module, err
}

func (r *ContentRepository) ListModules() ([]model.Module, error) {
	var modules []model.Module
	err := r.DB.Where("is_active = ?", true).
		Order("`order` ASC, id ASC").
		Find(&modules).Error
	return modules, err
}

func (r *ContentRepository) CreateModule(module *model.Module) error {
	return r.DB.Create(module).Error
}

func (r *ContentRepository) SaveModule(module *model.Module) error {
	return r.DB.Save(module).Error
}

func (r *ContentRepository) CreateCourse(course *model.Course) error {
	return r.DB.Create(course).Error
}

func (r *ContentRepository) ListCourses() ([]model.Course, error) {
	var courses []model.Course
	err := r.DB.Preload("Phases.Modules").Order("id ASC").Find(&courses).Error
	return courses, err
}

func (r *ContentRepository) CreatePhase(phase *model.Phase) error {
	return r.DB.Create(phase).Error
}
