package service

import (
	"context"
	"encoding/json"
	"fmt"
	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"mime/multipart"
	"path/filepath"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ContentService 课程目录：课程 / 阶段 / 模块 / 内容项的读写入口。
// 模块内容列表走 Redis 缓存；任何会改变模块活跃内容集合的写操作
// 都要失效缓存并触发分母刷新。
type ContentService struct {
	ContentRepo    *repository.ContentRepository
	SectionCount   *SectionCountService
	StorageService *StorageService
	Cfg            *config.Config
	Redis          *redis.Client
}

func NewContentService(
	contentRepo *repository.ContentRepository,
	sectionCount *SectionCountService,
	storageService *StorageService,
	cfg *config.Config,
	rdb *redis.Client,
) *ContentService {
	return &ContentService{
		ContentRepo:    contentRepo,
		SectionCount:   sectionCount,
		StorageService: storageService,
		Cfg:            cfg,
		Redis:          rdb,
	}
}

const moduleContentsKeyPrefix = "module_contents:"

func moduleContentsKey(moduleID uint) string {
	return fmt.Sprintf("%s%d", moduleContentsKeyPrefix, moduleID)
}

func (s *ContentService) ListCourses() ([]model.Course, error) {
	return s.ContentRepo.ListCourses()
}

func (s *ContentService) CreateCourse(course *model.Course) error {
	return s.ContentRepo.CreateCourse(course)
}

func (s *ContentService) CreatePhase(phase *model.Phase) error {
	return s.ContentRepo.CreatePhase(phase)
}

func (s *ContentService) ListModules() ([]model.Module, error) {
	return s.ContentRepo.ListModules()
}

func (s *ContentService) GetModule(moduleID uint) (*model.Module, error) {
	module, err := s.ContentRepo.FindModuleByID(moduleID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrModuleNotFound
		}
		return nil, err
	}
	return module, nil
}

func (s *ContentService) CreateModule(module *model.Module) error {
	return s.ContentRepo.CreateModule(module)
}

// SetModuleActive 上下架模块。下架只影响新报名，存量报名照常学习。
func (s *ContentService) SetModuleActive(moduleID uint, active bool) error {
	module, err := s.GetModule(moduleID)
	if err != nil {
		return err
	}
	if module.IsActive == active {
		return nil
	}
	module.IsActive = active
	return s.ContentRepo.SaveModule(module)
}

// ListModuleContents 模块下的活跃内容项，短 TTL 缓存
func (s *ContentService) ListModuleContents(ctx context.Context, moduleID uint) ([]model.ContentItem, error) {
	key := moduleContentsKey(moduleID)

	if val, err := s.Redis.Get(ctx, key).Result(); err == nil {
		var items []model.ContentItem
		if err := json.Unmarshal([]byte(val), &items); err == nil {
			return items, nil
		}
	} else if err != redis.Nil {
		logger.Log.Warn("module contents cache read failed",
			zap.Uint("moduleID", moduleID),
			zap.Error(err))
	}

	items, err := s.ContentRepo.ListActiveByModule(moduleID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(items); err == nil {
		if err := s.Redis.Set(ctx, key, data, 5*time.Minute).Err(); err != nil {
			logger.Log.Warn("module contents cache write failed",
				zap.Uint("moduleID", moduleID),
				zap.Error(err))
		}
	}
	return items, nil
}

func (s *ContentService) GetContent(contentID uint) (*model.ContentItem, error) {
	content, err := s.ContentRepo.FindByID(contentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrContentNotFound
		}
		return nil, err
	}
	return content, nil
}

// CreateContent 新增内容项。可能新增 section，必须刷新分母
func (s *ContentService) CreateContent(ctx context.Context, content *model.ContentItem) error {
	if _, err := s.GetModule(content.ModuleID); err != nil {
		return err
	}
	if err := s.ContentRepo.Create(content); err != nil {
		return err
	}
	s.afterCatalogChange(ctx, content.ModuleID)
	return nil
}

// UpdateContent 编辑内容项。换模块或换 section 会同时影响新旧两个模块的分母
func (s *ContentService) UpdateContent(ctx context.Context, contentID uint, updated *model.ContentItem) (*model.ContentItem, error) {
	content, err := s.GetContent(contentID)
	if err != nil {
		return nil, err
	}

	oldModuleID := content.ModuleID
	structureChanged := updated.ModuleID != content.ModuleID ||
		updated.Section != content.Section ||
		updated.IsActive != content.IsActive

	if updated.ModuleID != content.ModuleID {
		if _, err := s.GetModule(updated.ModuleID); err != nil {
			return nil, err
		}
	}

	content.Title = updated.Title
	content.Description = updated.Description
	content.Type = updated.Type
	content.URL = updated.URL
	content.Section = updated.Section
	content.Order = updated.Order
	content.ModuleID = updated.ModuleID
	content.IsActive = updated.IsActive

	if err := s.ContentRepo.Save(content); err != nil {
		return nil, err
	}

	if structureChanged {
		s.afterCatalogChange(ctx, content.ModuleID)
		if oldModuleID != content.ModuleID {
			s.afterCatalogChange(ctx, oldModuleID)
		}
	}
	return content, nil
}

// SetContentActive 上下架内容项，等价于增删 section 成员
func (s *ContentService) SetContentActive(ctx context.Context, contentID uint, active bool) error {
	content, err := s.GetContent(contentID)
	if err != nil {
		return err
	}
	if content.IsActive == active {
		return nil
	}
	content.IsActive = active
	if err := s.ContentRepo.Save(content); err != nil {
		return err
	}
	s.afterCatalogChange(ctx, content.ModuleID)
	return nil
}

// UploadAttachment 内容附件上传，返回可访问 URL
func (s *ContentService) UploadAttachment(ctx context.Context, file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	ext := filepath.Ext(file.Filename)
	filename := "contents/" + time.Now().Format("20060102150405") + "_" + uuid.NewString()[:8] + ext

	return s.StorageService.Upload(ctx, filename, src, file.Size, file.Header.Get("Content-Type"))
}

// afterCatalogChange 目录结构变更后的收尾：失效缓存、刷新分母并重算汇总。
// 失败只记日志，目录写入本身已经生效，对账任务会兜底。
func (s *ContentService) afterCatalogChange(ctx context.Context, moduleID uint) {
	if err := s.Redis.Del(ctx, moduleContentsKey(moduleID)).Err(); err != nil {
		logger.Log.Warn("module contents cache invalidation failed",
			zap.Uint("moduleID", moduleID),
			zap.Error(err))
	}

	if _, err := s.SectionCount.UpdateModuleSectionCounts(moduleID); err != nil {
		logger.Log.Error("section count refresh after catalog change failed",
			zap.Uint("moduleID", moduleID),
			zap.Error(err))
	}
}
