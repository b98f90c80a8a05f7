package controller

import (
	"errors"
	"lms_backend/internal/model"
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ContentController struct {
	ContentService *service.ContentService
}

func NewContentController(contentService *service.ContentService) *ContentController {
	return &ContentController{ContentService: contentService}
}

// ListCourses godoc
// @Summary 课程列表
// @Description 全部课程及其阶段、模块
// @Tags 课程目录
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.Course} "成功"
// @Router /api/courses [get]
func (c *ContentController) ListCourses(ctx *gin.Context) {
	courses, err := c.ContentService.ListCourses()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, courses)
}

type CourseRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

// CreateCourse godoc
// @Summary 创建课程
// @Tags 课程目录
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body CourseRequest true "课程信息"
// @Success 201 {object} util.Response{data=model.Course} "创建成功"
// @Router /api/courses [post]
func (c *ContentController) CreateCourse(ctx *gin.Context) {
	var req CourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course := &model.Course{
		Title:       req.Title,
		Description: req.Description,
	}
	if claims := util.GetUserFromContext(ctx); claims != nil {
		course.CreatorID = claims.UserID
	}
	if err := c.ContentService.CreateCourse(course); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, course)
}

type PhaseRequest struct {
	CourseID uint   `json:"courseId" binding:"required"`
	Title    string `json:"title" binding:"required"`
	Order    int    `json:"order"`
}

// CreatePhase godoc
// @Summary 创建课程阶段
// @Tags 课程目录
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body PhaseRequest true "阶段信息"
// @Success 201 {object} util.Response{data=model.Phase} "创建成功"
// @Router /api/phases [post]
func (c *ContentController) CreatePhase(ctx *gin.Context) {
	var req PhaseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	phase := &model.Phase{
		CourseID: req.CourseID,
		Title:    req.Title,
		Order:    req.Order,
	}
	if err := c.ContentService.CreatePhase(phase); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, phase)
}

// ListModules godoc
// @Summary 模块列表
// @Tags 课程目录
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.Module} "成功"
// @Router /api/modules [get]
func (c *ContentController) ListModules(ctx *gin.Context) {
	modules, err := c.ContentService.ListModules()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, modules)
}

type ModuleRequest struct {
	PhaseID     uint   `json:"phaseId" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Order       int    `json:"order"`
}

// CreateModule godoc
// @Summary 创建学习模块
// @Tags 课程目录
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body ModuleRequest true "模块信息"
// @Success 201 {object} util.Response{data=model.Module} "创建成功"
// @Router /api/modules [post]
func (c *ContentController) CreateModule(ctx *gin.Context) {
	var req ModuleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	module := &model.Module{
		PhaseID:     req.PhaseID,
		Title:       req.Title,
		Description: req.Description,
		Order:       req.Order,
		IsActive:    true,
	}
	if err := c.ContentService.CreateModule(module); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, module)
}

type ActiveRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// SetModuleActive godoc
// @Summary 模块上下架
// @Tags 课程目录
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   moduleId path int true "模块ID"
// @Param   body body ActiveRequest true "目标状态"
// @Success 200 {object} util.Response "成功"
// @Failure 404 {object} util.Response "模块不存在"
// @Router /api/modules/{moduleId}/active [put]
func (c *ContentController) SetModuleActive(ctx *gin.Context) {
	moduleID := util.MustParseUint(ctx.Param("moduleId"))
	if moduleID == 0 {
		util.BadRequest(ctx, "invalid module id")
		return
	}

	var req ActiveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.ContentService.SetModuleActive(moduleID, *req.IsActive); err != nil {
		if errors.Is(err, util.ErrModuleNotFound) {
			util.NotFound(ctx, "module not found")
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

// ListModuleContents godoc
// @Summary 模块内容列表
// @Description 模块下的活跃内容项，按 section 与 order 排序
// @Tags 课程目录
// @Produce  json
// @Param   moduleId path int true "模块ID"
// @Success 200 {object} util.Response{data=[]model.ContentItem} "成功"
// @Router /api/modules/{moduleId}/contents [get]
func (c *ContentController) ListModuleContents(ctx *gin.Context) {
	moduleID := util.MustParseUint(ctx.Param("moduleId"))
	if moduleID == 0 {
		util.BadRequest(ctx, "invalid module id")
		return
	}

	items, err := c.ContentService.ListModuleContents(ctx, moduleID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, items)
}

type ContentRequest struct {
	ModuleID    uint   `json:"moduleId" binding:"required"`
	Section     string `json:"section" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Type        string `json:"type" binding:"omitempty,oneof=video article quiz exercise"`
	URL         string `json:"url"`
	Order       int    `json:"order"`
}

// CreateContent godoc
// @Summary 创建内容项
// @Description 新增内容会触发所属模块的 section 总数刷新
// @Tags 课程目录
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body ContentRequest true "内容信息"
// @Success 201 {object} util.Response{data=model.ContentItem} "创建成功"
// @Failure 404 {object} util.Response "模块不存在"
// @Router /api/contents [post]
func (c *ContentController) CreateContent(ctx *gin.Context) {
	var req ContentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	contentType := model.ContentType(req.Type)
	if req.Type == "" {
		contentType = model.ContentArticle
	}

	content := &model.ContentItem{
		ModuleID:    req.ModuleID,
		Section:     req.Section,
		Title:       req.Title,
		Description: req.Description,
		Type:        contentType,
		URL:         req.URL,
		Order:       req.Order,
		IsActive:    true,
	}
	if err := c.ContentService.CreateContent(ctx, content); err != nil {
		if errors.Is(err, util.ErrModuleNotFound) {
			util.NotFound(ctx, "module not found")
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, content)
}

// UpdateContent godoc
// @Summary 编辑内容项
// @Description 变更 section 或所属模块会触发相关模块的分母刷新
// @Tags 课程目录
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   contentId path int true "内容ID"
// @Param   body body ContentRequest true "内容信息"
// @Success 200 {object} util.Response{data=model.ContentItem} "成功"
// @Failure 404 {object} util.Response "内容不存在"
// @Router /api/contents/{contentId} [put]
func (c *ContentController) UpdateContent(ctx *gin.Context) {
	contentID := util.MustParseUint(ctx.Param("contentId"))
	if contentID == 0 {
		util.BadRequest(ctx, "invalid content id")
		return
	}

	var req ContentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	contentType := model.ContentType(req.Type)
	if req.Type == "" {
		contentType = model.ContentArticle
	}

	updated := &model.ContentItem{
		ModuleID:    req.ModuleID,
		Section:     req.Section,
		Title:       req.Title,
		Description: req.Description,
		Type:        contentType,
		URL:         req.URL,
		Order:       req.Order,
		IsActive:    true,
	}

	content, err := c.ContentService.UpdateContent(ctx, contentID, updated)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrContentNotFound):
			util.NotFound(ctx, "content not found")
		case errors.Is(err, util.ErrModuleNotFound):
			util.NotFound(ctx, "module not found")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, content)
}

// SetContentActive godoc
// @Summary 内容项上下架
// @Description 上下架会触发所属模块的 section 总数刷新
// @Tags 课程目录
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   contentId path int true "内容ID"
// @Param   body body ActiveRequest true "目标状态"
// @Success 200 {object} util.Response "成功"
// @Failure 404 {object} util.Response "内容不存在"
// @Router /api/contents/{contentId}/active [put]
func (c *ContentController) SetContentActive(ctx *gin.Context) {
	contentID := util.MustParseUint(ctx.Param("contentId"))
	if contentID == 0 {
		util.BadRequest(ctx, "invalid content id")
		return
	}

	var req ActiveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.ContentService.SetContentActive(ctx, contentID, *req.IsActive); err != nil {
		if errors.Is(err, util.ErrContentNotFound) {
			util.NotFound(ctx, "content not found")
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

// UploadAttachment godoc
// @Summary 上传内容附件
// @Tags 课程目录
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   file formData file true "附件文件"
// @Success 200 {object} util.Response{data=object} "成功"
// @Router /api/contents/upload [post]
func (c *ContentController) UploadAttachment(ctx *gin.Context) {
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}

	url, err := c.ContentService.UploadAttachment(ctx, file)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"url": url})
}
