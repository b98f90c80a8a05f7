package controller

import (
	"errors"
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ReconcileController struct {
	ReconcileService    *service.ReconcileService
	SectionCountService *service.SectionCountService
}

func NewReconcileController(
	reconcileService *service.ReconcileService,
	sectionCountService *service.SectionCountService,
) *ReconcileController {
	return &ReconcileController{
		ReconcileService:    reconcileService,
		SectionCountService: sectionCountService,
	}
}

type BulkRecalculateRequest struct {
	BatchSize            int  `json:"batchSize" binding:"omitempty,min=1,max=1000"`
	DryRun               bool `json:"dryRun"`
	UserID               uint `json:"userId"`
	ModuleID             uint `json:"moduleId"`
	RefreshSectionCounts bool `json:"refreshSectionCounts"`
}

// BulkRecalculate godoc
// @Summary 批量对账
// @Description 重算报名汇总字段，支持 dry-run 预览与按用户/模块过滤
// @Tags 运维
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body BulkRecalculateRequest false "对账参数"
// @Success 200 {object} util.Response{data=service.ReconcileReport} "成功"
// @Router /api/admin/reconcile [post]
func (c *ReconcileController) BulkRecalculate(ctx *gin.Context) {
	var req BulkRecalculateRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	report, err := c.ReconcileService.BulkRecalculate(ctx.Request.Context(), service.ReconcileOptions{
		BatchSize:            req.BatchSize,
		DryRun:               req.DryRun,
		UserID:               req.UserID,
		ModuleID:             req.ModuleID,
		RefreshSectionCounts: req.RefreshSectionCounts,
	})
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, report)
}

// SyncUser godoc
// @Summary 对账单个用户
// @Description 重算某用户全部报名的汇总字段
// @Tags 运维
// @Produce  json
// @Security ApiKeyAuth
// @Param   userId path int true "用户ID"
// @Success 200 {object} util.Response{data=service.ReconcileReport} "成功"
// @Router /api/admin/reconcile/user/{userId} [post]
func (c *ReconcileController) SyncUser(ctx *gin.Context) {
	userID := util.MustParseUint(ctx.Param("userId"))
	if userID == 0 {
		util.BadRequest(ctx, "invalid user id")
		return
	}

	report, err := c.ReconcileService.SyncUserEnrollments(ctx.Request.Context(), userID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, report)
}

// SyncModule godoc
// @Summary 对账单个模块
// @Description 先刷新模块 section 总数，再重算该模块全部报名
// @Tags 运维
// @Produce  json
// @Security ApiKeyAuth
// @Param   moduleId path int true "模块ID"
// @Success 200 {object} util.Response{data=service.ReconcileReport} "成功"
// @Router /api/admin/reconcile/module/{moduleId} [post]
func (c *ReconcileController) SyncModule(ctx *gin.Context) {
	moduleID := util.MustParseUint(ctx.Param("moduleId"))
	if moduleID == 0 {
		util.BadRequest(ctx, "invalid module id")
		return
	}

	report, err := c.ReconcileService.SyncModuleEnrollments(ctx.Request.Context(), moduleID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, report)
}

// RefreshSectionCounts godoc
// @Summary 刷新模块 section 总数
// @Description 只刷新分母快照并重算受影响报名，不做全量对账
// @Tags 运维
// @Produce  json
// @Security ApiKeyAuth
// @Param   moduleId path int true "模块ID"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 404 {object} util.Response "模块不存在"
// @Router /api/admin/reconcile/module/{moduleId}/section-counts [post]
func (c *ReconcileController) RefreshSectionCounts(ctx *gin.Context) {
	moduleID := util.MustParseUint(ctx.Param("moduleId"))
	if moduleID == 0 {
		util.BadRequest(ctx, "invalid module id")
		return
	}

	updated, err := c.SectionCountService.UpdateModuleSectionCounts(moduleID)
	if err != nil {
		if errors.Is(err, util.ErrModuleNotFound) {
			util.NotFound(ctx, "module not found")
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, gin.H{"enrollmentsUpdated": updated})
}
