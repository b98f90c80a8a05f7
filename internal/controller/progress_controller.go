package controller

import (
	"errors"
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

// mapProgressError 进度事件的错误语义：内容不存在 404，无有效报名 403
func mapProgressError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrContentNotFound):
		util.NotFound(ctx, "content not found")
	case errors.Is(err, util.ErrNotEnrolled):
		util.Forbidden(ctx, "not enrolled in this module")
	case errors.Is(err, util.ErrInvalidTransition):
		util.BadRequest(ctx, "invalid progress transition")
	default:
		util.LogInternalError(ctx, err)
	}
}

// StartContent godoc
// @Summary 开始学习内容
// @Description 首次学习时创建进度记录并置为 in_progress；重复调用幂等
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Param   contentId path int true "内容ID"
// @Success 200 {object} util.Response{data=service.StartResult} "成功"
// @Failure 403 {object} util.Response "未持有有效报名"
// @Failure 404 {object} util.Response "内容不存在"
// @Router /api/progress/content/{contentId}/start [post]
func (c *ProgressController) StartContent(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	contentID := util.MustParseUint(ctx.Param("contentId"))
	if contentID == 0 {
		util.BadRequest(ctx, "invalid content id")
		return
	}

	result, err := c.ProgressService.Start(claims.UserID, contentID)
	if err != nil {
		mapProgressError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

type CompleteRequest struct {
	Score *int `json:"score" binding:"omitempty,min=0,max=100"`
}

// CompleteContent godoc
// @Summary 完成内容
// @Description 将进度记录置为 completed 并触发报名汇总；重复调用幂等
// @Tags 学习进度
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   contentId path int true "内容ID"
// @Param   body body CompleteRequest false "可选成绩"
// @Success 200 {object} util.Response{data=model.ProgressRecord} "成功"
// @Failure 403 {object} util.Response "未持有有效报名"
// @Failure 404 {object} util.Response "内容不存在"
// @Router /api/progress/content/{contentId}/complete [post]
func (c *ProgressController) CompleteContent(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	contentID := util.MustParseUint(ctx.Param("contentId"))
	if contentID == 0 {
		util.BadRequest(ctx, "invalid content id")
		return
	}

	var req CompleteRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	record, err := c.ProgressService.Complete(claims.UserID, contentID, req.Score)
	if err != nil {
		mapProgressError(ctx, err)
		return
	}

	util.Success(ctx, record)
}

type PositionRequest struct {
	Percentage int `json:"percentage" binding:"required,min=1,max=100"`
	Position   int `json:"position" binding:"omitempty,min=0"`
}

// UpdatePosition godoc
// @Summary 更新内容内进度
// @Description 记录视频播放位置等内容内部进度，仅 in_progress 状态可用
// @Tags 学习进度
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   contentId path int true "内容ID"
// @Param   body body PositionRequest true "进度数据"
// @Success 200 {object} util.Response{data=model.ProgressRecord} "成功"
// @Failure 400 {object} util.Response "非法状态转移"
// @Failure 403 {object} util.Response "未持有有效报名"
// @Failure 404 {object} util.Response "内容不存在"
// @Router /api/progress/content/{contentId}/position [put]
func (c *ProgressController) UpdatePosition(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	contentID := util.MustParseUint(ctx.Param("contentId"))
	if contentID == 0 {
		util.BadRequest(ctx, "invalid content id")
		return
	}

	var req PositionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	record, err := c.ProgressService.UpdatePosition(claims.UserID, contentID, req.Percentage, req.Position)
	if err != nil {
		mapProgressError(ctx, err)
		return
	}

	util.Success(ctx, record)
}
