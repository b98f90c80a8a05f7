package controller

import (
	"errors"
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type EnrollmentController struct {
	EnrollmentService *service.EnrollmentService
}

func NewEnrollmentController(enrollmentService *service.EnrollmentService) *EnrollmentController {
	return &EnrollmentController{EnrollmentService: enrollmentService}
}

// Enroll godoc
// @Summary 报名模块
// @Description 为当前用户创建模块报名，固化当前 section 总数
// @Tags 报名
// @Produce  json
// @Security ApiKeyAuth
// @Param   moduleId path int true "模块ID"
// @Success 201 {object} util.Response{data=model.Enrollment} "创建成功"
// @Failure 404 {object} util.Response "模块不存在"
// @Failure 409 {object} util.Response "已报名"
// @Router /api/enrollments/module/{moduleId} [post]
func (c *EnrollmentController) Enroll(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	moduleID := util.MustParseUint(ctx.Param("moduleId"))
	if moduleID == 0 {
		util.BadRequest(ctx, "invalid module id")
		return
	}

	enrollment, err := c.EnrollmentService.Enroll(claims.UserID, moduleID)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrModuleNotFound):
			util.NotFound(ctx, "module not found")
		case errors.Is(err, util.ErrAlreadyEnrolled):
			util.Error(ctx, 409, "already enrolled in this module")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Created(ctx, enrollment)
}

// Drop godoc
// @Summary 退出模块
// @Description 报名置为 dropped，进度记录保留
// @Tags 报名
// @Produce  json
// @Security ApiKeyAuth
// @Param   moduleId path int true "模块ID"
// @Success 200 {object} util.Response "成功"
// @Failure 404 {object} util.Response "报名不存在"
// @Router /api/enrollments/module/{moduleId} [delete]
func (c *EnrollmentController) Drop(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	moduleID := util.MustParseUint(ctx.Param("moduleId"))
	if moduleID == 0 {
		util.BadRequest(ctx, "invalid module id")
		return
	}

	if err := c.EnrollmentService.Drop(claims.UserID, moduleID); err != nil {
		if errors.Is(err, util.ErrEnrollmentNotFound) {
			util.NotFound(ctx, "enrollment not found")
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, nil)
}

// Pause godoc
// @Summary 暂停模块学习
// @Tags 报名
// @Produce  json
// @Security ApiKeyAuth
// @Param   moduleId path int true "模块ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/enrollments/module/{moduleId}/pause [put]
func (c *EnrollmentController) Pause(ctx *gin.Context) {
	c.changeStatus(ctx, c.EnrollmentService.Pause)
}

// Resume godoc
// @Summary 恢复模块学习
// @Tags 报名
// @Produce  json
// @Security ApiKeyAuth
// @Param   moduleId path int true "模块ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/enrollments/module/{moduleId}/resume [put]
func (c *EnrollmentController) Resume(ctx *gin.Context) {
	c.changeStatus(ctx, c.EnrollmentService.Resume)
}

func (c *EnrollmentController) changeStatus(ctx *gin.Context, op func(userID, moduleID uint) error) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	moduleID := util.MustParseUint(ctx.Param("moduleId"))
	if moduleID == 0 {
		util.BadRequest(ctx, "invalid module id")
		return
	}

	if err := op(claims.UserID, moduleID); err != nil {
		switch {
		case errors.Is(err, util.ErrEnrollmentNotFound):
			util.NotFound(ctx, "enrollment not found")
		case errors.Is(err, util.ErrInvalidTransition):
			util.BadRequest(ctx, "invalid enrollment status transition")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, nil)
}

// MyEnrollments godoc
// @Summary 我的报名列表
// @Description 当前用户的全部报名及汇总进度
// @Tags 报名
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Enrollment} "成功"
// @Router /api/enrollments [get]
func (c *EnrollmentController) MyEnrollments(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	enrollments, err := c.EnrollmentService.MyEnrollments(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, enrollments)
}

// ModuleProgress godoc
// @Summary 模块学习明细
// @Description 某报名的汇总字段和逐内容进度记录
// @Tags 报名
// @Produce  json
// @Security ApiKeyAuth
// @Param   moduleId path int true "模块ID"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 404 {object} util.Response "报名不存在"
// @Router /api/enrollments/module/{moduleId}/progress [get]
func (c *EnrollmentController) ModuleProgress(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	moduleID := util.MustParseUint(ctx.Param("moduleId"))
	if moduleID == 0 {
		util.BadRequest(ctx, "invalid module id")
		return
	}

	enrollment, records, err := c.EnrollmentService.ModuleProgress(claims.UserID, moduleID)
	if err != nil {
		if errors.Is(err, util.ErrEnrollmentNotFound) {
			util.NotFound(ctx, "enrollment not found")
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, gin.H{
		"enrollment": enrollment,
		"records":    records,
	})
}
