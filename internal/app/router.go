package app

import (
	"lms_backend/internal/config"
	"lms_backend/internal/middleware"
	"lms_backend/internal/model"
	"lms_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		a.registerStudentRoutes(authGroup, c)
		a.registerTeacherRoutes(authGroup, c)
	}

	// 3. 管理员相关接口
	a.registerAdminRoutes(router, c, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)

		// 课程目录浏览无需登录
		public.GET("/courses", c.content.ListCourses)
		public.GET("/modules", c.content.ListModules)
		public.GET("/modules/:moduleId/contents", c.content.ListModuleContents)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/profile", c.auth.GetProfile)

	// 报名
	rg.GET("/enrollments", c.enrollment.MyEnrollments)
	rg.POST("/enrollments/module/:moduleId", c.enrollment.Enroll)
	rg.DELETE("/enrollments/module/:moduleId", c.enrollment.Drop)
	rg.PUT("/enrollments/module/:moduleId/pause", c.enrollment.Pause)
	rg.PUT("/enrollments/module/:moduleId/resume", c.enrollment.Resume)
	rg.GET("/enrollments/module/:moduleId/progress", c.enrollment.ModuleProgress)

	// 学习进度事件
	rg.POST("/progress/content/:contentId/start", c.progress.StartContent)
	rg.POST("/progress/content/:contentId/complete", c.progress.CompleteContent)
	rg.PUT("/progress/content/:contentId/position", c.progress.UpdatePosition)
}

func (a *App) registerTeacherRoutes(rg *gin.RouterGroup, c *controllers) {
	teacher := rg.Group("")
	teacher.Use(middleware.RoleMiddleware(model.Teacher))
	{
		teacher.POST("/courses", c.content.CreateCourse)
		teacher.POST("/phases", c.content.CreatePhase)
		teacher.POST("/modules", c.content.CreateModule)
		teacher.PUT("/modules/:moduleId/active", c.content.SetModuleActive)
		teacher.POST("/contents", c.content.CreateContent)
		teacher.PUT("/contents/:contentId", c.content.UpdateContent)
		teacher.PUT("/contents/:contentId/active", c.content.SetContentActive)
		teacher.POST("/contents/upload", c.content.UploadAttachment)
	}
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Admin))
	{
		admin.POST("/reconcile", c.reconcile.BulkRecalculate)
		admin.POST("/reconcile/user/:userId", c.reconcile.SyncUser)
		admin.POST("/reconcile/module/:moduleId", c.reconcile.SyncModule)
		admin.POST("/reconcile/module/:moduleId/section-counts", c.reconcile.RefreshSectionCounts)
	}
}
