package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/campushub/complaint-desk-api/internal/middleware"
	"github.com/campushub/complaint-desk-api/internal/models"
	"github.com/campushub/complaint-desk-api/internal/repository"
	"github.com/campushub/complaint-desk-api/internal/service"
	"github.com/campushub/complaint-desk-api/pkg/config"
	"github.com/campushub/complaint-desk-api/pkg/logger"
	corsmiddleware "github.com/campushub/complaint-desk-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campushub/complaint-desk-api/pkg/middleware/requestid"
)

// Handlers bundles the HTTP handlers wired by NewRouter.
type Handlers struct {
	Auth          *AuthHandler
	Complaints    *ComplaintHandler
	Categories    *CategoryHandler
	Notifications *NotificationHandler
	Stats         *StatsHandler
	Exports       *ExportHandler
	Users         *UserHandler
}

// RouterDeps carries the middleware collaborators the route table needs.
type RouterDeps struct {
	Auth    *service.AuthService
	Metrics *service.MetricsService
	Users   *repository.UserRepository
}

// NewRouter assembles the gin engine with all middleware and routes.
func NewRouter(cfg *config.Config, logr *zap.Logger, h Handlers, deps RouterDeps) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", middleware.Audit(deps.Users, models.AuditActionRegister, "auth"), h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
		auth.POST("/logout", middleware.JWT(deps.Auth), h.Auth.Logout)
	}

	// Signed tokens carry their own authorization, so downloads skip the JWT gate.
	api.GET("/attachments/download", h.Complaints.DownloadAttachment)

	protected := api.Group("")
	protected.Use(middleware.JWT(deps.Auth))

	complaints := protected.Group("/complaints")
	{
		complaints.POST("",
			middleware.RequireRoles(models.RoleStudent),
			middleware.Audit(deps.Users, models.AuditActionComplaintCreate, "complaint"),
			h.Complaints.Create)
		complaints.GET("", h.Complaints.List)
		complaints.GET("/:complaintNo", h.Complaints.Get)
		complaints.PUT("/:complaintNo",
			middleware.Audit(deps.Users, models.AuditActionComplaintUpdate, "complaint"),
			h.Complaints.Update)
		complaints.POST("/:complaintNo/assign",
			middleware.RequireRoles(models.RoleAdmin),
			middleware.Audit(deps.Users, models.AuditActionComplaintAssign, "complaint"),
			h.Complaints.Assign)
		complaints.GET("/:complaintNo/history", h.Complaints.History)
		complaints.POST("/:complaintNo/feedback",
			middleware.RequireRoles(models.RoleStudent),
			middleware.Audit(deps.Users, models.AuditActionFeedbackCreate, "complaint"),
			h.Complaints.AddFeedback)
		complaints.GET("/:complaintNo/feedback", h.Complaints.GetFeedback)
		complaints.GET("/:complaintNo/attachment", h.Complaints.AttachmentLink)
	}

	categories := protected.Group("/categories")
	{
		categories.GET("", h.Categories.List)
		categories.GET("/:id", h.Categories.Get)
		categories.POST("",
			middleware.RequireRoles(models.RoleAdmin),
			middleware.Audit(deps.Users, "CREATE", "category"),
			h.Categories.Create)
		categories.PUT("/:id",
			middleware.RequireRoles(models.RoleAdmin),
			middleware.Audit(deps.Users, "UPDATE", "category"),
			h.Categories.Update)
		categories.DELETE("/:id",
			middleware.RequireRoles(models.RoleAdmin),
			middleware.Audit(deps.Users, "DELETE", "category"),
			h.Categories.Delete)
	}

	notifications := protected.Group("/notifications")
	{
		notifications.GET("", h.Notifications.List)
		notifications.POST("/:id/read", h.Notifications.MarkRead)
		notifications.POST("/read-all", h.Notifications.MarkAllRead)
	}

	users := protected.Group("/users")
	{
		users.GET("", middleware.RequireRoles(models.RoleAdmin), h.Users.List)
		users.GET("/faculty", middleware.RequireRoles(models.RoleAdmin), h.Users.Faculty)
	}

	protected.GET("/stats/dashboard", h.Stats.Dashboard)

	protected.GET("/exports/complaints",
		middleware.RequireRoles(models.RoleAdmin),
		middleware.Audit(deps.Users, models.AuditActionExport, "complaint"),
		h.Exports.Export)

	return r
}
