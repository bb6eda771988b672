// Package routes mounts the civicdesk API on a gin engine.
package routes

import (
	"github.com/civicdesk/api/internal/handler"
	"github.com/civicdesk/api/internal/media"
	"github.com/civicdesk/api/internal/middleware"
	"github.com/civicdesk/api/internal/model"
	"github.com/civicdesk/api/internal/ratelimit"
	"github.com/civicdesk/api/internal/service"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

// Deps carries everything the API handlers need. Limiter, Uploader and
// GoogleConfig are optional.
type Deps struct {
	JWTSecret    string
	FrontendURL  string
	GoogleConfig *oauth2.Config

	Users         *service.UserService
	Departments   *service.DepartmentService
	Reports       *service.ReportService
	Emergencies   *service.EmergencyService
	Notifications *service.NotificationService
	Activity      *service.ActivityService
	Stats         *service.StatsService

	Uploader *media.Uploader
	Limiter  *ratelimit.Limiter
}

// Register mounts every API route under /api.
func Register(r *gin.Engine, d Deps) {
	authHandler := handler.NewAuthHandler(d.Users, d.GoogleConfig, d.FrontendURL)
	departmentHandler := handler.NewDepartmentHandler(d.Departments)
	reportHandler := handler.NewReportHandler(d.Reports, d.Uploader)
	emergencyHandler := handler.NewEmergencyHandler(d.Emergencies, d.Uploader)
	citizenHandler := handler.NewCitizenHandler(d.Users, d.Reports, d.Emergencies, d.Notifications)
	officerHandler := handler.NewOfficerHandler(d.Departments, d.Reports, d.Emergencies)
	notificationHandler := handler.NewNotificationHandler(d.Notifications)
	adminHandler := handler.NewAdminHandler(d.Users, d.Stats, d.Activity)
	exportHandler := handler.NewExportHandler(d.Reports)

	requireAuth := middleware.AuthMiddleware(d.JWTSecret, d.Users)
	staff := middleware.RequireRole(model.RoleOfficer, model.RoleAdmin)

	api := r.Group("/api")
	{
		// Auth
		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/login", authHandler.Login)
		api.POST("/auth/refresh", authHandler.RefreshToken)
		api.POST("/auth/logout", authHandler.Logout)
		api.GET("/auth/google", authHandler.GoogleAuth)
		api.GET("/auth/google/callback", authHandler.GoogleCallback)
		api.GET("/auth/me", requireAuth, authHandler.Me)

		// Departments
		api.GET("/departments", departmentHandler.List)
		api.GET("/departments/:id", departmentHandler.Get)
	}

	reports := api.Group("/reports", requireAuth)
	{
		reports.POST("", middleware.RateLimit(d.Limiter, ratelimit.ActionReportCreate), reportHandler.Create)
		reports.GET("", reportHandler.List)
		reports.GET("/:id", reportHandler.Get)
		reports.GET("/:id/history", reportHandler.History)
		reports.GET("/:id/transitions", reportHandler.Transitions)
		reports.PATCH("/:id/status", staff, reportHandler.ChangeStatus)
		reports.POST("/:id/reject", staff, reportHandler.Reject)
		reports.POST("/:id/assign", staff, reportHandler.Assign)
	}

	emergencies := api.Group("/emergencies", requireAuth)
	{
		emergencies.POST("", middleware.RateLimit(d.Limiter, ratelimit.ActionEmergencyCreate), emergencyHandler.Create)
		emergencies.GET("", emergencyHandler.List)
		emergencies.GET("/:id", emergencyHandler.Get)
		emergencies.PATCH("/:id/status", staff, emergencyHandler.ChangeStatus)
	}

	citizen := api.Group("/citizen", requireAuth, middleware.RequireRole(model.RoleCitizen))
	{
		citizen.GET("/dashboard", citizenHandler.Dashboard)
		citizen.GET("/profile", citizenHandler.Profile)
		citizen.PUT("/profile", citizenHandler.UpdateProfile)
	}

	officer := api.Group("/officer", requireAuth, middleware.RequireRole(model.RoleOfficer))
	{
		officer.GET("/dashboard", officerHandler.Dashboard)
		officer.GET("/departments", officerHandler.Departments)
		officer.GET("/assigned", officerHandler.Assigned)
	}

	notifications := api.Group("/notifications", requireAuth)
	{
		notifications.GET("", notificationHandler.List)
		notifications.GET("/unread-count", notificationHandler.UnreadCount)
		notifications.PATCH("/:id/read", notificationHandler.MarkRead)
		notifications.POST("/read-all", notificationHandler.MarkAllRead)
	}

	admin := api.Group("/admin", requireAuth, middleware.RequireRole(model.RoleAdmin))
	{
		admin.GET("/departments", departmentHandler.ListAll)
		admin.POST("/departments", departmentHandler.Create)
		admin.PUT("/departments/:id", departmentHandler.Update)
		admin.PATCH("/departments/:id/status", departmentHandler.SetStatus)

		admin.GET("/officers", adminHandler.ListOfficers)
		admin.POST("/officers", adminHandler.CreateOfficer)
		admin.PUT("/officers/:id/departments", adminHandler.SetOfficerDepartments)
		admin.PATCH("/officers/:id/status", adminHandler.SetOfficerStatus)

		admin.GET("/users", adminHandler.ListUsers)
		admin.PATCH("/users/:id/status", adminHandler.SetUserStatus)

		admin.GET("/stats", adminHandler.GetStats)
		admin.GET("/activity", adminHandler.ListActivity)
		admin.GET("/reports/export", exportHandler.Export)
		admin.DELETE("/reports/:id", reportHandler.Delete)
	}
}
