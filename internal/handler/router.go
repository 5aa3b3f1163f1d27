package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/farnsworth-bsc/workshift-api/internal/middleware"
	"github.com/farnsworth-bsc/workshift-api/internal/service"
)

// Handlers bundles every HTTP handler for route registration.
type Handlers struct {
	Auth        *AuthHandler
	Semesters   *SemesterHandler
	Pools       *PoolHandler
	Types       *WorkshiftTypeHandler
	Profiles    *ProfileHandler
	Shifts      *ShiftHandler
	Assignments *AssignmentHandler
	Instances   *InstanceHandler
	Standings   *StandingsHandler
	Metrics     *MetricsHandler
}

// RegisterRoutes wires the /api/v1 surface. Pool-scoped manager checks
// live in the services; RequireWorkshiftManager guards the endpoints
// that are house-manager only regardless of pool.
func RegisterRoutes(r *gin.Engine, h Handlers, auth *service.AuthService, metrics *service.MetricsService) {
	v1 := r.Group("/api/v1")
	v1.Use(middleware.Metrics(metrics))

	v1.POST("/auth/login", h.Auth.Login)

	authorized := v1.Group("")
	authorized.Use(middleware.JWT(auth))
	{
		semesters := authorized.Group("/semesters")
		{
			semesters.GET("", h.Semesters.List)
			semesters.GET("/current", h.Semesters.Current)
			semesters.GET("/:id", h.Semesters.Get)
			semesters.POST("", middleware.RequireWorkshiftManager(), h.Semesters.Start)
			semesters.PUT("/:id", middleware.RequireWorkshiftManager(), h.Semesters.Update)
			semesters.DELETE("/:id", middleware.RequireWorkshiftManager(), h.Semesters.Delete)
			semesters.POST("/:id/fill-pool-hours", middleware.RequireWorkshiftManager(), h.Semesters.FillPoolHours)
			semesters.POST("/:id/make-instances", middleware.RequireWorkshiftManager(), h.Semesters.MakeInstances)
		}

		pools := authorized.Group("/pools")
		{
			pools.GET("", h.Pools.List)
			pools.GET("/:id", h.Pools.Get)
			pools.GET("/:id/managers", h.Pools.Managers)
			pools.POST("", middleware.RequireWorkshiftManager(), h.Pools.Create)
			pools.PUT("/:id", middleware.RequireWorkshiftManager(), h.Pools.Update)
			pools.DELETE("/:id", middleware.RequireWorkshiftManager(), h.Pools.Delete)
		}

		types := authorized.Group("/workshift-types")
		{
			types.GET("", h.Types.List)
			types.GET("/:id", h.Types.Get)
			types.POST("", middleware.RequireWorkshiftManager(), h.Types.Create)
			types.PUT("/:id", middleware.RequireWorkshiftManager(), h.Types.Update)
			types.DELETE("/:id", middleware.RequireWorkshiftManager(), h.Types.Delete)
		}

		profiles := authorized.Group("/profiles")
		{
			profiles.GET("", h.Profiles.List)
			profiles.POST("", middleware.RequireWorkshiftManager(), h.Profiles.Create)
			profiles.GET("/me", h.Profiles.Me)
			profiles.GET("/:id", h.Profiles.Get)
			profiles.PUT("/:id/preferences", h.Profiles.SavePreferences)
			profiles.PUT("/:id/adjustment", middleware.RequireWorkshiftManager(), h.Profiles.SetHourAdjustment)
		}

		shifts := authorized.Group("/shifts")
		{
			shifts.GET("", h.Shifts.List)
			shifts.GET("/:id", h.Shifts.Get)
			shifts.POST("", middleware.RequireWorkshiftManager(), h.Shifts.Create)
			shifts.PUT("/:id", middleware.RequireWorkshiftManager(), h.Shifts.Update)
			shifts.PUT("/:id/active", middleware.RequireWorkshiftManager(), h.Shifts.SetActive)
			shifts.PUT("/:id/assignees", middleware.RequireWorkshiftManager(), h.Shifts.UpdateAssignees)
			shifts.POST("/:id/make-instances", middleware.RequireWorkshiftManager(), h.Shifts.MakeInstances)
			shifts.DELETE("/:id", middleware.RequireWorkshiftManager(), h.Shifts.Delete)
		}

		assignments := authorized.Group("/assignments")
		assignments.Use(middleware.RequireWorkshiftManager())
		{
			assignments.POST("/auto", h.Assignments.AutoAssign)
			assignments.POST("/clear", h.Assignments.Clear)
			assignments.POST("/random", h.Assignments.RandomFill)
		}

		instances := authorized.Group("/instances")
		{
			instances.GET("", h.Instances.List)
			instances.GET("/:id", h.Instances.Get)
			instances.POST("", middleware.RequireWorkshiftManager(), h.Instances.CreateOneOff)
			instances.DELETE("/:id", h.Instances.Delete)
			instances.POST("/:id/sign-in", h.Instances.SignIn)
			instances.POST("/:id/sign-out", h.Instances.SignOut)
			instances.POST("/:id/sell", h.Instances.Sell)
			instances.POST("/:id/verify", h.Instances.Verify)
			instances.POST("/:id/unverify", h.Instances.Unverify)
			instances.POST("/:id/blown", h.Instances.MarkBlown)
			instances.POST("/:id/unblown", h.Instances.UnmarkBlown)
			instances.PUT("/:id/hours", h.Instances.EditHours)
		}

		standings := authorized.Group("/standings")
		{
			standings.GET("", h.Standings.Standings)
			standings.GET("/fines", h.Standings.Fines)
			standings.GET("/export/csv", h.Standings.ExportCSV)
			standings.GET("/export/pdf", h.Standings.ExportPDF)
			standings.POST("/collect", middleware.RequireWorkshiftManager(), h.Standings.Collect)
			standings.POST("/update", middleware.RequireWorkshiftManager(), h.Standings.UpdateStandings)
			standings.POST("/snapshot-fines", middleware.RequireWorkshiftManager(), h.Standings.SnapshotFineDates)
		}

		authorized.GET("/system/metrics", middleware.RequireWorkshiftManager(), h.Metrics.Snapshot)
	}
}
