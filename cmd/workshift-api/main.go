package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/farnsworth-bsc/workshift-api/api/swagger"
	"github.com/farnsworth-bsc/workshift-api/internal/handler"
	"github.com/farnsworth-bsc/workshift-api/internal/repository"
	"github.com/farnsworth-bsc/workshift-api/internal/service"
	"github.com/farnsworth-bsc/workshift-api/pkg/cache"
	"github.com/farnsworth-bsc/workshift-api/pkg/config"
	"github.com/farnsworth-bsc/workshift-api/pkg/database"
	"github.com/farnsworth-bsc/workshift-api/pkg/jobs"
	"github.com/farnsworth-bsc/workshift-api/pkg/logger"
	corsmiddleware "github.com/farnsworth-bsc/workshift-api/pkg/middleware/cors"
	reqidmiddleware "github.com/farnsworth-bsc/workshift-api/pkg/middleware/requestid"
)

// @title Farnsworth Workshift API
// @version 0.1.0
// @description Workshift scheduling and hour accounting for the house
// @BasePath /api/v1
// @schemes http

const (
	jobCollector = "collector"
	jobStandings = "standings"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	var cacheSvc *service.CacheService
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		cacheSvc = service.NewCacheService(nil, metricsSvc, cfg.Workshift.SemesterCacheTTL, logr, false)
	} else {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close()
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Workshift.SemesterCacheTTL, logr, true)
	}

	memberRepo := repository.NewMemberRepository(db)
	semesterRepo := repository.NewSemesterRepository(db)
	poolRepo := repository.NewPoolRepository(db)
	typeRepo := repository.NewWorkshiftTypeRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	poolHoursRepo := repository.NewPoolHoursRepository(db)
	shiftRepo := repository.NewShiftRepository(db)
	instanceRepo := repository.NewInstanceRepository(db)
	logRepo := repository.NewLogRepository(db)

	authSvc := service.NewAuthService(memberRepo, cfg.JWT, validate, logr)
	shiftSvc := service.NewShiftService(shiftRepo, instanceRepo, poolHoursRepo, semesterRepo, typeRepo, logRepo, db, metricsSvc, validate, logr)
	semesterSvc := service.NewSemesterService(semesterRepo, poolRepo, memberRepo, profileRepo, poolHoursRepo, typeRepo, shiftSvc, cacheSvc, cfg.Workshift, validate, logr)
	poolSvc := service.NewPoolService(poolRepo, poolHoursRepo, semesterSvc, validate, logr)
	typeSvc := service.NewWorkshiftTypeService(typeRepo, validate, logr)
	profileSvc := service.NewProfileService(profileRepo, semesterRepo, typeRepo, memberRepo, poolHoursRepo, semesterSvc, validate, logr)
	assignmentSvc := service.NewAssignmentService(shiftRepo, shiftSvc, profileRepo, poolHoursRepo, instanceRepo, logRepo, db, logr)
	instanceSvc := service.NewInstanceService(instanceRepo, logRepo, poolHoursRepo, poolRepo, db, validate, logr)
	standingsSvc := service.NewStandingsService(instanceRepo, poolHoursRepo, poolRepo, semesterSvc, logRepo, cacheSvc, db, metricsSvc, logr)

	queue := jobs.NewQueue("workshift", func(ctx context.Context, job jobs.Job) error {
		var err error
		switch job.Type {
		case jobCollector:
			if _, err = standingsSvc.CollectBlown(ctx); err == nil {
				err = standingsSvc.SnapshotFineDates(ctx)
			}
		case jobStandings:
			err = standingsSvc.UpdateStandings(ctx)
		default:
			logr.Sugar().Warnw("unknown job type", "type", job.Type)
			return nil
		}
		metricsSvc.RecordJobRun(job.Type, err)
		return err
	}, jobs.QueueConfig{
		Workers:    cfg.Workshift.WorkerConcurrency,
		MaxRetries: cfg.Workshift.WorkerRetries,
		Logger:     logr,
	})

	scheduler := jobs.NewScheduler(queue, logr)
	scheduler.Add(jobs.Schedule{Name: jobCollector, Interval: cfg.Workshift.CollectorInterval, RunAtStart: true})
	scheduler.Add(jobs.Schedule{Name: jobStandings, Interval: cfg.Workshift.StandingsInterval})

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", metricsHandler.Prometheus)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, handler.Handlers{
		Auth:        handler.NewAuthHandler(authSvc),
		Semesters:   handler.NewSemesterHandler(semesterSvc, shiftSvc),
		Pools:       handler.NewPoolHandler(poolSvc),
		Types:       handler.NewWorkshiftTypeHandler(typeSvc),
		Profiles:    handler.NewProfileHandler(profileSvc),
		Shifts:      handler.NewShiftHandler(shiftSvc),
		Assignments: handler.NewAssignmentHandler(assignmentSvc),
		Instances:   handler.NewInstanceHandler(instanceSvc, profileSvc),
		Standings:   handler.NewStandingsHandler(standingsSvc, semesterSvc),
		Metrics:     metricsHandler,
	}, authSvc, metricsSvc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue.Start(ctx)
	scheduler.Start(ctx)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("server shutdown failed", "error", err)
	}
	scheduler.Stop()
	queue.Stop()
}
