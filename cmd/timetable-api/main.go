package main

import (
	"context"
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

	_ "github.com/noah-isme/sma-timetable-api/api/swagger"
	"github.com/noah-isme/sma-timetable-api/internal/engine"
	"github.com/noah-isme/sma-timetable-api/internal/handler"
	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/cache"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
)

// @title SMA Timetable API
// @version 1.0.0
// @description Weekly teaching timetable generation and derived exam scheduling
// @BasePath /api/v1
// @schemes http

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var cacheRepo *repository.CacheRepository
	var lockRepo *repository.LockRepository
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching and distributed locks disabled", "error", err)
	} else {
		defer redisClient.Close()
		cacheRepo = repository.NewCacheRepository(redisClient)
		lockRepo = repository.NewLockRepository(redisClient)
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	eng := engine.New(logr)

	subjectRepo := repository.NewSubjectRepository(db)
	classRepo := repository.NewClassRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	gridRepo := repository.NewGridRepository(db)
	constraintRepo := repository.NewConstraintRepository(db)
	termRepo := repository.NewTermRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	slotRepo := repository.NewTimetableSlotRepository(db)
	conflictRepo := repository.NewConflictRepository(db)

	var timetableCache service.TimetableCache
	var timetableLocks service.GenerationLocker
	if cacheRepo != nil {
		timetableCache = cacheRepo
	}
	if lockRepo != nil {
		timetableLocks = lockRepo
	}

	timetableSvc := service.NewTimetableService(
		subjectRepo, classRepo, teacherRepo, gridRepo, constraintRepo, termRepo,
		timetableRepo, slotRepo, conflictRepo,
		timetableCache, timetableLocks, metricsSvc,
		db, eng, validate, logr,
		service.TimetableServiceConfig{
			LockTTL:                    cfg.Generator.LockTTL,
			MaxPeriodsPerDayPerTeacher: cfg.Generator.MaxPeriodsPerDayPerTeacher,
			PreferMorningForDifficult:  cfg.Generator.PreferMorningForDifficult,
			AllowBackToBackDifficult:   cfg.Generator.AllowBackToBackDifficult,
			ExamMaxPerDay:              cfg.Exam.MaxExamsPerDay,
			ExamPrioritizeCore:         cfg.Exam.PrioritizeCore,
		},
	)

	exportSvc := service.NewExportService(
		timetableRepo, slotRepo, subjectRepo, classRepo, teacherRepo,
		metricsSvc, validate, logr,
		service.ExportServiceConfig{
			WorkerConcurrency: cfg.Export.WorkerConcurrency,
			ArtifactTTL:       cfg.Export.ArtifactTTL,
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Export.Enabled {
		exportSvc.Start(ctx)
		defer exportSvc.Stop()
	}

	timetableHandler := handler.NewTimetableHandler(timetableSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Scrape)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(cfg.JWT.Secret))
	{
		timetables := api.Group("/timetables")
		{
			timetables.POST("/generate", middleware.RequireRole("admin", "scheduler"), timetableHandler.Generate)
			timetables.POST("/:id/exams", middleware.RequireRole("admin", "scheduler"), timetableHandler.GenerateExam)
			timetables.GET("", timetableHandler.List)
			timetables.GET("/:id", timetableHandler.Get)
			timetables.GET("/:id/slots", timetableHandler.Slots)
			timetables.DELETE("/:id", middleware.RequireRole("admin", "scheduler"), timetableHandler.Delete)
			timetables.POST("/:id/activate", middleware.RequireRole("admin"), timetableHandler.Activate)
			if cfg.Export.Enabled {
				timetables.POST("/:id/export", exportHandler.Enqueue)
			}
		}
		if cfg.Export.Enabled {
			api.GET("/exports/:jobId", exportHandler.Download)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
