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
	"go.uber.org/zap"

	_ "github.com/noah-isme/workload-api/api/swagger"
	"github.com/noah-isme/workload-api/internal/handler"
	internalmiddleware "github.com/noah-isme/workload-api/internal/middleware"
	"github.com/noah-isme/workload-api/internal/models"
	"github.com/noah-isme/workload-api/internal/repository"
	"github.com/noah-isme/workload-api/internal/service"
	"github.com/noah-isme/workload-api/internal/workload"
	"github.com/noah-isme/workload-api/pkg/cache"
	"github.com/noah-isme/workload-api/pkg/config"
	"github.com/noah-isme/workload-api/pkg/database"
	"github.com/noah-isme/workload-api/pkg/export"
	"github.com/noah-isme/workload-api/pkg/jobs"
	"github.com/noah-isme/workload-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/workload-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/workload-api/pkg/middleware/requestid"
)

// @title Teaching Workload API
// @version 1.0.0
// @description Teacher assignments, semester workloads and conflict checks for school planning.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, running without cache", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, "workload-api:", logr)
	workloadCache := service.NewCacheService(cacheRepo, metricsSvc, "workload", cfg.Workload.CacheTTL, logr, cfg.Workload.CacheEnabled && redisClient != nil)
	importResults := service.NewCacheService(cacheRepo, metricsSvc, "import", cfg.Import.ResultTTL, logr, redisClient != nil)

	teacherRepo := repository.NewTeacherRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	classRepo := repository.NewClassRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)

	workloadSvc := service.NewWorkloadService(service.WorkloadServiceParams{
		Teachers:    teacherRepo,
		Assignments: assignmentRepo,
		Cache:       workloadCache,
		Metrics:     metricsSvc,
		Logger:      logr,
		CacheTTL:    cfg.Workload.CacheTTL,
	})
	teacherSvc := service.NewTeacherService(teacherRepo, workloadSvc, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, validate, logr)
	classSvc := service.NewClassService(classRepo, assignmentRepo, validate, logr)
	assignmentSvc := service.NewAssignmentService(service.AssignmentServiceParams{
		Assignments: assignmentRepo,
		Teachers:    teacherRepo,
		Subjects:    subjectRepo,
		Classes:     classRepo,
		Detector:    workload.NewDetector(cfg.Workload.WarningRatio, cfg.Workload.LooseQualification),
		Workloads:   workloadSvc,
		Metrics:     metricsSvc,
		Validator:   validate,
		Logger:      logr,
	})
	importSvc := service.NewImportService(service.ImportServiceParams{
		Teachers:    teacherRepo,
		Subjects:    subjectRepo,
		Classes:     classRepo,
		Assignments: assignmentRepo,
		Workloads:   workloadSvc,
		Results:     importResults,
		Metrics:     metricsSvc,
		Validator:   validate,
		Logger:      logr,
		MaxRows:     cfg.Import.MaxRows,
		ResultTTL:   cfg.Import.ResultTTL,
	})
	backfillSvc := service.NewBackfillService(assignmentRepo, workloadSvc, metricsSvc, logr)
	matrixSvc := service.NewMatrixService(service.MatrixServiceParams{
		Assignments: assignmentRepo,
		Classes:     classRepo,
		Tx:          db,
		AtomicSave:  cfg.Matrix.AtomicSave,
		Workloads:   workloadSvc,
		Metrics:     metricsSvc,
		Validator:   validate,
		Logger:      logr,
	})
	exportSvc := service.NewExportService(workloadSvc, assignmentRepo, logr, export.NewCSVExporter(), export.NewPDFExporter())
	tokenSvc := service.NewTokenService(cfg.JWT)

	importQueue := jobs.NewQueue("imports", importSvc.HandleJob, jobs.QueueConfig{
		Workers:     cfg.Import.Workers,
		JobTimeout:  cfg.Import.JobTimeout,
		Logger:      logr,
		OnExhausted: importSvc.MarkExhausted,
	})
	importQueue.Start(ctx)
	importSvc.AttachQueue(importQueue)

	dependencies := map[string]handler.Pinger{"database": db}
	if redisClient != nil {
		dependencies["redis"] = handler.PingerFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	teacherHandler := handler.NewTeacherHandler(teacherSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	classHandler := handler.NewClassHandler(classSvc)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc)
	workloadHandler := handler.NewWorkloadHandler(workloadSvc, exportSvc)
	importHandler := handler.NewImportHandler(importSvc)
	backfillHandler := handler.NewBackfillHandler(backfillSvc)
	matrixHandler := handler.NewMatrixHandler(matrixSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, dependencies)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc, "/metrics", "/health", "/ready"))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.WithResponseMeta())
	api.Use(internalmiddleware.OptionalJWT(tokenSvc))

	api.GET("/metrics/summary", metricsHandler.Summary)

	api.GET("/teachers", teacherHandler.List)
	api.GET("/teachers/:id", teacherHandler.Get)
	api.GET("/teachers/:id/workload", workloadHandler.Teacher)
	api.GET("/workload", workloadHandler.Overview)
	api.GET("/workload/export", workloadHandler.Export)
	api.GET("/subjects", subjectHandler.List)
	api.GET("/subjects/:id", subjectHandler.Get)
	api.GET("/classes", classHandler.List)
	api.GET("/classes/:id", classHandler.Get)
	api.GET("/classes/:id/load", classHandler.Load)
	api.GET("/assignments", assignmentHandler.List)
	api.GET("/assignments/export", workloadHandler.ExportAssignments)
	api.POST("/assignments/check", assignmentHandler.Check)
	api.GET("/imports/:id", importHandler.Job)
	api.GET("/backfill/preview", backfillHandler.Preview)
	api.GET("/reports/coverage", backfillHandler.Coverage)
	api.GET("/reports/discrepancies", backfillHandler.Discrepancies)

	planners := api.Group("")
	planners.Use(internalmiddleware.JWT(tokenSvc))
	planners.Use(internalmiddleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RolePlanner))

	audit := func(action, resource string) gin.HandlerFunc {
		return internalmiddleware.Audit(logr, action, resource)
	}

	planners.POST("/teachers", audit("create", "teacher"), teacherHandler.Create)
	planners.PUT("/teachers/:id", audit("update", "teacher"), teacherHandler.Update)
	planners.DELETE("/teachers/:id", audit("deactivate", "teacher"), teacherHandler.Delete)
	planners.POST("/subjects", audit("create", "subject"), subjectHandler.Create)
	planners.PUT("/subjects/:id", audit("update", "subject"), subjectHandler.Update)
	planners.POST("/classes", audit("create", "class"), classHandler.Create)
	planners.PUT("/classes/:id", audit("update", "class"), classHandler.Update)
	planners.POST("/classes/:id/matrix/:semester", audit("save", "matrix"), matrixHandler.Save)
	planners.POST("/assignments", audit("create", "assignment"), assignmentHandler.Create)
	planners.PUT("/assignments/:id", audit("update", "assignment"), assignmentHandler.Update)
	planners.DELETE("/assignments/:id", audit("delete", "assignment"), assignmentHandler.Delete)
	planners.POST("/imports", audit("import", "assignment"), importHandler.Import)
	planners.POST("/imports/csv", audit("import", "assignment"), importHandler.ImportCSV)
	planners.POST("/backfill/apply", audit("backfill", "assignment"), backfillHandler.Apply)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}

	importQueue.Stop()
	stats := importQueue.Stats()
	logr.Info("import queue stopped",
		zap.Uint64("succeeded", stats.Succeeded),
		zap.Uint64("retried", stats.Retried),
		zap.Uint64("exhausted", stats.Exhausted),
		zap.Int("dropped", stats.Pending),
	)
}
