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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/guarderia-api/api/swagger"
	"github.com/noah-isme/guarderia-api/internal/handler"
	internalmiddleware "github.com/noah-isme/guarderia-api/internal/middleware"
	"github.com/noah-isme/guarderia-api/internal/models"
	"github.com/noah-isme/guarderia-api/internal/repository"
	"github.com/noah-isme/guarderia-api/internal/service"
	"github.com/noah-isme/guarderia-api/pkg/cache"
	"github.com/noah-isme/guarderia-api/pkg/clock"
	"github.com/noah-isme/guarderia-api/pkg/config"
	"github.com/noah-isme/guarderia-api/pkg/database"
	"github.com/noah-isme/guarderia-api/pkg/export"
	"github.com/noah-isme/guarderia-api/pkg/jobs"
	"github.com/noah-isme/guarderia-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/guarderia-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/guarderia-api/pkg/middleware/requestid"
	"github.com/noah-isme/guarderia-api/pkg/scheduler"
	"github.com/noah-isme/guarderia-api/pkg/storage"
)

// @title Guardería Attendance API
// @version 1.0.0
// @description Check-in and check-out of children at daycare facilities.
// @BasePath /api/v1
// @schemes http https
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

	calendar, err := clock.New(cfg.Attendance.Timezone)
	if err != nil {
		logr.Fatal("invalid attendance timezone", zap.Error(err))
	}

	db, err := database.NewPostgres(cfg.Database, logr)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, presence cache disabled", zap.Error(err))
		redisClient = nil
	}

	metrics := service.NewMetricsService()
	validate := service.NewValidator()

	attendanceRepo := repository.NewAttendanceRepository(db)
	childRepo := repository.NewChildRepository(db)
	facilityRepo := repository.NewFacilityRepository(db)
	guardianRepo := repository.NewGuardianRepository(db)
	thirdPartyRepo := repository.NewThirdPartyRepository(db)
	userRepo := repository.NewUserRepository(db)
	reportRepo := repository.NewReportRepository(db)

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr, cfg.Redis.OpTimeout)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Attendance.StatusCacheTTL, logr, cfg.Attendance.StatusCacheEnabled)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	presenceSvc := service.NewPresenceService(service.PresenceServiceParams{
		Events:       attendanceRepo,
		Children:     childRepo,
		Guardians:    guardianRepo,
		ThirdParties: thirdPartyRepo,
		Cache:        cacheSvc,
		Calendar:     calendar,
		Logger:       logr,
		Config:       service.PresenceServiceConfig{StatusCacheTTL: cfg.Attendance.StatusCacheTTL},
	})

	attendanceSvc := service.NewAttendanceService(service.AttendanceServiceParams{
		Events:       attendanceRepo,
		History:      attendanceRepo,
		Children:     childRepo,
		Guardians:    guardianRepo,
		ThirdParties: thirdPartyRepo,
		Presence:     presenceSvc,
		Metrics:      metrics,
		Calendar:     calendar,
		Validator:    validate,
		Logger:       logr,
		Config: service.AttendanceServiceConfig{
			BackfillEntryTime:  clockSetting(logr, "ATTENDANCE_BACKFILL_ENTRY_TIME", cfg.Attendance.BackfillEntryTime),
			BackfillExitTime:   clockSetting(logr, "ATTENDANCE_BACKFILL_EXIT_TIME", cfg.Attendance.BackfillExitTime),
			HistoryDefaultDays: cfg.Attendance.HistoryDefaultDays,
		},
	})

	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Facilities: facilityRepo,
		Roster:     childRepo,
		Events:     attendanceRepo,
		Presence:   presenceSvc,
		Logger:     logr,
	})

	reconciliationSvc := service.NewReconciliationService(attendanceRepo, userRepo, presenceSvc, metrics, calendar, logr, reconciliationConfig(logr, cfg.Reconciliation))

	reportStorage, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare report storage", zap.Error(err))
	}
	exportSvc := service.NewExportService(service.ExportServiceParams{
		History:    attendanceRepo,
		Facilities: facilityRepo,
		Storage:    reportStorage,
		Signer:     storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL),
		CSV:        export.NewCSVExporter(),
		PDF:        export.NewPDFExporter(),
		Calendar:   calendar,
		Logger:     logr,
		Config:     service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Reports.SignedURLTTL},
	})

	reportWorker := service.NewReportWorker(reportRepo, exportSvc, metrics, cfg.Reports.WorkerRetries, logr)
	reportQueue := jobs.NewQueue("reports", reportWorker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})
	reportQueue.Start(ctx)
	defer reportQueue.Stop()

	reportSvc := service.NewReportService(service.ReportServiceParams{
		Jobs:     reportRepo,
		Queue:    reportQueue,
		Exporter: exportSvc,
		Calendar: calendar,
		Logger:   logr,
		Config: service.ReportServiceConfig{
			APIPrefix:       cfg.APIPrefix,
			ResultTTL:       cfg.Reports.SignedURLTTL,
			CleanupInterval: cfg.Reports.CleanupInterval,
		},
	})
	reportSvc.RecoverPendingJobs(ctx)
	reportSvc.StartCleanup(ctx)

	uploadStorage, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare upload storage", zap.Error(err))
	}
	uploadSvc := service.NewUploadService(uploadStorage, logr, service.UploadConfig{
		MaxFileSize:  cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs: cfg.Uploads.AllowedMIMEs,
	})

	if cfg.Reconciliation.Enabled {
		cron := scheduler.New(calendar.Location(), cfg.Reconciliation.Timeout, logr)
		err := cron.Register("close-daily-attendance", cfg.Reconciliation.Schedule, func(ctx context.Context) error {
			result := reconciliationSvc.Run(ctx)
			if !result.Success {
				return errors.New(result.Error)
			}
			return nil
		})
		if err != nil {
			logr.Fatal("failed to schedule reconciliation", zap.Error(err))
		}
		cron.Start()
		defer cron.Stop()
		logr.Info("reconciliation scheduled", zap.Time("next_run", cron.Next()))
	}

	authHandler := handler.NewAuthHandler(authSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc, presenceSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	reportHandler := handler.NewReportHandler(reportSvc, logr)
	uploadHandler := handler.NewUploadHandler(uploadSvc, logr)
	reconciliationHandler := handler.NewReconciliationHandler(reconciliationSvc)
	metricsHandler := handler.NewMetricsHandler(metrics, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, internalmiddleware.ContextUserKey, cfg.Log.SkipPaths...))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.WithResponseMeta())
	api.POST("/auth/login", authHandler.Login)
	api.GET("/export/:token", reportHandler.DownloadReport)
	api.POST("/jobs/close-daily-attendance", internalmiddleware.JobToken(cfg.Reconciliation.TriggerToken), reconciliationHandler.CloseDailyAttendance)

	staff := []models.UserRole{models.RoleCoordinator, models.RoleAdmin, models.RoleTeacher, models.RoleDoorkeeper}
	managers := []models.UserRole{models.RoleCoordinator, models.RoleAdmin}

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(authSvc))
	secured.GET("/auth/me", authHandler.Me)

	facility := secured.Group("")
	facility.Use(internalmiddleware.RequireFacility(), internalmiddleware.RequireRoles(staff...))
	{
		facility.POST("/attendance/identify", attendanceHandler.Identify)
		facility.POST("/attendance/events", attendanceHandler.Register)
		facility.POST("/attendance/third-parties", attendanceHandler.RegisterThirdParty)
		facility.GET("/attendance/children/:id/status", attendanceHandler.ChildStatus)
		facility.GET("/attendance/absent", attendanceHandler.Absent)
		facility.GET("/attendance/present", attendanceHandler.Present)
		facility.GET("/attendance/history", attendanceHandler.History)
		facility.GET("/third-parties", attendanceHandler.ListThirdParties)
		facility.POST("/uploads/third-party-ids", uploadHandler.UploadThirdPartyID)
		facility.POST("/attendance/backfill", internalmiddleware.RequireRoles(managers...), attendanceHandler.Backfill)
	}

	reporting := secured.Group("")
	reporting.Use(internalmiddleware.RequireFacility(), internalmiddleware.RequireRoles(models.RoleCoordinator, models.RoleAdmin, models.RoleTeacher))
	{
		reporting.GET("/dashboard/summary", dashboardHandler.Summary)
		reporting.POST("/reports", reportHandler.GenerateReport)
		reporting.GET("/reports/:id", reportHandler.ReportStatus)
	}

	secured.GET("/dashboard/coordinator", internalmiddleware.RequireRoles(models.RoleCoordinator), dashboardHandler.Coordinator)
	secured.GET("/metrics/summary", internalmiddleware.RequireRoles(managers...), metricsHandler.Snapshot)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "tz", calendar.Location().String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}

// clockSetting parses an optional time of day; an empty setting keeps the
// service default.
func clockSetting(logr *zap.Logger, key, raw string) *models.ClockTime {
	if raw == "" {
		return nil
	}
	t, err := models.ParseClockTime(raw)
	if err != nil {
		logr.Fatal("invalid time setting", zap.String("key", key), zap.Error(err))
	}
	return &t
}

func reconciliationConfig(logr *zap.Logger, cfg config.ReconciliationConfig) service.ReconciliationConfig {
	roles := make([]models.UserRole, 0, len(cfg.FallbackRoles))
	for _, r := range cfg.FallbackRoles {
		roles = append(roles, models.UserRole(r))
	}
	return service.ReconciliationConfig{
		ClosingTime:    clockSetting(logr, "RECONCILIATION_CLOSING_TIME", cfg.ClosingTime),
		SystemDocument: cfg.SystemDocument,
		FallbackRoles:  roles,
		Note:           cfg.Note,
	}
}
