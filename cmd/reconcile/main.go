// Command reconcile runs one pass of the daily attendance closing and prints
// the JSON result, so an external scheduler can drive it instead of the
// in-process cron.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/noah-isme/guarderia-api/internal/dto"
	"github.com/noah-isme/guarderia-api/internal/models"
	"github.com/noah-isme/guarderia-api/internal/repository"
	"github.com/noah-isme/guarderia-api/internal/service"
	"github.com/noah-isme/guarderia-api/pkg/cache"
	"github.com/noah-isme/guarderia-api/pkg/clock"
	"github.com/noah-isme/guarderia-api/pkg/config"
	"github.com/noah-isme/guarderia-api/pkg/database"
	"github.com/noah-isme/guarderia-api/pkg/logger"
)

func main() {
	dateFlag := flag.String("date", "", "date to close (YYYY-MM-DD); defaults to today in the facility timezone")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	result := run(cfg, logr, *dateFlag)
	if err := json.NewEncoder(os.Stdout).Encode(result); err != nil {
		logr.Error("failed to write result", zap.Error(err))
	}
	if !result.Success {
		os.Exit(1)
	}
}

func run(cfg *config.Config, logr *zap.Logger, rawDate string) dto.ReconciliationResult {
	calendar, err := clock.New(cfg.Attendance.Timezone)
	if err != nil {
		return dto.ReconciliationResult{Error: err.Error()}
	}
	db, err := database.NewPostgres(cfg.Database, logr)
	if err != nil {
		return dto.ReconciliationResult{Error: err.Error()}
	}
	defer db.Close()

	var closing *models.ClockTime
	if cfg.Reconciliation.ClosingTime != "" {
		t, err := models.ParseClockTime(cfg.Reconciliation.ClosingTime)
		if err != nil {
			return dto.ReconciliationResult{Error: err.Error()}
		}
		closing = &t
	}
	roles := make([]models.UserRole, 0, len(cfg.Reconciliation.FallbackRoles))
	for _, r := range cfg.Reconciliation.FallbackRoles {
		roles = append(roles, models.UserRole(r))
	}

	metrics := service.NewMetricsService()
	var cacheRepo service.CacheRepository
	if client, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Warn("redis unavailable, status cache will not be invalidated", zap.Error(err))
	} else if client != nil {
		defer client.Close()
		cacheRepo = repository.NewCacheRepository(client, logr, cfg.Redis.OpTimeout)
	}

	events := repository.NewAttendanceRepository(db)
	presence := service.NewPresenceService(service.PresenceServiceParams{
		Events:   events,
		Cache:    service.NewCacheService(cacheRepo, metrics, cfg.Attendance.StatusCacheTTL, logr, cfg.Attendance.StatusCacheEnabled),
		Calendar: calendar,
		Logger:   logr,
	})
	svc := service.NewReconciliationService(
		events,
		repository.NewUserRepository(db),
		presence,
		metrics,
		calendar,
		logr,
		service.ReconciliationConfig{
			ClosingTime:    closing,
			SystemDocument: cfg.Reconciliation.SystemDocument,
			FallbackRoles:  roles,
			Note:           cfg.Reconciliation.Note,
		},
	)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Reconciliation.Timeout)
	defer cancel()

	if rawDate == "" {
		return svc.Run(ctx)
	}
	date, err := models.ParseDate(rawDate)
	if err != nil {
		return dto.ReconciliationResult{Error: "date must be formatted as YYYY-MM-DD"}
	}
	return svc.RunFor(ctx, date)
}
