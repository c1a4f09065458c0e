package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-attendance-agent/internal/config"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/domain/attendance"
	domainGeocode "github.com/cmlabs-hris/hris-attendance-agent/internal/domain/geocode"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/database"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/device"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/events"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/geocode"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/hrisapi"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/storage"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/repository/cache"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/repository/postgresql"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/repository/remote"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/repository/sqlite"
	attendanceService "github.com/cmlabs-hris/hris-attendance-agent/internal/service/attendance"
	serviceAuth "github.com/cmlabs-hris/hris-attendance-agent/internal/service/auth"
	geocodeService "github.com/cmlabs-hris/hris-attendance-agent/internal/service/geocode"
	"github.com/go-chi/httplog/v3"
)

// app holds the wired services shared by every command.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	device attendance.DeviceInfo

	kv     storage.KeyValueStore
	bus    *events.Bus
	client *hrisapi.Client

	authService   *serviceAuth.AuthServiceImpl
	store         attendance.SessionStore
	clock         attendance.ClockService
	reportService attendance.ReportService
	jwtService    jwt.Service
}

func newLogger(w io.Writer, level slog.Level, env string) *slog.Logger {
	logFormat := httplog.SchemaECS.Concise(env != "production")
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "hris-attendance-agent"),
		slog.String("version", version),
		slog.String("env", env),
	)
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{
		cfg:    cfg,
		logger: logger,
		device: device.Info(cfg.App.Version),
		bus:    events.NewBus(),
	}

	kv, err := openStorage(ctx, cfg, a.device.DeviceID)
	if err != nil {
		return nil, err
	}
	a.kv = kv

	a.authService = serviceAuth.NewAuthService(kv, a.bus)

	a.client = hrisapi.NewClient(hrisapi.Config{
		BaseURL:       cfg.API.BaseURL,
		Timeout:       cfg.API.Timeout,
		MaxRetries:    cfg.API.MaxRetries,
		RetryDelay:    cfg.API.RetryDelay,
		AuthErrorCode: cfg.API.AuthErrorCode,
		UserAgent:     "hris-attendance-agent/" + cfg.App.Version,
	}, a.authService)
	a.client.OnSessionExpired(func(ctx context.Context, apiErr *hrisapi.APIError) {
		a.authService.Expire(ctx, apiErr.Code, apiErr.Message)
	})

	loc := time.Local
	remoteRepo := remote.NewAttendanceRepository(a.client, loc)

	a.store = attendanceService.NewSessionStore(cache.NewAttendanceRepository(kv), remoteRepo, a.bus, attendanceService.StoreConfig{
		Location:  loc,
		LateAfter: cfg.Agent.LateAfter,
	})
	a.store.LoadFromStorage(ctx)

	a.clock = attendanceService.NewClockService(a.store, remoteRepo, newAreaResolver(cfg.Geocode), a.bus, attendanceService.ClockConfig{
		Offices:         cfg.Geofence.Offices,
		EnforceGeofence: cfg.Geofence.Enforce,
		Device:          a.device,
	})
	a.reportService = attendanceService.NewReportService(remoteRepo, loc, time.Now)

	if cfg.Agent.JWTSecret != "" {
		a.jwtService = jwt.NewJWTService(cfg.Agent.JWTSecret, cfg.Agent.TokenExpiration)
	}

	return a, nil
}

func (a *app) Close() error {
	if a.kv == nil {
		return nil
	}
	return a.kv.Close()
}

func newAreaResolver(cfg config.GeocodeConfig) attendance.AreaResolver {
	resolvers := []domainGeocode.Resolver{
		geocode.NewNominatim(geocode.Config{
			BaseURL:   cfg.NominatimURL,
			UserAgent: cfg.UserAgent,
			Language:  cfg.Language,
			Timeout:   cfg.Timeout,
		}),
		geocode.NewBigDataCloud(geocode.Config{
			BaseURL:  cfg.BigDataCloudURL,
			Language: cfg.Language,
			Timeout:  cfg.Timeout,
		}),
	}
	return geocodeService.NewChain(cfg.Timeout, resolvers...)
}

func openStorage(ctx context.Context, cfg *config.Config, namespace string) (storage.KeyValueStore, error) {
	switch cfg.Storage.Type {
	case config.StorageLocal:
		kv, err := storage.NewLocalStorage(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local storage: %w", err)
		}
		return kv, nil

	case config.StorageSQLite:
		db, err := database.NewSQLiteDB(ctx, cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite storage: %w", err)
		}
		if err := sqlite.Migrate(ctx, db); err != nil {
			return nil, errors.Join(fmt.Errorf("failed to migrate sqlite storage: %w", err), db.Close())
		}
		return sqlite.NewKeyValueStore(db), nil

	case config.StoragePostgres:
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := postgresql.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to prepare database schema: %w", err)
		}
		return postgresql.NewKeyValueRepository(db, namespace), nil

	case config.StorageMemory:
		return storage.NewMemoryStorage(), nil
	}

	return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
}
