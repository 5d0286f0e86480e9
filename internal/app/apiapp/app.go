package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Nikhil-ig/group-assistant-v3-sub000/internal/config"
	s3infra "github.com/Nikhil-ig/group-assistant-v3-sub000/internal/infra/s3"
	"github.com/Nikhil-ig/group-assistant-v3-sub000/internal/infra/telegram"
	"github.com/Nikhil-ig/group-assistant-v3-sub000/internal/jobs/cleanup"
	pgrepo "github.com/Nikhil-ig/group-assistant-v3-sub000/internal/repo/postgres"
	redrepo "github.com/Nikhil-ig/group-assistant-v3-sub000/internal/repo/redis"
	archivesvc "github.com/Nikhil-ig/group-assistant-v3-sub000/internal/services/archive"
	authsvc "github.com/Nikhil-ig/group-assistant-v3-sub000/internal/services/auth"
	enfsvc "github.com/Nikhil-ig/group-assistant-v3-sub000/internal/services/enforcement"
	permsvc "github.com/Nikhil-ig/group-assistant-v3-sub000/internal/services/permissions"
	ratesvc "github.com/Nikhil-ig/group-assistant-v3-sub000/internal/services/rate"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	retention  *cleanup.Job
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, pgrepo.PoolConfig{
		DSN:      cfg.Postgres.DSN,
		MaxConns: int32(cfg.Postgres.MaxConns),
		MinConns: int32(cfg.Postgres.MinConns),
	}); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	permissionCacheRepo := redrepo.NewPermissionCacheRepo(redisClient)
	rateRepo := redrepo.NewRateRepo(redisClient)
	actionLogRepo := pgrepo.NewActionLogRepo(pool)
	violationRepo := pgrepo.NewViolationRepo(pool)
	permissionRepo := pgrepo.NewPermissionRepo(pool)

	var remote enfsvc.RemoteClient
	if client, err := telegram.NewClient(cfg.Bot.Token); err != nil {
		log.Warn("telegram init failed, continuing in degraded mode", zap.Error(err))
	} else {
		remote = client
	}

	engine := enfsvc.NewEngine(remote, actionLogRepo, violationRepo, enfsvc.Config{
		MaxRetries:         cfg.Enforcement.MaxRetries,
		BackoffBase:        cfg.Enforcement.BackoffBase,
		MaxBackoff:         cfg.Enforcement.MaxBackoff,
		MuteDefaultMinutes: cfg.Enforcement.MuteDefaultMinutes,
	}, log)

	permissionService := permsvc.NewService(permissionCacheRepo, permissionRepo, permsvc.FallbackAllAllowed, log)
	rateLimiter := ratesvc.NewLimiter(rateRepo, ratesvc.Limits{
		ActionsPerMinute: cfg.Enforcement.ActionsPerMinute,
		ActionsPer10Sec:  cfg.Enforcement.ActionsPer10Sec,
	}, log)
	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)

	var s3Client *minio.Client
	if cfg.S3.Endpoint != "" {
		if c, err := s3infra.NewClient(s3infra.Config{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Region:    cfg.S3.Region,
			UseSSL:    cfg.S3.UseSSL,
		}); err != nil {
			log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
		} else {
			s3Client = c
		}
	}

	retentionJob := cleanup.NewRetentionJob(actionLogRepo, cfg.Retention.ActionLogTTL, log)
	if s3Client != nil && cfg.Retention.ArchiveBucket != "" {
		retentionJob.AttachArchiver(archivesvc.NewS3Storage(s3Client, cfg.Retention.ArchiveBucket))
	}

	RegisterRoutes(r, Dependencies{
		Engine:      engine,
		Permissions: permissionService,
		RateLimiter: rateLimiter,
		JWTManager:  jwtManager,
		Logger:      log,
		Config:      cfg,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		retention:  retentionJob,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// StartRetention drives the action-log sweep until ctx ends.
func (a *App) StartRetention(ctx context.Context) {
	if a.retention == nil || a.postgres == nil {
		return
	}
	a.retention.RunEvery(ctx, a.cfg.Retention.SweepInterval)
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
