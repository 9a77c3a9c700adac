package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bryanwahyu/callscore/internal/application"
	appanalysis "github.com/bryanwahyu/callscore/internal/application/analysis"
	appcalls "github.com/bryanwahyu/callscore/internal/application/calls"
	"github.com/bryanwahyu/callscore/internal/config"
	"github.com/bryanwahyu/callscore/internal/domain/runerrors"
	openaiclient "github.com/bryanwahyu/callscore/internal/infra/ai/openai"
	"github.com/bryanwahyu/callscore/internal/infra/ai/prompt"
	mysqlp "github.com/bryanwahyu/callscore/internal/infra/db/mysql"
	pgp "github.com/bryanwahyu/callscore/internal/infra/db/postgres"
	"github.com/bryanwahyu/callscore/internal/infra/events"
	"github.com/bryanwahyu/callscore/internal/infra/httpserver"
	"github.com/bryanwahyu/callscore/internal/infra/logging"
	"github.com/bryanwahyu/callscore/internal/infra/mail"
	"github.com/bryanwahyu/callscore/internal/infra/render/pdf"
	minioStore "github.com/bryanwahyu/callscore/internal/infra/storage"
	"github.com/bryanwahyu/callscore/internal/middleware"
	"github.com/bryanwahyu/callscore/internal/worker"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("config load error")
	}
	logging.Init(cfg.Log)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	rubric, err := cfg.BuildRubric()
	if err != nil {
		log.Fatal().Err(err).Msg("rubric error")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := middleware.DefaultMetrics
	checkers := map[string]middleware.HealthChecker{}

	// evaluation
	client := openaiclient.NewClient(cfg.OpenAI.APIKey, openaiclient.Options{
		BaseURL:     cfg.OpenAI.BaseURL,
		Model:       cfg.OpenAI.Model,
		Temperature: cfg.OpenAI.Temperature,
		MaxTokens:   cfg.OpenAI.MaxTokens,
		JSONMode:    cfg.OpenAI.JSONMode,
		Timeout:     cfg.OpenAI.Timeout,
	})
	analyzer := appanalysis.NewService(client, prompt.NewBuilder(rubric), metrics)

	svc := &appcalls.Service{
		Analyzer:  analyzer,
		Rubric:    rubric,
		Renderer:  pdf.NewRenderer(),
		Clock:     application.SystemClock{},
		Metrics:   metrics,
		OutputDir: cfg.Reports.OutputDir,
		KeepLocal: cfg.Reports.KeepLocal,
	}

	if cfg.Mail.Enabled {
		svc.Mailer = mail.NewSender(mail.Config{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		})
		svc.Recipient = cfg.Mail.Recipient
	}

	// init minio
	if cfg.Minio.Enabled {
		store, err := minioStore.New(ctx, minioStore.Config{
			Endpoint:   cfg.Minio.Endpoint,
			Region:     cfg.Minio.Region,
			BucketName: cfg.Minio.BucketName,
			AccessKey:  cfg.Minio.AccessKey,
			SecretKey:  cfg.Minio.SecretKey,
			UseSSL:     cfg.Minio.UseSSL,
			PresignTTL: cfg.Minio.PresignTTL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("minio init error")
		}
		svc.Artifacts = store
		checkers["minio"] = store
	}

	// run error audit
	db, repo, err := openRunErrors(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("database init error")
	}
	if db != nil {
		defer db.Close()
		svc.Errors = repo
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	}

	publisher := events.New(&events.Config{
		Brokers:        cfg.Kafka.Brokers,
		TopicCompleted: cfg.Kafka.TopicCompleted,
		TopicFailed:    cfg.Kafka.TopicFailed,
		Enabled:        cfg.Kafka.Enabled,
	}, metrics)
	defer publisher.Close()
	svc.Notifier = publisher

	pool := worker.NewPool(cfg.Worker.Concurrency, cfg.Worker.QueueSize)
	pool.OnPanic = func(h worker.Handle, recovered any) { svc.RecordPanic(h.ID, recovered) }
	// task context tidak ikut request, hanya berhenti saat proses keluar
	pool.Start(context.WithoutCancel(ctx))
	svc.Queue = pool

	var limiter *middleware.RateLimiter
	if cfg.Server.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.Server.RateBurst, cfg.Server.RateLimit)
		defer limiter.Stop()
	}

	handler := httpserver.NewRouter(svc, httpserver.Options{
		CORSOrigins:    cfg.Server.CORSOrigins,
		RateLimiter:    limiter,
		Metrics:        metrics,
		HealthCheckers: checkers,
		Queue:          pool,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.OpenAI.Timeout + cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", addr).
			Str("rubric", rubric.Version()).
			Str("model", cfg.OpenAI.Model).
			Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// graceful shutdown
	<-ctx.Done()
	log.Info().Msg("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Error().Err(err).Msg("http shutdown error")
	}
	if err := pool.Shutdown(ctx2); err != nil {
		log.Warn().Err(err).Int("pending", pool.Len()).Msg("worker pool did not drain")
	}
}

// openRunErrors connects the optional audit database. A blank driver
// returns nil without error.
func openRunErrors(ctx context.Context, cfg *config.Config) (*sql.DB, runerrors.Repository, error) {
	switch cfg.Database.Driver {
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, nil, err
		}
		repo := mysqlp.NewRunErrorRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return db, repo, nil
	case "postgres":
		db, err := pgp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, nil, err
		}
		repo := pgp.NewRunErrorRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return db, repo, nil
	default:
		return nil, nil, nil
	}
}
