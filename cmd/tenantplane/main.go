package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/tenantplane/internal/config"
	"github.com/dmitrymomot/tenantplane/internal/deployment"
	"github.com/dmitrymomot/tenantplane/internal/httpapi"
	"github.com/dmitrymomot/tenantplane/internal/store"
	"github.com/dmitrymomot/tenantplane/internal/tasks"
	"github.com/dmitrymomot/tenantplane/pkg/db"
	"github.com/dmitrymomot/tenantplane/pkg/dnsverify"
	"github.com/dmitrymomot/tenantplane/pkg/edge"
	"github.com/dmitrymomot/tenantplane/pkg/health"
	"github.com/dmitrymomot/tenantplane/pkg/job"
	"github.com/dmitrymomot/tenantplane/pkg/logger"
	"github.com/dmitrymomot/tenantplane/pkg/mailer/resend"
	"github.com/dmitrymomot/tenantplane/pkg/redis"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	log, flush, err := logger.New(cfg.Log, logger.RequestIDExtractor(), logger.DeploymentIDExtractor())
	if err != nil {
		slog.Error("build logger", slog.Any("error", err))
		os.Exit(1)
	}
	defer flush(2 * time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("tenantplane stopped", slog.Any("error", err))
		flush(2 * time.Second)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	pool, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer func() { _ = db.Shutdown(pool)(context.Background()) }()

	if err := db.Migrate(ctx, pool, store.Migrations(), cfg.DB.MigrationsTable, log); err != nil {
		return err
	}
	if err := job.Migrate(ctx, pool, log); err != nil {
		return err
	}

	rdb, err := redis.Open(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer func() { _ = redis.Shutdown(rdb)(context.Background()) }()

	edgeClient, err := edge.New(cfg.Edge)
	if err != nil {
		return err
	}

	scheduler := tasks.NewScheduler()
	svc := deployment.NewService(
		store.New(pool),
		edgeClient,
		resend.NewDomains(cfg.Resend),
		dnsverify.NewVerifier(dnsverify.NewDNSResolver(cfg.DNS)),
		redis.NewCounter(rdb, cfg.StagingCounterKey),
		deployment.WithConfig(cfg.Deployment),
		deployment.WithLogger(log.With(slog.String("component", "deployment"))),
		deployment.WithScheduler(scheduler),
	)

	jobLog := log.With(slog.String("component", "jobs"))
	jobs, err := job.NewManager(pool, append(tasks.Options(svc, jobLog),
		job.WithLogger(jobLog),
		job.WithMaxWorkers(cfg.Jobs.MaxWorkers),
		job.WithJobTimeout(cfg.Jobs.Timeout),
	)...)
	if err != nil {
		return err
	}
	scheduler.Attach(jobs)

	if err := jobs.Start(ctx); err != nil {
		return err
	}

	api := httpapi.New(svc,
		httpapi.WithLogger(log.With(slog.String("component", "http"))),
		httpapi.WithReadinessChecks(health.Checks{
			"postgres": db.Healthcheck(pool),
			"redis":    redis.Healthcheck(rdb),
			"jobs":     job.Healthcheck(jobs),
		}),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpapi.Serve(gctx, cfg.HTTP, api.Router(), log)
	})
	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return jobs.Shutdown()(stopCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shutdown completed")
	return nil
}
