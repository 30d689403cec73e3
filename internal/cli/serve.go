package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"course-portal/internal/app"
	"course-portal/internal/catalog"
	"course-portal/internal/config"
	"course-portal/internal/infra/file"
	"course-portal/internal/infra/memory"
	miniostore "course-portal/internal/infra/minio"
	"course-portal/internal/infra/postgres"
	redisstore "course-portal/internal/infra/redis"
	"course-portal/internal/metrics"
	transport "course-portal/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// NewServeCmd builds the CLI subcommand that runs the profile store server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Start the profile store server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, logger, err := setup(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "5050"
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger, false); err != nil {
			return err
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var loader memory.CourseLoader = catalog.Default()
	if cfg.Catalog.Source == "postgres" {
		if cfg.Postgres.URL == "" {
			return fmt.Errorf("catalog source postgres requires postgres.url")
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		loader = postgres.NewCourseLoader(pool)
	}

	courseTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	var courses transport.CourseGetter
	if redisClient != nil {
		courses = redisstore.NewCourseRepository(redisClient, loader, courseTTL, logger)
	} else {
		courses = memory.NewCourseRepository(loader, courseTTL)
	}

	store, closeStore, err := openProfileStore(ctx, cfg, redisClient, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	limiter := transport.NewRateLimiter(transport.RateLimiterConfig{
		Rate:  rate.Limit(cfg.RateLimit.RPS),
		Burst: cfg.RateLimit.Burst,
	}, logger)
	defer limiter.Stop()

	router := transport.NewRouter(transport.RouterDeps{
		Profiles:          app.NewProfileService(store, collector, logger),
		Courses:           courses,
		Logger:            logger,
		Metrics:           collector,
		MetricsHandler:    metrics.Handler(reg),
		RateLimiter:       limiter,
		CORSAllowedOrigin: cfg.CORS.AllowedOrigin,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.TTLDuration(cfg.Server.WriteTimeout, 15*time.Second),
	}
	shutdownTimeout := config.TTLDuration(cfg.Server.ShutdownTimeout, 5*time.Second)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting profile store", zap.String("addr", server.Addr), zap.String("store", cfg.Store.Driver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openProfileStore selects the profile store backend named by store.driver.
func openProfileStore(ctx context.Context, cfg config.Config, redisClient *redis.Client, logger *zap.Logger) (app.ProfileStore, func(), error) {
	noop := func() {}
	switch cfg.Store.Driver {
	case "", "file":
		return file.NewProfileStore(cfg.Store.Path, logger), noop, nil
	case "memory":
		return memory.NewProfileStore(), noop, nil
	case "redis":
		if redisClient == nil {
			return nil, nil, fmt.Errorf("store driver redis requires redis.addr")
		}
		return redisstore.NewProfileStore(redisClient), noop, nil
	case "postgres":
		if cfg.Postgres.URL == "" {
			return nil, nil, fmt.Errorf("store driver postgres requires postgres.url")
		}
		db := openBunDB(cfg.Postgres.URL)
		return postgres.NewProfileStore(db), func() { _ = db.Close() }, nil
	case "minio":
		client, err := minio.New(cfg.Minio.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.Minio.AccessKey, cfg.Minio.SecretKey, ""),
			Secure: cfg.Minio.UseSSL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("minio client: %w", err)
		}
		store, err := miniostore.NewProfileStore(ctx, client, cfg.Minio.Bucket)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
