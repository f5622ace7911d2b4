package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"shortl.local/gee"
	"shortl.local/gee/middleware"
	"shortl.local/internal/app/shortlink"
	"shortl.local/internal/app/shortlink/events"
	"shortl.local/internal/app/shortlink/httpapi"
	"shortl.local/internal/app/shortlink/repo"
	"shortl.local/internal/platform/config"
	"shortl.local/internal/platform/db"
	"shortl.local/internal/platform/httpmiddleware"
	"shortl.local/internal/platform/httpserver"
	"shortl.local/internal/platform/metrics"
	"shortl.local/internal/platform/migrate"
	"shortl.local/internal/platform/redisdb"
	"shortl.local/internal/platform/spa"
	"shortl.local/internal/platform/trace"
)

var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(newLogger(cfg))

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	slog.Info("store ready", "driver", cfg.StoreDriver)

	// Expect around a million tokens at a 1% false positive rate.
	filter := shortlink.NewTokenFilter(1_000_000, 0.01)
	tokens := shortlink.NewTokenGenerator(cfg.TokenLength, shortlink.WithFilter(filter))
	svc := shortlink.NewService(store, tokens, shortlink.Options{
		MaxAttempts: cfg.ShortenMaxAttempts,
		Timeout:     cfg.StoreTimeout,
	})

	metrics.Init()

	if cfg.TracingEnabled {
		shutdown, err := trace.InitTrace(cfg.OtlpGrpcEndpoint, cfg.ServiceName)
		if err != nil {
			slog.Error("trace init failed", "err", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					slog.Error("trace shutdown failed", "err", err)
				}
			}()
		}
	} else {
		slog.Warn("Tracing disabled by config", "TRACING_ENABLED", false)
	}

	fileCache, err := spa.NewFileCache(cfg.StaticCacheMaxBytes, cfg.StaticCacheTTL)
	if err != nil {
		return err
	}
	defer fileCache.Close()
	frontend := spa.NewServer(cfg.StaticDir, fileCache)

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(stopCtx)

	var collector events.Collector
	if cfg.KafkaEnabled {
		slog.Info("publishing link events to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
		collector = events.NewKafkaCollector(cfg.KafkaBrokers, cfg.KafkaTopic)
	} else {
		channelCollector := events.NewChannelCollector(10000)
		collector = channelCollector
		consumer := events.NewConsumer(channelCollector)
		g.Go(func() error {
			consumer.Run(gctx)
			return nil
		})
	}
	defer collector.Close()

	r := gee.New()
	r.Use(gee.Recovery(), middleware.ReqID(), middleware.AccessLog(), httpmiddleware.Metrics(), httpmiddleware.TraceName())

	httpapi.RegisterWebRoutes(r, frontend.Handler())
	httpapi.RegisterAPIRoutes(r.Group("/api"), svc, collector)
	httpapi.RegisterPublicRoutes(r, svc, collector)
	r.GET("/healthz", func(ctx *gee.Context) {
		ctx.String(http.StatusOK, "ok")
	})

	publicHandler := http.Handler(r)
	if cfg.TracingEnabled {
		publicHandler = otelhttp.NewHandler(r, "http")
	}
	publicSrv := httpserver.New(cfg.Addr, cfg, publicHandler)
	// Loopback or private network only.
	adminSrv := httpserver.New(cfg.AdminAddr, cfg, adminMux(cfg, svc))

	g.Go(func() error {
		return httpserver.Run(gctx, publicSrv, cfg.ShutdownTimeout)
	})
	g.Go(func() error {
		return httpserver.Run(gctx, adminSrv, cfg.ShutdownTimeout)
	})
	slog.Info("listening", "addr", cfg.Addr, "admin_addr", cfg.AdminAddr)

	return g.Wait()
}

func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func openStore(cfg config.Config) (shortlink.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch cfg.StoreDriver {
	case "postgres":
		pool, err := db.New(ctx, cfg.DBDSN, cfg.DBMaxConns)
		if err != nil {
			return nil, err
		}
		res, err := migrate.Up(ctx, pool, migrate.Options{FS: repo.Migrations, Dir: "migrations"})
		if err != nil {
			pool.Close()
			return nil, err
		}
		slog.Info("migrations done", "applied", res.AppliedFiles, "skipped", res.SkippedFiles)
		return repo.NewPostgresStore(pool), nil
	case "sqlite":
		s, err := repo.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis":
		rdb, err := redisdb.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		return repo.NewRedisStore(rdb, repo.DefaultRedisPrefix), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func adminMux(cfg config.Config, svc *shortlink.Service) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("store unavailable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"service_name": cfg.ServiceName,
			"store_driver": cfg.StoreDriver,
			"version":      version,
			"commit":       commit,
			"build_time":   buildTime,
			"go_version":   runtime.Version(),
		})
	})
	if cfg.PprofEnabled {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return mux
}
