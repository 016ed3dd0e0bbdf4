// Command apiserver serves map rendering and the feature catalog over HTTP,
// plus the gRPC health protocol when server.grpc_port is set.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/BlackCockder/IBEX-Mapper/internal/app"
	"github.com/BlackCockder/IBEX-Mapper/internal/config"
	"github.com/BlackCockder/IBEX-Mapper/internal/infrastructure/monitoring/logging"
	grpcserver "github.com/BlackCockder/IBEX-Mapper/internal/interfaces/grpc"
	httpserver "github.com/BlackCockder/IBEX-Mapper/internal/interfaces/http"
	"github.com/BlackCockder/IBEX-Mapper/internal/interfaces/http/handlers"
	"github.com/BlackCockder/IBEX-Mapper/internal/interfaces/http/middleware"
)

// Build-time variables injected via ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", config.DefaultPath(), "path to configuration file")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before the configuration")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	flag.Parse()

	if err := run(*configPath, *envFile, *port); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, envFile string, port int) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
	}
	mc, err := cfg.MapConfig()
	if err != nil {
		return err
	}

	rt, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()
	log := rt.Logger
	log.Info("starting IBEX mapper API server",
		logging.String("version", version),
		logging.String("addr", cfg.Server.Addr()),
		logging.String("cache_backend", rt.Backend.Name()),
	)

	gin.SetMode(cfg.Server.Mode)
	checks := healthCheckers(rt)
	mapHandler := handlers.NewMapHandler(rt.Engine, mc, cfg.Server.MaxBodySize, log)
	routerCfg := httpserver.RouterConfig{
		MapHandler:     mapHandler,
		FeatureHandler: handlers.NewFeatureHandler(rt.Features),
		HealthHandler:  handlers.NewHealthHandler(version, checks...),
		Logger:         log,
	}
	if origins := middleware.ParseOrigins(cfg.Server.CORSAllowedOrigins); len(origins) > 0 {
		cors := middleware.DefaultCORSConfig()
		cors.AllowedOrigins = origins
		routerCfg.CORS = &cors
	}
	if cfg.Server.RateLimitRPS > 0 {
		limiter := middleware.NewTokenBucketLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, middleware.DefaultCleanupInterval)
		defer limiter.Stop()
		routerCfg.RateLimiter = limiter
	}
	if cfg.Monitoring.Enabled {
		routerCfg.Metrics = rt.Metrics
		routerCfg.MetricsHandler = rt.Collector.Handler()
		routerCfg.MetricsPath = cfg.Monitoring.Path
	}

	if _, statErr := os.Stat(configPath); statErr == nil {
		err := config.Watch(configPath, log, func(next *config.Config) {
			nextMap, err := next.MapConfig()
			if err != nil {
				log.Warn("reloaded map settings rejected", logging.Err(err))
				return
			}
			mapHandler.SetBase(nextMap)
		})
		if err != nil {
			log.Warn("config watch disabled", logging.Err(err))
		}
	}

	srv := httpserver.NewServer(cfg.Server, httpserver.NewRouter(routerCfg), log)
	errCh := make(chan error, 2)
	go func() { errCh <- srv.Start() }()

	if cfg.Server.GRPCPort > 0 {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr())
		if err != nil {
			return err
		}
		grpcChecks := make([]grpcserver.Checker, len(checks))
		for i, c := range checks {
			grpcChecks[i] = c
		}
		gs := grpcserver.NewServer(grpcChecks,
			grpcserver.WithLogger(log),
			grpcserver.WithGracefulTimeout(cfg.Server.ShutdownTimeout),
		)
		go func() { errCh <- gs.Serve(lis) }()
		defer gs.Stop(context.Background())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	return srv.Stop(context.Background())
}
