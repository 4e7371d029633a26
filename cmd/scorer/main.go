package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/registry"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/scorer"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/system"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/middleware"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	iniPath := flag.String("ini", "", "optional moses.ini with [feature] and [weight] sections")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *iniPath != "" {
		if err := config.LoadINI(*iniPath, &cfg.Decoder); err != nil {
			fmt.Fprintf(os.Stderr, "failed to load ini: %v\n", err)
			os.Exit(1)
		}
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting scorer", "port", cfg.Server.Port, "features", len(cfg.Decoder.Features))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, nil)
		defer shutdownMetrics(context.Background())
	}

	sys := system.New(cfg, registry.WithMetrics(m))
	if err := sys.Setup(ctx); err != nil {
		slog.Error("decoder setup failed", "error", err)
		sys.Close()
		os.Exit(1)
	}
	defer sys.Close()

	scorerOpts := []scorer.Option{scorer.WithMetrics(m)}
	if cfg.Redis.CacheTTL > 0 {
		if sys.Resources.Redis == nil {
			slog.Warn("result cache requested but redis is not configured")
		} else {
			cache := scorer.NewResultCache(sys.Resources.Redis, cfg.Redis.CacheTTL, cfg.Decoder.Features, sys.Weights.Values())
			scorerOpts = append(scorerOpts, scorer.WithCache(cache))
			slog.Info("result cache enabled", "ttl", cfg.Redis.CacheTTL)
		}
	}
	sc := scorer.New(sys, scorerOpts...)

	checker := health.NewChecker()
	checker.Register("decoder", health.Flag(sys.Ready, "decoder not set up"))
	if db := sys.Resources.Postgres; db != nil {
		checker.Register("postgres", health.Ping(db.Ping, false))
	}
	if rc := sys.Resources.Redis; rc != nil {
		checker.Register("redis", health.Ping(rc.Ping, false))
	}

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.ScoreResults)
		defer producer.Close()
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.ScoreRequests, sc.KafkaHandler(producer))
		defer consumer.Close()
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("score request consumer error", "error", err)
			}
		}()
		slog.Info("kafka scoring worker started",
			"requests", cfg.Kafka.Topics.ScoreRequests,
			"results", cfg.Kafka.Topics.ScoreResults,
		)
	}

	mux := http.NewServeMux()
	scorer.NewHandler(sc).Routes(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("scorer listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("scorer stopped")
}
