package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vitaegraph/vitae/internal/config"
	"github.com/vitaegraph/vitae/internal/core"
	"github.com/vitaegraph/vitae/internal/core/broadcast"
	"github.com/vitaegraph/vitae/internal/core/graphsync"
	"github.com/vitaegraph/vitae/internal/core/ledger"
	"github.com/vitaegraph/vitae/internal/core/resolver"
	"github.com/vitaegraph/vitae/internal/core/temporal"
	"github.com/vitaegraph/vitae/internal/driver"
	"github.com/vitaegraph/vitae/internal/logger"
	"github.com/vitaegraph/vitae/internal/scheduler"
	"github.com/vitaegraph/vitae/internal/server"
	"github.com/vitaegraph/vitae/internal/store"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	logger.Init(cfg.Server.Env)
	defer logger.Sync()
	log := logger.Get()

	db, err := store.Open(cfg.Postgres.URL)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	if err := store.Migrate(db); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	graphDriver, err := driver.NewNeo4jDriver(cfg.Neo4j.URI, cfg.Neo4j.User,
		cfg.Neo4j.Password, cfg.GraphTimeout())
	if err != nil {
		log.Fatal("failed to connect to graph store", zap.Error(err))
	}
	defer graphDriver.Close(context.Background())

	graph := graphsync.New(graphDriver)
	if err := graph.BuildIndices(context.Background()); err != nil {
		log.Warn("failed to build graph indices", zap.Error(err))
	}

	scoring := ledger.NewScoringPolicy(cfg.Scoring)
	engine := core.NewEngine(
		ledger.New(db, scoring),
		resolver.New(db),
		temporal.New(db),
		graph,
		broadcast.NewHub(),
	)

	sched := scheduler.New(engine, cfg)
	if err := sched.Start(); err != nil {
		log.Fatal("failed to start scheduler", zap.Error(err))
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: server.NewServer(engine, cfg).SetupRouter(),
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}
