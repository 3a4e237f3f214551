package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cardea-access/cardea/internal/cardea/notify"
	"github.com/cardea-access/cardea/internal/cardea/service"
	"github.com/cardea-access/cardea/internal/cardea/store/sqlite"
	"github.com/cardea-access/cardea/internal/config"
	"github.com/cardea-access/cardea/internal/db"
	"github.com/cardea-access/cardea/internal/httpapi"
	"github.com/cardea-access/cardea/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "cardea-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage
	conn, err := db.Open(ctx, db.Config{Path: cfg.DB.Path, Env: cfg.DB.Env}, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	if cfg.DB.Env == "dev" {
		if err := db.SeedDev(ctx, conn); err != nil {
			return err
		}
	}

	writer := db.NewWorker(conn, db.WorkerOptions{
		QueueDepth: cfg.DB.WriteQueueDepth,
		Logger:     log,
	})
	defer writer.Close()

	doorStore := sqlite.NewDoorStore(conn, writer)
	ruleStore := sqlite.NewRuleStore(conn, writer)
	userDir := sqlite.NewUserDirectory(conn, writer)
	accessLog := sqlite.NewAccessLogStore(conn, writer)
	heartbeatStore := sqlite.NewHeartbeatStore(conn, writer)

	// Decision event publishing (optional)
	var events notify.Publisher = notify.Nop{}
	if cfg.NATS.URL != "" {
		pub, err := notify.ConnectNATS(cfg.NATS.URL, log)
		if err != nil {
			return err
		}
		defer pub.Close()
		events = pub
	}

	// Services
	engine := service.NewEngine(doorStore, ruleStore, userDir, accessLog, events, log, service.EngineConfig{
		CollaboratorTimeout: cfg.Engine.CollaboratorTimeout,
		StrictAudit:         cfg.Engine.StrictAudit,
	})
	ruleAdmin := service.NewRuleAdmin(ruleStore, doorStore, log)
	heartbeatSvc := service.NewHeartbeatService(heartbeatStore, doorStore, log)

	pruner := service.NewHeartbeatPruner(heartbeatStore, service.PrunerConfig{
		RetentionDays: cfg.Heartbeat.RetentionDays,
		IntervalHours: cfg.Heartbeat.PruneIntervalHours,
	}, log)
	pruner.Start(ctx)
	defer pruner.Stop()

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:           log,
		Addr:             cfg.Server.Addr,
		Engine:           engine,
		RuleAdmin:        ruleAdmin,
		HeartbeatService: heartbeatSvc,
		AccessLog:        accessLog,
	})

	go func() {
		log.Info("listening", "addr", cfg.Server.Addr)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
