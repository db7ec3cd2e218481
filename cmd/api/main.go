package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/argus-sec/argus/backend/internal/api/routes"
	"github.com/argus-sec/argus/backend/internal/config"
	"github.com/argus-sec/argus/backend/internal/database"
	"github.com/argus-sec/argus/backend/internal/ipset"
	"github.com/argus-sec/argus/backend/internal/logger"
	"github.com/argus-sec/argus/backend/internal/scheduler"
	"github.com/argus-sec/argus/backend/internal/server"
	"github.com/argus-sec/argus/backend/internal/services"
	"github.com/argus-sec/argus/backend/internal/version"
)

func main() {
	logDir := filepath.Join("data", "logs")
	_ = os.MkdirAll(logDir, 0o755)

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "argus.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(cfg.Environment == "development", io.MultiWriter(os.Stdout, rotator))
	logger.Log().Infof("starting %s version %s", version.Name, version.Full())

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	// The remote IP-set control plane is used when configured; otherwise an
	// in-process set keeps local development self-contained.
	var ipsetService ipset.Service
	if cfg.IPSetEndpoint != "" {
		ipsetService = ipset.NewClient(cfg.IPSetEndpoint)
	} else {
		logger.Log().Warn("no IP set endpoint configured, using in-process IP set")
		ipsetService = ipset.NewMemory()
	}
	ipsetManager := ipset.NewManager(ipsetService)

	notifications := services.NewNotificationService(db)
	blocklist := services.NewBlocklistService(db, ipsetManager)
	threats := services.NewThreatService(db, blocklist, notifications)
	analyzers := services.NewAnalyzerService(db, notifications)
	auth := services.NewAuthService(db, cfg.JWTSecret)

	srv, err := server.New(db, cfg, routes.Deps{
		Blocklist:     blocklist,
		Threats:       threats,
		Analyzers:     analyzers,
		Notifications: notifications,
		Auth:          auth,
	})
	if err != nil {
		log.Fatalf("build server: %v", err)
	}

	sched := scheduler.New(blocklist, analyzers)
	if err := sched.Start(cfg.SweepSchedule, cfg.AnalyzerSchedule); err != nil {
		log.Fatalf("start scheduler: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Log().Infof("listening on :%s", cfg.HTTPPort)
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}

	sched.Stop()
	logger.Log().Info("shutdown complete")
}
