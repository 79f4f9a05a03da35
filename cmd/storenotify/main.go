package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/syntrixbase/storenotify/internal/config"
	"github.com/syntrixbase/storenotify/internal/logging"
	"github.com/syntrixbase/storenotify/internal/services"
)

func main() {
	// 0. Parse Command Line Flags
	configDir := flag.String("config", "configs", "Directory holding config.yml and config.local.yml")
	listenHost := flag.String("host", "", "Override the gateway listen host")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer func() {
		if err := logging.Shutdown(); err != nil {
			log.Printf("Failed to close log files: %v", err)
		}
	}()

	// 2. Initialize Service Manager
	mgr := services.NewManager(cfg, services.Options{ListenHost: *listenHost})

	initCtx, initCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer initCancel()
	if err := mgr.Init(initCtx); err != nil {
		slog.Error("Failed to initialize services", "error", err)
		os.Exit(1)
	}

	// 3. Start Services
	bgCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	mgr.Start(bgCtx)

	// 4. Wait for Shutdown
	<-mgr.Done()
	slog.Info("Shutting down services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Gateway.ShutdownTimeout)
	defer shutdownCancel()
	if err := mgr.Shutdown(shutdownCtx); err != nil {
		slog.Error("Service stopped with error", "error", err)
		os.Exit(1)
	}

	slog.Info("All services stopped.")
}
