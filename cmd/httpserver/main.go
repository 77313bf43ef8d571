package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/xaitan80/webserver/internal/config"
	"github.com/xaitan80/webserver/internal/formlog"
	"github.com/xaitan80/webserver/internal/logger"
	"github.com/xaitan80/webserver/internal/router"
	"github.com/xaitan80/webserver/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	port := flag.IntP("port", "p", cfg.Port, "port to listen on")
	root := flag.StringP("root", "r", cfg.DocumentRoot, "directory served as the document root")
	logFile := flag.String("log-file", cfg.FormLogPath, "file that contact form submissions are appended to")
	debug := flag.Bool("debug", cfg.Debug, "enable debug logging")
	flag.Parse()

	cfg.Port, cfg.DocumentRoot, cfg.FormLogPath, cfg.Debug = *port, *root, *logFile, *debug
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Debug)
	logger.Info("Starting web server...",
		"port", cfg.Port,
		"document_root", cfg.DocumentRoot,
		"form_log", cfg.FormLogPath,
		"legacy_echo", cfg.LegacyEcho)

	var opts []router.Option
	if cfg.LegacyEcho {
		logger.Warn("Legacy echo enabled - submitted bodies are echoed without escaping")
		opts = append(opts, router.WithLegacyEcho())
	}

	srv := server.New(server.Config{
		Host:         cfg.Host,
		Port:         cfg.Port,
		DocumentRoot: cfg.DocumentRoot,
		PortAttempts: cfg.PortAttempts,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		GracePeriod:  cfg.ShutdownGracePeriod,
	}, router.Factory(formlog.New(cfg.FormLogPath), opts...))

	if err := srv.Start(); err != nil {
		logger.Fatal("Failed to start server", "error", err)
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		if err := srv.Stop(); err != nil {
			logger.Error("Failed to stop server", "error", err)
		}
	}()

	srv.WaitForShutdown()
	logger.Info("Server gracefully stopped")
}
