package main

import (
	"flag"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/edgegate/edgegate/internal/config"
	"github.com/edgegate/edgegate/internal/monitor"
	"github.com/edgegate/edgegate/internal/security"
	"github.com/edgegate/edgegate/internal/server"
)

const cleanupInterval = time.Hour

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}

	var publisher *monitor.Publisher
	if cfg.Monitor.RedisAddr != "" {
		publisher, err = monitor.NewPublisher(cfg.Monitor.RedisAddr, cfg.Monitor.AlertChannel, logger)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to redis")
		}
		defer publisher.Close()
		logger.WithField("addr", cfg.Monitor.RedisAddr).Info("redis alert publisher enabled")
	}

	mon, err := monitor.New(cfg.Monitor, cfg.Security.ThreatScoreThreshold, logger, publisher)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize attack monitor")
	}

	engine := security.NewEngine(cfg.Security, mon, logger)
	srv := server.New(cfg, engine, mon, logger)

	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for range ticker.C {
			mon.CleanupOldLogs()
		}
	}()

	if err := srv.Run(); err != nil {
		logger.WithError(err).Fatal("server exited")
	}
}
