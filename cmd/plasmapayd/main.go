package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	plasmapay "github.com/Jasz0n/ioPlasmaVerse-Expo-sub002"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/logger"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/utils"
)

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	configPath := flag.String("config", getEnv("PLASMAPAY_CONFIG", "./plasmapay.json"), "path to the JSON config file")
	flag.Parse()

	cfg, err := utils.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "plasmapayd: %v\n", err)
		os.Exit(1)
	}
	if addr := os.Getenv("PLASMAPAY_LISTEN_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	if path := os.Getenv("PLASMAPAY_DB_PATH"); path != "" {
		cfg.DatabasePath = path
	}

	log := logger.New(cfg.LogFormat, cfg.LogLevel)

	svc, err := plasmapay.New(cfg, plasmapay.WithLogger(log))
	if err != nil {
		log.Error("failed to initialize", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("plasmapayd starting", map[string]any{
		"config":   *configPath,
		"database": cfg.DatabasePath,
		"chains":   len(cfg.Chains),
		"version":  plasmapay.Version,
	})

	if err := svc.Run(ctx); err != nil {
		log.Error("server stopped", map[string]any{"error": err.Error()})
		svc.Close()
		os.Exit(1)
	}
	log.Info("plasmapayd stopped", nil)
}
