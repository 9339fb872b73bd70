package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/itohio/gowqm/pkg/config"
	"github.com/itohio/gowqm/pkg/metrics"
	"github.com/itohio/gowqm/pkg/server"
	"github.com/itohio/gowqm/pkg/store"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	var (
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		listenFlag = flag.String("listen", "", "Listen address override (e.g., :8000)")
		storeFlag  = flag.String("store", "", "Store backend override: memory, postgres or redis")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *listenFlag != "" {
		cfg.Server.Listen = *listenFlag
	}
	if *storeFlag != "" {
		cfg.Server.Store = *storeFlag
	}
	if v := os.Getenv("WQM_POSTGRES_URL"); v != "" {
		cfg.Server.PostgresURL = v
	}
	if v := os.Getenv("WQM_REDIS_ADDR"); v != "" {
		cfg.Server.RedisAddr = v
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.New(ctx, cfg.Server)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.Server.Store, err)
	}
	defer st.Close()

	srv := server.New(st, metrics.NewService(prometheus.DefaultRegisterer), prometheus.DefaultGatherer)
	if err := srv.ListenAndServe(ctx, cfg.Server.Listen); err != nil {
		log.Printf("Classifier service stopped: %v", err)
		return
	}
	log.Println("Classifier service stopped")
}
