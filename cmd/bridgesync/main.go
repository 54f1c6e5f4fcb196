// Command bridgesync runs the change-synchronization client headless: it
// loads the baseline, keeps the status projection warm, and serves metrics.
// The form UI embeds the same packages; this binary exists for development
// and soak testing against a real server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/bridgesync/bridgesync/internal/core/live"
	"github.com/bridgesync/bridgesync/internal/core/observability/log"
	"github.com/bridgesync/bridgesync/internal/core/observability/metrics"
	"github.com/bridgesync/bridgesync/internal/core/status"
	syncclient "github.com/bridgesync/bridgesync/internal/core/sync"
)

type appConfig struct {
	Sync        syncclient.Config `yaml:"sync"`
	Live        live.Config       `yaml:"live"`
	MetricsAddr string            `yaml:"metrics_addr"`
}

func loadAppConfig(path string) (appConfig, error) {
	cfg := appConfig{
		Sync:        syncclient.DefaultConfig(),
		Live:        live.DefaultConfig(),
		MetricsAddr: ":9090",
	}
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return appConfig{}, err
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return appConfig{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Sync.Validate(); err != nil {
		return appConfig{}, err
	}
	return cfg, nil
}

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	logger := log.New(log.LevelInfo)

	cfg, err := loadAppConfig(*configPath)
	if err != nil {
		logger.Error("invalid configuration", log.Error(err))
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	transport := syncclient.NewHTTPTransport(cfg.Sync, nil, logger)
	client := syncclient.NewClient(transport, logger,
		syncclient.WithMetrics(m),
		syncclient.WithRequestTimeout(cfg.Sync.RequestTimeout),
	)

	projection := status.NewProjection()
	channel := live.NewChannel(cfg.Live, projection, logger,
		live.WithChannelMetrics(m),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		loadCtx, loadCancel := context.WithTimeout(groupCtx, cfg.Sync.RequestTimeout)
		defer loadCancel()
		_, err := client.Load(loadCtx)
		return err
	})
	group.Go(func() error {
		return channel.Start(groupCtx)
	})
	if err := group.Wait(); err != nil {
		// A failed initial load is user-visible but not fatal; the next
		// load attempt or trigger retries against the server.
		logger.Warn("startup incomplete", log.Error(err))
	}

	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{})}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server stopped", log.Error(err))
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM)
	<-stopCh

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	_ = channel.Stop()
	_ = client.Close()
	_ = metricsServer.Shutdown(shutdownCtx)
	logger.Info("bridgesync stopped")
}
