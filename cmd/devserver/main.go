// Command devserver runs the in-memory development document server.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bridgesync/bridgesync/internal/core/document"
	"github.com/bridgesync/bridgesync/internal/core/observability/log"
	"github.com/bridgesync/bridgesync/internal/server"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	logger := log.New(log.LevelDebug)

	seed := document.Mapping(map[string]document.Value{
		"bridges": document.Sequence(),
	})

	srv := server.New(seed, logger)
	if err := srv.Start(*addr); err != nil {
		logger.Error("failed to start dev server", log.Error(err))
		os.Exit(1)
	}

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM)
	<-stopCh

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		logger.Error("error stopping dev server", log.Error(err))
	}
}
