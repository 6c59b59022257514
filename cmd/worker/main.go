// Package main implements the replikv worker binary.
//
// A worker owns a durable local key-value store, coordinates client
// PUTs through quorum replication, serves GETs from memory, answers
// replicate and pull requests from peers, and heartbeats the controller.
//
// Configuration (environment, .env files honored):
//   - LISTEN: listen address (default ":8001")
//   - CONTROLLER: controller base URL (default "http://localhost:8000")
//   - ADDRESS: address published in heartbeats (default "http://localhost:8001")
//   - ID: stable worker identifier (default "w0")
//   - WRITE_QUORUM: acks required before a PUT succeeds (default 2)
//   - DATA_DIR: durable store directory (default "data_<ID>")
//   - REQUEST_TIMEOUT: per-request timeout for outbound calls (default 2s)
//   - HEARTBEAT_INTERVAL: heartbeat cadence (default 2s)
//
// Example:
//
//	ID=w1 LISTEN=:8001 ADDRESS=http://localhost:8001 \
//	CONTROLLER=http://localhost:8000 ./worker
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/replikv/replikv/internal/config"
	"github.com/replikv/replikv/internal/worker"
)

const version = "0.3.0"

// logFatal is a variable to allow intercepting log.Fatalf in tests.
var logFatal = log.Fatalf

var rootCmd = &cobra.Command{
	Use:           "worker",
	Short:         "replikv worker: durable store, write coordination, replication",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the worker version",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("replikv worker v%s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func run(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadWorker()
	if err != nil {
		return err
	}

	srv, err := worker.NewServer(cfg)
	if err != nil {
		return err
	}
	log.Printf("worker[%s] store loaded: %d keys from %s", cfg.ID, srv.Store().Len(), cfg.DataDir)

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("worker[%s] listening on %s (public %s)", cfg.ID, cfg.Listen, cfg.Address)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logFatal("listen: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv.Start(ctx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	srv.Stop()
	log.Printf("worker[%s] stopped", cfg.ID)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("worker: %v", err)
		os.Exit(1)
	}
}
