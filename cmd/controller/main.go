// Package main implements the replikv controller binary.
//
// The controller holds the worker registry and the partition function,
// answers mapping queries, ingests heartbeats, and runs the failure
// detector that drives re-replication when a worker dies.
//
// Configuration (environment, .env files honored):
//   - LISTEN: listen address (default ":8000")
//   - REPLICAS: copies kept per key (default 3)
//   - HEARTBEAT_TIMEOUT: silence before a worker is marked down (default 6s)
//   - CHECK_INTERVAL: failure detector cadence (default 2s)
//   - REQUEST_TIMEOUT: per-request timeout for recovery calls (default 2s)
//
// Example:
//
//	LISTEN=:8000 REPLICAS=3 ./controller
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
	"github.com/replikv/replikv/internal/controller"
)

const version = "0.3.0"

// logFatal is a variable to allow intercepting log.Fatalf in tests.
var logFatal = log.Fatalf

var rootCmd = &cobra.Command{
	Use:           "controller",
	Short:         "replikv controller: worker registry, partition mapping, failure recovery",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the controller version",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("replikv controller v%s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func run(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadController()
	if err != nil {
		return err
	}

	srv := controller.NewServer(cfg)
	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("controller listening on %s (replicas=%d)", cfg.Listen, cfg.Replicas)
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
	log.Println("controller stopped")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("controller: %v", err)
		os.Exit(1)
	}
}
