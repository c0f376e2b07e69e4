// Command graphsim runs the relationship graph viewer headlessly: it
// fetches a graph from a Graph Service, simulates the force layout and
// streams frames to websocket clients, which send gestures back.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"crmgraph/application/staging"
	"crmgraph/application/view"
	"crmgraph/domain/graph"
	"crmgraph/infrastructure/config"
	"crmgraph/infrastructure/di"
	"crmgraph/interfaces/ws"
)

func main() {
	var (
		addr       string
		serviceURL string
	)

	cmd := &cobra.Command{
		Use:   "graphsim",
		Short: "Relationship graph layout and staging viewer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if serviceURL != "" {
				cfg.GraphServiceURL = serviceURL
			}
			if addr == "" {
				addr = ":8090"
			}
			return run(cfg, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "websocket listen address (default :8090)")
	cmd.Flags().StringVar(&serviceURL, "service-url", "", "Graph Service base URL (overrides GRAPH_SERVICE_URL)")

	if err := cmd.Execute(); err != nil {
		log.Fatalf("graphsim: %v", err)
	}
}

func run(cfg *config.Config, addr string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The hub and logger are created after the view; the callbacks
	// close over them and only fire once the view is started.
	var (
		hub    *ws.Hub
		logger *zap.Logger
	)

	callbacks := view.Callbacks{
		OnFrame: func(frame view.Frame) {
			if hub != nil {
				hub.Broadcast(frame)
			}
		},
		OnNodeSelected: func(id graph.NodeID) {
			logger.Info("Node selected", zap.String("nodeID", id.String()))
		},
		OnPendingCountChanged: func(count int) {
			logger.Info("Pending changes", zap.Int("count", count))
		},
		OnCommitCompleted: func(report staging.Report) {
			logger.Info("Commit completed",
				zap.Int("succeeded", len(report.Succeeded)),
				zap.Int("failed", len(report.Failed)),
			)
		},
	}

	container, err := di.NewViewerContainer(cfg, callbacks)
	if err != nil {
		return err
	}
	logger = container.Logger
	v := container.View

	if err := v.Load(ctx); err != nil {
		return err
	}

	// The hub must exist before the first tick fires the frame callback.
	hub = ws.NewHub(v, logger)
	v.Start(ctx)
	defer v.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.Handle)

	srv := &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("Starting graph viewer",
			zap.String("address", addr),
			zap.String("serviceURL", cfg.GraphServiceURL),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Viewer failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down graph viewer...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Viewer shutdown error", zap.Error(err))
	}
	_ = logger.Sync()

	return nil
}
