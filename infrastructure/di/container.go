// Package di assembles the application's dependency graph.
package di

import (
	"go.uber.org/zap"

	"crmgraph/application/layout"
	"crmgraph/application/ports"
	"crmgraph/application/view"
	"crmgraph/infrastructure/config"
	"crmgraph/infrastructure/graphapi"
	"crmgraph/infrastructure/persistence/memory"
	"crmgraph/interfaces/http/rest"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		return nil, err
	}

	return logger, nil
}

// ProvideGraphStore creates the in-memory graph store, seeded from the
// configured fixture file when one is set.
func ProvideGraphStore(cfg *config.Config, logger *zap.Logger) (*memory.GraphStore, error) {
	store := memory.NewGraphStore(logger)
	if cfg.SeedFile != "" {
		if err := store.LoadSeed(cfg.SeedFile, logger); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// ProvideRouter creates the development Graph Service router
func ProvideRouter(store *memory.GraphStore, cfg *config.Config, logger *zap.Logger) *rest.Router {
	return rest.NewRouter(store, cfg, logger)
}

// ProvideGraphService creates the HTTP Graph Service client
func ProvideGraphService(cfg *config.Config, logger *zap.Logger) ports.GraphService {
	return graphapi.NewClient(cfg.GraphServiceURL, cfg.GraphServiceToken, cfg.RequestTimeout, logger)
}

// ProvideGraphView creates a graph view over a Graph Service
func ProvideGraphView(svc ports.GraphService, logger *zap.Logger, callbacks view.Callbacks) *view.View {
	return view.New(svc, layout.DefaultConfig(), logger, callbacks)
}

// ServerContainer holds the development Graph Service dependencies
type ServerContainer struct {
	Config *config.Config
	Logger *zap.Logger
	Store  *memory.GraphStore
	Router *rest.Router
}

// NewServerContainer wires the development server
func NewServerContainer(cfg *config.Config) (*ServerContainer, error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, err
	}

	store, err := ProvideGraphStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &ServerContainer{
		Config: cfg,
		Logger: logger,
		Store:  store,
		Router: ProvideRouter(store, cfg, logger),
	}, nil
}

// ViewerContainer holds the graph viewer dependencies
type ViewerContainer struct {
	Config  *config.Config
	Logger  *zap.Logger
	Service ports.GraphService
	View    *view.View
}

// NewViewerContainer wires the graph viewer against a remote Graph
// Service.
func NewViewerContainer(cfg *config.Config, callbacks view.Callbacks) (*ViewerContainer, error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, err
	}

	svc := ProvideGraphService(cfg, logger)

	return &ViewerContainer{
		Config:  cfg,
		Logger:  logger,
		Service: svc,
		View:    ProvideGraphView(svc, logger, callbacks),
	}, nil
}
