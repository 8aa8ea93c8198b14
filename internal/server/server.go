package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lmbridge/internal/catalog"
	"lmbridge/internal/config"
	"lmbridge/internal/discovery"
	"lmbridge/internal/handlers"
	"lmbridge/internal/llm"
	"lmbridge/internal/llm/ollamalm"
	"lmbridge/internal/middleware"
	"lmbridge/internal/orchestrator"
	"lmbridge/internal/registrar"
	"lmbridge/internal/toolprovider"
)

type Server struct {
	config    *config.Manager
	runtime   llm.Runtime
	catalog   *catalog.Catalog
	registrar *registrar.Registrar
	orch      *orchestrator.Orchestrator
	logger    *slog.Logger
	server    *http.Server
}

// New wires the whole bridge: the model runtime, the tool catalog and
// registrar, the discovery engine, and the turn orchestrator.
func New(configManager *config.Manager, logger *slog.Logger) (*Server, error) {
	cfg := configManager.Get()

	runtime, err := ollamalm.New(cfg.OllamaBaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("create model runtime: %w", err)
	}

	cat := catalog.New()
	cat.SeedBuiltins()

	var probes []discovery.Probe
	if cfg.Discovery.EnableProbes {
		probes = append(probes, discovery.NewExecProbe(logger))
	}

	engine := discovery.NewEngine(logger, probes...)
	reg := registrar.New(cat, runtime, engine, logger)

	if cfg.ToolProvider.CatalogPath != "" {
		provider, err := toolprovider.NewStaticProvider(cfg.ToolProvider.CatalogPath)
		if err != nil {
			logger.Warn("Tool provider catalog unavailable", "path", cfg.ToolProvider.CatalogPath, "error", err)
		} else if err := reg.RegisterProviderTools(context.Background(), provider); err != nil {
			logger.Warn("Failed to register provider tools", "error", err)
		}
	}

	orch := orchestrator.New(
		runtime,
		engine,
		reg,
		cfg.Retry.MaxRetries,
		time.Duration(cfg.Retry.DelayMS)*time.Millisecond,
		logger,
	)

	return &Server{
		config:    configManager,
		runtime:   runtime,
		catalog:   cat,
		registrar: reg,
		orch:      orch,
		logger:    logger,
	}, nil
}

func (s *Server) Start() error {
	cfg := s.config.Get()
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Routes(),
	}

	s.logger.Info("Starting server", "address", addr)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	s.logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	s.logger.Info("Server exited")

	return nil
}

func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// Routes builds the route table with middleware applied.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	chatHandler := handlers.NewChatHandler(s.config, s.runtime, s.catalog, s.registrar, s.orch, s.logger)
	messagesHandler := handlers.NewMessagesHandler(s.config, s.runtime, s.catalog, s.registrar, s.orch, s.logger)
	toolsHandler := handlers.NewToolsHandler(s.catalog, s.logger)
	modelsHandler := handlers.NewModelsHandler(s.runtime, s.logger)
	rootHandler := handlers.NewRootHandler(s.logger)

	middlewareSet := middleware.NewMiddlewareSet(s.logger)
	defaultChain := middlewareSet.DefaultChain()

	mux.Handle("/chat/completions", defaultChain.Handler(chatHandler))
	mux.Handle("/v1/chat/completions", defaultChain.Handler(chatHandler))
	mux.Handle("/v1/messages", defaultChain.Handler(messagesHandler))
	mux.Handle("/tools", defaultChain.Handler(toolsHandler))
	mux.Handle("/models", defaultChain.Handler(modelsHandler))
	mux.Handle("/v1/models", defaultChain.Handler(modelsHandler))
	mux.Handle("/health", middlewareSet.HealthChain().Handler(rootHandler))
	mux.Handle("/", middlewareSet.HealthChain().Handler(rootHandler))

	return mux
}
