// Package api provides the HTTP API server: webhook ingress, ranking reads,
// wallet registration and the realtime subscription endpoint.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ankushKun/pumpmyclaw-sub003/internal/logging"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/models"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/service"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/types"
)

// Service interfaces for dependency injection and testing

// WebhookProcessorInterface handles one webhook delivery item.
type WebhookProcessorInterface interface {
	ProcessItem(ctx context.Context, chain types.Chain, tx types.EnhancedTransaction)
}

// WalletServiceInterface defines wallet registration operations.
type WalletServiceInterface interface {
	Register(ctx context.Context, input service.RegisterWalletInput) (*models.AgentWallet, error)
	SetTokenAddress(ctx context.Context, walletID, tokenAddress string) error
}

// RankingReader reads the current ranking snapshot.
type RankingReader interface {
	GetCurrent(ctx context.Context) ([]*models.PerformanceRanking, error)
}

// BackfillRunner triggers an on-demand historical resync.
type BackfillRunner interface {
	Backfill(ctx context.Context, wallet *models.AgentWallet, opts service.BackfillOptions) (service.BackfillResult, error)
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	WebhookSecret   string
}

// Server represents the HTTP API server.
type Server struct {
	router        *mux.Router
	httpServer    *http.Server
	processor     WebhookProcessorInterface
	walletService WalletServiceInterface
	rankings      RankingReader
	backfill      BackfillRunner
	wallets       service.WalletStore
	wsHandler     http.HandlerFunc
	config        *ServerConfig
	logger        *logging.Logger
}

// NewServer creates a new API server instance. wsHandler may be nil to
// disable the realtime endpoint.
func NewServer(
	config *ServerConfig,
	processor WebhookProcessorInterface,
	walletService WalletServiceInterface,
	rankings RankingReader,
	backfill BackfillRunner,
	wallets service.WalletStore,
	wsHandler http.HandlerFunc,
	logger *logging.Logger,
) *Server {
	s := &Server{
		router:        mux.NewRouter(),
		processor:     processor,
		walletService: walletService,
		rankings:      rankings,
		backfill:      backfill,
		wallets:       wallets,
		wsHandler:     wsHandler,
		config:        config,
		logger:        logger.WithField("component", "api"),
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	s.router.Use(LoggingMiddleware(s.logger))
	s.router.Use(RecoveryMiddleware(s.logger))
	s.router.Use(CORSMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/rankings", s.handleGetRankings).Methods("GET")

	// Indexer push endpoints, bearer-authenticated with the shared secret.
	webhooks := s.router.PathPrefix("/webhooks").Subrouter()
	webhooks.Use(BearerAuthMiddleware(s.config.WebhookSecret))
	webhooks.HandleFunc("/solana", s.handleSolanaWebhook).Methods("POST")
	webhooks.HandleFunc("/monad", s.handleMonadWebhook).Methods("POST")

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/wallets", s.handleRegisterWallet).Methods("POST")
	api.HandleFunc("/wallets/{id}/token", s.handleSetTokenAddress).Methods("POST")
	api.HandleFunc("/backfill", s.handleTriggerBackfill).Methods("POST")

	if s.wsHandler != nil {
		s.router.HandleFunc("/ws", s.wsHandler).Methods("GET")
	}
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "trade-ledger",
	})
}

// Router exposes the configured router, used by tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server. A graceful shutdown is not an error.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
