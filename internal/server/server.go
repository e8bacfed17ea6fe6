// Package server provides the HTTP REST API for the strategy engine.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonathan/strategy-engine/internal/agents"
	"github.com/jonathan/strategy-engine/internal/config"
	"github.com/jonathan/strategy-engine/internal/db"
	"github.com/jonathan/strategy-engine/internal/dispatch"
	"github.com/jonathan/strategy-engine/internal/llm"
	"github.com/jonathan/strategy-engine/internal/pipeline"
	"github.com/jonathan/strategy-engine/internal/registry"
	"github.com/jonathan/strategy-engine/internal/seoapi"
	"github.com/jonathan/strategy-engine/internal/server/ratelimit"
)

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	db          *db.DB
	runs        *db.RunRepository
	campaigns   *db.CampaignRepository
	runner      *pipeline.Runner
	volumes     seoapi.VolumeLookup
	searcher    registry.Searcher
	webhook     *dispatch.Webhook
	cfg         *config.Config
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
	llmClient   llm.Client
}

// New creates a new server instance wired to the database, the Gemini
// client, the external SEO/registry integrations, and the production
// webhook.
func New(cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	database, err := db.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	llmClient, err := llm.NewClient(context.Background(), llm.DefaultGeminiConfig(), cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	s := &Server{
		db:        database,
		runs:      db.NewRunRepository(database),
		campaigns: db.NewCampaignRepository(database),
		cfg:       cfg,
		llmClient: llmClient,
	}

	s.volumes = seoapi.NewClient(cfg.SEOAPIBaseURL, cfg.SEOAPILogin, cfg.SEOAPIPassword, 15*time.Second)
	s.searcher = registry.NewClient(cfg.RegistryURL, 10*time.Second)
	s.runner = s.buildRunner(llmClient, llmClient.GetModel(llm.TierStandard))

	if cfg.ProductionWebhookURL != "" {
		s.webhook = dispatch.NewWebhook(dispatch.WebhookOptions{
			URL:         cfg.ProductionWebhookURL,
			Secret:      cfg.WebhookSecret,
			BearerToken: cfg.WebhookBearerToken,
			MaxAttempts: cfg.WebhookMaxRetries,
			Timeout:     cfg.WebhookTimeout,
		})
	}

	s.rateLimiter = ratelimit.NewLimiter(ratelimit.LoadConfig())

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT config: %w", err)
	}
	s.jwtService = NewJWTService(jwtConfig)

	mux := http.NewServeMux()

	// Pipeline endpoints
	mux.HandleFunc("POST /pipeline/start", s.handleStartPipeline)
	mux.HandleFunc("GET /pipeline/runs", s.handleListRuns)
	mux.HandleFunc("GET /pipeline/runs/{run_id}", s.handleGetRun)
	mux.HandleFunc("GET /pipeline/runs/{run_id}/blueprint", s.handleGetBlueprint)
	mux.Handle("POST /pipeline/runs/{run_id}/approve", s.requireAuth(s.handleApproveRun))
	mux.Handle("POST /pipeline/runs/{run_id}/reject", s.requireAuth(s.handleRejectRun))

	// Campaign endpoints
	mux.HandleFunc("GET /campaigns", s.handleListCampaigns)
	mux.HandleFunc("GET /campaigns/stuck", s.handleStuckCampaigns)
	mux.HandleFunc("GET /campaigns/{id}", s.handleGetCampaign)
	mux.HandleFunc("GET /campaigns/{id}/nodes", s.handleGetCampaignNodes)
	mux.Handle("POST /campaigns/{id}/retry", s.requireAuth(s.handleRetryDispatch))

	// Production callback (HMAC-verified, not JWT)
	mux.HandleFunc("POST /webhook/production-callback", s.handleProductionCallback)

	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(mux))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Start begins listening for requests and blocks until an interrupt or
// SIGTERM triggers a graceful shutdown.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if s.llmClient != nil {
		_ = s.llmClient.Close()
	}
	s.db.Close()
	log.Println("Server stopped")
	return nil
}

// buildRunner assembles a pipeline runner around the given LLM client. The
// default runner uses the per-stage tier mapping; runnerForTier builds
// variants pinned to a single tier.
func (s *Server) buildRunner(client llm.Client, model string) *pipeline.Runner {
	return pipeline.NewRunner(pipeline.Options{
		Extractor:  agents.NewIntentExtractor(client),
		Strategist: agents.NewStrategist(client, s.volumes),
		Builder:    agents.NewClusterBuilder(client, s.searcher),
		Store:      s.runs,
		Model:      model,
	})
}

// runnerForTier returns the runner to use for a start request. An empty tier
// selects the default per-stage mapping; otherwise every stage is pinned to
// the requested tier.
func (s *Server) runnerForTier(tier llm.ModelTier) *pipeline.Runner {
	if tier == "" {
		return s.runner
	}
	pinned := llm.Pinned(s.llmClient, tier)
	return s.buildRunner(pinned, s.llmClient.GetModel(tier))
}

// Campaigns exposes the campaign repository for the watchdog loop.
func (s *Server) Campaigns() *db.CampaignRepository {
	return s.campaigns
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// extractClientID extracts the client identifier from the request.
// This uses the IP address from RemoteAddr; X-Forwarded-For would only be
// trustworthy behind a known proxy.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit
// information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]interface{}{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		response["retry_after"] = int(info.RetryAfter.Seconds())
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
	}

	log.Printf("[rate-limit] Rate limit exceeded: Limit=%d Remaining=%d Reset=%s",
		info.Limit, info.Remaining, info.ResetTime.Format(time.RFC3339))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
