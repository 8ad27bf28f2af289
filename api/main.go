package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/hexfold/newsrag/internal/answer"
	"github.com/hexfold/newsrag/internal/config"
	"github.com/hexfold/newsrag/internal/embedding"
	"github.com/hexfold/newsrag/internal/logger"
	"github.com/hexfold/newsrag/internal/models"
	"github.com/hexfold/newsrag/internal/mongodb"
)

type vectorSearcher interface {
	VectorSearch(ctx context.Context, vector []float32, numCandidates, limit int) ([]models.ScoredArticle, error)
	Ping(ctx context.Context) error
}

type queryEmbedder interface {
	Embed(ctx context.Context, text string, kind embedding.InputType) ([]float32, error)
}

type answerer interface {
	Answer(ctx context.Context, question string, results []models.ScoredArticle) (*models.Answer, error)
}

func main() {
	_ = godotenv.Load()

	log := logger.FromEnv("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	store, err := mongodb.New(connectCtx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, cfg.VectorIndex, log)
	cancel()
	if err != nil {
		log.Error("init mongodb", slog.Any("err", err))
		os.Exit(1)
	}
	defer store.Close(context.Background())

	srv := &server{
		log:       log,
		cfg:       cfg,
		store:     store,
		embedder:  embedding.NewClient(cfg.VoyageURL, cfg.VoyageAPIKey, cfg.VoyageModel, cfg.EmbeddingDims),
		generator: answer.NewGenerator(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AnthropicMaxTok),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", srv.handleHealth)
	r.Get("/search", srv.handleSearch)
	r.Post("/ask", srv.handleAsk)

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	go func() {
		log.Info("api server starting", slog.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}

type server struct {
	log       *slog.Logger
	cfg       *config.API
	store     vectorSearcher
	embedder  queryEmbedder
	generator answerer
}

type errorResponse struct {
	Error string `json:"error"`
}

type searchResponse struct {
	Results []models.ScoredArticle `json:"results"`
}

type askRequest struct {
	Question string `json:"question"`
	Limit    int    `json:"limit"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	limit := clampInt(r.URL.Query().Get("limit"), s.cfg.DefaultLimit, s.cfg.MaxLimit)

	results, status, err := s.retrieve(ctx, query, limit)
	if err != nil {
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{Results: results})
}

func (s *server) handleAsk(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 45*time.Second)
	defer cancel()

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return
	}

	question := strings.TrimSpace(req.Question)
	limit := req.Limit
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}

	results, status, err := s.retrieve(ctx, question, limit)
	if err != nil {
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	ans, err := s.generator.Answer(ctx, question, results)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, ans)
}

// retrieve embeds the query and runs vector search. The HTTP status
// accompanies the error so handlers respond uniformly.
func (s *server) retrieve(ctx context.Context, query string, limit int) ([]models.ScoredArticle, int, error) {
	vector, err := s.embedder.Embed(ctx, query, embedding.InputQuery)
	if err != nil {
		if errors.Is(err, embedding.ErrEmptyInput) {
			return nil, http.StatusBadRequest, errors.New("query must not be empty")
		}
		return nil, http.StatusBadGateway, err
	}

	results, err := s.store.VectorSearch(ctx, vector, s.cfg.SearchCandidates, limit)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	return results, http.StatusOK, nil
}

func clampInt(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	if value <= 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// nothing better to do
	}
}
