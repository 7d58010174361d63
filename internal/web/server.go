package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/camuig/pankou/internal/config"
	"github.com/camuig/pankou/internal/logger"
	"github.com/camuig/pankou/internal/poller"
	"github.com/camuig/pankou/internal/storage"
)

// Source is the read side of the poller.
type Source interface {
	Snapshot() poller.Snapshot
	Subscribe(buf int) (int, <-chan poller.Snapshot)
	Unsubscribe(id int)
}

// History is optional; a nil History disables /api/history.
type History interface {
	RecentFetchLogs(limit int) ([]storage.FetchLog, error)
	CountFailuresSince(since time.Time) (int64, error)
}

type Server struct {
	httpServer *http.Server
	source     Source
	history    History
	config     *config.Config
	logger     *logger.Logger
}

func NewServer(src Source, history History, cfg *config.Config, log *logger.Logger) *Server {
	s := &Server{
		source:  src,
		history: history,
		config:  cfg,
		logger:  log,
	}

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Web.Port),
		Handler:     s.Handler(),
		ReadTimeout: 10 * time.Second,
		// no WriteTimeout: /ws connections are long-lived and set their own deadlines
	}

	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /api/view", s.handleView)
	mux.HandleFunc("GET /api/sectors", s.handleSectors)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /ws", s.handleWS)
	return withCORS(mux)
}

func (s *Server) Start() error {
	s.logger.Info("web server starting", "port", s.config.Web.Port)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("web server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
