package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/camuig/pankou/internal/logger"
)

const DefaultPort = 61125

type Server struct {
	httpServer *http.Server
	csvPath    string
	port       int
	logger     *logger.Logger
}

func NewServer(csvPath string, port int, log *logger.Logger) *Server {
	if port <= 0 {
		port = DefaultPort
	}
	s := &Server{csvPath: csvPath, port: port, logger: log}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/changes/json", s.handleChanges)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		mux.ServeHTTP(w, r)
	})
}

// handleChanges re-reads the file on every request; the watcher rewrites it
// in place.
func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	events, err := LoadCSV(s.csvPath)
	switch {
	case errors.Is(err, ErrNotFound):
		s.writeJSON(w, http.StatusNotFound, map[string]string{"detail": ErrNotFound.Error()})
		return
	case err != nil:
		s.logger.Error("read changes csv", "path", s.csvPath, "error", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "Error reading CSV: " + err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, events)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) Start() error {
	s.logger.Info("changes feed starting", "port", s.port, "csv", s.csvPath)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("feed server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
