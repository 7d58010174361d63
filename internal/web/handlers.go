package web

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/camuig/pankou/internal/grouping"
	"github.com/camuig/pankou/internal/poller"
	"github.com/camuig/pankou/internal/storage"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

var dashboardTmpl = template.Must(template.ParseFS(templateFS, "templates/dashboard.html"))

const defaultHistoryLimit = 50

type SectorOption struct {
	Name     string
	Selected bool
}

type DashboardData struct {
	Loading   bool
	Status    string
	UpdatedAt string
	Waiting   bool
	NextOpen  string
	Sectors   []SectorOption
	Rows      []grouping.SectorJSON
}

type StatusResponse struct {
	State       poller.State `json:"state"`
	HasData     bool         `json:"has_data"`
	Status      string       `json:"status"`
	UpdatedAt   *time.Time   `json:"updated_at"`
	NextOpen    *time.Time   `json:"next_open"`
	LastError   string       `json:"last_error,omitempty"`
	Sectors     int          `json:"sectors"`
	Failures24h *int64       `json:"failures_24h,omitempty"`
}

// selectedSectors reads repeated ?sector= values, ignoring blanks.
func selectedSectors(r *http.Request) []string {
	var out []string
	for _, v := range r.URL.Query()["sector"] {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	snap := s.source.Snapshot()
	selected := selectedSectors(r)

	data := DashboardData{
		Loading: !snap.HasData,
		Status:  snap.Status,
		Waiting: snap.State == poller.StateWaiting,
	}
	if data.Loading && data.Status == "" {
		data.Status = poller.StatusLoading
	}
	if !snap.UpdatedAt.IsZero() {
		data.UpdatedAt = snap.UpdatedAt.Format(time.DateTime)
	}
	if !snap.NextOpen.IsZero() {
		data.NextOpen = snap.NextOpen.Format(time.DateTime)
	}

	picked := make(map[string]bool, len(selected))
	for _, name := range selected {
		picked[name] = true
	}
	for _, name := range snap.Sectors {
		data.Sectors = append(data.Sectors, SectorOption{Name: name, Selected: picked[name]})
	}
	data.Rows = snap.Select(selected).View.Rows()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTmpl.Execute(w, data); err != nil {
		s.logger.Error("execute template", "error", err)
	}
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.source.Snapshot().Select(selectedSectors(r)))
}

func (s *Server) handleSectors(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"sectors": s.source.Snapshot().Sectors})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.source.Snapshot()
	resp := StatusResponse{
		State:     snap.State,
		HasData:   snap.HasData,
		Status:    snap.Status,
		LastError: snap.LastError,
		Sectors:   len(snap.Sectors),
	}
	if !snap.UpdatedAt.IsZero() {
		resp.UpdatedAt = &snap.UpdatedAt
	}
	if !snap.NextOpen.IsZero() {
		resp.NextOpen = &snap.NextOpen
	}
	if s.history != nil {
		n, err := s.history.CountFailuresSince(time.Now().Add(-24 * time.Hour))
		if err != nil {
			s.logger.Error("count fetch failures", "error", err)
		} else {
			resp.Failures24h = &n
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, http.StatusNotFound, "history disabled")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	logs, err := s.history.RecentFetchLogs(limit)
	if err != nil {
		s.logger.Error("load fetch history", "error", err)
		s.writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	if logs == nil {
		logs = []storage.FetchLog{}
	}
	s.writeJSON(w, http.StatusOK, logs)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, detail string) {
	s.writeJSON(w, code, map[string]string{"detail": detail})
}
