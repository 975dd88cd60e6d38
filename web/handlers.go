package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime"
	"strconv"
	"strings"

	"markestedt/keybridge/keyboard"
	"markestedt/keybridge/storage"
)

// Error strings reported to the host for start_tracking
const (
	errAlreadyActive = "Already active"
	errCouldNotStart = "Could not start listener"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleStartTracking installs the keyboard hook
func (s *Server) handleStartTracking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.tracker.Start(); err != nil {
		if errors.Is(err, keyboard.ErrAlreadyActive) {
			writeError(w, http.StatusConflict, errAlreadyActive)
			return
		}
		slog.Error("Failed to start tracking", "error", err)
		writeError(w, http.StatusInternalServerError, errCouldNotStart)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "active"})
}

// handleStopTracking removes the keyboard hook. It always succeeds.
func (s *Server) handleStopTracking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.tracker.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"status": "inactive"})
}

// handleStatus returns the current capture state
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"active":  s.tracker.Active(),
		"clients": s.hub.ClientCount(),
	}
	if info, ok := s.tracker.Session(); ok {
		response["session"] = map[string]any{
			"id":        info.ID,
			"startedAt": info.StartedAt,
			"commands":  info.Total(),
			"dropped":   info.Dropped,
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// handleFeatures reports which native capabilities this build offers.
// Background input needs the Windows keyboard hook.
func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{
		"background_input": runtime.GOOS == "windows",
	})
}

// handleConfig tells the UI where the server can be reached
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"host": "localhost",
		"port": s.port,
	})
}

// handleSessions handles GET and DELETE requests for session history
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		http.Error(w, "Session storage disabled", http.StatusServiceUnavailable)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetSessions(w, r)
	case http.MethodDelete:
		s.handleDeleteSession(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleGetSessions returns paginated session history
func (s *Server) handleGetSessions(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50, 1)
	offset := queryInt(r, "offset", 0, 0)

	sessions, err := s.db.GetSessions(limit, offset)
	if err != nil {
		slog.Error("Failed to get sessions", "error", err)
		http.Error(w, "Failed to get sessions", http.StatusInternalServerError)
		return
	}

	total, err := s.db.GetSessionCount()
	if err != nil {
		slog.Error("Failed to get session count", "error", err)
		http.Error(w, "Failed to get sessions", http.StatusInternalServerError)
		return
	}

	if sessions == nil {
		sessions = []storage.Session{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// handleDeleteSession deletes a session by ID (e.g. /api/sessions/<id>)
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	if id == "" || id == r.URL.Path || strings.Contains(id, "/") {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return
	}

	if err := s.db.DeleteSession(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to delete session", "error", err, "id", id)
		http.Error(w, "Failed to delete session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// handleStats returns statistics for the specified time range
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		http.Error(w, "Session storage disabled", http.StatusServiceUnavailable)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	days := queryInt(r, "days", 7, 1)

	overall, err := s.db.GetOverallStats(days)
	if err != nil {
		slog.Error("Failed to get overall stats", "error", err)
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}

	daily, err := s.db.GetDailyStats(days)
	if err != nil {
		slog.Error("Failed to get daily stats", "error", err)
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}
	if daily == nil {
		daily = []storage.DailyStats{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"overall": overall,
		"daily":   daily,
	})
}

// queryInt reads an integer query parameter. Missing or invalid values
// and values below floor yield def.
func queryInt(r *http.Request, key string, def, floor int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < floor {
		return def
	}
	return n
}
