package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"markestedt/keybridge/keyboard"
	"markestedt/keybridge/storage"
)

// fakeTracker mimics the capture service state machine
type fakeTracker struct {
	mu       sync.Mutex
	active   bool
	startErr error
	stops    int
}

func (f *fakeTracker) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active {
		return keyboard.ErrAlreadyActive
	}
	if f.startErr != nil {
		return fmt.Errorf("%w: %w", keyboard.ErrRegistrationFailed, f.startErr)
	}
	f.active = true
	return nil
}

func (f *fakeTracker) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.active = false
}

func (f *fakeTracker) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakeTracker) Session() (keyboard.SessionInfo, bool) {
	if !f.Active() {
		return keyboard.SessionInfo{}, false
	}
	return keyboard.SessionInfo{ID: "s-1", StartedAt: time.Now(), Literal: 3}, true
}

func newTestServer(t *testing.T, tracker Tracker, db *storage.DB) *Server {
	t.Helper()
	s := newServer(tracker, db, NewFSResolver(testAssets()), 0)
	t.Cleanup(s.hub.Stop)
	return s
}

func do(t *testing.T, s *Server, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))

	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestStartTracking(t *testing.T) {
	tracker := &fakeTracker{}
	s := newTestServer(t, tracker, nil)

	rec, body := do(t, s, http.MethodPost, "/api/tracking/start")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "active", body["status"])

	rec, body = do(t, s, http.MethodPost, "/api/tracking/start")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Already active", body["error"])
	assert.True(t, tracker.Active())
}

func TestStartTracking_RegistrationFailed(t *testing.T) {
	tracker := &fakeTracker{startErr: errors.New("hook refused")}
	s := newTestServer(t, tracker, nil)

	rec, body := do(t, s, http.MethodPost, "/api/tracking/start")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Could not start listener", body["error"])
	assert.False(t, tracker.Active())
}

func TestStopTracking_AlwaysSucceeds(t *testing.T) {
	tracker := &fakeTracker{}
	s := newTestServer(t, tracker, nil)

	for i := 0; i < 2; i++ {
		rec, body := do(t, s, http.MethodPost, "/api/tracking/stop")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "inactive", body["status"])
	}
	assert.Equal(t, 2, tracker.stops)
}

func TestTracking_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t, &fakeTracker{}, nil)

	rec, _ := do(t, s, http.MethodGet, "/api/tracking/start")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	rec, _ = do(t, s, http.MethodGet, "/api/tracking/stop")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStatus(t *testing.T) {
	tracker := &fakeTracker{}
	s := newTestServer(t, tracker, nil)

	_, body := do(t, s, http.MethodGet, "/api/status")
	assert.Equal(t, false, body["active"])
	assert.NotContains(t, body, "session")

	require.NoError(t, tracker.Start())
	_, body = do(t, s, http.MethodGet, "/api/status")
	assert.Equal(t, true, body["active"])
	session, ok := body["session"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "s-1", session["id"])
	assert.Equal(t, float64(3), session["commands"])
}

func TestFeatures(t *testing.T) {
	s := newTestServer(t, &fakeTracker{}, nil)

	rec, body := do(t, s, http.MethodGet, "/api/features")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, runtime.GOOS == "windows", body["background_input"])

	rec, _ = do(t, s, http.MethodPost, "/api/features")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestConfig(t *testing.T) {
	s := newServer(&fakeTracker{}, nil, NewFSResolver(testAssets()), 7645)
	t.Cleanup(s.hub.Stop)

	rec, body := do(t, s, http.MethodGet, "/api/config")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "localhost", body["host"])
	assert.Equal(t, float64(7645), body["port"])

	rec, _ = do(t, s, http.MethodDelete, "/api/config")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSessions(t *testing.T) {
	db, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	now := time.Now()
	require.NoError(t, db.SaveSession(&storage.Session{
		ID: "abc", StartedAt: now, EndedAt: now.Add(time.Second), DurationMs: 1000, LiteralCount: 4,
	}))

	s := newTestServer(t, &fakeTracker{}, db)

	rec, body := do(t, s, http.MethodGet, "/api/sessions?limit=abc")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["total"])
	assert.Equal(t, float64(50), body["limit"])
	sessions := body["sessions"].([]any)
	require.Len(t, sessions, 1)
	assert.Equal(t, "abc", sessions[0].(map[string]any)["id"])

	rec, body = do(t, s, http.MethodGet, "/api/stats?days=3")
	require.Equal(t, http.StatusOK, rec.Code)
	overall := body["overall"].(map[string]any)
	assert.Equal(t, float64(1), overall["sessions"])
	assert.Equal(t, float64(4), overall["literalCount"])

	rec, _ = do(t, s, http.MethodDelete, "/api/sessions/abc")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, s, http.MethodDelete, "/api/sessions/abc")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = do(t, s, http.MethodDelete, "/api/sessions")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = do(t, s, http.MethodGet, "/api/sessions")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["sessions"])
}

func TestSessions_StorageDisabled(t *testing.T) {
	s := newTestServer(t, &fakeTracker{}, nil)

	rec, _ := do(t, s, http.MethodGet, "/api/sessions")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	rec, _ = do(t, s, http.MethodGet, "/api/stats")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRootServesAssets(t *testing.T) {
	s := newTestServer(t, &fakeTracker{}, nil)

	rec, _ := do(t, s, http.MethodGet, "/overlay/chat")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<html>index</html>", rec.Body.String())
}
