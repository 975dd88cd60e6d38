package keyboard

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// SessionInfo summarizes a capture session. It carries counts only.
type SessionInfo struct {
	ID        string
	StartedAt time.Time
	EndedAt   time.Time
	Cancel    int64
	Submit    int64
	Delete    int64
	Literal   int64
	Dropped   int64
}

// Duration returns how long the session ran, or zero while it is open
func (i SessionInfo) Duration() time.Duration {
	if i.EndedAt.IsZero() {
		return 0
	}
	return i.EndedAt.Sub(i.StartedAt)
}

// Total returns the number of commands classified during the session
func (i SessionInfo) Total() int64 {
	return i.Cancel + i.Submit + i.Delete + i.Literal
}

// session is the callback context of one active hook
type session struct {
	id         string
	startedAt  time.Time
	classifier *Classifier
	bridge     *Bridge

	passThrough func(vk uint32) bool

	counts  [Literal + 1]atomic.Int64
	dropped atomic.Int64
}

func newSession(api KeyboardAPI, bridge *Bridge) *session {
	return &session{
		id:         uuid.NewString(),
		startedAt:  time.Now(),
		classifier: NewClassifier(api),
		bridge:     bridge,
	}
}

// handleKeyDown is the hook entry point. It returns true when the key
// must not reach its destination.
func (s *session) handleKeyDown(vk uint32) bool {
	if s.passThrough != nil && s.passThrough(vk) {
		return false
	}

	cmd, ok := s.classifier.Classify(vk)
	if !ok {
		return false
	}

	s.counts[cmd.Kind].Add(1)
	if err := s.bridge.Send(cmd); err != nil {
		s.dropped.Add(1)
		slog.Warn("Dropped keyboard command", "session", s.id, "kind", cmd.Kind, "error", err)
	}

	return true
}

func (s *session) info(endedAt time.Time) SessionInfo {
	return SessionInfo{
		ID:        s.id,
		StartedAt: s.startedAt,
		EndedAt:   endedAt,
		Cancel:    s.counts[Cancel].Load(),
		Submit:    s.counts[Submit].Load(),
		Delete:    s.counts[Delete].Load(),
		Literal:   s.counts[Literal].Load(),
		Dropped:   s.dropped.Load(),
	}
}
