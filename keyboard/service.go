package keyboard

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// HookHandle identifies an installed OS hook
type HookHandle uintptr

// KeyDownFunc is invoked for every key-down while a hook is installed.
// Returning true suppresses the key.
type KeyDownFunc func(vk uint32) bool

// Installer registers and removes the OS keyboard hook
type Installer interface {
	Install(fn KeyDownFunc) (HookHandle, error)
	Uninstall(h HookHandle) error
}

type activeHook struct {
	handle  HookHandle
	session *session
}

// Service owns the capture lifecycle. At most one hook is active at a time.
type Service struct {
	installer Installer
	api       KeyboardAPI
	bridge    *Bridge

	// lifecycle serializes Start and Stop
	lifecycle sync.Mutex

	mu      sync.RWMutex
	current *activeHook

	onEnd       func(SessionInfo)
	passThrough func(vk uint32) bool
}

// NewService creates an inactive capture service that sends commands over bridge
func NewService(installer Installer, api KeyboardAPI, bridge *Bridge) *Service {
	return &Service{
		installer: installer,
		api:       api,
		bridge:    bridge,
	}
}

// NewSystemService creates a service bound to the host OS
func NewSystemService(bridge *Bridge) *Service {
	return NewService(NewSystemInstaller(), NewSystemAPI(), bridge)
}

// OnSessionEnd registers fn to be called after each session stops
func (s *Service) OnSessionEnd(fn func(SessionInfo)) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.onEnd = fn
}

// PassThrough registers fn to pick keys that reach their destination
// untouched while capture is active. It applies from the next Start.
func (s *Service) PassThrough(fn func(vk uint32) bool) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.passThrough = fn
}

// Start installs the keyboard hook
func (s *Service) Start() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.RLock()
	active := s.current != nil
	s.mu.RUnlock()
	if active {
		return ErrAlreadyActive
	}

	// The session must exist before the hook can call into it
	sess := newSession(s.api, s.bridge)
	sess.passThrough = s.passThrough

	handle, err := s.installer.Install(sess.handleKeyDown)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRegistrationFailed, err)
	}

	s.mu.Lock()
	s.current = &activeHook{handle: handle, session: sess}
	s.mu.Unlock()

	slog.Info("Keyboard capture started", "session", sess.id)
	return nil
}

// Stop removes the keyboard hook. Calling it while inactive does nothing.
func (s *Service) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	cur := s.current
	if cur == nil {
		s.mu.Unlock()
		return
	}
	if err := s.installer.Uninstall(cur.handle); err != nil {
		slog.Warn("Failed to uninstall keyboard hook", "session", cur.session.id, "error", err)
	}
	s.current = nil
	s.mu.Unlock()

	info := cur.session.info(time.Now())
	slog.Info("Keyboard capture stopped",
		"session", info.ID,
		"duration", info.Duration(),
		"commands", info.Total(),
		"dropped", info.Dropped,
	)

	if s.onEnd != nil {
		s.onEnd(info)
	}
}

// CountDropped records a command that was classified but never reached
// the UI. It is a no-op while inactive.
func (s *Service) CountDropped() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current != nil {
		s.current.session.dropped.Add(1)
	}
}

// Active reports whether a hook is installed
func (s *Service) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}

// Session returns a live snapshot of the active session
func (s *Service) Session() (SessionInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return SessionInfo{}, false
	}
	return s.current.session.info(time.Time{}), true
}
