package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"markestedt/keybridge/config"
	"markestedt/keybridge/keyboard"
	"markestedt/keybridge/platform"
	"markestedt/keybridge/storage"
	"markestedt/keybridge/systray"
	"markestedt/keybridge/web"
)

// Agent coordinates keyboard capture, the UI transport and the host surfaces
type Agent struct {
	cfg     *config.Config
	bridge  *keyboard.Bridge
	capture *keyboard.Service
	emitter *keyboard.Emitter
	hotkey  platform.Hotkey
	db      *storage.DB
	server  *web.Server
	tray    *systray.SystrayManager
}

// NewAgent creates a new agent instance
func NewAgent(cfg *config.Config) (*Agent, error) {
	a := &Agent{
		cfg:    cfg,
		bridge: keyboard.NewBridge(),
		hotkey: platform.NewHotkey(),
	}
	a.capture = keyboard.NewSystemService(a.bridge)
	a.capture.OnSessionEnd(a.recordSession)

	if cfg.Storage.Enabled {
		db, err := storage.Open(filepath.Dir(cfg.Path()))
		if err != nil {
			return nil, fmt.Errorf("failed to open session storage: %w", err)
		}
		a.db = db
	}

	var publisher keyboard.Publisher = logPublisher{}
	if cfg.Web.Enabled {
		server, err := web.NewServer(a, a.db, cfg.Web.Port)
		if err != nil {
			a.closeDB()
			return nil, fmt.Errorf("failed to create web server: %w", err)
		}
		a.server = server
		publisher = server
	}

	emitter, err := keyboard.NewEmitter(a.bridge, publisher)
	if err != nil {
		a.closeDB()
		return nil, fmt.Errorf("failed to create emitter: %w", err)
	}
	emitter.OnDropped(func(string) { a.capture.CountDropped() })
	a.emitter = emitter

	if cfg.Tray.Enabled {
		var url string
		if a.server != nil {
			url = a.server.URL()
		}
		a.tray = systray.NewSystrayManager(a, url, nil)
	}

	return a, nil
}

// Run starts the agent and blocks until ctx is done or the user quits
func (a *Agent) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)

	go func() {
		if err := a.emitter.Run(ctx); err != nil {
			errCh <- fmt.Errorf("keyboard emitter stopped: %w", err)
		}
	}()

	if a.server != nil {
		go func() {
			if err := a.server.Start(); err != nil {
				errCh <- fmt.Errorf("web server failed: %w", err)
			}
		}()
	}

	if a.cfg.Hotkey.Enabled {
		if err := a.listenHotkey(ctx); err != nil {
			slog.Warn("Toggle hotkey unavailable", "combo", a.cfg.Hotkey.Combo, "error", err)
		}
	}

	if a.cfg.Capture.Autostart {
		if err := a.Start(); err != nil {
			slog.Error("Failed to start capture", "error", err)
		}
	}

	var quit <-chan struct{}
	if a.tray != nil {
		quit = a.tray.WaitForQuit()
		go a.tray.Run()
	}

	slog.Info("keybridge started", "web", a.cfg.Web.Enabled, "hotkey", a.cfg.Hotkey.Combo)

	var runErr error
	select {
	case <-ctx.Done():
	case <-quit:
	case runErr = <-errCh:
	}

	a.shutdown()
	return runErr
}

func (a *Agent) shutdown() {
	a.capture.Stop()

	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Warn("Web server shutdown failed", "error", err)
		}
	}

	if a.tray != nil {
		a.tray.Stop()
	}

	a.closeDB()
}

func (a *Agent) closeDB() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		slog.Warn("Failed to close session storage", "error", err)
	}
	a.db = nil
}

// listenHotkey toggles capture whenever the configured combo is pressed
func (a *Agent) listenHotkey(ctx context.Context) error {
	combo, err := config.ParseHotkey(a.cfg.Hotkey.Combo)
	if err != nil {
		return fmt.Errorf("failed to parse hotkey: %w", err)
	}

	vkCode, err := platform.VKCode(combo.Key)
	if err != nil {
		return fmt.Errorf("failed to get VK code: %w", err)
	}

	kc := platform.KeyCombo{
		Ctrl:  combo.Ctrl,
		Shift: combo.Shift,
		Alt:   combo.Alt,
		Win:   combo.Win,
		Key:   vkCode,
	}
	events, err := a.hotkey.Listen(ctx, kc)
	if err != nil {
		return err
	}

	// The capture hook is installed later and runs first, so the toggle
	// combo has to get past it to turn capture off.
	a.capture.PassThrough(func(vk uint32) bool {
		return platform.ComboHeld(kc, int(vk))
	})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-events:
				if evt.Type == platform.Pressed {
					a.toggle()
				}
			}
		}
	}()

	return nil
}

func (a *Agent) toggle() {
	if a.Active() {
		a.Stop()
		return
	}
	if err := a.Start(); err != nil {
		slog.Error("Failed to start capture", "error", err)
	}
}

// Start begins capture and notifies the UI surfaces
func (a *Agent) Start() error {
	err := a.capture.Start()
	if err == nil || errors.Is(err, keyboard.ErrAlreadyActive) {
		a.notifyStatus()
	}
	return err
}

// Stop ends capture and notifies the UI surfaces
func (a *Agent) Stop() {
	a.capture.Stop()
	a.notifyStatus()
}

// Active reports whether capture is running
func (a *Agent) Active() bool {
	return a.capture.Active()
}

// Session returns the running session, if any
func (a *Agent) Session() (keyboard.SessionInfo, bool) {
	return a.capture.Session()
}

func (a *Agent) notifyStatus() {
	if a.server != nil {
		a.server.BroadcastStatus()
	}
	if a.tray != nil {
		a.tray.Refresh()
	}
}

// recordSession persists the counters of a finished session
func (a *Agent) recordSession(info keyboard.SessionInfo) {
	if a.db == nil {
		return
	}

	err := a.db.SaveSession(&storage.Session{
		ID:           info.ID,
		StartedAt:    info.StartedAt,
		EndedAt:      info.EndedAt,
		DurationMs:   info.Duration().Milliseconds(),
		CancelCount:  info.Cancel,
		SubmitCount:  info.Submit,
		DeleteCount:  info.Delete,
		LiteralCount: info.Literal,
		DroppedCount: info.Dropped,
	})
	if err != nil {
		slog.Error("Failed to save session", "session", info.ID, "error", err)
	}
}

// logPublisher stands in for the UI when the web server is disabled.
// Literal text is not logged.
type logPublisher struct{}

func (logPublisher) Publish(event, payload string) bool {
	cmd, err := keyboard.ParseCommand(payload)
	if err != nil {
		slog.Warn("Unexpected keyboard payload", "event", event, "error", err)
		return true
	}
	slog.Debug("Keyboard event", "event", event, "kind", cmd.Kind)
	return true
}
