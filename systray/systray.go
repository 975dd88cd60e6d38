package systray

import (
	"log/slog"
	"os/exec"
	"runtime"

	"github.com/getlantern/systray"
)

// Capture is the capture lifecycle controlled from the tray menu
type Capture interface {
	Start() error
	Stop()
	Active() bool
}

// SystrayManager manages the system tray icon and menu
type SystrayManager struct {
	capture  Capture
	webURL   string
	iconData []byte
	quit     chan struct{}
	changed  chan struct{}

	mStart *systray.MenuItem
	mStop  *systray.MenuItem
}

// NewSystrayManager creates a new systray manager. webURL may be empty
// when the web UI is disabled.
func NewSystrayManager(capture Capture, webURL string, iconData []byte) *SystrayManager {
	return &SystrayManager{
		capture:  capture,
		webURL:   webURL,
		iconData: iconData,
		quit:     make(chan struct{}),
		changed:  make(chan struct{}, 1),
	}
}

// Run starts the system tray (blocking call)
func (m *SystrayManager) Run() {
	systray.Run(m.onReady, m.onExit)
}

// Stop stops the system tray
func (m *SystrayManager) Stop() {
	systray.Quit()
}

// WaitForQuit returns a channel that will be closed when user clicks Quit
func (m *SystrayManager) WaitForQuit() <-chan struct{} {
	return m.quit
}

// Refresh updates the menu after the capture state changed elsewhere
func (m *SystrayManager) Refresh() {
	select {
	case m.changed <- struct{}{}:
	default:
	}
}

// onReady is called when the systray is ready
func (m *SystrayManager) onReady() {
	if len(m.iconData) > 0 {
		systray.SetIcon(m.iconData)
	}

	systray.SetTitle("keybridge")

	m.mStart = systray.AddMenuItem("Start capture", "Route key presses to the overlay")
	m.mStop = systray.AddMenuItem("Stop capture", "Give the keyboard back")
	systray.AddSeparator()
	mOpenWebUI := systray.AddMenuItem("Open Web UI", "Open the keybridge web UI")
	if m.webURL == "" {
		mOpenWebUI.Disable()
	}
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Exit keybridge")

	m.updateMenu()

	go func() {
		for {
			select {
			case <-m.mStart.ClickedCh:
				if err := m.capture.Start(); err != nil {
					slog.Error("Failed to start capture from tray", "error", err)
				}
				m.updateMenu()
			case <-m.mStop.ClickedCh:
				m.capture.Stop()
				m.updateMenu()
			case <-m.changed:
				m.updateMenu()
			case <-mOpenWebUI.ClickedCh:
				m.openWebUI()
			case <-mQuit.ClickedCh:
				slog.Info("User requested quit from system tray")
				close(m.quit)
				systray.Quit()
				return
			}
		}
	}()
}

func (m *SystrayManager) updateMenu() {
	if m.capture.Active() {
		m.mStart.Disable()
		m.mStop.Enable()
		systray.SetTooltip("keybridge - capturing")
	} else {
		m.mStart.Enable()
		m.mStop.Disable()
		systray.SetTooltip("keybridge - idle")
	}
}

// onExit is called when the systray is exiting
func (m *SystrayManager) onExit() {
	slog.Info("System tray exited")
}

// openWebUI opens the web UI in the default browser
func (m *SystrayManager) openWebUI() {
	slog.Info("Opening web UI", "url", m.webURL)

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", m.webURL)
	case "darwin":
		cmd = exec.Command("open", m.webURL)
	case "linux":
		cmd = exec.Command("xdg-open", m.webURL)
	default:
		slog.Error("Unsupported platform for opening browser", "platform", runtime.GOOS)
		return
	}

	if err := cmd.Start(); err != nil {
		slog.Error("Failed to open web UI", "error", err)
	}
}
