// Package tray shows a system tray icon with shortcuts to the monitor.
package tray

import (
	"os/exec"
	"runtime"
	"sync"
	"sync/atomic"

	"fyne.io/systray"
	"github.com/edaniels/golog"
)

// ShutdownFunc is called when "Exit" is clicked
type ShutdownFunc func()

// Tray manages the system tray icon and menu
type Tray struct {
	monitorURL   string
	shutdownFunc ShutdownFunc
	logger       golog.Logger
	once         sync.Once
	shuttingDown atomic.Bool
	menuOpen     *systray.MenuItem
	menuMode     *systray.MenuItem
	menuExit     *systray.MenuItem
}

// New creates a tray pointing at monitorURL. An empty URL hides the
// "Open Monitor" item.
func New(monitorURL string, shutdownFn ShutdownFunc, logger golog.Logger) *Tray {
	return &Tray{
		monitorURL:   monitorURL,
		shutdownFunc: shutdownFn,
		logger:       logger,
	}
}

// Run initializes and runs the system tray (blocks until Quit())
func (t *Tray) Run(iconData []byte) {
	systray.Run(func() {
		t.onReady(iconData)
	}, func() {
		t.onExit()
	})
}

// Quit removes the tray icon if it is running.
func (t *Tray) Quit() {
	if t.shuttingDown.CompareAndSwap(false, true) {
		systray.Quit()
	}
}

// SetMode shows the current teleop mode in the menu and tooltip.
func (t *Tray) SetMode(mode string) {
	if t.menuMode == nil {
		return
	}
	t.menuMode.SetTitle("Mode: " + mode)
	systray.SetTooltip(tooltip(mode))
}

func tooltip(mode string) string {
	return "Freight teleop (" + mode + ")"
}

func (t *Tray) onReady(iconData []byte) {
	if iconData != nil {
		systray.SetIcon(iconData)
	}
	systray.SetTitle("Freight teleop")
	systray.SetTooltip(tooltip("none"))

	t.menuMode = systray.AddMenuItem("Mode: none", "Current teleop mode")
	t.menuMode.Disable()
	systray.AddSeparator()
	t.menuOpen = systray.AddMenuItem("Open Monitor", "Open the command monitor")
	if t.monitorURL == "" {
		t.menuOpen.Hide()
	}
	t.menuExit = systray.AddMenuItem("Exit", "Stop teleop and quit")

	// Handle menu clicks in separate goroutines to prevent blocking
	go t.handleMenuClicks()

	t.logger.Info("system tray initialized")
}

// handleMenuClicks processes menu item clicks without blocking
func (t *Tray) handleMenuClicks() {
	for {
		select {
		case <-t.menuOpen.ClickedCh:
			if !t.shuttingDown.Load() {
				t.openBrowser()
			}
		case <-t.menuExit.ClickedCh:
			if t.shuttingDown.CompareAndSwap(false, true) {
				t.once.Do(t.shutdownFunc)
				systray.Quit()
				return
			}
		}
	}
}

func (t *Tray) onExit() {
	t.shuttingDown.Store(true)
	t.logger.Info("system tray exiting")
}

func (t *Tray) openBrowser() {
	if t.shuttingDown.Load() || t.monitorURL == "" {
		return
	}

	cmd := browserCommand(runtime.GOOS, t.monitorURL)
	if err := cmd.Start(); err != nil {
		t.logger.Warnw("failed to open browser", "url", t.monitorURL, "error", err)
	}
}

func browserCommand(goos, url string) *exec.Cmd {
	switch goos {
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		return exec.Command("open", url)
	default:
		return exec.Command("xdg-open", url)
	}
}
