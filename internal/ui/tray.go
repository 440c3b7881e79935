package ui

import (
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/emendo/emendo-agent/internal/session"
	"github.com/emendo/emendo-agent/internal/timeutil"
	"github.com/getlantern/systray"
)

// Tray mirrors the session state into a system tray menu. It polls the
// session snapshot; the session never pushes into UI code.
type Tray struct {
	session   *session.Session
	exportDir string
	logger    *slog.Logger

	statusItem *systray.MenuItem
	cancelItem *systray.MenuItem

	onQuit func()
}

type TrayConfig struct {
	Session   *session.Session
	ExportDir string
	Logger    *slog.Logger
	OnQuit    func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		session:   cfg.Session,
		exportDir: cfg.ExportDir,
		logger:    cfg.Logger,
		onQuit:    cfg.OnQuit,
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Emendo")
	systray.SetTooltip("Emendo Agent")

	t.statusItem = systray.AddMenuItem("Status: Idle", "Current agent status")
	t.statusItem.Disable()

	systray.AddSeparator()

	t.cancelItem = systray.AddMenuItem("Cancel Export", "Stop the running export")
	t.cancelItem.Disable()

	openFolderItem := systray.AddMenuItem("Open Export Folder", "Show exported clips")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Emendo Agent")

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.refresh()
			case <-t.cancelItem.ClickedCh:
				if t.session.CancelExport() {
					t.logger.Info("export cancelled from tray")
				}
			case <-openFolderItem.ClickedCh:
				t.openExportFolder()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

func (t *Tray) refresh() {
	snap := t.session.Snapshot()
	t.statusItem.SetTitle(statusTitle(snap))
	if snap.State == session.StateExporting {
		t.cancelItem.Enable()
	} else {
		t.cancelItem.Disable()
	}
}

// statusTitle renders the status menu line for a session snapshot.
func statusTitle(snap session.Snapshot) string {
	switch snap.State {
	case session.StateLoading:
		return "Status: Loading video..."
	case session.StateExporting:
		if snap.Job == nil {
			return "Status: Exporting"
		}
		return fmt.Sprintf("Status: Exporting %.0f%% (%s)",
			snap.Job.Progress.Fraction*100,
			timeutil.FormatElapsed(snap.Job.Progress.Elapsed.Seconds()))
	case session.StateReady:
		return "Status: Ready"
	default:
		return "Status: Idle"
	}
}

func (t *Tray) openExportFolder() {
	if err := exec.Command("xdg-open", t.exportDir).Start(); err != nil {
		t.logger.Error("failed to open export folder", "error", err)
	}
}

func (t *Tray) Quit() {
	systray.Quit()
}
