package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/wailsapp/wails/v3/pkg/application"

	"go.aimuz.me/murmur/hotkey"
	"go.aimuz.me/murmur/internal/app"
	"go.aimuz.me/murmur/stt"
)

const recentMenuSize = 5

// tray is the menu bar frontend around the dictation runtime.
type tray struct {
	rt   *runtime
	app  *application.App
	item *application.SystemTray
	menu *application.Menu

	status      *application.MenuItem
	recentItems []*application.MenuItem
	recentEmpty *application.MenuItem

	mu          sync.Mutex
	monitor     *hotkey.Monitor
	cancel      context.CancelFunc
	recentTexts []string
}

// runTray runs the menu bar frontend until the user quits.
func runTray(rt *runtime) error {
	wailsApp := application.New(application.Options{
		Name:        appDisplayName,
		Description: "Hold-to-talk dictation at the cursor",
		Mac: application.MacOptions{
			ApplicationShouldTerminateAfterLastWindowClosed: false,
			ActivationPolicy: application.ActivationPolicyAccessory,
		},
	})

	t := &tray{rt: rt, app: wailsApp}
	t.item = wailsApp.SystemTray.New()
	t.item.SetLabel(trayLabel(app.StateIdle))
	t.buildMenu()

	rt.service.OnStateChange(t.onState)

	if err := t.startListening(); err != nil {
		if errors.Is(err, hotkey.ErrPermissionDenied) {
			return fmt.Errorf("accessibility permission required: grant it in System Settings > Privacy & Security > Accessibility, then restart")
		}
		return fmt.Errorf("start hotkey monitor: %w", err)
	}

	slog.Info("dictation ready", "hotkey", rt.combo.String(), "model", rt.cfg.ModelSize, "engine", rt.cfg.Engine)
	t.refreshRecent()

	err := wailsApp.Run()
	t.stopListening()
	return err
}

func (t *tray) buildMenu() {
	menu := t.app.NewMenu()

	t.status = menu.Add("Status: idle")
	t.status.SetEnabled(false)

	menu.Add(fmt.Sprintf("Hold %s to dictate", t.rt.combo)).SetEnabled(false)
	menu.AddSeparator()

	menu.AddCheckbox("Pause dictation", false).OnClick(func(ctx *application.Context) {
		if ctx.ClickedMenuItem().Checked() {
			t.stopListening()
			slog.Info("dictation paused")
			return
		}
		if err := t.startListening(); err != nil {
			slog.Error("resume dictation", "error", err)
			t.rt.notifier.Notify("Could not resume", "See the log for details.")
		}
	})

	modelMenu := menu.AddSubmenu("Model")
	for _, size := range stt.ModelSizeNames() {
		size := size
		modelMenu.AddRadio(size, size == t.rt.cfg.ModelSize).OnClick(func(ctx *application.Context) {
			if err := t.rt.selectModel(size); err != nil {
				slog.Error("select model", "model", size, "error", err)
			}
		})
	}

	recentMenu := menu.AddSubmenu("Recent")
	t.recentEmpty = recentMenu.Add("No transcriptions yet")
	t.recentEmpty.SetEnabled(false)
	for i := 0; i < recentMenuSize; i++ {
		i := i
		item := recentMenu.Add("")
		item.SetHidden(true)
		item.OnClick(func(ctx *application.Context) {
			t.copyRecent(i)
		})
		t.recentItems = append(t.recentItems, item)
	}

	menu.Add("Statistics").OnClick(func(ctx *application.Context) {
		t.showStats()
	})

	menu.AddSeparator()
	menu.Add("Quit").
		SetAccelerator("CmdOrCtrl+Q").
		OnClick(func(ctx *application.Context) {
			t.app.Quit()
		})

	t.menu = menu
	t.item.SetMenu(menu)
}

func (t *tray) startListening() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.monitor != nil {
		return nil
	}

	monitor := hotkey.NewMonitor(t.rt.combo)
	if err := monitor.Start(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.monitor = monitor
	t.cancel = cancel
	go t.rt.service.Run(ctx, monitor.Events())
	return nil
}

func (t *tray) stopListening() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.monitor == nil {
		return
	}
	t.cancel()
	t.monitor.Stop()
	t.monitor = nil
	t.cancel = nil
}

func (t *tray) onState(st app.State) {
	t.item.SetLabel(trayLabel(st))
	t.status.SetLabel("Status: " + st.String())
	if st == app.StateIdle {
		t.refreshRecent()
	}
}

func (t *tray) refreshRecent() {
	if t.rt.store == nil {
		return
	}
	entries, err := t.rt.store.Recent(recentMenuSize)
	if err != nil {
		slog.Warn("read recent history", "error", err)
		return
	}

	t.mu.Lock()
	t.recentTexts = t.recentTexts[:0]
	for _, e := range entries {
		t.recentTexts = append(t.recentTexts, e.Text)
	}
	t.mu.Unlock()

	t.recentEmpty.SetHidden(len(entries) > 0)
	for i, item := range t.recentItems {
		if i < len(entries) {
			item.SetLabel(truncate(entries[i].Text, 48))
			item.SetHidden(false)
		} else {
			item.SetHidden(true)
		}
	}
	t.menu.Update()
}

// copyRecent puts a past transcription back on the clipboard.
func (t *tray) copyRecent(i int) {
	t.mu.Lock()
	var text string
	if i < len(t.recentTexts) {
		text = t.recentTexts[i]
	}
	t.mu.Unlock()

	if text == "" {
		return
	}
	if err := clipboard.WriteAll(text); err != nil {
		slog.Error("copy recent", "error", err)
		return
	}
	t.rt.notifier.Notify("Copied", truncate(text, 60))
}

func (t *tray) showStats() {
	if t.rt.store == nil {
		t.rt.notifier.Notify("Statistics", "History is disabled.")
		return
	}
	stats, err := t.rt.store.Stats()
	if err != nil {
		slog.Error("read stats", "error", err)
		return
	}
	t.rt.notifier.Notify("Statistics", fmt.Sprintf("%d sessions, %d words, %s of audio.",
		stats.Sessions, stats.Words, stats.AudioDuration.Round(time.Second)))
}

func trayLabel(st app.State) string {
	switch st {
	case app.StateRecording:
		return "🔴"
	case app.StateTranscribing:
		return "✍️"
	default:
		return "🎤"
	}
}

// truncate shortens a string for menu and notification display.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
