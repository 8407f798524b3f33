package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.aimuz.me/murmur/hotkey"
)

// runCLI runs the dictation loop without a menu bar item, until interrupted.
func runCLI(rt *runtime) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	monitor := hotkey.NewMonitor(rt.combo)
	if err := monitor.Start(); err != nil {
		if errors.Is(err, hotkey.ErrPermissionDenied) {
			return fmt.Errorf("accessibility permission required: grant it in System Settings > Privacy & Security > Accessibility, then restart")
		}
		return fmt.Errorf("start hotkey monitor: %w", err)
	}
	defer monitor.Stop()

	fmt.Printf("Hold %s to dictate. Press Ctrl+C to quit.\n", rt.combo)
	slog.Info("dictation ready", "hotkey", rt.combo.String(), "model", rt.cfg.ModelSize, "engine", rt.cfg.Engine)

	rt.service.Run(ctx, monitor.Events())

	printSessionSummary(rt)
	return nil
}

func printSessionSummary(rt *runtime) {
	if rt.store == nil {
		return
	}
	stats, err := rt.store.Stats()
	if err != nil {
		slog.Warn("read stats", "error", err)
		return
	}
	fmt.Printf("\n%d sessions, %d words, %s of audio transcribed.\n",
		stats.Sessions, stats.Words, stats.AudioDuration.Round(time.Second))
}
