package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"go.aimuz.me/murmur/config"
	"go.aimuz.me/murmur/stt"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cliMode   bool
		modelSize string
		language  string
		hotkeyStr string
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:     "murmur",
		Short:   "Hold-to-talk dictation at the cursor",
		Long:    "Murmur records the microphone while a hotkey is held, transcribes the audio with Whisper, and types the result into the focused application.",
		Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),

		SilenceUsage:  true,
		SilenceErrors: true,

		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(verbose)

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if modelSize != "" {
				cfg.ModelSize = modelSize
			}
			if language != "" {
				cfg.Language = language
			}
			if hotkeyStr != "" {
				cfg.Hotkey = hotkeyStr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			rt, err := buildRuntime(cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			if cliMode {
				return runCLI(rt)
			}
			return runTray(rt)
		},
	}

	cmd.Flags().BoolVar(&cliMode, "cli", false, "run headless without the menu bar item")
	cmd.Flags().StringVar(&modelSize, "model", "", "whisper model size for this run (tiny, base, small, medium, large, turbo)")
	cmd.Flags().StringVar(&language, "language", "", `transcription language for this run, e.g. "en" or "auto"`)
	cmd.Flags().StringVar(&hotkeyStr, "hotkey", "", `hotkey combination for this run, e.g. "ctrl+alt"`)
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newModelsCmd(), newStatsCmd())
	return cmd
}

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List whisper model sizes and their download state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			for _, size := range stt.ModelSizeNames() {
				local, err := stt.NewWhisperLocal(stt.WhisperLocalConfig{
					ModelSize: size,
					ModelDir:  cfg.ModelDir,
				})
				if err != nil {
					return err
				}
				state := "not downloaded"
				if local.IsReady() {
					state = "ready"
				}
				marker := " "
				if size == cfg.ModelSize {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %-8s %s\n", marker, size, state)
			}
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cumulative dictation statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sessions: %d\nWords:    %d\nAudio:    %s\n",
				stats.Sessions, stats.Words, stats.AudioDuration.Round(time.Second))
			return nil
		},
	}
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
