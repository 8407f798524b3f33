package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"go.aimuz.me/murmur/audiocapture"
	"go.aimuz.me/murmur/config"
	"go.aimuz.me/murmur/history"
	"go.aimuz.me/murmur/hotkey"
	"go.aimuz.me/murmur/insert"
	"go.aimuz.me/murmur/internal/app"
	"go.aimuz.me/murmur/notify"
	"go.aimuz.me/murmur/stt"
)

const appDisplayName = "Murmur"

// runtime bundles the wired pipeline for either frontend.
type runtime struct {
	cfg      *config.Config
	combo    hotkey.Combo
	recorder *audiocapture.Recorder
	engine   *stt.Engine
	service  *app.Service
	notifier *notify.Notifier
	store    *history.Store // nil when history is disabled or unavailable
}

func buildRuntime(cfg *config.Config) (*runtime, error) {
	combo, err := hotkey.ParseCombo(cfg.Hotkey)
	if err != nil {
		return nil, fmt.Errorf("hotkey: %w", err)
	}

	recorder, err := audiocapture.New(audiocapture.DefaultSampleRate)
	if err != nil {
		return nil, fmt.Errorf("audio capture: %w", err)
	}

	engine, err := stt.NewEngine(stt.EngineConfig{
		ModelSize:  cfg.ModelSize,
		SampleRate: recorder.SampleRate(),
		MinClip:    cfg.MinClip(),
		Factory:    providerFactory(cfg),
	})
	if err != nil {
		return nil, fmt.Errorf("transcription engine: %w", err)
	}

	notifier := notify.New(appDisplayName)
	inserter := insert.New(insert.Config{
		Method:         insert.Method(cfg.InsertMethod),
		PasteThreshold: cfg.PasteThreshold,
	})

	svcCfg := app.Config{
		Recorder:  recorder,
		Engine:    engine,
		Inserter:  inserter,
		Notifier:  notifier,
		Language:  cfg.Language,
		ModelSize: cfg.ModelSize,
	}

	var store *history.Store
	if cfg.HistoryEnabled {
		store, err = openHistory()
		if err != nil {
			// History is best effort; dictation works without it.
			slog.Warn("history disabled", "error", err)
		} else {
			svcCfg.History = store
		}
	}

	return &runtime{
		cfg:      cfg,
		combo:    combo,
		recorder: recorder,
		engine:   engine,
		service:  app.New(svcCfg),
		notifier: notifier,
		store:    store,
	}, nil
}

// providerFactory picks the transcription backend from config. The local
// engine loads a whisper.cpp model per size; the API engine ignores the
// size and sends audio to an OpenAI-compatible endpoint.
func providerFactory(cfg *config.Config) stt.ProviderFactory {
	if cfg.Engine == config.EngineAPI {
		return func(string) (stt.Provider, error) {
			return stt.NewWhisperAPI(stt.WhisperAPIConfig{
				APIKey:  cfg.APIKey,
				BaseURL: cfg.BaseURL,
				Model:   cfg.APIModel,
			}), nil
		}
	}
	return func(size string) (stt.Provider, error) {
		return stt.NewWhisperLocal(stt.WhisperLocalConfig{
			ModelSize: size,
			ModelDir:  cfg.ModelDir,
		})
	}
}

func openHistory() (*history.Store, error) {
	dir, err := config.DataDir()
	if err != nil {
		return nil, err
	}
	return history.Open(filepath.Join(dir, "history"))
}

// selectModel switches the active model and persists the choice.
func (rt *runtime) selectModel(size string) error {
	if !stt.ValidModelSize(size) {
		return fmt.Errorf("unknown model size %q", size)
	}
	rt.engine.SetModelSize(size)
	rt.service.SetModelSize(size)
	rt.cfg.ModelSize = size
	if err := rt.cfg.Save(); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

func (rt *runtime) Close() {
	if err := rt.engine.Close(); err != nil {
		slog.Error("close engine", "error", err)
	}
	if rt.store != nil {
		if err := rt.store.Close(); err != nil {
			slog.Error("close history", "error", err)
		}
	}
}
