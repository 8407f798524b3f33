package stt

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrClipTooShort is returned for audio clips below the minimum duration.
var ErrClipTooShort = errors.New("audio clip below minimum duration")

// DefaultMinClip is the shortest clip worth feeding to a model.
const DefaultMinClip = 200 * time.Millisecond

// ProviderFactory builds a provider for the given model size.
type ProviderFactory func(modelSize string) (Provider, error)

// Engine wraps a Provider with lazy, cached loading keyed by model size.
// The first Transcribe call for a given size loads (and if necessary sets up)
// the provider; subsequent calls reuse it. Changing the model size invalidates
// the cached provider and triggers a reload on next use. Concurrent loads of
// the same size are collapsed into a single flight.
type Engine struct {
	factory    ProviderFactory
	sampleRate int
	minClip    time.Duration

	mu        sync.Mutex
	modelSize string
	provider  Provider

	sf singleflight.Group
}

// EngineConfig holds configuration for the Engine.
type EngineConfig struct {
	ModelSize  string          // Initial model selection
	SampleRate int             // Defaults to 16000
	MinClip    time.Duration   // Defaults to DefaultMinClip
	Factory    ProviderFactory // Required
}

// NewEngine creates an Engine. The provider is not loaded until first use.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Factory == nil {
		return nil, errors.New("stt: engine factory required")
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	if cfg.MinClip == 0 {
		cfg.MinClip = DefaultMinClip
	}
	return &Engine{
		factory:    cfg.Factory,
		sampleRate: cfg.SampleRate,
		minClip:    cfg.MinClip,
		modelSize:  cfg.ModelSize,
	}, nil
}

// ModelSize returns the current model selection.
func (e *Engine) ModelSize() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.modelSize
}

// SetModelSize switches the model selection. If it differs from the current
// one, the cached provider is invalidated and closed; the next Transcribe
// call loads the new model.
func (e *Engine) SetModelSize(size string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if size == e.modelSize {
		return
	}

	e.modelSize = size
	if e.provider != nil {
		old := e.provider
		e.provider = nil
		// Close off the lock path; an in-flight call may still hold a reference
		go func() {
			if err := old.Close(); err != nil {
				slog.Warn("close stt provider", "error", err)
			}
		}()
	}
}

// Transcribe runs speech recognition over the clip, loading the provider for
// the current model selection if needed. Clips shorter than the minimum
// duration are rejected with ErrClipTooShort without touching the model.
func (e *Engine) Transcribe(audio []float32, language string) (*TranscribeResult, error) {
	if clipDuration(len(audio), e.sampleRate) < e.minClip {
		return nil, ErrClipTooShort
	}

	provider, err := e.loadProvider()
	if err != nil {
		return nil, err
	}

	return provider.Transcribe(audio, language)
}

// loadProvider returns the cached provider for the current selection, loading
// it on first use. The loading flight owns the new provider until it is
// installed in the cache; a load made stale by a mid-flight selection change
// is closed inside the flight and the caller retries with the new selection,
// so callers never own or close a shared provider.
func (e *Engine) loadProvider() (Provider, error) {
	for {
		e.mu.Lock()
		size := e.modelSize
		if p := e.provider; p != nil {
			e.mu.Unlock()
			return p, nil
		}
		e.mu.Unlock()

		_, err, _ := e.sf.Do(size, func() (any, error) {
			p, err := e.factory(size)
			if err != nil {
				return nil, fmt.Errorf("load model %s: %w", size, err)
			}
			if !p.IsReady() {
				slog.Info("setting up stt provider", "provider", p.Name(), "model", size)
				if err := p.Setup(func(pct int) {
					if pct%10 == 0 {
						slog.Info("model setup progress", "model", size, "percent", pct)
					}
				}); err != nil {
					_ = p.Close()
					return nil, fmt.Errorf("setup model %s: %w", size, err)
				}
			}

			e.mu.Lock()
			stale := e.modelSize != size
			duplicate := !stale && e.provider != nil
			if !stale && !duplicate {
				e.provider = p
			}
			e.mu.Unlock()

			if stale || duplicate {
				if cerr := p.Close(); cerr != nil {
					slog.Warn("close stt provider", "error", cerr)
				}
			}
			return nil, nil
		})
		if err != nil {
			return nil, err
		}
		// Either the cache is populated now, or the selection changed and
		// the next pass loads the new size.
	}
}

// clipDuration converts a sample count to wall-clock duration.
func clipDuration(samples, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

// Close releases the cached provider, if any.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.provider == nil {
		return nil
	}
	err := e.provider.Close()
	e.provider = nil
	return err
}
