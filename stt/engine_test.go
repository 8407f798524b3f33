package stt

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeProvider implements Provider for testing the engine cache.
type fakeProvider struct {
	name       string
	ready      bool
	setupCalls int32
	closed     int32
	result     *TranscribeResult
	err        error
}

func (f *fakeProvider) Name() string        { return f.name }
func (f *fakeProvider) DisplayName() string { return f.name }
func (f *fakeProvider) IsLocal() bool       { return true }
func (f *fakeProvider) IsReady() bool       { return f.ready }

func (f *fakeProvider) Setup(_ func(int)) error {
	atomic.AddInt32(&f.setupCalls, 1)
	f.ready = true
	return nil
}

func (f *fakeProvider) Transcribe(_ []float32, _ string) (*TranscribeResult, error) {
	return f.result, f.err
}

func (f *fakeProvider) Close() error {
	atomic.AddInt32(&f.closed, 1)
	return nil
}

// makeClip returns a silent clip of the given duration at 16kHz.
func makeClip(d time.Duration) []float32 {
	return make([]float32, int(d.Seconds()*16000))
}

func newTestEngine(t *testing.T, factory ProviderFactory) *Engine {
	t.Helper()
	e, err := NewEngine(EngineConfig{
		ModelSize: "base",
		Factory:   factory,
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestEngineLazyLoadOnce(t *testing.T) {
	var loads int32
	fake := &fakeProvider{name: "fake", result: &TranscribeResult{Text: "hello"}}

	e := newTestEngine(t, func(size string) (Provider, error) {
		atomic.AddInt32(&loads, 1)
		return fake, nil
	})

	if n := atomic.LoadInt32(&loads); n != 0 {
		t.Fatalf("provider loaded eagerly: %d loads", n)
	}

	for i := 0; i < 3; i++ {
		result, err := e.Transcribe(makeClip(time.Second), "")
		if err != nil {
			t.Fatalf("Transcribe: %v", err)
		}
		if result.Text != "hello" {
			t.Errorf("Text = %q, want %q", result.Text, "hello")
		}
	}

	if n := atomic.LoadInt32(&loads); n != 1 {
		t.Errorf("got %d loads, want 1", n)
	}
	if n := atomic.LoadInt32(&fake.setupCalls); n != 1 {
		t.Errorf("got %d setup calls, want 1", n)
	}
}

func TestEngineRejectsShortClip(t *testing.T) {
	var loads int32
	e := newTestEngine(t, func(size string) (Provider, error) {
		atomic.AddInt32(&loads, 1)
		return &fakeProvider{name: "fake", ready: true}, nil
	})

	tests := []struct {
		name    string
		clip    []float32
		wantErr error
	}{
		{"empty", nil, ErrClipTooShort},
		{"50ms", makeClip(50 * time.Millisecond), ErrClipTooShort},
		{"just_below_threshold", makeClip(199 * time.Millisecond), ErrClipTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Transcribe(tt.clip, "")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// Degenerate clips must never touch the model
	if n := atomic.LoadInt32(&loads); n != 0 {
		t.Errorf("got %d loads, want 0", n)
	}
}

func TestEngineModelSwitchInvalidates(t *testing.T) {
	var loads int32
	providers := map[string]*fakeProvider{}
	var mu sync.Mutex

	e := newTestEngine(t, func(size string) (Provider, error) {
		atomic.AddInt32(&loads, 1)
		p := &fakeProvider{name: size, ready: true, result: &TranscribeResult{Text: size}}
		mu.Lock()
		providers[size] = p
		mu.Unlock()
		return p, nil
	})

	if _, err := e.Transcribe(makeClip(time.Second), ""); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	e.SetModelSize("turbo")
	if e.ModelSize() != "turbo" {
		t.Fatalf("ModelSize = %q, want %q", e.ModelSize(), "turbo")
	}

	result, err := e.Transcribe(makeClip(time.Second), "")
	if err != nil {
		t.Fatalf("Transcribe after switch: %v", err)
	}
	if result.Text != "turbo" {
		t.Errorf("Text = %q, want %q (new model not loaded)", result.Text, "turbo")
	}

	// Exactly one load per selection, old provider closed
	if n := atomic.LoadInt32(&loads); n != 2 {
		t.Errorf("got %d loads, want 2", n)
	}

	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt32(&providers["base"].closed) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if atomic.LoadInt32(&providers["base"].closed) == 0 {
		t.Error("old provider was not closed after model switch")
	}
}

func TestEngineSetSameSizeKeepsCache(t *testing.T) {
	var loads int32
	e := newTestEngine(t, func(size string) (Provider, error) {
		atomic.AddInt32(&loads, 1)
		return &fakeProvider{name: size, ready: true, result: &TranscribeResult{}}, nil
	})

	if _, err := e.Transcribe(makeClip(time.Second), ""); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	e.SetModelSize("base") // no-op
	if _, err := e.Transcribe(makeClip(time.Second), ""); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if n := atomic.LoadInt32(&loads); n != 1 {
		t.Errorf("got %d loads, want 1", n)
	}
}

func TestEngineConcurrentLoadSingleFlight(t *testing.T) {
	var loads int32
	e := newTestEngine(t, func(size string) (Provider, error) {
		atomic.AddInt32(&loads, 1)
		time.Sleep(20 * time.Millisecond) // widen the race window
		return &fakeProvider{name: size, ready: true, result: &TranscribeResult{}}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.Transcribe(makeClip(time.Second), ""); err != nil {
				t.Errorf("Transcribe: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt32(&loads); n != 1 {
		t.Errorf("got %d concurrent loads, want 1", n)
	}
}

func TestEngineStaleLoadClosedExactlyOnce(t *testing.T) {
	gate := make(chan struct{})
	var mu sync.Mutex
	var created []*fakeProvider
	baseLoads := 0

	e := newTestEngine(t, func(size string) (Provider, error) {
		mu.Lock()
		if size == "base" {
			baseLoads++
		}
		p := &fakeProvider{name: size, ready: true, result: &TranscribeResult{Text: size}}
		created = append(created, p)
		mu.Unlock()
		if size == "base" {
			<-gate // hold base loads until the selection changes
		}
		return p, nil
	})

	var wg sync.WaitGroup
	results := make([]string, 4)
	for i := 0; i < 4; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := e.Transcribe(makeClip(time.Second), "")
			if err != nil {
				t.Errorf("Transcribe: %v", err)
				return
			}
			results[i] = r.Text
		}()
	}

	// Wait for the base load to be in flight, then switch models under it.
	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		started := baseLoads > 0
		mu.Unlock()
		if started || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}

	e.SetModelSize("turbo")
	close(gate)
	wg.Wait()

	// Every caller sharing the stale flight is served by the new selection.
	for i, text := range results {
		if text != "turbo" {
			t.Errorf("results[%d] = %q, want %q", i, text, "turbo")
		}
	}

	// Exactly one provider survives as the cache; every discarded one is
	// closed exactly once, never by multiple callers.
	mu.Lock()
	defer mu.Unlock()
	open := 0
	for _, p := range created {
		switch n := atomic.LoadInt32(&p.closed); n {
		case 0:
			open++
			if p.name != "turbo" {
				t.Errorf("open provider is %q, want turbo", p.name)
			}
		case 1:
		default:
			t.Errorf("provider %q closed %d times", p.name, n)
		}
	}
	if open != 1 {
		t.Errorf("open providers = %d, want exactly the active one", open)
	}
}

func TestEngineLoadFailure(t *testing.T) {
	wantErr := errors.New("model not found")
	e := newTestEngine(t, func(size string) (Provider, error) {
		return nil, wantErr
	})

	_, err := e.Transcribe(makeClip(time.Second), "")
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want wrapped %v", err, wantErr)
	}
}
