// Package app orchestrates the dictation pipeline: hotkey events drive
// recording, transcription, and text insertion.
package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"go.aimuz.me/murmur/audiocapture"
	"go.aimuz.me/murmur/history"
	"go.aimuz.me/murmur/hotkey"
	"go.aimuz.me/murmur/insert"
	"go.aimuz.me/murmur/stt"
)

// State is the pipeline state.
type State int

const (
	// StateIdle means no session is active.
	StateIdle State = iota
	// StateRecording means the microphone is capturing.
	StateRecording
	// StateTranscribing means a finished recording is being transcribed.
	StateTranscribing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateTranscribing:
		return "transcribing"
	default:
		return "unknown"
	}
}

// Recorder captures microphone audio between Start and Stop.
type Recorder interface {
	Start() error
	Stop() ([]float32, error)
	SampleRate() int
}

// Transcriber converts captured audio to text.
type Transcriber interface {
	Transcribe(audio []float32, language string) (*stt.TranscribeResult, error)
}

// Inserter delivers text to the focused application.
type Inserter interface {
	Insert(text string) error
}

// Notifier posts user-facing messages.
type Notifier interface {
	Notify(title, message string)
}

// History records completed sessions. Failures are logged, never surfaced.
type History interface {
	Add(history.Entry) error
}

// Config wires the pipeline components.
type Config struct {
	Recorder Recorder
	Engine   Transcriber
	Inserter Inserter
	Notifier Notifier
	History  History // optional

	Language  string
	ModelSize string
}

// Service runs the dictation state machine. One session at a time: hotkey
// events arriving outside the expected state are dropped.
type Service struct {
	recorder Recorder
	engine   Transcriber
	inserter Inserter
	notifier Notifier
	history  History

	mu        sync.Mutex
	state     State
	sessionID string
	started   time.Time
	language  string
	modelSize string

	sessions      int
	recordedTotal time.Duration

	onState     func(State)
	stateQueue  []State
	dispatching bool
	wg          sync.WaitGroup
}

// New creates a Service in the idle state.
func New(cfg Config) *Service {
	return &Service{
		recorder:  cfg.Recorder,
		engine:    cfg.Engine,
		inserter:  cfg.Inserter,
		notifier:  cfg.Notifier,
		history:   cfg.History,
		language:  cfg.Language,
		modelSize: cfg.ModelSize,
	}
}

// State returns the current pipeline state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OnStateChange registers a callback invoked on every state transition.
// Must be set before Run. Callbacks are delivered one at a time, in
// transition order, on a dispatch goroutine.
func (s *Service) OnStateChange(fn func(State)) {
	s.onState = fn
}

// SetLanguage changes the transcription language for future sessions.
func (s *Service) SetLanguage(lang string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = lang
}

// SetModelSize records the model label stored with future sessions.
func (s *Service) SetModelSize(size string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modelSize = size
}

// Run consumes hotkey events until ctx is canceled, then waits for any
// in-flight transcription to finish and logs the session totals.
func (s *Service) Run(ctx context.Context, events <-chan hotkey.Event) {
	defer func() {
		s.wg.Wait()
		s.mu.Lock()
		sessions, recorded := s.sessions, s.recordedTotal
		s.mu.Unlock()
		slog.Info("session summary", "sessions", sessions, "recorded", recorded.Round(time.Millisecond))
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.HandleEvent(ev)
		}
	}
}

// HandleEvent advances the state machine for one hotkey event.
func (s *Service) HandleEvent(ev hotkey.Event) {
	switch ev.Type {
	case hotkey.RecordStart:
		s.startRecording()
	case hotkey.RecordStop:
		s.stopRecording()
	}
}

func (s *Service) startRecording() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		slog.Debug("record start ignored", "state", s.state)
		return
	}

	if err := s.recorder.Start(); err != nil {
		slog.Error("start recording", "error", err)
		s.notifier.Notify("Recording failed", recordErrorMessage(err))
		return
	}

	s.sessionID = uuid.NewString()
	s.started = time.Now()
	s.setStateLocked(StateRecording)
	slog.Info("session started", "session", s.sessionID)
}

func (s *Service) stopRecording() {
	s.mu.Lock()

	if s.state != StateRecording {
		s.mu.Unlock()
		slog.Debug("record stop ignored", "state", s.state)
		return
	}

	samples, err := s.recorder.Stop()
	if err != nil {
		slog.Error("stop recording", "error", err)
		s.notifier.Notify("Recording failed", "Could not read captured audio.")
		s.setStateLocked(StateIdle)
		s.mu.Unlock()
		return
	}

	id := s.sessionID
	lang := s.language
	model := s.modelSize
	held := time.Since(s.started)
	s.sessions++
	s.recordedTotal += held
	s.setStateLocked(StateTranscribing)
	s.mu.Unlock()

	audioDur := time.Duration(len(samples)) * time.Second / time.Duration(s.recorder.SampleRate())
	slog.Info("session captured", "session", id, "held", held.Round(time.Millisecond), "audio", audioDur.Round(time.Millisecond))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.finishSession(id, samples, audioDur, lang, model)
	}()
}

// finishSession transcribes and inserts. Every exit path returns the
// pipeline to idle so the next hotkey press starts fresh.
func (s *Service) finishSession(id string, samples []float32, audioDur time.Duration, lang, model string) {
	defer s.setState(StateIdle)

	result, err := s.engine.Transcribe(samples, lang)
	if err != nil {
		if errors.Is(err, stt.ErrClipTooShort) {
			slog.Debug("session discarded", "session", id, "audio", audioDur)
			return
		}
		slog.Error("transcribe", "session", id, "error", err)
		s.notifier.Notify("Transcription failed", "Try again; see the log for details.")
		return
	}

	text := result.Text
	if text == "" {
		slog.Info("session empty", "session", id)
		s.notifier.Notify("No speech detected", "Nothing was transcribed from the recording.")
		return
	}

	if s.history != nil {
		err := s.history.Add(history.Entry{
			ID:            id,
			Text:          text,
			ModelSize:     model,
			Language:      result.Language,
			AudioDuration: audioDur,
		})
		if err != nil {
			slog.Warn("record history", "session", id, "error", err)
		}
	}

	if err := s.inserter.Insert(text); err != nil {
		slog.Error("insert text", "session", id, "error", err)
		if errors.Is(err, insert.ErrInsertionBlocked) {
			s.notifier.Notify("Text copied to clipboard", "The focused app rejected keystrokes. Paste to insert.")
		} else {
			s.notifier.Notify("Insertion failed", "Could not deliver text to the focused app.")
		}
		return
	}

	slog.Info("session inserted", "session", id, "chars", len(text))
}

func recordErrorMessage(err error) string {
	if errors.Is(err, audiocapture.ErrNoInputDevice) {
		return "No microphone is available."
	}
	return "Could not start the microphone."
}

func (s *Service) setState(st State) {
	s.mu.Lock()
	s.setStateLocked(st)
	s.mu.Unlock()
}

// setStateLocked requires s.mu held. Callbacks are queued and delivered by
// a single dispatcher so the observer sees transitions in order.
func (s *Service) setStateLocked(st State) {
	if s.state == st {
		return
	}
	s.state = st
	if s.onState == nil {
		return
	}
	s.stateQueue = append(s.stateQueue, st)
	if s.dispatching {
		return
	}
	s.dispatching = true
	go s.dispatchStates()
}

// dispatchStates drains the callback queue off the service lock.
func (s *Service) dispatchStates() {
	for {
		s.mu.Lock()
		if len(s.stateQueue) == 0 {
			s.dispatching = false
			s.mu.Unlock()
			return
		}
		st := s.stateQueue[0]
		s.stateQueue = s.stateQueue[1:]
		s.mu.Unlock()

		s.onState(st)
	}
}
