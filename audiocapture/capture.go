// Package audiocapture provides microphone capture for recording sessions.
package audiocapture

import (
	"errors"
	"sync"
	"time"
)

// ErrRunning is returned when trying to start a recording while one is active.
var ErrRunning = errors.New("audiocapture: already recording")

// ErrNotRunning is returned when trying to stop without an active recording.
var ErrNotRunning = errors.New("audiocapture: not recording")

// ErrNoInputDevice is returned when no microphone is available.
var ErrNoInputDevice = errors.New("audiocapture: no input device available")

// DefaultSampleRate is the capture sample rate. Whisper expects 16kHz.
const DefaultSampleRate = 16000

// captureImpl is the backend capture implementation interface.
type captureImpl interface {
	start(sampleRate int, handler func(samples []float32)) error
	stop() error
}

// Recorder captures microphone audio into an in-memory session buffer.
// Start opens the input stream and begins accumulating samples; Stop closes
// the stream and returns the completed buffer. A recording that ends before
// any frames arrive yields an empty but valid buffer.
type Recorder struct {
	sampleRate int
	impl       captureImpl

	mu        sync.Mutex
	recording bool
	startTime time.Time
	samples   []float32
}

// New creates a Recorder using the default microphone backend.
func New(sampleRate int) (*Recorder, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return newRecorder(sampleRate, newPortAudioImpl()), nil
}

func newRecorder(sampleRate int, impl captureImpl) *Recorder {
	return &Recorder{
		sampleRate: sampleRate,
		impl:       impl,
		samples:    make([]float32, 0, sampleRate*10),
	}
}

// Start opens the input stream and begins buffering.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return ErrRunning
	}

	r.samples = r.samples[:0]
	if err := r.impl.start(r.sampleRate, r.appendSamples); err != nil {
		return err
	}

	r.recording = true
	r.startTime = time.Now()
	return nil
}

// Stop closes the input stream and returns the captured buffer.
func (r *Recorder) Stop() ([]float32, error) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return nil, ErrNotRunning
	}
	r.recording = false
	r.mu.Unlock()

	// Stop outside the lock: the backend may flush a final buffer through
	// the handler before returning.
	err := r.impl.stop()

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]float32, len(r.samples))
	copy(out, r.samples)
	r.samples = r.samples[:0]
	return out, err
}

// IsRecording returns true while a session is active.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Duration returns how long the current recording has been running.
func (r *Recorder) Duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return 0
	}
	return time.Since(r.startTime)
}

// SampleRate returns the configured sample rate.
func (r *Recorder) SampleRate() int {
	return r.sampleRate
}

func (r *Recorder) appendSamples(samples []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, samples...)
}

// int16ToFloat32 converts PCM int16 samples to float32 in [-1, 1].
func int16ToFloat32(in []int16) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v) / 32768.0
	}
	return out
}
