package audiocapture

import (
	"errors"
	"testing"
)

// fakeImpl is a scriptable capture backend for tests.
type fakeImpl struct {
	startErr error
	stopErr  error
	handler  func([]float32)
	started  bool
	stopped  bool
}

func (f *fakeImpl) start(sampleRate int, handler func(samples []float32)) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.handler = handler
	f.started = true
	return nil
}

func (f *fakeImpl) stop() error {
	f.stopped = true
	return f.stopErr
}

func TestRecorderStartStop(t *testing.T) {
	impl := &fakeImpl{}
	r := newRecorder(16000, impl)

	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !r.IsRecording() {
		t.Fatal("IsRecording = false after Start")
	}

	impl.handler([]float32{0.1, 0.2})
	impl.handler([]float32{0.3})

	buf, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if len(buf) != 3 {
		t.Fatalf("got %d samples, want 3", len(buf))
	}
	if buf[2] != 0.3 {
		t.Errorf("buf[2] = %v, want 0.3", buf[2])
	}
	if !impl.stopped {
		t.Error("backend not stopped")
	}
}

func TestRecorderZeroLengthRecording(t *testing.T) {
	r := newRecorder(16000, &fakeImpl{})

	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Released within one polling interval: no frames arrived
	buf, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if buf == nil {
		t.Fatal("got nil buffer, want empty valid buffer")
	}
	if len(buf) != 0 {
		t.Fatalf("got %d samples, want 0", len(buf))
	}
}

func TestRecorderDoubleStart(t *testing.T) {
	r := newRecorder(16000, &fakeImpl{})

	if err := r.Start(); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := r.Start(); !errors.Is(err, ErrRunning) {
		t.Fatalf("second Start err = %v, want ErrRunning", err)
	}
}

func TestRecorderStopWithoutStart(t *testing.T) {
	r := newRecorder(16000, &fakeImpl{})

	if _, err := r.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("Stop err = %v, want ErrNotRunning", err)
	}
}

func TestRecorderStartFailureLeavesIdle(t *testing.T) {
	impl := &fakeImpl{startErr: ErrNoInputDevice}
	r := newRecorder(16000, impl)

	if err := r.Start(); !errors.Is(err, ErrNoInputDevice) {
		t.Fatalf("Start err = %v, want ErrNoInputDevice", err)
	}
	if r.IsRecording() {
		t.Error("IsRecording = true after failed Start")
	}

	// The recorder must stay usable for the next session
	impl.startErr = nil
	if err := r.Start(); err != nil {
		t.Fatalf("Start after recovery: %v", err)
	}
}

func TestRecorderBufferClearedBetweenSessions(t *testing.T) {
	impl := &fakeImpl{}
	r := newRecorder(16000, impl)

	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	impl.handler([]float32{0.5, 0.5})
	if _, err := r.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if err := r.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	impl.handler([]float32{0.1})
	buf, err := r.Stop()
	if err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	if len(buf) != 1 {
		t.Fatalf("got %d samples, want 1 (stale buffer leaked)", len(buf))
	}
}

func TestInt16ToFloat32(t *testing.T) {
	in := []int16{0, 16384, -16384, 32767, -32768}
	out := int16ToFloat32(in)

	if len(out) != len(in) {
		t.Fatalf("got %d samples, want %d", len(out), len(in))
	}
	if out[0] != 0 {
		t.Errorf("out[0] = %v, want 0", out[0])
	}
	if out[1] != 0.5 {
		t.Errorf("out[1] = %v, want 0.5", out[1])
	}
	if out[4] != -1.0 {
		t.Errorf("out[4] = %v, want -1.0", out[4])
	}
}
