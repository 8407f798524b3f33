package audiocapture

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"
)

const framesPerBuffer = 1024

// portAudioImpl captures from the default input device via PortAudio.
type portAudioImpl struct {
	mu     sync.Mutex
	stream *portaudio.Stream
	done   chan struct{}
}

func newPortAudioImpl() *portAudioImpl {
	return &portAudioImpl{}
}

func (p *portAudioImpl) start(sampleRate int, handler func(samples []float32)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initialize portaudio: %w", err)
	}

	buffer := make([]int16, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), framesPerBuffer, buffer)
	if err != nil {
		_ = portaudio.Terminate()
		if isNoDeviceErr(err) {
			return fmt.Errorf("%w: %v", ErrNoInputDevice, err)
		}
		return fmt.Errorf("open input stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return fmt.Errorf("start input stream: %w", err)
	}

	p.stream = stream
	p.done = make(chan struct{})

	go p.readLoop(stream, buffer, handler, p.done)
	return nil
}

func (p *portAudioImpl) readLoop(stream *portaudio.Stream, buffer []int16, handler func([]float32), done chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
		}

		if err := stream.Read(); err != nil {
			// Overflows are expected when the consumer lags briefly
			if err == portaudio.InputOverflowed {
				continue
			}
			select {
			case <-done:
			default:
				slog.Warn("read input stream", "error", err)
			}
			return
		}

		handler(int16ToFloat32(buffer))
	}
}

func (p *portAudioImpl) stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return nil
	}

	close(p.done)
	err := p.stream.Stop()
	if cerr := p.stream.Close(); err == nil {
		err = cerr
	}
	p.stream = nil

	if terr := portaudio.Terminate(); err == nil {
		err = terr
	}
	return err
}

// isNoDeviceErr reports whether a PortAudio error indicates a missing input device.
func isNoDeviceErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no device") ||
		strings.Contains(msg, "invalid device") ||
		strings.Contains(msg, "device unavailable")
}
