// Package stt provides speech-to-text provider interface and implementations.
package stt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// ErrBinaryNotFound is returned when no whisper.cpp binary is installed.
var ErrBinaryNotFound = errors.New("whisper-cpp binary not found, install with: brew install whisper-cpp")

// WhisperLocal implements the Provider interface using local whisper.cpp.
// It uses the whisper-cpp CLI tool for transcription. Model artifacts are
// downloaded on first use into a per-size on-disk cache and reused afterwards.
type WhisperLocal struct {
	modelPath string
	modelSize string // "tiny", "base", "small", "medium", "large", "turbo"
	binPath   string // Path to whisper-cpp binary

	mu        sync.RWMutex
	ready     bool
	hasBinary bool
}

// WhisperLocalConfig holds configuration for WhisperLocal.
type WhisperLocalConfig struct {
	ModelSize string // "tiny", "base", "small", "medium", "large", "turbo"
	ModelDir  string // Directory to store models (defaults to the user cache dir)
	BinPath   string // Path to whisper-cpp binary (optional, discovered if not set)
}

// Model sizes, their artifact URLs and approximate download sizes.
var modelSizes = map[string]struct {
	File string
	URL  string
	Size int64 // Approximate size in bytes
}{
	"tiny":   {"ggml-tiny.bin", "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-tiny.bin", 75 * 1024 * 1024},
	"base":   {"ggml-base.bin", "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.bin", 150 * 1024 * 1024},
	"small":  {"ggml-small.bin", "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-small.bin", 500 * 1024 * 1024},
	"medium": {"ggml-medium.bin", "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-medium.bin", 1500 * 1024 * 1024},
	"large":  {"ggml-large-v3.bin", "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v3.bin", 3000 * 1024 * 1024},
	"turbo":  {"ggml-large-v3-turbo.bin", "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v3-turbo.bin", 1600 * 1024 * 1024},
}

// ValidModelSize reports whether size names a known whisper model variant.
func ValidModelSize(size string) bool {
	_, ok := modelSizes[size]
	return ok
}

// ModelSizeNames lists the known model variants in speed order.
func ModelSizeNames() []string {
	return []string{"tiny", "base", "small", "medium", "large", "turbo"}
}

// NewWhisperLocal creates a new WhisperLocal provider.
func NewWhisperLocal(cfg WhisperLocalConfig) (*WhisperLocal, error) {
	if cfg.ModelSize == "" {
		cfg.ModelSize = "turbo"
	}

	info, ok := modelSizes[cfg.ModelSize]
	if !ok {
		return nil, fmt.Errorf("invalid model size: %s", cfg.ModelSize)
	}

	if cfg.ModelDir == "" {
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("get cache dir: %w", err)
		}
		cfg.ModelDir = filepath.Join(cacheDir, "murmur", "models")
	}

	w := &WhisperLocal{
		modelSize: cfg.ModelSize,
		modelPath: filepath.Join(cfg.ModelDir, info.File),
		binPath:   cfg.BinPath,
	}

	if w.binPath == "" {
		w.binPath = findWhisperBinary()
	}
	w.hasBinary = w.binPath != ""

	// Ready only if both binary and cached model artifact exist
	if _, err := os.Stat(w.modelPath); err == nil && w.hasBinary {
		w.ready = true
	}

	return w, nil
}

func (w *WhisperLocal) Name() string { return "whisper-local" }

func (w *WhisperLocal) DisplayName() string {
	return fmt.Sprintf("Whisper Local (%s)", w.modelSize)
}

func (w *WhisperLocal) IsLocal() bool { return true }

// HasBinary returns true if a whisper-cpp binary is available.
func (w *WhisperLocal) HasBinary() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.hasBinary
}

func (w *WhisperLocal) IsReady() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.ready
}

// Setup downloads the whisper model artifact if it is not already cached.
func (w *WhisperLocal) Setup(progress func(percent int)) error {
	w.mu.Lock()
	if w.ready {
		w.mu.Unlock()
		return nil
	}
	hasBinary := w.hasBinary
	w.mu.Unlock()

	if !hasBinary {
		return ErrBinaryNotFound
	}

	info := modelSizes[w.modelSize]

	if err := os.MkdirAll(filepath.Dir(w.modelPath), 0755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}

	if _, err := os.Stat(w.modelPath); err != nil {
		if err := w.downloadModel(info.URL, info.Size, progress); err != nil {
			return fmt.Errorf("download model: %w", err)
		}
	}

	w.mu.Lock()
	w.ready = true
	w.mu.Unlock()

	if progress != nil {
		progress(100)
	}

	return nil
}

func (w *WhisperLocal) downloadModel(url string, expectedSize int64, progress func(percent int)) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http status: %d", resp.StatusCode)
	}

	// Download to a temp file, rename into place once complete
	tmpPath := w.modelPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath) // Clean up on failure
	}()

	var downloaded int64
	buf := make([]byte, 32*1024)
	lastProgress := 0

	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write file: %w", werr)
			}
			downloaded += int64(n)

			if expectedSize > 0 && progress != nil {
				pct := int(downloaded * 100 / expectedSize)
				if pct > lastProgress && pct <= 100 {
					lastProgress = pct
					progress(pct)
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}

	if err := os.Rename(tmpPath, w.modelPath); err != nil {
		return fmt.Errorf("rename file: %w", err)
	}

	return nil
}

// Transcribe converts audio samples to text using local whisper.cpp.
// audio: PCM float32 samples at 16000 Hz
// language: source language code (empty for auto-detect)
func (w *WhisperLocal) Transcribe(audio []float32, language string) (*TranscribeResult, error) {
	if !w.IsReady() {
		return nil, fmt.Errorf("whisper local not ready: model %s not downloaded", w.modelSize)
	}

	wavData, err := float32ToWAV(audio, 16000)
	if err != nil {
		return nil, fmt.Errorf("convert to WAV: %w", err)
	}

	audioPath := filepath.Join(os.TempDir(), fmt.Sprintf("murmur_audio_%d.wav", time.Now().UnixNano()))
	if err := os.WriteFile(audioPath, wavData, 0644); err != nil {
		return nil, fmt.Errorf("write audio file: %w", err)
	}
	defer os.Remove(audioPath)

	args := []string{
		"-m", w.modelPath,
		"-f", audioPath,
		"-oj", // Output JSON
		"--no-prints",
	}
	if language != "" && language != "auto" {
		args = append(args, "-l", language)
	}

	cmd := exec.Command(w.binPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("whisper-cpp failed: %w, stderr: %s", err, stderr.String())
	}

	// -oj writes the JSON next to the input file
	jsonPath := audioPath + ".json"
	defer os.Remove(jsonPath)

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		data = stdout.Bytes()
	}

	result, err := parseWhisperOutput(data)
	if err != nil {
		// whisper.cpp can emit plain text when JSON output is unavailable
		return &TranscribeResult{
			Text:       strings.TrimSpace(stdout.String()),
			Language:   language,
			Confidence: 0.8,
		}, nil
	}
	return result, nil
}

// parseWhisperOutput converts whisper.cpp JSON output into a TranscribeResult.
func parseWhisperOutput(data []byte) (*TranscribeResult, error) {
	var out whisperCppOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}

	result := &TranscribeResult{
		Language:   out.Result.Language,
		Confidence: 0.9,
		Segments:   make([]Segment, 0, len(out.Transcription)),
	}

	for _, seg := range out.Transcription {
		result.Text += seg.Text
		result.Segments = append(result.Segments, Segment{
			Text:  seg.Text,
			Start: time.Duration(seg.Offsets.From) * time.Millisecond,
			End:   time.Duration(seg.Offsets.To) * time.Millisecond,
		})
	}
	result.Text = strings.TrimSpace(result.Text)

	return result, nil
}

func findWhisperBinary() string {
	// Common binary names - whisper-cli is the Homebrew name
	names := []string{"whisper-cli", "whisper-cpp", "whisper", "main"}

	// Check PATH
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	// Check common installation locations
	homeDir, _ := os.UserHomeDir()
	locations := []string{
		"/opt/homebrew/bin",
		"/usr/local/bin",
		filepath.Join(homeDir, ".local", "bin"),
		filepath.Join(homeDir, "whisper.cpp"),
	}

	for _, loc := range locations {
		for _, name := range names {
			path := filepath.Join(loc, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}

	// On macOS, check for a bundled binary inside the app bundle
	if runtime.GOOS == "darwin" {
		execPath, _ := os.Executable()
		bundlePath := filepath.Join(filepath.Dir(execPath), "..", "Resources", "whisper-cpp")
		if _, err := os.Stat(bundlePath); err == nil {
			return bundlePath
		}
	}

	return ""
}

func (w *WhisperLocal) Close() error {
	return nil
}

// whisperCppOutput represents the JSON output from whisper.cpp.
type whisperCppOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Text    string `json:"text"`
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
	} `json:"transcription"`
}
