package stt

import (
	"path/filepath"
	"testing"
	"time"
)

func TestValidModelSize(t *testing.T) {
	for _, size := range ModelSizeNames() {
		if !ValidModelSize(size) {
			t.Errorf("ValidModelSize(%q) = false", size)
		}
	}
	if ValidModelSize("gigantic") {
		t.Error("ValidModelSize(\"gigantic\") = true")
	}
}

func TestNewWhisperLocalInvalidSize(t *testing.T) {
	_, err := NewWhisperLocal(WhisperLocalConfig{ModelSize: "huge"})
	if err == nil {
		t.Fatal("expected error for invalid model size")
	}
}

func TestNewWhisperLocalModelPath(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWhisperLocal(WhisperLocalConfig{
		ModelSize: "turbo",
		ModelDir:  dir,
		BinPath:   "/nonexistent/whisper-cli",
	})
	if err != nil {
		t.Fatalf("NewWhisperLocal: %v", err)
	}

	want := filepath.Join(dir, "ggml-large-v3-turbo.bin")
	if w.modelPath != want {
		t.Errorf("modelPath = %q, want %q", w.modelPath, want)
	}
	if w.IsReady() {
		t.Error("provider reported ready with no cached model")
	}
}

func TestParseWhisperOutput(t *testing.T) {
	data := []byte(`{
		"result": {"language": "en"},
		"transcription": [
			{"text": " Hello", "offsets": {"from": 0, "to": 1200}},
			{"text": " world.", "offsets": {"from": 1200, "to": 2400}}
		]
	}`)

	result, err := parseWhisperOutput(data)
	if err != nil {
		t.Fatalf("parseWhisperOutput: %v", err)
	}

	if result.Text != "Hello world." {
		t.Errorf("Text = %q, want %q", result.Text, "Hello world.")
	}
	if result.Language != "en" {
		t.Errorf("Language = %q, want %q", result.Language, "en")
	}
	if len(result.Segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(result.Segments))
	}
	if result.Segments[1].Start != 1200*time.Millisecond {
		t.Errorf("Segments[1].Start = %v, want %v", result.Segments[1].Start, 1200*time.Millisecond)
	}
}

func TestFloat32ToWAVHeader(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 2.0, -2.0} // includes out-of-range values
	data, err := float32ToWAV(samples, 16000)
	if err != nil {
		t.Fatalf("float32ToWAV: %v", err)
	}

	if len(data) != 44+len(samples)*2 {
		t.Errorf("got %d bytes, want %d", len(data), 44+len(samples)*2)
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE header")
	}

	// Clamped sample at index 3 must be int16 max
	off := 44 + 3*2
	v := int16(uint16(data[off]) | uint16(data[off+1])<<8)
	if v != 32767 {
		t.Errorf("clamped sample = %d, want 32767", v)
	}
}
