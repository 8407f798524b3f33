// Package stt provides speech-to-text provider interface and implementations.
package stt

import "time"

// TranscribeResult represents the result of a transcription.
type TranscribeResult struct {
	Text       string    `json:"text"`       // Transcribed text
	Language   string    `json:"language"`   // Detected language code
	Confidence float64   `json:"confidence"` // Recognition confidence 0-1
	Segments   []Segment `json:"segments"`   // Time-stamped segments
}

// Segment represents a time-stamped audio segment.
type Segment struct {
	Text  string        `json:"text"`
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
}

// Provider defines the interface for speech-to-text providers.
// Both local (whisper.cpp) and remote (OpenAI API) implementations
// must satisfy this interface.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// DisplayName returns the human-readable provider name.
	DisplayName() string

	// IsLocal returns true if the provider runs locally without API calls.
	IsLocal() bool

	// IsReady returns true if the provider can transcribe without further setup.
	IsReady() bool

	// Setup performs initialization (e.g., download a model artifact).
	// The progress callback receives percentage (0-100).
	Setup(progress func(percent int)) error

	// Transcribe converts audio samples to text.
	// audio: PCM float32 samples at 16000 Hz sample rate
	// language: source language code (empty for auto-detect)
	Transcribe(audio []float32, language string) (*TranscribeResult, error)

	// Close releases resources held by the provider.
	Close() error
}
