// Package stt provides speech-to-text provider interface and implementations.
package stt

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// WhisperAPI implements the Provider interface using OpenAI's transcription API.
type WhisperAPI struct {
	client  openai.Client
	model   string
	apiKey  string
	timeout time.Duration
}

// WhisperAPIConfig holds configuration for WhisperAPI.
type WhisperAPIConfig struct {
	APIKey  string
	BaseURL string // Optional, defaults to OpenAI's API
	Model   string // Optional, defaults to "whisper-1"
}

// NewWhisperAPI creates a new WhisperAPI provider.
func NewWhisperAPI(cfg WhisperAPIConfig) *WhisperAPI {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = "whisper-1"
	}

	return &WhisperAPI{
		client:  openai.NewClient(opts...),
		model:   model,
		apiKey:  cfg.APIKey,
		timeout: 60 * time.Second,
	}
}

func (w *WhisperAPI) Name() string        { return "whisper-api" }
func (w *WhisperAPI) DisplayName() string { return "OpenAI Whisper API" }
func (w *WhisperAPI) IsLocal() bool       { return false }
func (w *WhisperAPI) IsReady() bool       { return w.apiKey != "" }

func (w *WhisperAPI) Setup(_ func(percent int)) error {
	// No setup needed for the API, just validate the API key exists
	if w.apiKey == "" {
		return fmt.Errorf("API key is required")
	}
	return nil
}

// Transcribe sends audio to the transcription API.
// audio: PCM float32 samples at 16000 Hz
// language: source language code (empty for auto-detect)
func (w *WhisperAPI) Transcribe(audio []float32, language string) (*TranscribeResult, error) {
	if !w.IsReady() {
		return nil, fmt.Errorf("whisper API not ready: API key required")
	}

	wavData, err := float32ToWAV(audio, 16000)
	if err != nil {
		return nil, fmt.Errorf("convert to WAV: %w", err)
	}

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(wavData), "audio.wav", "audio/wav"),
		Model: openai.AudioModel(w.model),
	}
	// The API rejects "auto"; an empty language means auto-detect
	if language != "" && language != "auto" {
		params.Language = openai.String(language)
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	resp, err := w.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("transcription request: %w", err)
	}

	return &TranscribeResult{
		Text:       strings.TrimSpace(resp.Text),
		Language:   language,
		Confidence: 1.0, // API doesn't return confidence, assume high
	}, nil
}

func (w *WhisperAPI) Close() error {
	return nil
}
