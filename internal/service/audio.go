package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloo-solutions/docuchat/internal/domain"
)

// ttsRequest is the payload sent to the external synthesis endpoint.
type ttsRequest struct {
	Text string `json:"text"`
}

// AudioService proxies text-to-speech to an external endpoint and
// stubs speech-to-text. Neither touches the answer pipeline.
type AudioService struct {
	client      *http.Client
	ttsEndpoint string
}

// NewAudioService creates an AudioService. ttsEndpoint may be empty,
// in which case synthesis is reported unavailable.
func NewAudioService(ttsEndpoint string, timeout time.Duration) *AudioService {
	return &AudioService{
		client:      &http.Client{Timeout: timeout},
		ttsEndpoint: ttsEndpoint,
	}
}

// Synthesize posts the text to the configured endpoint and returns the
// audio bytes with their content type.
func (s *AudioService) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, "", domain.ErrEmptyText
	}
	if s.ttsEndpoint == "" {
		return nil, "", domain.NewDomainError(domain.ErrCodeValidation, "text-to-speech endpoint is not configured")
	}

	payload, err := json.Marshal(ttsRequest{Text: text})
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal tts request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.ttsEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, "", fmt.Errorf("failed to build tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("tts endpoint returned status %d", resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read tts response: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	return audio, contentType, nil
}

// Transcribe is a stub. Speech-to-text has no backing provider yet,
// so every request gets the same placeholder text.
func (s *AudioService) Transcribe(ctx context.Context, audio []byte) (string, error) {
	return "This is a placeholder for speech-to-text functionality.", nil
}
