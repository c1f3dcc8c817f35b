package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	"github.com/cloo-solutions/docuchat/internal/api"
)

type AudioService interface {
	Synthesize(ctx context.Context, text string) ([]byte, string, error)
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// AudioHandler proxies text-to-speech and speech-to-text.
type AudioHandler struct {
	svc AudioService
}

func NewAudioHandler(svc AudioService) *AudioHandler {
	return &AudioHandler{svc: svc}
}

type SynthesizeRequest struct {
	Text string `json:"text"`
}

type SynthesizeResponse struct {
	Audio       string `json:"audio"`
	ContentType string `json:"content_type"`
}

// Synthesize returns the synthesized audio base64-encoded inside the
// JSON envelope so browser clients can decode it directly.
func (h *AudioHandler) Synthesize(w http.ResponseWriter, r *http.Request) {
	var req SynthesizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	audio, contentType, err := h.svc.Synthesize(r.Context(), req.Text)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, SynthesizeResponse{
		Audio:       base64.StdEncoding.EncodeToString(audio),
		ContentType: contentType,
	})
}

type TranscribeResponse struct {
	Text string `json:"text"`
}

func (h *AudioHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	audio, err := io.ReadAll(r.Body)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read audio body")
		return
	}

	text, err := h.svc.Transcribe(r.Context(), audio)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, TranscribeResponse{Text: text})
}
