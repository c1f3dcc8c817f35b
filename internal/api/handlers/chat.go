package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/docuchat/internal/api"
	"github.com/cloo-solutions/docuchat/internal/api/middleware"
	"github.com/cloo-solutions/docuchat/internal/domain"
	"github.com/cloo-solutions/docuchat/internal/ingest"
	"github.com/cloo-solutions/docuchat/internal/pagination"
	"github.com/cloo-solutions/docuchat/internal/service"
)

type IngestionService interface {
	Ingest(ctx context.Context, userID string, documents []ingest.Document) (*service.IngestResult, error)
}

type AnswerService interface {
	Answer(ctx context.Context, sessionID, question string) (*service.Answer, error)
}

type StreamAssembler interface {
	Stream(ctx context.Context, w io.Writer, text string, citations []domain.Citation) error
}

type HistoryService interface {
	Messages(ctx context.Context, sessionID string) ([]*domain.Message, error)
	Export(ctx context.Context, sessionID, format string) ([]byte, error)
}

type SessionService interface {
	List(ctx context.Context, userID string, limit int, cursor string) (*pagination.PageResult[service.SessionView], error)
	Get(ctx context.Context, id string) (*domain.Session, error)
}

type SummaryService interface {
	Summarize(ctx context.Context, sessionID string) (*service.DocumentSummary, error)
}

// ChatHandler exposes document upload, question answering, history,
// and export.
type ChatHandler struct {
	ingestion IngestionService
	answers   AnswerService
	stream    StreamAssembler
	history   HistoryService
	sessions  SessionService
	summaries SummaryService
}

func NewChatHandler(
	ingestion IngestionService,
	answers AnswerService,
	stream StreamAssembler,
	history HistoryService,
	sessions SessionService,
	summaries SummaryService,
) *ChatHandler {
	return &ChatHandler{
		ingestion: ingestion,
		answers:   answers,
		stream:    stream,
		history:   history,
		sessions:  sessions,
		summaries: summaries,
	}
}

// Upload accepts multipart PDF uploads under the "files" field and
// creates a fresh session over their contents.
func (h *ChatHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		api.Error(w, http.StatusBadRequest, "no files uploaded")
		return
	}

	documents := make([]ingest.Document, 0, len(files))
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			api.Error(w, http.StatusBadRequest, fmt.Sprintf("failed to open %s", header.Filename))
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			api.Error(w, http.StatusBadRequest, fmt.Sprintf("failed to read %s", header.Filename))
			return
		}
		documents = append(documents, ingest.Document{Name: header.Filename, Data: data})
	}

	result, err := h.ingestion.Ingest(r.Context(), userID, documents)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, result)
}

type AskRequest struct {
	Question string `json:"question"`
}

// Ask answers a question against a session and streams the response:
// answer text line by line, then the citation sentinel, then the
// citation payload as JSON.
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	answer, err := h.answers.Answer(r.Context(), sessionID, req.Question)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	// The turn is already recorded; a broken stream only loses
	// presentation, so the error is not reported to the client.
	_ = h.stream.Stream(r.Context(), w, answer.Text, answer.Citations)
}

type MessageResponse struct {
	ID        string            `json:"id"`
	Sender    string            `json:"sender"`
	Text      string            `json:"text"`
	Citations []domain.Citation `json:"citations,omitempty"`
	CreatedAt string            `json:"created_at"`
}

// Messages returns the ordered durable message log for a session.
// Unknown session ids are a 404, not an empty log.
func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if _, err := h.sessions.Get(r.Context(), sessionID); err != nil {
		api.HandleError(w, err)
		return
	}

	messages, err := h.history.Messages(r.Context(), sessionID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		responses = append(responses, MessageResponse{
			ID:        m.ID,
			Sender:    string(m.Sender),
			Text:      m.Text,
			Citations: m.Citations,
			CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	api.Success(w, http.StatusOK, responses)
}

// ListSessions returns one page of the caller's sessions.
func (h *ChatHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	page, err := h.sessions.List(r.Context(), userID, limit, r.URL.Query().Get("cursor"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, page)
}

// Export renders a session's history as JSON or a plain text
// transcript, delivered as a download.
func (h *ChatHandler) Export(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	format := r.URL.Query().Get("format")
	if format == "" {
		format = service.ExportFormatJSON
	}

	data, err := h.history.Export(r.Context(), sessionID, format)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	contentType := "application/json"
	if format == service.ExportFormatText {
		contentType = "text/plain; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=chat_export.%s", format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Summary reports what documents a session has indexed.
func (h *ChatHandler) Summary(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	summary, err := h.summaries.Summarize(r.Context(), sessionID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, summary)
}
