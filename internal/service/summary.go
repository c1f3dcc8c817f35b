package service

import (
	"context"

	"github.com/cloo-solutions/docuchat/internal/telemetry"
)

// summaryPreviewLen bounds the per-source preview taken from the first
// chunk of each document, in characters.
const summaryPreviewLen = 100

// SourceSummary describes one ingested document within a session.
type SourceSummary struct {
	Name       string `json:"name"`
	ChunkCount int    `json:"chunk_count"`
	Preview    string `json:"preview"`
}

// DocumentSummary is an overview of what a session has indexed.
type DocumentSummary struct {
	ChunkCount  int             `json:"chunk_count"`
	SourceCount int             `json:"source_count"`
	Sources     []SourceSummary `json:"sources"`
}

// SummaryService reports what documents a session holds. It reads the
// live index only, so sessions restored from history after a restart
// report the same as unknown ids.
type SummaryService struct {
	registry *SessionRegistry
}

// NewSummaryService creates a SummaryService.
func NewSummaryService(registry *SessionRegistry) *SummaryService {
	return &SummaryService{registry: registry}
}

// Summarize returns per-source chunk counts and previews for the
// session's indexed documents, in ingestion order.
func (s *SummaryService) Summarize(ctx context.Context, sessionID string) (*DocumentSummary, error) {
	_, span := telemetry.StartSpan(ctx, "SummaryService.Summarize", telemetry.SpanAttributes{
		SessionID: sessionID,
		Operation: "summarize",
	})
	defer span.End()

	ix, err := s.registry.Index(sessionID)
	if err != nil {
		return nil, err
	}

	summary := &DocumentSummary{Sources: []SourceSummary{}}
	position := make(map[string]int)
	for _, chunk := range ix.Chunks() {
		summary.ChunkCount++
		if i, ok := position[chunk.Source]; ok {
			summary.Sources[i].ChunkCount++
			continue
		}
		preview := chunk.Text
		// Truncate in runes so a multi-byte character is never split.
		if r := []rune(preview); len(r) > summaryPreviewLen {
			preview = string(r[:summaryPreviewLen]) + "..."
		}
		position[chunk.Source] = len(summary.Sources)
		summary.Sources = append(summary.Sources, SourceSummary{
			Name:       chunk.Source,
			ChunkCount: 1,
			Preview:    preview,
		})
	}
	summary.SourceCount = len(summary.Sources)
	return summary, nil
}
