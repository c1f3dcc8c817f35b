// Package ingest extracts page-level text from uploaded documents.
// Extraction uses pdfcpu; each page becomes one retrieval chunk.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Page is one page of extracted text. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// Document is one uploaded file: the name it arrived under and its raw bytes.
type Document struct {
	Name string
	Data []byte
}

// PageExtractor turns one document's bytes into per-page text.
type PageExtractor interface {
	ExtractPages(ctx context.Context, doc Document) ([]Page, error)
}

// PDFExtractor implements PageExtractor using pdfcpu. pdfcpu works on
// files, so each call stages the document in its own temp directory.
type PDFExtractor struct {
	tempDir string
}

var _ PageExtractor = (*PDFExtractor)(nil)

// NewPDFExtractor creates a PDF extractor staging files under the
// system temp directory.
func NewPDFExtractor() (*PDFExtractor, error) {
	tempDir := filepath.Join(os.TempDir(), "docuchat-pdf")
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	return &PDFExtractor{tempDir: tempDir}, nil
}

// ExtractPages extracts text content by page. Pages with no extractable
// text come back with an empty Text; the caller decides whether to drop
// them.
func (e *PDFExtractor) ExtractPages(ctx context.Context, doc Document) ([]Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	workDir, err := os.MkdirTemp(e.tempDir, "extract-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	tempFile := filepath.Join(workDir, "doc.pdf")
	if err := os.WriteFile(tempFile, doc.Data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write temp PDF file: %w", err)
	}

	pdfCtx, err := api.ReadContextFile(tempFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}
	pageCount := pdfCtx.PageCount

	outDir := filepath.Join(workDir, "pages")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(tempFile, outDir, nil, conf); err != nil {
		return nil, fmt.Errorf("failed to extract PDF content: %w", err)
	}

	pageTexts := make(map[int]string, pageCount)
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read extracted content: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, entry.Name()))
		if err != nil {
			continue
		}
		var pageNum int
		if _, err := fmt.Sscanf(entry.Name(), "Content_page_%d", &pageNum); err == nil {
			pageTexts[pageNum] = string(content)
			continue
		}
		if _, err := fmt.Sscanf(entry.Name(), "page_%d", &pageNum); err == nil {
			pageTexts[pageNum] = string(content)
		}
	}

	pages := make([]Page, 0, pageCount)
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		pages = append(pages, Page{Number: pageNum, Text: pageTexts[pageNum]})
	}

	return pages, nil
}
