package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/docuchat/internal/domain"
	"github.com/cloo-solutions/docuchat/internal/index"
)

func resultFor(source string, page int, text string) index.Result {
	return index.Result{Chunk: domain.DocumentChunk{Source: source, Page: page, Text: text}}
}

func TestExtractCitations_MatchWindow(t *testing.T) {
	results := []index.Result{resultFor("report.pdf", 2, "Total: 12 units")}

	citations := ExtractCitations("what is the total on page 2", results)

	require.Len(t, citations, 1)
	assert.Equal(t, "report.pdf", citations[0].Source)
	assert.Equal(t, 2, citations[0].Page)
	assert.Equal(t, "Total: 12 units", citations[0].Preview)
	assert.Equal(t, "Total: 12 units", citations[0].FullText)
}

func TestExtractCitations_ShortWordsIgnored(t *testing.T) {
	// "on", "the", "12" are all under four characters and must not
	// anchor a preview.
	results := []index.Result{resultFor("a.pdf", 1, "on the 12 of March")}

	citations := ExtractCitations("on the 12", results)

	require.Len(t, citations, 1)
	assert.Equal(t, "on the 12 of March", citations[0].Preview)
}

func TestExtractCitations_LongestWindowWins(t *testing.T) {
	padding := strings.Repeat("x", 180)
	// "alpha" matches near the end (short window, clamped by text
	// length); "bravo" matches early (full 50+100 window).
	text := "bravo " + padding + " alpha"
	results := []index.Result{resultFor("a.pdf", 1, text)}

	citations := ExtractCitations("alpha bravo", results)

	require.Len(t, citations, 1)
	preview := citations[0].Preview
	assert.Contains(t, preview, "bravo")
	assert.NotContains(t, preview, "alpha")
}

func TestExtractCitations_MultiByteTextBeforeMatch(t *testing.T) {
	// U+023A lowercases to U+2C65, which is one byte longer in UTF-8.
	// The window must be computed in runes or the lowered-text offsets
	// run past the end of the original text.
	text := strings.Repeat("Ⱥ", 300) + "budget"
	results := []index.Result{resultFor("a.pdf", 1, text)}

	citations := ExtractCitations("what is the budget", results)

	require.Len(t, citations, 1)
	assert.Equal(t, strings.Repeat("Ⱥ", 50)+"budget", citations[0].Preview)
}

func TestExtractCitations_WindowKeepsRunesIntact(t *testing.T) {
	text := strings.Repeat("é", 80) + " budget " + strings.Repeat("é", 200)
	results := []index.Result{resultFor("a.pdf", 1, text)}

	citations := ExtractCitations("budget", results)

	require.Len(t, citations, 1)
	assert.True(t, utf8.ValidString(citations[0].Preview))
	assert.Contains(t, citations[0].Preview, "budget")
}

func TestExtractCitations_NoMatchFallsBackToFullText(t *testing.T) {
	results := []index.Result{resultFor("a.pdf", 3, "completely unrelated content")}

	citations := ExtractCitations("zebra quartz", results)

	require.Len(t, citations, 1)
	assert.Equal(t, "completely unrelated content", citations[0].Preview)
}

func TestExtractCitations_PreviewIsSubstringOfFullText(t *testing.T) {
	long := strings.Repeat("filler text ", 40) + "needle" + strings.Repeat(" more filler", 40)
	results := []index.Result{resultFor("a.pdf", 1, long)}

	citations := ExtractCitations("find the needle please", results)

	require.Len(t, citations, 1)
	assert.Contains(t, citations[0].FullText, citations[0].Preview)
	assert.LessOrEqual(t, len(citations[0].Preview), 50+len("needle")+100)
}

func TestExtractCitations_CaseInsensitive(t *testing.T) {
	results := []index.Result{resultFor("a.pdf", 1, "TOTAL REVENUE: $400")}

	citations := ExtractCitations("total revenue", results)

	require.Len(t, citations, 1)
	assert.Contains(t, citations[0].Preview, "TOTAL REVENUE")
}

func TestExtractCitations_OneCitationPerChunk(t *testing.T) {
	results := []index.Result{
		resultFor("a.pdf", 1, "alpha content"),
		resultFor("b.pdf", 2, "bravo content"),
	}

	citations := ExtractCitations("content", results)

	require.Len(t, citations, 2)
	assert.Equal(t, "a.pdf", citations[0].Source)
	assert.Equal(t, "b.pdf", citations[1].Source)
}

func TestExtractCitations_EmptyResults(t *testing.T) {
	citations := ExtractCitations("anything", nil)
	assert.Empty(t, citations)
}
