package highlight_service

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/serisow/docqa/services/rag_service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func buildPDF(t *testing.T, pages ...[]string) []byte {
	t.Helper()
	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetFont("Helvetica", "", 12)
	for _, lines := range pages {
		doc.AddPage()
		for i, line := range lines {
			doc.Text(72, 72+float64(i)*24, line)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

func specDocument(t *testing.T) []byte {
	return buildPDF(t,
		[]string{"Project requirements", "Database Type: PostgreSQL", "Cache: Redis"},
		[]string{"Appendix", "Database Type: PostgreSQL again"},
	)
}

func TestAnnotate_Match(t *testing.T) {
	dir := t.TempDir()
	h := NewHighlighter(dir, discardLogger())

	path := h.Annotate(specDocument(t), []string{"Database Type: PostgreSQL"})
	require.NotNil(t, path)
	assert.True(t, strings.HasPrefix(*path, "/data/highlights/highlighted_"))
	assert.True(t, strings.HasSuffix(*path, ".pdf"))

	saved, err := os.ReadFile(filepath.Join(dir, "highlights", filepath.Base(*path)))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(saved, []byte("%PDF-")))
}

func TestAnnotate_NoAnnotation(t *testing.T) {
	tests := []struct {
		name   string
		data   func(t *testing.T) []byte
		quotes []string
	}{
		{name: "phrase not in document", data: specDocument, quotes: []string{"nonexistent phrase"}},
		{name: "no quotes", data: specDocument, quotes: nil},
		{name: "only short quotes", data: specDocument, quotes: []string{" Ca ", "DB", "abcd"}},
		{name: "malformed pdf", data: func(t *testing.T) []byte { return []byte("%PDF-1.7\ngarbage") }, quotes: []string{"Database Type"}},
		{name: "not a pdf", data: func(t *testing.T) []byte { return []byte("Database Type: PostgreSQL") }, quotes: []string{"Database Type"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			h := NewHighlighter(dir, discardLogger())

			assert.Nil(t, h.Annotate(tt.data(t), tt.quotes))

			entries, _ := os.ReadDir(filepath.Join(dir, "highlights"))
			assert.Empty(t, entries)
		})
	}
}

func TestEligibleQuotes(t *testing.T) {
	got := eligibleQuotes([]string{"abcd", "  abcd  ", "abcde", "  Redis cache  ", ""})
	assert.Equal(t, []string{"abcde", "Redis cache"}, got)
}

func TestFindMatches_AllOccurrences(t *testing.T) {
	pages, err := rag_service.ReadPDFPages(specDocument(t))
	require.NoError(t, err)

	matches := findMatches(pages, []string{"Database Type: PostgreSQL"})
	require.Len(t, matches, 2)
	assert.Equal(t, 0, matches[0].page)
	assert.Equal(t, 1, matches[1].page)
	for _, m := range matches {
		assert.Equal(t, len("Database Type: PostgreSQL"), m.end-m.start)
	}

	pages = []rag_service.PageText{{Text: "aaaaaa"}}
	assert.Len(t, findMatches(pages, []string{"aaa"}), 2, "occurrences must not overlap")
}

func TestMatchRects(t *testing.T) {
	pages, err := rag_service.ReadPDFPages(buildPDF(t, []string{"Alpha beta gamma", "delta epsilon"}))
	require.NoError(t, err)
	page := pages[0]

	doc := fpdf.New("P", "pt", "A4", "")
	left, right := glyphEdges(doc, page)

	t.Run("single line", func(t *testing.T) {
		byteStart := strings.Index(page.Text, "beta")
		start, end := page.RuneRange(byteStart, byteStart+len("beta"))
		rects := matchRects(page, page.Height, left, right, match{start: start, end: end})
		require.Len(t, rects, 1)

		doc.SetFont("Helvetica", "", 12)
		assert.InDelta(t, 72+doc.GetStringWidth("Alpha "), rects[0].x, 0.5)
		assert.InDelta(t, doc.GetStringWidth("beta"), rects[0].w, 0.5)
		assert.InDelta(t, 72-0.8*12, rects[0].y, 0.5)
	})

	t.Run("spanning lines", func(t *testing.T) {
		byteStart := strings.Index(page.Text, "gamma")
		byteEnd := strings.Index(page.Text, "delta") + len("delta")
		start, end := page.RuneRange(byteStart, byteEnd)
		rects := matchRects(page, page.Height, left, right, match{start: start, end: end})
		require.Len(t, rects, 2)
		assert.Less(t, rects[0].y, rects[1].y)
		assert.InDelta(t, 72, rects[1].x, 0.5)
	})
}

func TestCoreFont(t *testing.T) {
	tests := []struct {
		base   string
		family string
		style  string
	}{
		{base: "Helvetica", family: "Helvetica", style: ""},
		{base: "Helvetica-BoldOblique", family: "Helvetica", style: "BI"},
		{base: "Times-Roman", family: "Times", style: ""},
		{base: "Courier-Bold", family: "Courier", style: "B"},
		{base: "ABCDEF+Calibri", family: "Helvetica", style: ""},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			family, style := coreFont(tt.base)
			assert.Equal(t, tt.family, family)
			assert.Equal(t, tt.style, style)
		})
	}
}
