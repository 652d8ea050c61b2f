package highlight_service

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"
	"github.com/go-pdf/fpdf/contrib/gofpdi"
	"github.com/google/uuid"
	"github.com/serisow/docqa/services/rag_service"
)

// MinQuoteLength is the shortest trimmed quote that is searched for.
const MinQuoteLength = 5

// Highlighter writes a copy of a PDF with every occurrence of the given
// quotes marked. It never fails: any problem means no annotation.
type Highlighter struct {
	storageDir string
	logger     *slog.Logger
}

func NewHighlighter(storageDir string, logger *slog.Logger) *Highlighter {
	return &Highlighter{storageDir: storageDir, logger: logger}
}

// match is one occurrence of a quote, as a rune range into a page's text.
type match struct {
	page       int
	start, end int
}

// Annotate returns the public path of the annotated copy, or nil when no
// quote was found or the document could not be processed.
func (h *Highlighter) Annotate(data []byte, quotes []string) (path *string) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Recovered from panic while highlighting",
				slog.Any("panic", r))
			path = nil
		}
	}()

	eligible := eligibleQuotes(quotes)
	if len(eligible) == 0 {
		return nil
	}
	if rag_service.DetectFormat(data) != rag_service.FormatPDF {
		h.logger.Debug("Skipping highlight, document is not a PDF")
		return nil
	}

	pages, err := rag_service.ReadPDFPages(data)
	if err != nil {
		h.logger.Warn("Failed to read PDF for highlighting",
			slog.String("error", err.Error()))
		return nil
	}

	matches := findMatches(pages, eligible)
	if len(matches) == 0 {
		h.logger.Info("No quote occurrences found",
			slog.Int("quotes", len(eligible)))
		return nil
	}

	out, err := h.render(data, pages, matches)
	if err != nil {
		h.logger.Error("Failed to save highlighted PDF",
			slog.String("error", err.Error()))
		return nil
	}

	h.logger.Info("Highlighted PDF saved",
		slog.String("path", out),
		slog.Int("occurrences", len(matches)))
	return &out
}

// eligibleQuotes trims quotes and drops the ones too short to match
// reliably.
func eligibleQuotes(quotes []string) []string {
	eligible := make([]string, 0, len(quotes))
	for _, q := range quotes {
		q = strings.TrimSpace(q)
		if utf8.RuneCountInString(q) < MinQuoteLength {
			continue
		}
		eligible = append(eligible, q)
	}
	return eligible
}

// findMatches locates every non-overlapping occurrence of each quote on
// every page. The search is an exact substring match on the page text.
func findMatches(pages []rag_service.PageText, quotes []string) []match {
	var matches []match
	for pi, page := range pages {
		for _, q := range quotes {
			offset := 0
			for {
				idx := strings.Index(page.Text[offset:], q)
				if idx < 0 {
					break
				}
				byteStart := offset + idx
				byteEnd := byteStart + len(q)
				start, end := page.RuneRange(byteStart, byteEnd)
				matches = append(matches, match{page: pi, start: start, end: end})
				offset = byteEnd
			}
		}
	}
	return matches
}

func (h *Highlighter) render(data []byte, pages []rag_service.PageText, matches []match) (string, error) {
	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetAutoPageBreak(false, 0)
	doc.SetMargins(0, 0, 0)

	importer := gofpdi.NewImporter()
	var rs io.ReadSeeker = bytes.NewReader(data)

	byPage := make(map[int][]match)
	for _, m := range matches {
		byPage[m.page] = append(byPage[m.page], m)
	}

	for pi, page := range pages {
		tpl := importer.ImportPageFromStream(doc, &rs, page.Number, "/MediaBox")
		width, height := page.Width, page.Height
		if box, ok := importer.GetPageSizes()[page.Number]["/MediaBox"]; ok && box["w"] > 0 && box["h"] > 0 {
			width, height = box["w"], box["h"]
		}

		doc.AddPageFormat("P", fpdf.SizeType{Wd: width, Ht: height})
		importer.UseImportedTemplate(doc, tpl, 0, 0, width, height)

		if pageMatches := byPage[pi]; len(pageMatches) > 0 {
			drawHighlights(doc, page, height, pageMatches)
		}
	}
	if err := doc.Error(); err != nil {
		return "", err
	}

	directory := filepath.Join(h.storageDir, "highlights")
	if err := os.MkdirAll(directory, 0755); err != nil {
		return "", fmt.Errorf("failed to create highlights directory: %w", err)
	}

	filename := fmt.Sprintf("highlighted_%s.pdf", uuid.NewString())
	target := filepath.Join(directory, filename)
	if err := doc.OutputFileAndClose(target); err != nil {
		os.Remove(target)
		return "", err
	}
	return "/data/highlights/" + filename, nil
}
