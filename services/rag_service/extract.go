package rag_service

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"code.sajari.com/docconv/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrNoText            = errors.New("no text content extracted")
)

const (
	FormatPDF  = "pdf"
	FormatDOCX = "docx"
	FormatHTML = "html"
	FormatText = "text"
)

const docxMimeType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

type DocumentExtractor struct {
	logger *slog.Logger
}

func NewDocumentExtractor(logger *slog.Logger) *DocumentExtractor {
	return &DocumentExtractor{
		logger: logger,
	}
}

// DetectFormat sniffs the document format from its leading bytes.
func DetectFormat(data []byte) string {
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return FormatPDF
	}
	if bytes.HasPrefix(data, []byte("PK\x03\x04")) && isDocx(data) {
		return FormatDOCX
	}
	contentType := http.DetectContentType(data)
	switch {
	case strings.HasPrefix(contentType, "text/html"):
		return FormatHTML
	case strings.HasPrefix(contentType, "text/plain"):
		return FormatText
	}
	return ""
}

func isDocx(data []byte) bool {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			return true
		}
	}
	return false
}

// ExtractText returns the plain text of a PDF, DOCX, HTML or text document.
func (e *DocumentExtractor) ExtractText(data []byte) (string, error) {
	switch format := DetectFormat(data); format {
	case FormatPDF:
		return e.ExtractTextFromPDF(data)
	case FormatDOCX:
		return e.ExtractTextFromWord(data)
	case FormatHTML:
		return e.ExtractTextFromHTML(data)
	case FormatText:
		if strings.TrimSpace(string(data)) == "" {
			return "", ErrNoText
		}
		return string(data), nil
	default:
		e.logger.Error("Unsupported document format",
			slog.String("content_type", http.DetectContentType(data)),
			slog.Int("data_size", len(data)))
		return "", ErrUnsupportedFormat
	}
}

func (e *DocumentExtractor) ExtractTextFromPDF(data []byte) (string, error) {
	pages, err := ReadPDFPages(data)
	if err != nil {
		e.logger.Error("Failed to read PDF",
			slog.String("error", err.Error()),
			slog.Int("data_size", len(data)))
		return "", err
	}

	e.logger.Debug("Starting PDF text extraction",
		slog.Int("total_pages", len(pages)))

	var fullText strings.Builder
	for _, page := range pages {
		e.logger.Debug("Extracted text from page",
			slog.Int("page_number", page.Number),
			slog.Int("text_length", len(page.Text)))

		fullText.WriteString(page.Text)
		if !strings.HasSuffix(page.Text, "\n") {
			fullText.WriteString("\n")
		}
	}

	if strings.TrimSpace(fullText.String()) == "" {
		e.logger.Error("No text extracted from PDF",
			slog.Int("total_pages", len(pages)))
		return "", fmt.Errorf("pdf: %w", ErrNoText)
	}

	e.logger.Info("Successfully extracted text from PDF",
		slog.Int("total_pages", len(pages)),
		slog.Int("total_text_length", fullText.Len()))

	return fullText.String(), nil
}

func (e *DocumentExtractor) ExtractTextFromWord(data []byte) (string, error) {
	e.logger.Debug("Starting Word document text extraction",
		slog.Int("data_size", len(data)))

	result, err := docconv.Convert(bytes.NewReader(data), docxMimeType, false)
	if err != nil {
		e.logger.Error("Failed to convert Word document",
			slog.String("error", err.Error()),
			slog.Int("data_size", len(data)))
		return "", fmt.Errorf("failed to convert Word document: %w", err)
	}

	if strings.TrimSpace(result.Body) == "" {
		e.logger.Error("No text extracted from Word document")
		return "", fmt.Errorf("word: %w", ErrNoText)
	}

	e.logger.Info("Successfully extracted text from Word document",
		slog.Int("text_length", len(result.Body)))

	return result.Body, nil
}

// ExtractTextFromHTML keeps the visible body text, one block per line.
func (e *DocumentExtractor) ExtractTextFromHTML(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	var lines []string
	doc.Find("h1, h2, h3, h4, h5, h6, p, li, td, pre, blockquote").Each(func(_ int, s *goquery.Selection) {
		if text := strings.Join(strings.Fields(s.Text()), " "); text != "" {
			lines = append(lines, text)
		}
	})
	if len(lines) == 0 {
		if text := strings.Join(strings.Fields(doc.Find("body").Text()), " "); text != "" {
			lines = append(lines, text)
		}
	}

	if len(lines) == 0 {
		return "", fmt.Errorf("html: %w", ErrNoText)
	}

	e.logger.Info("Successfully extracted text from HTML document",
		slog.Int("blocks", len(lines)))
	return strings.Join(lines, "\n"), nil
}

var pdfInfoKeys = []string{"Title", "Author", "Subject", "Keywords", "Creator", "Producer", "CreationDate", "ModDate"}

// ExtractMetadata returns format-level metadata. For PDFs it includes the
// page count and the entries of the document information dictionary.
func (e *DocumentExtractor) ExtractMetadata(data []byte) (metadata map[string]string, err error) {
	format := DetectFormat(data)
	if format == "" {
		return nil, ErrUnsupportedFormat
	}
	metadata = map[string]string{"format": format}
	if format != FormatPDF {
		return metadata, nil
	}

	defer func() {
		if r := recover(); r != nil {
			metadata = nil
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF reader: %w", err)
	}
	metadata["page_count"] = strconv.Itoa(reader.NumPage())

	info := reader.Trailer().Key("Info")
	for _, key := range pdfInfoKeys {
		if value := info.Key(key).Text(); value != "" {
			metadata[strings.ToLower(key)] = value
		}
	}
	return metadata, nil
}
