package rag_service

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// Glyph is one rune of rendered page text with its position in PDF user
// space (origin bottom-left, Y is the baseline). W is 0 when the font
// carries no width table; Synthetic marks line breaks and spaces that were
// inferred from positions rather than drawn.
type Glyph struct {
	X, Y      float64
	W         float64
	FontSize  float64
	Font      string
	Synthetic bool
}

// PageText is the rendered text of one page. Glyphs[i] describes the i-th
// rune of Text.
type PageText struct {
	Number int
	Width  float64
	Height float64
	Text   string
	Glyphs []Glyph
}

// RuneRange converts a byte range of Text into a rune range usable as an
// index into Glyphs.
func (p PageText) RuneRange(byteStart, byteEnd int) (int, int) {
	start := utf8.RuneCountInString(p.Text[:byteStart])
	return start, start + utf8.RuneCountInString(p.Text[byteStart:byteEnd])
}

// ReadPDFPages renders every page of a PDF into positioned text. Malformed
// input is reported as an error; the pdf parser panics on some corrupt
// streams, so those panics are converted too.
func ReadPDFPages(data []byte) (pages []PageText, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	total := reader.NumPage()
	pages = make([]PageText, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		width, height := pageSize(page)
		pt := layoutPage(page.Content().Text)
		pt.Number = i
		pt.Width = width
		pt.Height = height
		pages = append(pages, pt)
	}
	return pages, nil
}

// maxTreeDepth bounds the walk up the page tree on malformed documents.
const maxTreeDepth = 32

// pageSize reads the MediaBox of a page. The box is inheritable, and most
// writers put it on the parent /Pages node, so the walk goes up the tree.
func pageSize(page pdf.Page) (float64, float64) {
	return mediaBoxSize(page.V)
}

func mediaBoxSize(node pdf.Value) (float64, float64) {
	for depth := 0; depth < maxTreeDepth && !node.IsNull(); depth++ {
		box := node.Key("MediaBox")
		if box.Kind() == pdf.Array && box.Len() == 4 {
			return box.Index(2).Float64() - box.Index(0).Float64(), box.Index(3).Float64() - box.Index(1).Float64()
		}
		node = node.Key("Parent")
	}
	// US Letter
	return 612, 792
}

// layoutPage turns the glyph stream into text. A baseline change starts a
// new line. On fonts with a width table, a horizontal gap wider than a
// third of the font size becomes a space.
func layoutPage(texts []pdf.Text) PageText {
	var sb strings.Builder
	glyphs := make([]Glyph, 0, len(texts))

	emit := func(r rune, g Glyph) {
		sb.WriteRune(r)
		glyphs = append(glyphs, g)
	}
	lastRune := func() rune {
		s := sb.String()
		if s == "" {
			return '\n'
		}
		r, _ := utf8.DecodeLastRuneInString(s)
		return r
	}

	var prev *pdf.Text
	for i := range texts {
		t := &texts[i]
		if t.S == "\n" {
			if lastRune() != '\n' {
				emit('\n', Glyph{X: t.X, Y: t.Y, FontSize: t.FontSize, Synthetic: true})
			}
			continue
		}

		if prev != nil {
			lineTolerance := math.Max(prev.FontSize, 1) * 0.5
			switch {
			case math.Abs(t.Y-prev.Y) > lineTolerance:
				if lastRune() != '\n' {
					emit('\n', Glyph{X: t.X, Y: t.Y, FontSize: t.FontSize, Synthetic: true})
				}
			case prev.W > 0 && t.X-(prev.X+prev.W) > t.FontSize/3:
				if lr := lastRune(); lr != ' ' && lr != '\n' && t.S != " " {
					emit(' ', Glyph{X: prev.X + prev.W, Y: t.Y, FontSize: t.FontSize, Synthetic: true})
				}
			}
		}

		for _, r := range t.S {
			emit(r, Glyph{X: t.X, Y: t.Y, W: t.W, FontSize: t.FontSize, Font: t.Font})
		}
		prev = t
	}

	return PageText{Text: sb.String(), Glyphs: glyphs}
}
