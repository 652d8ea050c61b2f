package highlight_service

import (
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/serisow/docqa/services/rag_service"
)

const (
	ascentRatio    = 0.8
	heightRatio    = 1.05
	highlightAlpha = 0.35
)

// rect is a highlight box in fpdf page coordinates (origin top-left).
type rect struct {
	x, y, w, h float64
}

// glyphEdges returns the left and right edge of every glyph on a page.
// Glyphs from fonts without a width table share the X of the string they
// were drawn with, so their offsets are measured with the matching core
// font metrics.
func glyphEdges(doc *fpdf.Fpdf, page rag_service.PageText) (left, right []float64) {
	runes := []rune(page.Text)
	glyphs := page.Glyphs
	left = make([]float64, len(glyphs))
	right = make([]float64, len(glyphs))

	for i := 0; i < len(glyphs); {
		g := glyphs[i]
		if g.Synthetic || g.W > 0 {
			left[i] = g.X
			right[i] = g.X + g.W
			i++
			continue
		}

		j := i
		for j < len(glyphs) && !glyphs[j].Synthetic && glyphs[j].W == 0 &&
			glyphs[j].X == g.X && glyphs[j].Y == g.Y {
			j++
		}

		family, style := coreFont(g.Font)
		doc.SetFont(family, style, g.FontSize)
		for k := i; k < j; k++ {
			left[k] = g.X + doc.GetStringWidth(string(runes[i:k]))
			right[k] = g.X + doc.GetStringWidth(string(runes[i:k+1]))
		}
		i = j
	}
	return left, right
}

// coreFont maps a PDF base font name onto the closest fpdf core font.
func coreFont(baseFont string) (string, string) {
	family := "Helvetica"
	switch {
	case strings.Contains(baseFont, "Times"):
		family = "Times"
	case strings.Contains(baseFont, "Courier"):
		family = "Courier"
	}

	style := ""
	if strings.Contains(baseFont, "Bold") {
		style += "B"
	}
	if strings.Contains(baseFont, "Italic") || strings.Contains(baseFont, "Oblique") {
		style += "I"
	}
	return family, style
}

// matchRects splits a match into one rectangle per text line.
func matchRects(page rag_service.PageText, pageHeight float64, left, right []float64, m match) []rect {
	var rects []rect
	var cur *rect
	var curY float64

	for k := m.start; k < m.end && k < len(page.Glyphs); k++ {
		g := page.Glyphs[k]
		if g.Synthetic {
			continue
		}
		if cur != nil && g.Y != curY {
			rects = append(rects, *cur)
			cur = nil
		}
		if cur == nil {
			curY = g.Y
			cur = &rect{
				x: left[k],
				y: pageHeight - (g.Y + ascentRatio*g.FontSize),
				w: right[k] - left[k],
				h: heightRatio * g.FontSize,
			}
			continue
		}
		if right[k] > cur.x+cur.w {
			cur.w = right[k] - cur.x
		}
	}
	if cur != nil {
		rects = append(rects, *cur)
	}
	return rects
}

func drawHighlights(doc *fpdf.Fpdf, page rag_service.PageText, pageHeight float64, matches []match) {
	left, right := glyphEdges(doc, page)

	doc.SetFillColor(255, 235, 59)
	doc.SetAlpha(highlightAlpha, "Multiply")
	for _, m := range matches {
		for _, r := range matchRects(page, pageHeight, left, right, m) {
			doc.Rect(r.x, r.y, r.w, r.h, "F")
		}
	}
	doc.SetAlpha(1, "Normal")
}
