// Package pdftext converts downloaded announcement PDFs into cleaned text.
package pdftext

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/user/mst-crawler/internal/repository"
)

// LayoutParams are tolerances in units of the glyph's font size.
type LayoutParams struct {
	// LineMargin is the vertical distance within which glyphs share a line.
	LineMargin float64
	// WordMargin is the horizontal gap above which a space is inserted.
	WordMargin float64
	// ParagraphMargin is the vertical gap above which a blank line is inserted.
	ParagraphMargin float64
}

func DefaultLayoutParams() LayoutParams {
	return LayoutParams{LineMargin: 0.5, WordMargin: 0.1, ParagraphMargin: 2.0}
}

// Source is a layout-aware text source backed by ledongthuc/pdf.
type Source struct {
	params LayoutParams
	logger *zap.Logger
}

func New(params LayoutParams, logger *zap.Logger) *Source {
	def := DefaultLayoutParams()
	if params.LineMargin <= 0 {
		params.LineMargin = def.LineMargin
	}
	if params.WordMargin <= 0 {
		params.WordMargin = def.WordMargin
	}
	if params.ParagraphMargin <= 0 {
		params.ParagraphMargin = def.ParagraphMargin
	}
	return &Source{params: params, logger: logger.With(zap.String("component", "pdftext"))}
}

var _ repository.TextSource = (*Source)(nil)

// ExtractText returns the cleaned text of every page. A document that yields
// no text, or that the parser cannot read, fails with ErrExtraction.
func (s *Source) ExtractText(ctx context.Context, path string) (text string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: parser panic on %s: %v", repository.ErrExtraction, path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %v", repository.ErrExtraction, path, err)
	}
	defer f.Close()

	raw := s.layoutText(r)
	if strings.TrimSpace(raw) == "" {
		s.logger.Debug("Layout pass produced no text, using plain text", zap.String("path", path))
		raw, err = plainText(r)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", repository.ErrExtraction, path, err)
		}
	}

	text = Clean(raw)
	if text == "" {
		return "", fmt.Errorf("%w: %s", repository.ErrExtraction, path)
	}
	s.logger.Debug("Extracted PDF text", zap.String("path", path), zap.Int("pages", r.NumPage()), zap.Int("chars", len(text)))
	return text, nil
}

func (s *Source) layoutText(r *pdf.Reader) string {
	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(s.layoutPage(p.Content().Text))
	}
	return b.String()
}

type line struct {
	y, size float64
	glyphs  []pdf.Text
}

// layoutPage rebuilds reading order: top to bottom, then left to right.
func (s *Source) layoutPage(texts []pdf.Text) string {
	if len(texts) == 0 {
		return ""
	}
	sorted := append([]pdf.Text(nil), texts...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y > sorted[j].Y })

	var lines []*line
	for _, t := range sorted {
		size := fontSize(t)
		if n := len(lines); n > 0 && math.Abs(lines[n-1].y-t.Y) <= s.params.LineMargin*size {
			lines[n-1].glyphs = append(lines[n-1].glyphs, t)
			continue
		}
		lines = append(lines, &line{y: t.Y, size: size, glyphs: []pdf.Text{t}})
	}

	var b strings.Builder
	for i, ln := range lines {
		if i > 0 {
			b.WriteByte('\n')
			if lines[i-1].y-ln.y > s.params.ParagraphMargin*ln.size {
				b.WriteByte('\n')
			}
		}
		sort.SliceStable(ln.glyphs, func(a, c int) bool { return ln.glyphs[a].X < ln.glyphs[c].X })
		var end float64
		for j, g := range ln.glyphs {
			if j > 0 && g.X-end > s.params.WordMargin*fontSize(g) {
				b.WriteByte(' ')
			}
			b.WriteString(g.S)
			end = g.X + g.W
		}
	}
	return b.String()
}

func fontSize(t pdf.Text) float64 {
	if t.FontSize > 0 {
		return t.FontSize
	}
	return 10
}

func plainText(r *pdf.Reader) (string, error) {
	rd, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	b, err := io.ReadAll(rd)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
