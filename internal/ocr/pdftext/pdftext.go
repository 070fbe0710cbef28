// Package pdftext reads the embedded text layer of PDF documents. Scanned
// PDFs without a text layer are rejected as unsupported.
package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/angelmondragon/extraitexto-backend/internal/ocr"
)

// EngineName is reported in metrics and logs.
const EngineName = "pdftext"

// ContentType is the only MIME type this engine reads.
const ContentType = "application/pdf"

// ErrNoTextLayer marks a PDF whose pages carry no extractable text.
var ErrNoTextLayer = errors.New("pdf has no text layer")

// Engine implements ocr.Engine over the PDF text layer.
type Engine struct {
	maxPages int
}

// New returns an engine that reads at most maxPages pages. Zero reads all.
func New(maxPages int) *Engine {
	return &Engine{maxPages: maxPages}
}

func (e *Engine) Name() string { return EngineName }

// Recognize joins the text of every page, separated by blank lines.
func (e *Engine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	if !strings.EqualFold(strings.TrimSpace(in.ContentType), ContentType) {
		return ocr.Result{}, fmt.Errorf("%w: %s", ocr.ErrUnsupportedFormat, in.ContentType)
	}
	if err := ctx.Err(); err != nil {
		return ocr.Result{}, err
	}

	text, err := e.extract(ctx, in.Data)
	if err != nil {
		return ocr.Result{}, err
	}
	if text == "" {
		return ocr.Result{}, fmt.Errorf("%w: %w", ocr.ErrUnsupportedFormat, ErrNoTextLayer)
	}
	return ocr.Result{
		Text:       text,
		Language:   ocr.FirstLanguage(in.Languages),
		Confidence: 1,
		Engine:     EngineName,
	}, nil
}

// extract recovers from parser panics on malformed documents.
func (e *Engine) extract(ctx context.Context, data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	pages := reader.NumPage()
	if e.maxPages > 0 && pages > e.maxPages {
		pages = e.maxPages
	}
	var out strings.Builder
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		fonts := make(map[string]*pdf.Font)
		for _, name := range page.Fonts() {
			font := page.Font(name)
			fonts[name] = &font
		}
		content, err := page.GetPlainText(fonts)
		if err != nil {
			return "", fmt.Errorf("read page %d: %w", i, err)
		}
		content = strings.TrimSpace(content)
		if content == "" {
			continue
		}
		if out.Len() > 0 {
			out.WriteString("\n\n")
		}
		out.WriteString(content)
	}
	return out.String(), nil
}
