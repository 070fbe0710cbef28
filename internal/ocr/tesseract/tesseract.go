// Package tesseract is the default OCR backend, built on libtesseract through
// gosseract. It requires cgo and the tesseract shared libraries at build time.
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/angelmondragon/extraitexto-backend/internal/ocr"
)

// EngineName is reported in metrics and logs.
const EngineName = "tesseract"

// traineddata maps catalog language codes to tesseract model names.
var traineddata = map[string]string{
	"pt": "por",
	"en": "eng",
	"es": "spa",
	"fr": "fra",
	"de": "deu",
}

// Engine implements ocr.Engine with one gosseract client per call.
type Engine struct {
	tessdataPrefix string
	clientFactory  func() *gosseract.Client
}

// New constructs a Tesseract-backed engine. An empty prefix leaves model
// lookup to TESSDATA_PREFIX.
func New(tessdataPrefix string) *Engine {
	return &Engine{tessdataPrefix: tessdataPrefix, clientFactory: gosseract.NewClient}
}

func (e *Engine) Name() string { return EngineName }

// Recognize runs OCR on a JPEG or PNG image. PDFs are rejected; route them
// to the pdftext engine through an ocr.Router.
func (e *Engine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	if in.ContentType == "application/pdf" {
		return ocr.Result{}, fmt.Errorf("%w: %s", ocr.ErrUnsupportedFormat, in.ContentType)
	}
	if err := ctx.Err(); err != nil {
		return ocr.Result{}, err
	}

	type outcome struct {
		res ocr.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		c := e.clientFactory()
		defer c.Close()
		res, err := e.recognizeWithClient(c, in)
		done <- outcome{res: res, err: err}
	}()

	select {
	case <-ctx.Done():
		return ocr.Result{}, ctx.Err()
	case out := <-done:
		return out.res, out.err
	}
}

func (e *Engine) recognizeWithClient(c *gosseract.Client, in ocr.Input) (ocr.Result, error) {
	if e.tessdataPrefix != "" {
		if err := c.SetTessdataPrefix(e.tessdataPrefix); err != nil {
			return ocr.Result{}, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if langs := Languages(in.Languages); len(langs) > 0 {
		if err := c.SetLanguage(langs...); err != nil {
			return ocr.Result{}, fmt.Errorf("set languages: %w", err)
		}
	}
	if err := c.SetImageFromBytes(in.Data); err != nil {
		return ocr.Result{}, fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return ocr.Result{}, fmt.Errorf("recognize text: %w", err)
	}

	return ocr.Result{
		Text:       strings.TrimSpace(text),
		Language:   ocr.FirstLanguage(in.Languages),
		Confidence: averageConfidence(c),
	}, nil
}

func averageConfidence(c *gosseract.Client) float64 {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence / 100.0
	}
	return sum / float64(len(boxes))
}

// Languages translates catalog codes to tesseract model names, skipping
// codes without a known model.
func Languages(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		if model, ok := traineddata[strings.ToLower(code)]; ok {
			out = append(out, model)
		}
	}
	return out
}
