// Package ocr defines the text recognition boundary. Engines are opaque: they
// receive document bytes plus a language hint and return plain text.
package ocr

import (
	"context"
	"errors"
)

// ErrUnsupportedFormat is returned by engines that cannot read the given content type.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Input is a single document handed to an engine.
type Input struct {
	Data        []byte
	ContentType string
	// Languages holds language codes as stored in the catalog (pt, en, ...).
	Languages []string
}

// Result is the recognized text of one document.
type Result struct {
	Text       string
	Language   string
	Confidence float64
	// Engine names the backend that produced the text when a Router picked it.
	Engine string
}

// Engine recognizes text. Implementations must honor ctx cancellation.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, in Input) (Result, error)
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc struct {
	EngineName string
	Fn         func(ctx context.Context, in Input) (Result, error)
}

func (f EngineFunc) Name() string { return f.EngineName }

func (f EngineFunc) Recognize(ctx context.Context, in Input) (Result, error) {
	if f.Fn == nil {
		return Result{}, errors.New("ocr engine not configured")
	}
	return f.Fn(ctx, in)
}

// FirstLanguage returns the first language hint or an empty string.
func FirstLanguage(langs []string) string {
	if len(langs) == 0 {
		return ""
	}
	return langs[0]
}
