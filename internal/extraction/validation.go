package extraction

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	pkgerrors "github.com/angelmondragon/extraitexto-backend/pkg/errors"
)

// contentTypes maps accepted extensions to the MIME type their bytes must sniff as.
var contentTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"pdf":  "application/pdf",
}

// Validator checks uploads before any store or OCR call.
type Validator struct {
	maxBytes   int64
	extensions map[string]string
}

// NewValidator builds a validator for the allowed extensions. Extensions
// without a known content type are ignored.
func NewValidator(maxBytes int64, allowed []string) (*Validator, error) {
	if maxBytes <= 0 {
		return nil, fmt.Errorf("max upload size must be positive")
	}
	exts := make(map[string]string, len(allowed))
	for _, ext := range allowed {
		ext = normalizeExtension(ext)
		if mime, ok := contentTypes[ext]; ok {
			exts[ext] = mime
		}
	}
	if len(exts) == 0 {
		return nil, fmt.Errorf("no supported upload extensions configured")
	}
	return &Validator{maxBytes: maxBytes, extensions: exts}, nil
}

// MaxBytes returns the upload ceiling.
func (v *Validator) MaxBytes() int64 { return v.maxBytes }

// Validate returns the sniffed content type of data or a validation error.
func (v *Validator) Validate(fileName string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	}
	if int64(len(data)) > v.maxBytes {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "file too large").
			WithDetails(map[string]any{"max_bytes": v.maxBytes, "size": len(data)})
	}

	ext := normalizeExtension(filepath.Ext(fileName))
	expected, ok := v.extensions[ext]
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unsupported file type").
			WithDetails(map[string]any{"extension": ext, "allowed": v.allowed()})
	}

	detected := mimetype.Detect(data)
	if !detected.Is(expected) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "file content does not match its extension").
			WithDetails(map[string]any{"extension": ext, "detected": detected.String()})
	}
	return expected, nil
}

func (v *Validator) allowed() []string {
	out := make([]string, 0, len(v.extensions))
	for _, ext := range []string{"jpg", "jpeg", "png", "pdf"} {
		if _, ok := v.extensions[ext]; ok {
			out = append(out, ext)
		}
	}
	return out
}

func normalizeExtension(ext string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
}
