package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/angelmondragon/extraitexto-backend/api/middleware"
	"github.com/angelmondragon/extraitexto-backend/api/responses"
	"github.com/angelmondragon/extraitexto-backend/api/validators"
	"github.com/angelmondragon/extraitexto-backend/internal/extraction"
	pkgerrors "github.com/angelmondragon/extraitexto-backend/pkg/errors"
	"github.com/angelmondragon/extraitexto-backend/pkg/logger"
)

// multipartMemory is how much of the form net/http keeps in memory before
// spilling file parts to disk.
const multipartMemory = 8 << 20

// ExtractionService turns one uploaded document into text.
type ExtractionService interface {
	Extract(ctx context.Context, userID string, in extraction.Input) (*extraction.Result, error)
	MaxUploadBytes() int64
}

// CreateExtraction accepts a multipart upload with a file part and a
// language field. A denied entitlement is rendered as its typed error.
func CreateExtraction(svc ExtractionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "extraction service unavailable"))
			return
		}
		userID := middleware.UserIDFromContext(r.Context())
		if userID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			responses.WriteError(r.Context(), logg, w, uploadError(err))
			return
		}
		defer func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}()

		file, header, err := r.FormFile("file")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file is required").
				WithDetails(map[string]any{"field": "file"}))
			return
		}
		defer file.Close()

		// one byte past the ceiling is enough for the validator to reject it
		data, err := io.ReadAll(io.LimitReader(file, svc.MaxUploadBytes()+1))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, uploadError(err))
			return
		}

		language := validators.NormalizeCode(r.FormValue("language"))
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithLanguage(ctx, language)
			ctx = logg.WithField(ctx, "file_name", header.Filename)
		}

		result, err := svc.Extract(ctx, userID, extraction.Input{
			LanguageCode: language,
			FileName:     header.Filename,
			Data:         data,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if result.Status == extraction.StatusDenied {
			responses.WriteError(ctx, nil, w, result.Decision.Err())
			return
		}
		responses.WriteSuccess(w, toExtractionResponse(result))
	}
}

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return pkgerrors.New(pkgerrors.CodeValidation, "file too large").
			WithDetails(map[string]any{"max_bytes": tooLarge.Limit})
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart upload")
}
