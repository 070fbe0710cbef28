// Package extraction runs one document-to-text request end to end: upload
// validation, the entitlement check, OCR, and usage recording.
package extraction

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/angelmondragon/extraitexto-backend/internal/entitlements"
	"github.com/angelmondragon/extraitexto-backend/internal/ocr"
	"github.com/angelmondragon/extraitexto-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/extraitexto-backend/pkg/errors"
	"github.com/angelmondragon/extraitexto-backend/pkg/logger"
	"github.com/angelmondragon/extraitexto-backend/pkg/metrics"
)

const (
	defaultOCRTimeout    = 60 * time.Second
	defaultRecordBackoff = 100 * time.Millisecond
)

// Status is the terminal state of an extraction.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusDenied    Status = "denied"
)

// Checker is the entitlement surface the service relies on.
type Checker interface {
	CanPerformOperation(ctx context.Context, userID, languageCode string) (entitlements.Decision, error)
	Summary(ctx context.Context, userID string) (entitlements.UsageSummary, error)
}

// UsageRecorder counts a successful extraction.
type UsageRecorder interface {
	RecordOperation(ctx context.Context, userID, languageCode string) error
}

// Input is one uploaded document.
type Input struct {
	LanguageCode string
	FileName     string
	Data         []byte
}

// Result is returned for completed and denied extractions alike.
type Result struct {
	Status      Status
	Text        string
	ContentType string
	Engine      string
	Decision    entitlements.Decision
	// Usage is the refreshed counter; nil when the refresh failed.
	Usage *entitlements.UsageSummary
}

// ServiceParams groups dependencies for the extraction service.
type ServiceParams struct {
	Checker       Checker
	Recorder      UsageRecorder
	Engine        ocr.Engine
	Upload        config.UploadConfig
	OCR           config.OCRConfig
	Usage         config.UsageConfig
	RecordBackoff time.Duration
	Metrics       *metrics.EntitlementMetrics
	Logger        *logger.Logger
}

type Service struct {
	checker        Checker
	recorder       UsageRecorder
	engine         ocr.Engine
	validator      *Validator
	ocrTimeout     time.Duration
	recordAttempts int
	recordBackoff  time.Duration
	metrics        *metrics.EntitlementMetrics
	logg           *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Checker == nil {
		return nil, errors.New("checker is required")
	}
	if params.Recorder == nil {
		return nil, errors.New("recorder is required")
	}
	if params.Engine == nil {
		return nil, errors.New("ocr engine is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	validator, err := NewValidator(params.Upload.MaxBytes(), params.Upload.AllowedExtensions)
	if err != nil {
		return nil, err
	}

	timeout := params.OCR.Timeout
	if timeout <= 0 {
		timeout = defaultOCRTimeout
	}
	attempts := params.Usage.RecordAttempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := params.RecordBackoff
	if backoff <= 0 {
		backoff = defaultRecordBackoff
	}

	return &Service{
		checker:        params.Checker,
		recorder:       params.Recorder,
		engine:         params.Engine,
		validator:      validator,
		ocrTimeout:     timeout,
		recordAttempts: attempts,
		recordBackoff:  backoff,
		metrics:        params.Metrics,
		logg:           params.Logger,
	}, nil
}

// MaxUploadBytes exposes the configured ceiling so transports can bound reads.
func (s *Service) MaxUploadBytes() int64 {
	return s.validator.MaxBytes()
}

// Extract validates the upload, checks the user's entitlement, runs OCR and
// records the operation. A denial is a Result, not an error. Quota is only
// consumed after text was produced.
func (s *Service) Extract(ctx context.Context, userID string, in Input) (*Result, error) {
	contentType, err := s.validator.Validate(in.FileName, in.Data)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithLanguage(ctx, in.LanguageCode)
	decision, err := s.checker.CanPerformOperation(ctx, userID, in.LanguageCode)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		s.metrics.IncExtraction(string(StatusDenied))
		return &Result{Status: StatusDenied, ContentType: contentType, Decision: decision}, nil
	}

	recognized, err := s.recognize(ctx, contentType, decision.Language.Code, in.Data)
	if err != nil {
		s.metrics.IncExtraction("failed")
		return nil, err
	}

	if err := s.record(ctx, userID, decision.Language.Code); err != nil {
		s.metrics.IncRecordFailure()
		s.metrics.IncExtraction("failed")
		s.logg.Error(ctx, "usage record failed after text was produced", err)
		return nil, err
	}

	engineName := recognized.Engine
	if engineName == "" {
		engineName = s.engine.Name()
	}
	result := &Result{
		Status:      StatusCompleted,
		Text:        recognized.Text,
		ContentType: contentType,
		Engine:      engineName,
		Decision:    decision,
	}
	summary, err := s.checker.Summary(ctx, userID)
	if err != nil {
		s.logg.Warn(ctx, "usage counters could not be refreshed after extraction")
	} else {
		result.Usage = &summary
	}

	s.metrics.IncExtraction(string(StatusCompleted))
	s.logg.Info(s.logg.WithField(ctx, "engine", result.Engine), "extraction.completed")
	return result, nil
}

func (s *Service) recognize(ctx context.Context, contentType, language string, data []byte) (ocr.Result, error) {
	ocrCtx, cancel := context.WithTimeout(ctx, s.ocrTimeout)
	defer cancel()

	start := time.Now()
	res, err := s.engine.Recognize(ocrCtx, ocr.Input{
		Data:        data,
		ContentType: contentType,
		Languages:   []string{language},
	})
	s.metrics.ObserveRecognition(s.engine.Name(), err == nil, time.Since(start))
	if err == nil {
		return res, nil
	}

	message := "text recognition failed"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		message = "text recognition timed out"
	case errors.Is(err, ocr.ErrUnsupportedFormat):
		message = "document format not supported by the recognition engine"
	}
	s.logg.Error(ctx, "ocr recognition failed", err)
	return ocr.Result{}, pkgerrors.Wrap(pkgerrors.CodeRecognition, err, message).
		WithDetails(map[string]any{"engine": s.engine.Name(), "content_type": contentType})
}

// record retries store failures only; validation errors fail immediately.
func (s *Service) record(ctx context.Context, userID, language string) error {
	backoff := retry.WithMaxRetries(uint64(s.recordAttempts-1), retry.NewConstant(s.recordBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.recorder.RecordOperation(ctx, userID, language)
		if err == nil {
			return nil
		}
		if typed := pkgerrors.As(err); typed != nil && !pkgerrors.MetadataFor(typed.Code()).Retryable {
			return err
		}
		s.logg.Warn(ctx, "usage record attempt failed")
		return retry.RetryableError(err)
	})
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record usage")
}
