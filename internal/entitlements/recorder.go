package entitlements

import (
	"context"
	"errors"

	"github.com/angelmondragon/extraitexto-backend/pkg/logger"
	"github.com/angelmondragon/extraitexto-backend/pkg/metrics"
)

// RecorderParams groups dependencies for the recorder.
type RecorderParams struct {
	Repo       Repository
	Aggregator *Aggregator
	Metrics    *metrics.EntitlementMetrics
	Logger     *logger.Logger
}

// Recorder counts one successful operation against the user's daily quota.
type Recorder struct {
	repo    Repository
	agg     *Aggregator
	metrics *metrics.EntitlementMetrics
	logg    *logger.Logger
}

func NewRecorder(params RecorderParams) (*Recorder, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Aggregator == nil {
		return nil, errors.New("aggregator is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Recorder{
		repo:    params.Repo,
		agg:     params.Aggregator,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

// RecordOperation resolves the language code and increments today's counter.
// Call it once per successful extraction, after the text was produced.
func (r *Recorder) RecordOperation(ctx context.Context, userID, languageCode string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	code, err := normalizeLanguageCode(languageCode)
	if err != nil {
		return err
	}
	lang, err := r.repo.GetLanguageByCode(ctx, code)
	if err != nil {
		return err
	}
	if lang == nil {
		return unknownLanguage(code)
	}

	day := r.agg.Day()
	if err := r.repo.UpsertUsageIncrement(ctx, userID, lang.ID, day); err != nil {
		return err
	}

	r.metrics.IncRecorded(lang.Code)
	ctx = r.logg.WithLanguage(ctx, lang.Code)
	r.logg.Info(r.logg.WithField(ctx, "day", day.Format("2006-01-02")), "usage.recorded")
	return nil
}
