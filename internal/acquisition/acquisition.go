// Package acquisition produces the reading to display: live when the soil API answers, synthetic otherwise.
package acquisition

import (
	"context"

	"go.uber.org/zap"

	"github.com/kjstillabower/soil-monitor-service/internal/client"
	"github.com/kjstillabower/soil-monitor-service/internal/models"
	"github.com/kjstillabower/soil-monitor-service/internal/observability"
	"github.com/kjstillabower/soil-monitor-service/internal/requestctx"
)

const (
	SourceLive      = "live"
	SourceSynthetic = "synthetic"
)

// SoilFallback supplies the synthetic soil reading used when live acquisition fails.
type SoilFallback interface {
	SoilReading() models.Reading
}

// OutcomeRecorder observes whether each acquisition was live or fell back. Optional.
type OutcomeRecorder interface {
	RecordLive()
	RecordFallback()
}

type Acquirer struct {
	client   client.SoilClient
	fallback SoilFallback
	outcomes OutcomeRecorder
	logger   *zap.Logger
}

func NewAcquirer(c client.SoilClient, fallback SoilFallback, outcomes OutcomeRecorder, logger *zap.Logger) *Acquirer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Acquirer{client: c, fallback: fallback, outcomes: outcomes, logger: logger}
}

// Acquire never fails. Transport, decode and application errors all collapse into the
// synthetic fallback, tagged IsRealData=false.
func (a *Acquirer) Acquire(ctx context.Context) models.Reading {
	logger := requestctx.Logger(ctx, a.logger)

	reading, err := a.client.FetchSoilData(ctx)
	if err != nil {
		category := client.CategorizeError(err)
		logger.Warn("using synthetic soil reading",
			zap.String("reason", err.Error()),
			zap.String("category", string(category)))
		return a.synthetic()
	}

	reading.IsRealData = true
	if reading.Moisture < 0 || reading.Moisture > 100 {
		// Passed through unchanged; counted for product review.
		observability.SoilReadingsOutOfRangeTotal.Inc()
		logger.Warn("soil moisture outside [0,100]", zap.Float64("soil_moisture", reading.Moisture))
	}
	observability.AcquisitionsTotal.WithLabelValues(SourceLive).Inc()
	if a.outcomes != nil {
		a.outcomes.RecordLive()
	}
	logger.Info("live soil reading",
		zap.Float64("soil_moisture", reading.Moisture),
		zap.Time("reading_time", reading.Timestamp))
	return reading
}

func (a *Acquirer) synthetic() models.Reading {
	r := a.fallback.SoilReading()
	r.IsRealData = false
	observability.AcquisitionsTotal.WithLabelValues(SourceSynthetic).Inc()
	if a.outcomes != nil {
		a.outcomes.RecordFallback()
	}
	return r
}
