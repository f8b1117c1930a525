// Package alerts classifies readings against fixed thresholds.
package alerts

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kjstillabower/soil-monitor-service/internal/models"
)

// Policy maps a reading to an ordered list of alert records. Every call builds a fresh list.
type Policy interface {
	Name() string
	Evaluate(r models.Reading, now time.Time) []models.AlertRecord
}

// Soil moisture thresholds (percent).
const (
	OverWetMoisture = 70.0
	OverDryMoisture = 40.0
)

// Climate thresholds for the combined policy.
const (
	HighTemperature = 30.0
	LowTemperature  = 18.0
	LowHumidity     = 40.0
	HighHumidity    = 75.0
)

const (
	PolicySoilOnly = "soil_only"
	PolicyCombined = "combined"
)

// ClockLayout formats the time shown in "last update" records and alert list entries.
const ClockLayout = "15:04:05"

// SoilOnly classifies soil moisture into exactly one of over-wet, over-dry or normal,
// followed by a "last update" info record.
type SoilOnly struct{}

func (SoilOnly) Name() string { return PolicySoilOnly }

func (SoilOnly) Evaluate(r models.Reading, now time.Time) []models.AlertRecord {
	out := make([]models.AlertRecord, 0, 2)
	m := r.Moisture
	switch {
	case m > OverWetMoisture:
		out = append(out, record(models.SeverityOverWet, "over-wet: "+percent(m), now))
	case m < OverDryMoisture:
		out = append(out, record(models.SeverityOverDry, "over-dry: "+percent(m), now))
	default:
		out = append(out, record(models.SeverityNormal, "normal: "+percent(m), now))
	}
	return append(out, record(models.SeverityInfo, "last update: "+now.Format(ClockLayout), now))
}

// Combined checks temperature, then humidity. Within a category at most one record fires;
// across categories both can. With nothing tripped it emits one "all parameters normal" record.
// A reading without temperature skips the temperature checks.
type Combined struct{}

func (Combined) Name() string { return PolicyCombined }

func (Combined) Evaluate(r models.Reading, now time.Time) []models.AlertRecord {
	var out []models.AlertRecord
	if r.Temperature != nil {
		t := *r.Temperature
		switch {
		case t > HighTemperature:
			out = append(out, record(models.SeverityHighTemp, "high temperature: "+celsius(t), now))
		case t < LowTemperature:
			out = append(out, record(models.SeverityLowTemp, "low temperature: "+celsius(t), now))
		}
	}
	h := r.Moisture
	switch {
	case h < LowHumidity:
		out = append(out, record(models.SeverityLowHumidity, "low humidity: "+percent(h), now))
	case h > HighHumidity:
		out = append(out, record(models.SeverityHighHumidity, "high humidity: "+percent(h), now))
	}
	if len(out) == 0 {
		out = append(out, record(models.SeverityNormal, "all parameters normal", now))
	}
	return out
}

// PolicyByName resolves a configured policy name.
func PolicyByName(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case PolicySoilOnly:
		return SoilOnly{}, nil
	case PolicyCombined:
		return Combined{}, nil
	}
	return nil, fmt.Errorf("unknown alert policy %q", name)
}

func record(sev models.Severity, msg string, now time.Time) models.AlertRecord {
	return models.AlertRecord{Message: msg, Severity: sev, Timestamp: now}
}

// formatValue prints the shortest representation: 85 -> "85", 62.5 -> "62.5".
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func percent(v float64) string { return formatValue(v) + "%" }

func celsius(v float64) string { return formatValue(v) + "°C" }
