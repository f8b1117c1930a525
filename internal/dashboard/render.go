package dashboard

import (
	"github.com/kjstillabower/soil-monitor-service/internal/models"
)

// Render forwards the latest reading and alerts to the attached handles:
// gauge <- moisture; window <- temperature (when present) and the trend chart is redrawn;
// alert list cleared and rebuilt, one entry per record.
// Returns the snapshot taken under the same lock as the update.
func Render(s *DashboardState, r models.Reading, records []models.AlertRecord) models.Snapshot {
	if s == nil {
		return models.Snapshot{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gauge != nil {
		s.gauge.SetValue(r.Moisture)
	}

	if r.Temperature != nil {
		s.window.Push(*r.Temperature)
		if s.trend != nil {
			s.trend.SetSeries(s.labels, s.window.Values())
		}
	}

	if s.alerts != nil {
		s.alerts.Clear()
		for _, rec := range records {
			s.alerts.Append(Entry(rec))
		}
	}

	s.isRealData = r.IsRealData
	s.updatedAt = r.Timestamp
	s.version++
	return s.snapshotLocked()
}

// Resize re-lays out both charts if they exist. Safe to call repeatedly.
func Resize(s *DashboardState) models.Snapshot {
	if s == nil {
		return models.Snapshot{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	resized := false
	if s.trend != nil {
		s.trend.Resize()
		resized = true
	}
	if s.gauge != nil {
		s.gauge.Resize()
		resized = true
	}
	if resized {
		s.layouts++
		s.version++
	}
	return s.snapshotLocked()
}

// Entry renders one alert record as a list line: "15:04:05 - message".
func Entry(rec models.AlertRecord) models.AlertEntry {
	return models.AlertEntry{
		Text:     rec.Timestamp.Format("15:04:05") + " - " + rec.Message,
		Severity: rec.Severity,
	}
}
