// Package dashboard holds the rendered dashboard state and the adapter that updates it.
package dashboard

import (
	"sync"
	"time"

	"github.com/kjstillabower/soil-monitor-service/internal/models"
)

// DashboardState is owned by the composition root and passed to every schedule.
// Chart handles stay nil until Attach; rendering before that is a no-op for the missing handles.
type DashboardState struct {
	mu sync.RWMutex

	gauge  GaugeChart
	trend  TrendChart
	alerts AlertList

	window *Window
	labels []string

	isRealData bool
	layouts    int
	updatedAt  time.Time
	version    uint64
}

func NewDashboardState() *DashboardState {
	return &DashboardState{
		window: NewWindow(WindowCapacity),
		labels: HourLabels(),
	}
}

// Attach installs the chart and alert list handles. Any of them may be nil.
func (s *DashboardState) Attach(gauge GaugeChart, trend TrendChart, alerts AlertList) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gauge = gauge
	s.trend = trend
	s.alerts = alerts
	if trend != nil {
		trend.SetSeries(s.labels, s.window.Values())
	}
}

// Snapshot copies the current rendered state.
func (s *DashboardState) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *DashboardState) snapshotLocked() models.Snapshot {
	snap := models.Snapshot{
		Labels:      append([]string(nil), s.labels...),
		Temperature: s.window.Values(),
		Alerts:      []models.AlertEntry{},
		IsRealData:  s.isRealData,
		Layouts:     s.layouts,
		UpdatedAt:   s.updatedAt,
		Version:     s.version,
	}
	if s.gauge != nil {
		snap.GaugeValue = s.gauge.Value()
	}
	if s.alerts != nil {
		snap.Alerts = s.alerts.Entries()
	}
	return snap
}
