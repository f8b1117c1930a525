package models

import "time"

// AlertEntry is one rendered line of the alert list.
type AlertEntry struct {
	Text     string   `json:"text"`
	Severity Severity `json:"severity"`
}

// Snapshot is the rendered dashboard state served to the browser and shared via the snapshot cache.
type Snapshot struct {
	GaugeValue  float64      `json:"gaugeValue"`
	Labels      []string     `json:"labels"`
	Temperature []float64    `json:"temperature"`
	Alerts      []AlertEntry `json:"alerts"`
	IsRealData  bool         `json:"isRealData"`
	Layouts     int          `json:"layouts"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	// Version increases with every render or resize; the newest snapshot wins in shared stores.
	Version uint64 `json:"version"`
}
