package models

import "time"

// Severity categorizes an alert record. Values are stable and used as metric labels.
type Severity string

const (
	SeverityOverWet      Severity = "over_wet"
	SeverityOverDry      Severity = "over_dry"
	SeverityNormal       Severity = "normal"
	SeverityInfo         Severity = "info"
	SeverityHighTemp     Severity = "high_temp"
	SeverityLowTemp      Severity = "low_temp"
	SeverityHighHumidity Severity = "high_humidity"
	SeverityLowHumidity  Severity = "low_humidity"
)

type AlertRecord struct {
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
}
