package models

import "time"

// Reading is one timestamped sensor observation, live or synthetic.
// Moisture carries soil moisture on the live path and air humidity on the simulation path.
type Reading struct {
	Temperature *float64  `json:"temperature,omitempty"`
	Moisture    float64   `json:"soilMoisture"`
	Timestamp   time.Time `json:"timestamp"`
	IsRealData  bool      `json:"isRealData"`
}

// HasTemperature reports whether the reading carries a temperature sample.
func (r Reading) HasTemperature() bool {
	return r.Temperature != nil
}

// Float returns a pointer to v. Used to build readings with a temperature.
func Float(v float64) *float64 {
	return &v
}
