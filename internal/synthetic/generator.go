// Package synthetic produces plausible bounded readings when live data is unavailable.
package synthetic

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/kjstillabower/soil-monitor-service/internal/models"
)

// Value ranges of synthetic readings.
const (
	MinTemperature = 15.0
	MaxTemperature = 35.0
	MinMoisture    = 30.0
	MaxMoisture    = 80.0
)

// Generator is safe for concurrent use; both schedules share one instance.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

func NewGenerator() *Generator {
	return NewGeneratorWithSource(rand.NewSource(time.Now().UnixNano()), time.Now)
}

// NewGeneratorWithSource builds a Generator with a fixed random source and clock, for tests.
func NewGeneratorWithSource(src rand.Source, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{rnd: rand.New(src), now: now}
}

// SoilReading is the acquisition fallback variant: moisture only, no temperature.
func (g *Generator) SoilReading() models.Reading {
	g.mu.Lock()
	defer g.mu.Unlock()
	return models.Reading{
		Moisture:  g.inRangeLocked(MinMoisture, MaxMoisture),
		Timestamp: g.now(),
	}
}

// ClimateReading is the simulation variant: temperature plus air humidity.
func (g *Generator) ClimateReading() models.Reading {
	g.mu.Lock()
	defer g.mu.Unlock()
	temp := g.inRangeLocked(MinTemperature, MaxTemperature)
	return models.Reading{
		Temperature: &temp,
		Moisture:    g.inRangeLocked(MinMoisture, MaxMoisture),
		Timestamp:   g.now(),
	}
}

// Moisture returns one synthetic moisture value. Used to seed the gauge at startup.
func (g *Generator) Moisture() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inRangeLocked(MinMoisture, MaxMoisture)
}

func (g *Generator) inRangeLocked(min, max float64) float64 {
	return roundTenth(min + g.rnd.Float64()*(max-min))
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
