package dashboard

import "github.com/kjstillabower/soil-monitor-service/internal/models"

// GaugeChart is the single-value visualization handle.
type GaugeChart interface {
	SetValue(v float64)
	Value() float64
	Resize()
}

// TrendChart is the time-series visualization handle.
type TrendChart interface {
	SetSeries(labels []string, values []float64)
	Series() (labels []string, values []float64)
	Resize()
}

// AlertList is the alert list container.
type AlertList interface {
	Clear()
	Append(entry models.AlertEntry)
	Entries() []models.AlertEntry
}

// GaugeView is an in-memory GaugeChart whose state is served to the browser as JSON.
type GaugeView struct {
	value   float64
	layouts int
}

func NewGaugeView(initial float64) *GaugeView {
	return &GaugeView{value: initial}
}

func (g *GaugeView) SetValue(v float64) { g.value = v }
func (g *GaugeView) Value() float64     { return g.value }
func (g *GaugeView) Resize()            { g.layouts++ }

// TrendView is an in-memory TrendChart.
type TrendView struct {
	labels  []string
	values  []float64
	layouts int
}

func NewTrendView(labels []string) *TrendView {
	return &TrendView{labels: append([]string(nil), labels...), values: []float64{}}
}

func (t *TrendView) SetSeries(labels []string, values []float64) {
	t.labels = append(t.labels[:0], labels...)
	t.values = append(t.values[:0], values...)
}

func (t *TrendView) Series() ([]string, []float64) {
	return append([]string(nil), t.labels...), append([]float64(nil), t.values...)
}

func (t *TrendView) Resize() { t.layouts++ }

// AlertBoard is an in-memory AlertList.
type AlertBoard struct {
	entries []models.AlertEntry
}

func NewAlertBoard() *AlertBoard {
	return &AlertBoard{}
}

func (b *AlertBoard) Clear()                         { b.entries = b.entries[:0] }
func (b *AlertBoard) Append(entry models.AlertEntry) { b.entries = append(b.entries, entry) }

func (b *AlertBoard) Entries() []models.AlertEntry {
	return append([]models.AlertEntry{}, b.entries...)
}
