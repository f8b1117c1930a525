package dashboard

import "fmt"

// WindowCapacity is the number of samples kept for the time-series chart, one per hour label.
const WindowCapacity = 24

// Window is a fixed-capacity FIFO of samples. Not safe for concurrent use; DashboardState guards it.
type Window struct {
	capacity int
	values   []float64
}

func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = WindowCapacity
	}
	return &Window{capacity: capacity, values: make([]float64, 0, capacity)}
}

// Push appends v and evicts the oldest sample once the window exceeds its capacity.
func (w *Window) Push(v float64) {
	w.values = append(w.values, v)
	if len(w.values) > w.capacity {
		w.values = append(w.values[:0], w.values[len(w.values)-w.capacity:]...)
	}
}

// Values returns a copy of the samples, oldest first.
func (w *Window) Values() []float64 {
	out := make([]float64, len(w.values))
	copy(out, w.values)
	return out
}

func (w *Window) Len() int { return len(w.values) }

// HourLabels returns the fixed labels "00:00".."23:00".
func HourLabels() []string {
	labels := make([]string, 24)
	for i := range labels {
		labels[i] = fmt.Sprintf("%02d:00", i)
	}
	return labels
}
