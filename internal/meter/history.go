package meter

// DefaultHistoryCapacity is the number of samples kept for the live chart.
const DefaultHistoryCapacity = 50

// RollingHistory is a fixed-capacity FIFO of the most recent samples.
// Push is O(1); the oldest sample is overwritten once full.
type RollingHistory struct {
	buf   []float64
	start int
	size  int
}

// NewRollingHistory creates an empty history. Non-positive capacities use the default.
func NewRollingHistory(capacity int) *RollingHistory {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &RollingHistory{buf: make([]float64, capacity)}
}

// Push appends v, evicting the oldest sample when at capacity.
func (h *RollingHistory) Push(v float64) {
	if h.size < len(h.buf) {
		h.buf[(h.start+h.size)%len(h.buf)] = v
		h.size++
		return
	}
	h.buf[h.start] = v
	h.start = (h.start + 1) % len(h.buf)
}

// Len returns the number of samples held.
func (h *RollingHistory) Len() int { return h.size }

// Cap returns the fixed capacity.
func (h *RollingHistory) Cap() int { return len(h.buf) }

// Values returns a copy of the samples in arrival order.
func (h *RollingHistory) Values() []float64 {
	out := make([]float64, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}

// Clear drops every sample and keeps the capacity.
func (h *RollingHistory) Clear() {
	h.start = 0
	h.size = 0
}
