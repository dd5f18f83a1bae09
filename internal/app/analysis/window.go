package analysis

// movingAverage is a trailing mean over at most size values backed by a ring
// buffer. Until the ring fills, the mean covers the values seen so far.
type movingAverage struct {
	values []float64
	size   int
	index  int
	count  int
	sum    float64
}

func newMovingAverage(size int) *movingAverage {
	if size < 1 {
		size = 1
	}
	return &movingAverage{
		values: make([]float64, size),
		size:   size,
	}
}

// Add pushes v and returns the mean of the current window.
func (m *movingAverage) Add(v float64) float64 {
	if m.count >= m.size {
		m.sum -= m.values[m.index]
	} else {
		m.count++
	}

	m.values[m.index] = v
	m.sum += v
	m.index = (m.index + 1) % m.size

	// Re-sum once per lap so subtraction error cannot accumulate.
	if m.index == 0 && m.count == m.size {
		m.sum = 0
		for _, x := range m.values {
			m.sum += x
		}
	}
	return m.Mean()
}

func (m *movingAverage) Mean() float64 {
	if m.count == 0 {
		return 0
	}
	return m.sum / float64(m.count)
}
