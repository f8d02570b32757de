package locate

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Metrics tracks how blind-find candidates were filtered.
type Metrics struct {
	Threshold   float64
	Cutoff      float64
	SkyBaseline float64
	Candidates  int
	Accepted    int
	Rejected    map[Reason]int
}

// NewMetrics creates an initialized Metrics.
func NewMetrics() *Metrics {
	return &Metrics{Rejected: make(map[Reason]int)}
}

func (m *Metrics) record(c Candidate) {
	m.Candidates++
	if r, ok := c.(Rejected); ok {
		m.Rejected[r.Reason]++
	}
}

func (m *Metrics) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddFloat64("threshold", m.Threshold)
	enc.AddFloat64("cutoff", m.Cutoff)
	enc.AddInt("candidates", m.Candidates)
	enc.AddInt("accepted", m.Accepted)
	for _, r := range []Reason{BelowThreshold, BelowCutoff, OutOfWindow, Overlap, SinglePixel, BadPixels} {
		if n := m.Rejected[r]; n > 0 {
			enc.AddInt(r.String(), n)
		}
	}
	return nil
}

func (m *Metrics) field() zap.Field { return zap.Object("metrics", m) }
