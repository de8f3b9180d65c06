package stream

import "github.com/pulsenative/pulsed/internal/pulse/sample"

// dllClock implements the first-order phase-locked-loop smoothing
// libpulse's clients and this server both use to report a stable
// record-stream latency instead of jittering with every fragment.
// bandwidth controls how aggressively the estimate tracks new
// measurements; 0.05 matches the published client library's own
// pa_smoother/DLL tuning for a low-jitter correction.
type dllClock struct {
	spec sample.Spec

	smoothedErrorUSec float64
	bandwidth         float64
	initialized       bool
}

const (
	dllBandwidth         = 0.05
	dllResyncMinUSec     = -50 * 1000
	dllResyncMaxUSec     = 200 * 1000
	dllMaxCorrectionUSec = 20 * 1000
)

func newDLLClock(spec sample.Spec) *dllClock {
	return &dllClock{spec: spec, bandwidth: dllBandwidth}
}

// Observe feeds the clock one fragment's actual arrival error (measured
// minus expected elapsed time, in microseconds) and returns the smoothed
// correction to report as this fragment's latency adjustment. A raw
// error outside [dllResyncMinUSec, dllResyncMaxUSec] is treated as a
// discontinuity (device suspend/resume, a scheduling stall) and resyncs
// the filter instead of blending it in.
func (c *dllClock) Observe(rawErrorUSec float64) float64 {
	if rawErrorUSec < dllResyncMinUSec || rawErrorUSec > dllResyncMaxUSec {
		c.smoothedErrorUSec = rawErrorUSec
		c.initialized = true
		return clampCorrection(rawErrorUSec)
	}
	if !c.initialized {
		c.smoothedErrorUSec = rawErrorUSec
		c.initialized = true
	} else {
		c.smoothedErrorUSec += c.bandwidth * (rawErrorUSec - c.smoothedErrorUSec)
	}
	return clampCorrection(c.smoothedErrorUSec)
}

func clampCorrection(v float64) float64 {
	if v > dllMaxCorrectionUSec {
		return dllMaxCorrectionUSec
	}
	if v < -dllMaxCorrectionUSec {
		return -dllMaxCorrectionUSec
	}
	return v
}

// SmoothedUSec returns the filter's current correction estimate without
// feeding it a new observation.
func (c *dllClock) SmoothedUSec() float64 {
	return clampCorrection(c.smoothedErrorUSec)
}
