// Package resample converts PCM between sample rates with a streaming
// linear interpolator. Filter state (the last input sample and the
// fractional read position) carries across calls so successive frames
// of one session join without discontinuities; Reset clears it between
// sessions.
package resample

type Resampler struct {
	srcRate int
	dstRate int
	step    float64

	frac   float64
	prev   int16
	primed bool
}

func New(srcRate, dstRate int) *Resampler {
	return &Resampler{
		srcRate: srcRate,
		dstRate: dstRate,
		step:    float64(srcRate) / float64(dstRate),
	}
}

// Process consumes one frame of mono S16 samples and returns the
// resampled output. The output length varies by one sample between
// calls depending on the carried fractional position.
func (r *Resampler) Process(in []int16) []int16 {
	if r.srcRate == r.dstRate {
		out := make([]int16, len(in))
		copy(out, in)
		return out
	}

	out := make([]int16, 0, len(in)*r.dstRate/r.srcRate+2)
	for _, cur := range in {
		if !r.primed {
			r.prev = cur
			r.primed = true
			continue
		}
		for r.frac < 1.0 {
			v := float64(r.prev) + (float64(cur)-float64(r.prev))*r.frac
			out = append(out, clamp(v))
			r.frac += r.step
		}
		r.frac -= 1.0
		r.prev = cur
	}
	return out
}

// Reset drops carried state so the next Process starts a fresh stream.
func (r *Resampler) Reset() {
	r.frac = 0
	r.prev = 0
	r.primed = false
}

func clamp(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
