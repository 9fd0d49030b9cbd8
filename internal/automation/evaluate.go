package automation

// Evaluate returns the value of a at time t on the owning clip's local clock.
// Curve times are normalized to a.Duration and start at a.Offset. Values are
// clamped to the first and last keyframe outside the curve and interpolated
// linearly between them. Evaluating at a keyframe's own time returns its
// stored value exactly.
func Evaluate(a Automation, t float64) float64 {
	if len(a.Curves) == 0 {
		return a.Static
	}
	return sample(a.Curves, t, a.At)
}

// valueAt evaluates a curve directly at normalized time n
func valueAt(curves []Keyframe, n float64) float64 {
	return sample(curves, n, func(x float64) float64 { return x })
}

func sample(curves []Keyframe, t float64, clock func(float64) float64) float64 {
	first, last := curves[0], curves[len(curves)-1]
	if t <= clock(first.Time) {
		return first.Value
	}
	if t >= clock(last.Time) {
		return last.Value
	}

	for i := 0; i < len(curves)-1; i++ {
		k0, k1 := curves[i], curves[i+1]
		t0, t1 := clock(k0.Time), clock(k1.Time)
		if t == t1 {
			return k1.Value
		}
		if t >= t0 && t < t1 {
			return Lerp(t0, k0.Value, t1, k1.Value, t)
		}
	}
	return last.Value
}

// Lerp interpolates between (t0,v0) and (t1,v1) at t. A zero-width
// interval yields v0.
func Lerp(t0, v0, t1, v1, t float64) float64 {
	if t1 == t0 {
		return v0
	}
	if t == t0 {
		return v0
	}
	return v0 + (v1-v0)*(t-t0)/(t1-t0)
}
