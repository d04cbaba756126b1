package analysis

// MinMaxScale rescales the series into [0, 1] against its own minimum and
// maximum. The scaler is fit fresh on each call, so results are relative to
// the current window, never comparable across runs. A constant series maps
// to all zeros.
func MinMaxScale(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	out := make([]float64, len(values))
	span := hi - lo
	if span == 0 {
		return out
	}
	for i, v := range values {
		out[i] = (v - lo) / span
	}
	return out
}
