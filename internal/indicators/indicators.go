// Package indicators derives technical-analysis series from a price column:
// simple moving average, rolling Sharpe-style ratio, RSI, MACD with its
// signal line, and a z-score.
//
// Every series is returned as values plus a validity mask. Rows inside a
// warm-up window, rows touching a missing input, and divisions by zero are
// invalid (null) rather than errors.
package indicators

import "math"

// Series is a float vector with a validity mask of the same length.
type Series struct {
	Values []float64
	Valid  []bool
}

func newSeries(n int) Series {
	return Series{Values: make([]float64, n), Valid: make([]bool, n)}
}

// Len returns the number of entries.
func (s Series) Len() int { return len(s.Values) }

// SMA is the trailing mean over window rows. Entry i is valid when i >= window-1
// and every input in the window is valid.
func SMA(in Series, window int) Series {
	n := in.Len()
	out := newSeries(n)
	if window <= 0 {
		return out
	}
	var sum float64
	bad := 0 // invalid inputs inside the current window
	for i := 0; i < n; i++ {
		if in.Valid[i] {
			sum += in.Values[i]
		} else {
			bad++
		}
		if i >= window {
			j := i - window
			if in.Valid[j] {
				sum -= in.Values[j]
			} else {
				bad--
			}
		}
		if i >= window-1 && bad == 0 {
			out.Values[i] = sum / float64(window)
			out.Valid[i] = true
		}
	}
	return out
}

// Returns is the simple period return p[i]/p[i-1] - 1. Entry 0 is invalid, as
// is any entry whose previous price is zero.
func Returns(in Series) Series {
	n := in.Len()
	out := newSeries(n)
	for i := 1; i < n; i++ {
		if !in.Valid[i] || !in.Valid[i-1] || in.Values[i-1] == 0 {
			continue
		}
		out.Values[i] = in.Values[i]/in.Values[i-1] - 1
		out.Valid[i] = true
	}
	return out
}

// RollingSharpe is the mean of the last window returns divided by their
// sample standard deviation. A zero deviation gives an invalid entry.
func RollingSharpe(prices Series, window int) Series {
	r := Returns(prices)
	n := r.Len()
	out := newSeries(n)
	if window < 2 {
		return out
	}
	for i := window; i < n; i++ {
		mean, std, ok := meanStd(r, i-window+1, i+1)
		if !ok || std == 0 {
			continue
		}
		out.Values[i] = mean / std
		out.Valid[i] = true
	}
	return out
}

// RSI is the relative strength index over window price changes:
// 100 - 100/(1+RS), RS being the mean gain over the mean loss. No losses with
// some gain is 100; no movement at all is invalid.
func RSI(prices Series, window int) Series {
	n := prices.Len()
	out := newSeries(n)
	if window <= 0 {
		return out
	}
	gains := newSeries(n)
	losses := newSeries(n)
	for i := 1; i < n; i++ {
		if !prices.Valid[i] || !prices.Valid[i-1] {
			continue
		}
		d := prices.Values[i] - prices.Values[i-1]
		gains.Values[i] = math.Max(d, 0)
		losses.Values[i] = math.Max(-d, 0)
		gains.Valid[i], losses.Valid[i] = true, true
	}
	avgGain := SMA(gains, window)
	avgLoss := SMA(losses, window)
	for i := 0; i < n; i++ {
		if !avgGain.Valid[i] || !avgLoss.Valid[i] {
			continue
		}
		g, l := avgGain.Values[i], avgLoss.Values[i]
		switch {
		case l == 0 && g == 0:
			continue
		case l == 0:
			out.Values[i] = 100
		default:
			out.Values[i] = 100 - 100/(1+g/l)
		}
		out.Valid[i] = true
	}
	return out
}

// EMA is the recursive exponential moving average with alpha = 2/(span+1),
// seeded with the first valid value. Invalid inputs carry the average forward
// and produce invalid outputs.
func EMA(in Series, span int) Series {
	n := in.Len()
	out := newSeries(n)
	if span <= 0 {
		return out
	}
	alpha := 2 / (float64(span) + 1)
	seeded := false
	var e float64
	for i := 0; i < n; i++ {
		if !in.Valid[i] {
			continue
		}
		if !seeded {
			e, seeded = in.Values[i], true
		} else {
			e = alpha*in.Values[i] + (1-alpha)*e
		}
		out.Values[i] = e
		out.Valid[i] = true
	}
	return out
}

// MACD returns the fast/slow EMA spread and its signal-period EMA. The spread
// is invalid for the first slow-1 rows; the signal for a further signal-1.
func MACD(prices Series, fast, slow, signal int) (macd, sig Series) {
	n := prices.Len()
	f := EMA(prices, fast)
	s := EMA(prices, slow)
	macd = newSeries(n)
	for i := slow - 1; i < n; i++ {
		if i < 0 || !f.Valid[i] || !s.Valid[i] {
			continue
		}
		macd.Values[i] = f.Values[i] - s.Values[i]
		macd.Valid[i] = true
	}
	sig = EMA(macd, signal)
	for i := 0; i < n && i < slow+signal-2; i++ {
		sig.Valid[i] = false
		sig.Values[i] = 0
	}
	return macd, sig
}

// ZScore standardizes each value against the whole column's mean and sample
// standard deviation.
func ZScore(in Series) Series {
	out := newSeries(in.Len())
	st := Describe(in)
	if st.Count < 2 || st.Std == 0 {
		return out
	}
	for i, v := range in.Values {
		if in.Valid[i] {
			out.Values[i] = (v - st.Mean) / st.Std
			out.Valid[i] = true
		}
	}
	return out
}

// Stats summarizes the valid entries of a series.
type Stats struct {
	Count    int
	Mean     float64
	Variance float64 // sample variance
	Std      float64
	Min, Max float64
}

// Describe returns summary statistics over valid entries. Variance and Std are
// zero when fewer than two entries are valid.
func Describe(in Series) Stats {
	var st Stats
	first := true
	var sum float64
	for i, v := range in.Values {
		if !in.Valid[i] {
			continue
		}
		st.Count++
		sum += v
		if first || v < st.Min {
			st.Min = v
		}
		if first || v > st.Max {
			st.Max = v
		}
		first = false
	}
	if st.Count == 0 {
		return st
	}
	st.Mean = sum / float64(st.Count)
	if st.Count > 1 {
		var ss float64
		for i, v := range in.Values {
			if in.Valid[i] {
				ss += (v - st.Mean) * (v - st.Mean)
			}
		}
		st.Variance = ss / float64(st.Count-1)
		st.Std = math.Sqrt(st.Variance)
	}
	return st
}

// meanStd computes mean and sample std of s[lo:hi]. ok is false when any
// entry in the range is invalid or the range holds fewer than two entries.
func meanStd(s Series, lo, hi int) (mean, std float64, ok bool) {
	k := hi - lo
	if k < 2 {
		return 0, 0, false
	}
	var sum float64
	for i := lo; i < hi; i++ {
		if !s.Valid[i] {
			return 0, 0, false
		}
		sum += s.Values[i]
	}
	mean = sum / float64(k)
	var ss float64
	for i := lo; i < hi; i++ {
		d := s.Values[i] - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(k-1)), true
}
