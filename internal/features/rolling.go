// Package features computes the derived liquidity feature set from the
// aligned market series. All computations work on columns, produce
// nullable values (*float64) for the warm-up rows where a window or lag
// cannot be satisfied, and never fill or interpolate - a row either has
// the complete feature set or it is dropped.
package features

import (
	"github.com/aristath/liquidity-sentinel/pkg/formulas"
)

// pctChange returns the lag-period percentage change of a nullable
// column: (x[i] - x[i-lag]) / x[i-lag]. The result is nil when either
// endpoint is nil, when i < lag, or when the base value is zero.
// Division by zero is treated as undefined rather than infinite, so the
// row filter can discard it like any other incomplete value.
func pctChange(xs []*float64, lag int) []*float64 {
	out := make([]*float64, len(xs))
	for i := lag; i < len(xs); i++ {
		cur, base := xs[i], xs[i-lag]
		if cur == nil || base == nil || *base == 0 {
			continue
		}
		change := (*cur - *base) / *base
		out[i] = &change
	}
	return out
}

// pctChangeValues is pctChange for a dense column.
func pctChangeValues(xs []float64, lag int) []*float64 {
	out := make([]*float64, len(xs))
	for i := lag; i < len(xs); i++ {
		if xs[i-lag] == 0 {
			continue
		}
		change := (xs[i] - xs[i-lag]) / xs[i-lag]
		out[i] = &change
	}
	return out
}

// rollingStd returns the trailing sample standard deviation over exactly
// window values. A result exists only when all window values ending at i
// are non-nil; partial windows at the head of the series stay nil.
func rollingStd(xs []*float64, window int) []*float64 {
	out := make([]*float64, len(xs))
	if window <= 0 {
		return out
	}

	buf := make([]float64, 0, window)
	for i := window - 1; i < len(xs); i++ {
		buf = buf[:0]
		complete := true
		for j := i - window + 1; j <= i; j++ {
			if xs[j] == nil {
				complete = false
				break
			}
			buf = append(buf, *xs[j])
		}
		if !complete {
			continue
		}
		sd := formulas.StdDev(buf)
		out[i] = &sd
	}
	return out
}
