// Package cf holds the certainty-factor calculus shared by the evaluator and
// the query matcher: range checks, the min/max/complement combinators, and the
// confidence buckets used when reporting results.
package cf

import (
	"fmt"

	"github.com/cognicore/shortliffe/pkg/shortliffe/internalerr"
)

// Validate reports whether v is a usable certainty factor.
// NaN fails the range check as well.
func Validate(v float64) error {
	if !(v >= 0 && v <= 1) {
		return fmt.Errorf("%w: got %v", internalerr.ErrOutOfRangeCF, v)
	}
	return nil
}

// And is conjunction: the weakest link.
func And(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// Or is disjunction: the strongest link.
func Or(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Not is the complement.
func Not(v float64) float64 {
	return 1 - v
}

// Level is a human-readable confidence bucket.
type Level string

const (
	VeryHigh Level = "very high"
	High     Level = "high"
	Medium   Level = "medium"
	Low      Level = "low"
	VeryLow  Level = "very low"
)

// LevelOf buckets v:
//
//	[0.8, 1.0] very high
//	[0.6, 0.8) high
//	[0.4, 0.6) medium
//	[0.2, 0.4) low
//	[0.0, 0.2) very low
func LevelOf(v float64) Level {
	switch {
	case v >= 0.8:
		return VeryHigh
	case v >= 0.6:
		return High
	case v >= 0.4:
		return Medium
	case v >= 0.2:
		return Low
	default:
		return VeryLow
	}
}
