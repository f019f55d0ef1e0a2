// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scoring combines the four assessment dimensions into one
// weighted scalar.
package scoring

import (
	"fmt"
	"math"
)

// Base weights for the four assessment dimensions. They sum to 1.0.
// Relevance dominates; usefulness carries less weight because it
// summarizes the other dimensions.
const (
	WeightRelevance   = 0.35
	WeightCredibility = 0.25
	WeightSolidity    = 0.20
	WeightUsefulness  = 0.20
)

// ErrScoreOutOfRange reports a dimension value outside [1, 5].
type ErrScoreOutOfRange struct {
	Dimension string
	Value     int
}

func (e *ErrScoreOutOfRange) Error() string {
	return fmt.Sprintf("%s score %d out of range [1, 5]", e.Dimension, e.Value)
}

// WeightedScore combines the dimension scores into a single value in
// [1.0, 5.0], rounded to two decimal places.
//
// Credibility is nil for paper candidates, where source credibility is not
// a meaningful signal. Its weight is then redistributed proportionally
// across the remaining three dimensions rather than dropped: each remaining
// weight is scaled by 1/(1-WeightCredibility) so the adjusted weights still
// sum to 1.0 and a uniform input maps to itself.
func WeightedScore(relevance int, credibility *int, solidity, usefulness int) (float64, error) {
	for _, d := range []struct {
		name  string
		value int
	}{
		{"relevance", relevance},
		{"solidity", solidity},
		{"usefulness", usefulness},
	} {
		if d.value < 1 || d.value > 5 {
			return 0, &ErrScoreOutOfRange{Dimension: d.name, Value: d.value}
		}
	}

	if credibility != nil {
		if *credibility < 1 || *credibility > 5 {
			return 0, &ErrScoreOutOfRange{Dimension: "credibility", Value: *credibility}
		}
		sum := float64(relevance)*WeightRelevance +
			float64(*credibility)*WeightCredibility +
			float64(solidity)*WeightSolidity +
			float64(usefulness)*WeightUsefulness
		return round2(sum), nil
	}

	remaining := WeightRelevance + WeightSolidity + WeightUsefulness
	factor := 1.0 / remaining

	sum := float64(relevance)*WeightRelevance*factor +
		float64(solidity)*WeightSolidity*factor +
		float64(usefulness)*WeightUsefulness*factor
	return round2(sum), nil
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
