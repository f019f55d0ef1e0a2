// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestWeightedScoreAllDimensions(t *testing.T) {
	tests := []struct {
		name                              string
		relevance, credibility, solidity  int
		usefulness                        int
		want                              float64
	}{
		{"all fives", 5, 5, 5, 5, 5.0},
		{"all ones", 1, 1, 1, 1, 1.0},
		{"mixed", 4, 3, 4, 4, 3.75},
		{"uniform twos", 2, 2, 2, 2, 2.0},
		{"relevance dominates", 5, 1, 1, 1, 2.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WeightedScore(tt.relevance, intPtr(tt.credibility), tt.solidity, tt.usefulness)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestWeightedScoreNilCredibility exercises the weight redistribution rule:
// credibility's 0.25 is spread proportionally over the remaining 0.75, not
// simply dropped from the sum.
func TestWeightedScoreNilCredibility(t *testing.T) {
	tests := []struct {
		name                            string
		relevance, solidity, usefulness int
		want                            float64
	}{
		{"all fives", 5, 5, 5, 5.0},
		{"all ones", 1, 1, 1, 1.0},
		{"mixed", 4, 3, 4, 3.73},
		{"uniform threes", 3, 3, 3, 3.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WeightedScore(tt.relevance, nil, tt.solidity, tt.usefulness)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Dropping the credibility term without renormalizing would cap scores at
// 0.75 of the true value. Guard against that regression with an exact check
// of the adjusted weights.
func TestWeightedScoreRedistributionExact(t *testing.T) {
	// relevance=5, solidity=1, usefulness=1:
	// 5*0.35/0.75 + 1*0.20/0.75 + 1*0.20/0.75 = 2.8667 -> 2.87
	got, err := WeightedScore(5, nil, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2.87, got)
}

func TestWeightedScoreOutOfRange(t *testing.T) {
	tests := []struct {
		name        string
		relevance   int
		credibility *int
		solidity    int
		usefulness  int
	}{
		{"relevance zero", 0, intPtr(3), 3, 3},
		{"relevance six", 6, intPtr(3), 3, 3},
		{"credibility zero", 3, intPtr(0), 3, 3},
		{"credibility six", 3, intPtr(6), 3, 3},
		{"solidity negative", 3, intPtr(3), -1, 3},
		{"usefulness six", 3, intPtr(3), 3, 6},
		{"nil credibility still validates others", 0, nil, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := WeightedScore(tt.relevance, tt.credibility, tt.solidity, tt.usefulness)
			require.Error(t, err)
			var oor *ErrScoreOutOfRange
			assert.ErrorAs(t, err, &oor)
		})
	}
}

func TestWeightsSumToOne(t *testing.T) {
	assert.InDelta(t, 1.0, WeightRelevance+WeightCredibility+WeightSolidity+WeightUsefulness, 1e-9)
}
