package teaching

import (
	"fmt"

	"ctxlab/internal/types"
)

// ComparisonGenerator contrasts the same query run at different levels.
// It receives one session per level and returns nil when the data cannot
// support the comparison.
type ComparisonGenerator struct {
	Levels   []int // all must be present for the generator to run
	Generate func(sessions map[int]*types.QuerySession) *ComparisonInsight
}

func monolithVsSkills(sessions map[int]*types.QuerySession) *ComparisonInsight {
	l1, l2 := sessions[1], sessions[2]
	if l1.TotalInputTokens == 0 {
		return nil
	}
	delta := l1.TotalInputTokens - l2.TotalInputTokens
	pct := float64(delta) / float64(l1.TotalInputTokens) * 100
	return &ComparisonInsight{
		Levels: [2]int{1, 2},
		Text: fmt.Sprintf(
			"Same query. L1: %s tokens. L2: %s tokens. Progressive disclosure saved %s tokens (%.0f%%).",
			groupThousands(l1.TotalInputTokens), groupThousands(l2.TotalInputTokens),
			groupThousands(delta), pct),
		WhatChanged: "L2 loaded only the relevant skill details instead of all skills",
		Measurements: map[string]float64{
			"l1_input": float64(l1.TotalInputTokens),
			"l2_input": float64(l2.TotalInputTokens),
		},
	}
}
