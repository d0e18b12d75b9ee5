package assessment

import (
	"log/slog"

	"github.com/glucosense/riskmeter/internal/artifact"
)

// Attribute computes one signed contribution score per schema feature for a
// single scored instance, in the ensemble's margin (log-odds) space. As the
// walk descends each tree, the change in subtree expected value at a split
// is credited to the split feature, so Baseline plus the sum of all
// contributions equals the model's margin for that instance exactly.
//
// The ensemble produces a single positive-class margin; the negative-class
// attribution is its mirror image, so only the positive-class array exists
// here and downstream code never sees a per-class choice.
func Attribute(scaled ScaledVector, m *artifact.Model) ([]float64, error) {
	contrib := make([]float64, len(scaled))
	for ti := range m.Trees {
		if _, err := descend(&m.Trees[ti], scaled, contrib); err != nil {
			return nil, err
		}
	}
	return contrib, nil
}

// Baseline returns the expected margin with no feature information: the
// base score plus each tree's root expectation.
func Baseline(m *artifact.Model) float64 {
	base := m.BaseScore
	for _, tree := range m.Trees {
		base += tree.Nodes[0].Value
	}
	return base
}

// attributeOrEmpty is the recoverable boundary: attribution failure must
// not fail the assessment. On error it returns an empty array, which the
// ranker treats as "no explanation available".
func attributeOrEmpty(scaled ScaledVector, m *artifact.Model) []float64 {
	contrib, err := Attribute(scaled, m)
	if err != nil {
		slog.Warn("Attribution unavailable, continuing without explanations", "error", err)
		return nil
	}
	return contrib
}
