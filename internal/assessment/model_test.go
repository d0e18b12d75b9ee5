package assessment

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glucosense/riskmeter/internal/artifact"
)

// testModel builds a two-feature, two-tree ensemble small enough for exact
// hand calculation. Node values carry subtree expectations so attribution
// math can be checked against them.
//
//	tree 0: split on feature 0 at 0; left leaf -1.0, right leaf 1.0, root 0.0
//	tree 1: split on feature 1 at 1; left leaf -0.5, right leaf 0.5, root 0.1
func testModel() *artifact.Model {
	return &artifact.Model{
		Type:        "gradient_boosted_trees",
		NumFeatures: 2,
		BaseScore:   0,
		Trees: []artifact.Tree{
			{Nodes: []artifact.Node{
				{Feature: 0, Threshold: 0, Left: 1, Right: 2, Value: 0.0},
				{Leaf: true, Value: -1.0},
				{Leaf: true, Value: 1.0},
			}},
			{Nodes: []artifact.Node{
				{Feature: 1, Threshold: 1, Left: 1, Right: 2, Value: 0.1},
				{Leaf: true, Value: -0.5},
				{Leaf: true, Value: 0.5},
			}},
		},
	}
}

func TestPredict(t *testing.T) {
	m := testModel()

	tests := []struct {
		name           string
		scaled         ScaledVector
		expectedMargin float64
		expectedClass  int
	}{
		{"both splits go right", ScaledVector{0.5, 2}, 1.5, 1},
		{"right then left", ScaledVector{0.5, 0}, 0.5, 1},
		{"left then right", ScaledVector{-0.5, 2}, -0.5, 0},
		{"both splits go left", ScaledVector{-0.5, 0}, -1.5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Predict(tt.scaled, m)
			require.NoError(t, err)

			expectedProb := 1 / (1 + math.Exp(-tt.expectedMargin))
			assert.InDelta(t, expectedProb, result.Probability, 1e-12)
			assert.Equal(t, tt.expectedClass, result.Class)
		})
	}
}

func TestPredictDeterministic(t *testing.T) {
	m := testModel()
	scaled := ScaledVector{0.25, 1.75}

	first, err := Predict(scaled, m)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := Predict(scaled, m)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestPredictDimensionMismatch(t *testing.T) {
	m := testModel()

	_, err := Predict(ScaledVector{1}, m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension mismatch")
}

func TestPredictProbabilityBounds(t *testing.T) {
	m := testModel()

	for _, scaled := range []ScaledVector{{-100, -100}, {100, 100}, {0, 0}} {
		result, err := Predict(scaled, m)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, result.Probability, 0.0)
		assert.LessOrEqual(t, result.Probability, 1.0)
	}
}

func TestDescendCycleDetection(t *testing.T) {
	// A node pointing back at itself must terminate with an error instead
	// of spinning.
	tree := &artifact.Tree{Nodes: []artifact.Node{
		{Feature: 0, Threshold: 0, Left: 0, Right: 0},
	}}

	_, err := descend(tree, ScaledVector{1}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}
