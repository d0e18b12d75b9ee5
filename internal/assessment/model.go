package assessment

import (
	"fmt"
	"math"

	"github.com/glucosense/riskmeter/internal/artifact"
	"github.com/glucosense/riskmeter/internal/errors"
)

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

// margin evaluates the ensemble's raw log-odds output for one instance.
func margin(scaled ScaledVector, m *artifact.Model) (float64, error) {
	sum := m.BaseScore
	for ti := range m.Trees {
		leaf, err := descend(&m.Trees[ti], scaled, nil)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", ti, err)
		}
		sum += leaf
	}
	return sum, nil
}

// descend walks one tree to its leaf for the given instance. When contrib
// is non-nil, the change in subtree expected value at each split is
// credited to the split feature (see attribution.go).
func descend(tree *artifact.Tree, scaled ScaledVector, contrib []float64) (float64, error) {
	idx := 0
	for steps := 0; steps <= len(tree.Nodes); steps++ {
		node := tree.Nodes[idx]
		if node.Leaf {
			return node.Value, nil
		}
		next := node.Right
		if scaled[node.Feature] < node.Threshold {
			next = node.Left
		}
		if contrib != nil {
			contrib[node.Feature] += tree.Nodes[next].Value - node.Value
		}
		idx = next
	}
	return 0, fmt.Errorf("cycle detected during tree traversal")
}

// Predict runs the pretrained binary classifier on a scaled vector.
// Deterministic: identical inputs always yield identical outputs.
func Predict(scaled ScaledVector, m *artifact.Model) (PredictionResult, error) {
	if len(scaled) != m.NumFeatures {
		return PredictionResult{}, errors.NewDimensionError("model input", m.NumFeatures, len(scaled))
	}

	raw, err := margin(scaled, m)
	if err != nil {
		return PredictionResult{}, errors.NewArtifactError("model", err)
	}

	p := sigmoid(raw)
	class := 0
	if p >= 0.5 {
		class = 1
	}
	return PredictionResult{Class: class, Probability: p}, nil
}
