package assessment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glucosense/riskmeter/internal/artifact"
	"github.com/glucosense/riskmeter/internal/errors"
)

func TestScale(t *testing.T) {
	scaler := &artifact.Scaler{
		Mean:  []float64{10, 0, -5},
		Scale: []float64{2, 1, 5},
	}

	scaled, err := Scale(FeatureVector{12, 0.5, 0}, scaler)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 0.5, 1}, scaled, 1e-12)
}

func TestScaleIdentityTransform(t *testing.T) {
	scaler := &artifact.Scaler{
		Mean:  []float64{0, 0},
		Scale: []float64{1, 1},
	}

	scaled, err := Scale(FeatureVector{3.5, -2}, scaler)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{3.5, -2}, scaled, 1e-12)
}

func TestScaleDimensionMismatch(t *testing.T) {
	scaler := &artifact.Scaler{
		Mean:  []float64{0, 0},
		Scale: []float64{1, 1},
	}

	_, err := Scale(FeatureVector{1, 2, 3}, scaler)
	require.Error(t, err)

	appErr := errors.ToAppError(err)
	assert.Equal(t, errors.CategoryDimension, appErr.Category)
	assert.True(t, errors.IsFatal(err))
}
