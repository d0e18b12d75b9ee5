package assessment

import (
	"github.com/glucosense/riskmeter/internal/artifact"
	"github.com/glucosense/riskmeter/internal/errors"
)

// Scale applies the fitted standardization transform to a raw vector. A
// length disagreement with the fitted transform is schema/artifact skew and
// is surfaced immediately, never truncated or padded.
func Scale(vec FeatureVector, scaler *artifact.Scaler) (ScaledVector, error) {
	if len(vec) != len(scaler.Mean) {
		return nil, errors.NewDimensionError("scaler input", len(scaler.Mean), len(vec))
	}

	scaled := make(ScaledVector, len(vec))
	for i, v := range vec {
		scaled[i] = (v - scaler.Mean[i]) / scaler.Scale[i]
	}
	return scaled, nil
}
