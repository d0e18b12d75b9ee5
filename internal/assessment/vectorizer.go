package assessment

import (
	"github.com/glucosense/riskmeter/internal/types"
)

// Vectorize maps a raw answer set onto the model's feature schema, in
// schema order. Missing keys default to zero so the function is total;
// the number of defaulted entries is returned for diagnostics. Derived
// features (BMI category and the like) are the caller's job - this is a
// pure lookup.
func Vectorize(answers types.AnswerSet, schema []string) (FeatureVector, int) {
	vec := make(FeatureVector, len(schema))
	missing := 0
	for i, name := range schema {
		v, ok := answers[name]
		if !ok {
			missing++
			continue
		}
		vec[i] = v
	}
	return vec, missing
}
