package assessment

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/glucosense/riskmeter/internal/artifact"
	"github.com/glucosense/riskmeter/internal/errors"
	"github.com/glucosense/riskmeter/internal/types"
)

// Assessor runs the full scoring pipeline against a loaded artifact bundle.
// Safe for concurrent use; Reload swaps the bundle atomically so in-flight
// assessments always see one consistent model+scaler+schema triple.
type Assessor struct {
	mu     sync.RWMutex
	bundle *artifact.Bundle
}

// NewAssessor wraps a validated bundle. The bundle must have passed
// artifact.Load or Validate; a nil bundle is a programming error surfaced
// as an artifact error rather than a panic.
func NewAssessor(bundle *artifact.Bundle) (*Assessor, error) {
	if bundle == nil {
		return nil, errors.NewArtifactError("bundle", fmt.Errorf("nil bundle"))
	}
	if err := bundle.Validate(); err != nil {
		return nil, err
	}
	return &Assessor{bundle: bundle}, nil
}

// Bundle returns the currently active artifact bundle.
func (a *Assessor) Bundle() *artifact.Bundle {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.bundle
}

// Reload loads a fresh bundle from dir and swaps it in. On any load or
// validation failure the previous bundle stays active.
func (a *Assessor) Reload(dir string) error {
	fresh, err := artifact.Load(dir)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.bundle = fresh
	a.mu.Unlock()
	return nil
}

// Assess scores one answer set end to end: vectorize, scale, predict,
// attribute, rank, bucket, recommend. Attribution failure degrades to an
// empty explanation list instead of failing the assessment; every other
// stage error aborts.
func (a *Assessor) Assess(answers types.AnswerSet) (*AssessmentResult, error) {
	a.mu.RLock()
	bundle := a.bundle
	a.mu.RUnlock()

	vec, missing := Vectorize(answers, bundle.Schema)
	if missing > 0 {
		slog.Warn("Answers missing for schema features, defaulted to zero", "count", missing)
	}

	scaled, err := Scale(vec, bundle.Scaler)
	if err != nil {
		return nil, err
	}

	pred, err := Predict(scaled, bundle.Model)
	if err != nil {
		return nil, err
	}

	attributions := attributeOrEmpty(scaled, bundle.Model)
	explanations := Rank(attributions, bundle.Schema, scaled)

	return &AssessmentResult{
		Prediction:      pred,
		Severity:        Bucket(pred.Probability),
		Explanations:    explanations,
		Recommendations: Recommend(answers),
		MissingAnswers:  missing,
	}, nil
}
