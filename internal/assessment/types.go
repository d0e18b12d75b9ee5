package assessment

import (
	"encoding/json"
	"fmt"
)

// FeatureVector is a raw, schema-ordered vector of answer values.
type FeatureVector []float64

// ScaledVector is a FeatureVector after the fitted standardization
// transform. Owned by a single scoring call, never shared.
type ScaledVector []float64

// PredictionResult is the classifier output for one instance. Immutable
// once produced.
type PredictionResult struct {
	Class       int     `json:"predicted_class"`
	Probability float64 `json:"probability"`
}

// Severity is the ordinal risk level derived from the probability.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityModerate
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityModerate:
		return "MODERATE"
	case SeverityHigh:
		return "HIGH"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// MarshalJSON renders the severity as its label so the UI collaborator can
// key translations off it.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Direction indicates whether a feature pushed the probability up or down.
type Direction string

const (
	DirectionIncrease Direction = "increase"
	DirectionDecrease Direction = "decrease"
)

// Strength classifies the magnitude of a feature's influence.
type Strength string

const (
	StrengthWeak   Strength = "weak"
	StrengthStrong Strength = "strong"
)

// ExplanationItem is one ranked entry of the explanation list. The fields
// are locale-neutral data; formatting and translation belong to the UI.
type ExplanationItem struct {
	FeatureKey     string    `json:"feature_key"`
	DisplayName    string    `json:"display_name"`
	Description    string    `json:"description"`
	Direction      Direction `json:"direction"`
	Strength       Strength  `json:"strength"`
	RawAttribution float64   `json:"raw_attribution"`
	Value          float64   `json:"value"`
}

// Recommendation is one actionable suggestion derived from the raw answers.
type Recommendation struct {
	Topic      string `json:"topic"`
	Message    string `json:"message"`
	ActionText string `json:"action_text"`
}

// AssessmentResult aggregates everything one completed answer set produces.
// Created once per assessment and never mutated afterwards.
type AssessmentResult struct {
	Prediction      PredictionResult  `json:"prediction"`
	Severity        Severity          `json:"severity"`
	Explanations    []ExplanationItem `json:"explanations"`
	Recommendations []Recommendation  `json:"recommendations"`
	MissingAnswers  int               `json:"missing_answers_defaulted"`
}
