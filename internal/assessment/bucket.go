package assessment

// Severity thresholds on the probability scale. Calibrated to the trained
// model's output distribution; recalibrate alongside the model, not
// independently.
const (
	ModerateThreshold = 0.3
	HighThreshold     = 0.6
)

// Bucket maps a probability to its severity level. Pure and total;
// boundaries are inclusive on the upper bucket, so exactly 0.3 is MODERATE
// and exactly 0.6 is HIGH.
func Bucket(probability float64) Severity {
	switch {
	case probability < ModerateThreshold:
		return SeverityLow
	case probability < HighThreshold:
		return SeverityModerate
	default:
		return SeverityHigh
	}
}
