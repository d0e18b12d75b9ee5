package assessment

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// maxExplanations caps the ranked explanation list.
const maxExplanations = 5

// strengthThreshold separates weak from strong influence. Calibrated to the
// attribution scale of the trained model, not a semantic universal; a
// retrained model may need a different value.
const strengthThreshold = 0.1

// explanationTemplate carries the renderable name and description for a
// known feature.
type explanationTemplate struct {
	Name        string
	Description string
}

// explanationTable covers every feature the model was trained on. Features
// outside the table fall back to a generated template.
var explanationTable = map[string]explanationTemplate{
	"GEN_HLTH":          {"General Health", "Your overall health rating"},
	"BMI":               {"Body Mass Index", "Your body weight relative to height"},
	"AGE_GROUP":         {"Age Group", "Your age category"},
	"AGE":               {"Age", "Your age"},
	"WGHT (lbs)":        {"Weight", "Your body weight in pounds"},
	"CHKP_STATUS":       {"Checkup Status", "How recently you had a medical checkup"},
	"ALHL_STATUS":       {"Alcohol Status", "Your alcohol consumption habits"},
	"CHOL_MEDS":         {"Cholesterol Medication", "Whether you take cholesterol medication"},
	"DCTR_STATUS":       {"Doctor Visits", "Your frequency of doctor visits"},
	"EDUCATION_LEVEL":   {"Education Level", "Your education level"},
	"EMPLOYMENT_STATUS": {"Employment Status", "Your current employment status"},
	"SEX":               {"Sex", "Your biological sex"},
	"EXER_STATUS":       {"Exercise Status", "Your physical activity level"},
	"BMI_CATEGORY":      {"BMI Category", "Your BMI classification"},
	"BP_MEDS":           {"Blood Pressure Medication", "Whether you take blood pressure medication"},
}

// lookupTemplate resolves a feature's display template, generating one for
// unknown keys so every feature stays renderable. The title caser carries
// per-call state, so it is created here rather than shared.
func lookupTemplate(key string) explanationTemplate {
	if tpl, ok := explanationTable[key]; ok {
		return tpl
	}
	caser := cases.Title(language.English)
	name := caser.String(strings.ToLower(strings.NewReplacer("_", " ", "(", "", ")", "").Replace(key)))
	name = strings.Join(strings.Fields(name), " ")
	return explanationTemplate{
		Name:        name,
		Description: "Your " + strings.ToLower(name),
	}
}

// Rank selects and orders the top contributing features. Sorted by absolute
// attribution descending with a stable tie-break on schema order; at most
// maxExplanations entries, empty when no attributions are available.
func Rank(attributions []float64, schema []string, values ScaledVector) []ExplanationItem {
	if len(attributions) == 0 {
		return nil
	}

	n := len(attributions)
	if len(schema) < n {
		n = len(schema)
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		va, vb := attributions[order[a]], attributions[order[b]]
		if va < 0 {
			va = -va
		}
		if vb < 0 {
			vb = -vb
		}
		return va > vb
	})

	if n > maxExplanations {
		n = maxExplanations
	}

	items := make([]ExplanationItem, 0, n)
	for _, idx := range order[:n] {
		attr := attributions[idx]

		direction := DirectionDecrease
		if attr > 0 {
			direction = DirectionIncrease
		}

		strength := StrengthWeak
		abs := attr
		if abs < 0 {
			abs = -abs
		}
		if abs > strengthThreshold {
			strength = StrengthStrong
		}

		tpl := lookupTemplate(schema[idx])

		var value float64
		if idx < len(values) {
			value = values[idx]
		}

		items = append(items, ExplanationItem{
			FeatureKey:     schema[idx],
			DisplayName:    tpl.Name,
			Description:    tpl.Description,
			Direction:      direction,
			Strength:       strength,
			RawAttribution: attr,
			Value:          value,
		})
	}
	return items
}
