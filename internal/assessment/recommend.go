package assessment

import "github.com/glucosense/riskmeter/internal/types"

// recommendationRule pairs an answer predicate with the advice it unlocks.
// Rules fire independently; order is fixed so output ordering is stable.
type recommendationRule struct {
	Applies func(types.AnswerSet) bool
	Advice  Recommendation
}

var recommendationRules = []recommendationRule{
	{
		Applies: func(a types.AnswerSet) bool { return a[types.KeyBMI] >= 25 },
		Advice: Recommendation{
			Topic:      "weight_management",
			Message:    "Your BMI is above the healthy range. Gradual weight loss through balanced meals and portion control can significantly lower your diabetes risk.",
			ActionText: "Discuss a weight management plan with your care provider.",
		},
	},
	{
		Applies: func(a types.AnswerSet) bool { return a[types.KeyExercise] == 0 },
		Advice: Recommendation{
			Topic:      "physical_activity",
			Message:    "Regular physical activity improves how your body uses insulin. Even light activity such as walking for 30 minutes most days makes a difference.",
			ActionText: "Start with short daily walks and build up gradually.",
		},
	},
	{
		Applies: func(a types.AnswerSet) bool { return a[types.KeyGenHealth] >= 4 },
		Advice: Recommendation{
			Topic:      "health_checkup",
			Message:    "You rated your general health as fair or poor. Regular checkups help catch and manage conditions that raise diabetes risk early.",
			ActionText: "Schedule a checkup with your doctor.",
		},
	},
	{
		Applies: func(a types.AnswerSet) bool {
			return a[types.KeyBPMeds] == 1 || a[types.KeyCholMeds] == 1
		},
		Advice: Recommendation{
			Topic:      "medication_adherence",
			Message:    "Blood pressure and cholesterol conditions often travel with diabetes risk. Taking your medication as prescribed keeps these under control.",
			ActionText: "Keep taking your medication as prescribed and review it at your next visit.",
		},
	},
	{
		Applies: func(a types.AnswerSet) bool { return a[types.KeyAlcohol] >= 3 },
		Advice: Recommendation{
			Topic:      "alcohol_reduction",
			Message:    "Frequent alcohol consumption can affect blood sugar control and weight. Cutting back lowers your overall risk.",
			ActionText: "Set a weekly limit and track your intake.",
		},
	},
}

// maintainHabits is the fallback when no rule fires. The list is never
// empty: a respondent with no flagged answers still gets positive
// reinforcement.
var maintainHabits = Recommendation{
	Topic:      "maintain_habits",
	Message:    "Your answers show no specific risk factors to address. Keep up your current healthy habits.",
	ActionText: "Continue your current routine and stay up to date on checkups.",
}

// Recommend derives lifestyle advice from the raw answers. Driven by the
// answers alone, independent of the model's probability and attributions.
func Recommend(answers types.AnswerSet) []Recommendation {
	var recs []Recommendation
	for _, rule := range recommendationRules {
		if rule.Applies(answers) {
			recs = append(recs, rule.Advice)
		}
	}
	if len(recs) == 0 {
		recs = append(recs, maintainHabits)
	}
	return recs
}
