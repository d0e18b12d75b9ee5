package types

// Feature keys as exported by the training pipeline (model_features.csv).
// The odd "WGHT (lbs)" spelling is what the model was trained on.
const (
	KeyAgeGroup   = "AGE_GROUP"
	KeyAge        = "AGE"
	KeySex        = "SEX"
	KeyEducation  = "EDUCATION_LEVEL"
	KeyEmployment = "EMPLOYMENT_STATUS"
	KeyWeight     = "WGHT (lbs)"
	KeyBMI        = "BMI"
	KeyBMICat     = "BMI_CATEGORY"
	KeyGenHealth  = "GEN_HLTH"
	KeyCheckup    = "CHKP_STATUS"
	KeyBPMeds     = "BP_MEDS"
	KeyCholMeds   = "CHOL_MEDS"
	KeyDoctor     = "DCTR_STATUS"
	KeyExercise   = "EXER_STATUS"
	KeyAlcohol    = "ALHL_STATUS"
)

// AnswerSet holds one individual's raw survey answers keyed by feature name.
// Produced by the wizard UI, consumed by the assessment pipeline. Values are
// the raw (unscaled) numeric encodings the questionnaire collects.
type AnswerSet map[string]float64

// Clone returns an independent copy so the pipeline never shares mutable
// state with the caller.
func (a AnswerSet) Clone() AnswerSet {
	cp := make(AnswerSet, len(a))
	for k, v := range a {
		cp[k] = v
	}
	return cp
}

// AssessRequest is the request body for the assess endpoint. Ranges mirror
// the questionnaire's input constraints; pointer fields are the answers
// where zero is a meaningful value.
type AssessRequest struct {
	AgeGroup     int     `json:"age_group" binding:"required,min=1,max=13"`
	Sex          *int    `json:"sex" binding:"required,min=0,max=1"`
	Education    int     `json:"education_level" binding:"required,min=1,max=6"`
	Employment   int     `json:"employment_status" binding:"required,min=1,max=6"`
	WeightLbs    float64 `json:"weight_lbs" binding:"required,min=50,max=600"`
	BMI          float64 `json:"bmi" binding:"required,min=12,max=60"`
	GenHealth    int     `json:"general_health" binding:"required,min=1,max=5"`
	Checkup      int     `json:"checkup_status" binding:"required,min=1,max=5"`
	BPMeds       *int    `json:"bp_meds" binding:"required,min=0,max=1"`
	CholMeds     *int    `json:"chol_meds" binding:"required,min=0,max=1"`
	DoctorVisits int     `json:"doctor_visits" binding:"required,min=1,max=4"`
	Exercise     *int    `json:"exercise" binding:"required,min=0,max=1"`
	Alcohol      int     `json:"alcohol_status" binding:"required,min=1,max=4"`
}

// Answers maps the validated request onto the raw answer set, including the
// derived BMI category. Derivation happens here, before the pipeline, so the
// vectorizer stays a pure lookup.
func (r AssessRequest) Answers() AnswerSet {
	return AnswerSet{
		KeyAgeGroup:   float64(r.AgeGroup),
		KeyAge:        float64(r.AgeGroup), // training used the age group for both
		KeySex:        float64(*r.Sex),
		KeyEducation:  float64(r.Education),
		KeyEmployment: float64(r.Employment),
		KeyWeight:     r.WeightLbs,
		KeyBMI:        r.BMI,
		KeyBMICat:     float64(BMICategory(r.BMI)),
		KeyGenHealth:  float64(r.GenHealth),
		KeyCheckup:    float64(r.Checkup),
		KeyBPMeds:     float64(*r.BPMeds),
		KeyCholMeds:   float64(*r.CholMeds),
		KeyDoctor:     float64(r.DoctorVisits),
		KeyExercise:   float64(*r.Exercise),
		KeyAlcohol:    float64(r.Alcohol),
	}
}

// BMICategory maps a raw BMI to the ordinal category the model was trained
// on: 1 underweight, 2 normal, 3 overweight, 4 obese.
func BMICategory(bmi float64) int {
	switch {
	case bmi < 18.5:
		return 1
	case bmi < 25:
		return 2
	case bmi < 30:
		return 3
	default:
		return 4
	}
}
