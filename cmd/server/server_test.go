package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glucosense/riskmeter/internal/artifact"
	"github.com/glucosense/riskmeter/internal/assessment"
	"github.com/glucosense/riskmeter/internal/cache"
	"github.com/glucosense/riskmeter/internal/monitoring"
	"github.com/glucosense/riskmeter/internal/ratelimit"
)

// testSchema lists the features of the test bundle in training order.
var testSchema = []string{
	"AGE_GROUP", "SEX", "EDUCATION_LEVEL", "EMPLOYMENT_STATUS", "WGHT (lbs)",
	"BMI", "GEN_HLTH", "CHKP_STATUS", "BP_MEDS", "CHOL_MEDS",
	"DCTR_STATUS", "EXER_STATUS", "ALHL_STATUS", "AGE", "BMI_CATEGORY",
}

// writeTestArtifacts writes a minimal but valid bundle: identity scaler and
// a single tree splitting on raw BMI at 27, so outcomes are hand-checkable.
func writeTestArtifacts(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	schema := "features\n"
	for _, name := range testSchema {
		schema += name + "\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, artifact.SchemaFile), []byte(schema), 0o644))

	mean := make([]float64, len(testSchema))
	scale := make([]float64, len(testSchema))
	for i := range scale {
		scale[i] = 1
	}
	scalerJSON, err := json.Marshal(artifact.Scaler{Mean: mean, Scale: scale})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, artifact.ScalerFile), scalerJSON, 0o644))

	bmiIndex := 5
	model := artifact.Model{
		Type:        "gradient_boosted_trees",
		NumFeatures: len(testSchema),
		BaseScore:   0,
		Trees: []artifact.Tree{
			{Nodes: []artifact.Node{
				{Feature: bmiIndex, Threshold: 27, Left: 1, Right: 2, Value: 0},
				{Leaf: true, Value: -1},
				{Leaf: true, Value: 2},
			}},
		},
	}
	modelJSON, err := json.Marshal(model)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, artifact.ModelFile), modelJSON, 0o644))

	return dir
}

func newTestApp(t *testing.T) (*application, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := writeTestArtifacts(t)
	bundle, err := artifact.Load(dir)
	require.NoError(t, err)

	assessor, err := assessment.NewAssessor(bundle)
	require.NoError(t, err)

	redisClient, err := ratelimit.NewRedisClient("", "", 0)
	require.NoError(t, err)

	metrics := monitoring.NewMetrics()

	return &application{
		assessor: assessor,
		cache:    cache.NewCache(time.Minute),
		metrics:  metrics,
		logger:   monitoring.NewLogger(),
		limiter:  ratelimit.NewRateLimiter(redisClient, ratelimit.DefaultConfig(), metrics),
	}, dir
}

func assessBody(bmi float64, exercise, alcohol int) map[string]interface{} {
	return map[string]interface{}{
		"age_group":         9,
		"sex":               1,
		"education_level":   4,
		"employment_status": 2,
		"weight_lbs":        180,
		"bmi":               bmi,
		"general_health":    2,
		"checkup_status":    1,
		"bp_meds":           0,
		"chol_meds":         0,
		"doctor_visits":     2,
		"exercise":          exercise,
		"alcohol_status":    alcohol,
	}
}

func postJSON(router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type assessResponse struct {
	Prediction struct {
		Class       int     `json:"predicted_class"`
		Probability float64 `json:"probability"`
	} `json:"prediction"`
	Severity     string `json:"severity"`
	Explanations []struct {
		FeatureKey     string  `json:"feature_key"`
		Direction      string  `json:"direction"`
		Strength       string  `json:"strength"`
		RawAttribution float64 `json:"raw_attribution"`
	} `json:"explanations"`
	Recommendations []struct {
		Topic string `json:"topic"`
	} `json:"recommendations"`
	MissingAnswers int `json:"missing_answers_defaulted"`
}

func TestAssessEndpointHighRisk(t *testing.T) {
	app, dir := newTestApp(t)
	router := setupRouter(app, dir)

	// BMI 31 crosses the tree split: margin 2, probability ~0.88
	w := postJSON(router, "/assess", assessBody(31, 1, 4))
	require.Equal(t, http.StatusOK, w.Code)

	var resp assessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, 1, resp.Prediction.Class)
	assert.InDelta(t, 0.8808, resp.Prediction.Probability, 0.001)
	assert.Equal(t, "HIGH", resp.Severity)
	assert.Zero(t, resp.MissingAnswers)

	require.NotEmpty(t, resp.Explanations)
	assert.Equal(t, "BMI", resp.Explanations[0].FeatureKey)
	assert.Equal(t, "increase", resp.Explanations[0].Direction)
	assert.Equal(t, "strong", resp.Explanations[0].Strength)
	assert.LessOrEqual(t, len(resp.Explanations), 5)

	topics := make([]string, len(resp.Recommendations))
	for i, rec := range resp.Recommendations {
		topics[i] = rec.Topic
	}
	assert.Contains(t, topics, "weight_management")
	assert.Contains(t, topics, "alcohol_reduction")
}

func TestAssessEndpointLowRisk(t *testing.T) {
	app, dir := newTestApp(t)
	router := setupRouter(app, dir)

	w := postJSON(router, "/assess", assessBody(22, 1, 1))
	require.Equal(t, http.StatusOK, w.Code)

	var resp assessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, 0, resp.Prediction.Class)
	assert.InDelta(t, 0.2689, resp.Prediction.Probability, 0.001)
	assert.Equal(t, "LOW", resp.Severity)

	require.Len(t, resp.Recommendations, 1)
	assert.Equal(t, "maintain_habits", resp.Recommendations[0].Topic)
}

func TestAssessEndpointMultipleRiskFactors(t *testing.T) {
	app, dir := newTestApp(t)
	router := setupRouter(app, dir)

	body := assessBody(34, 0, 1)
	body["general_health"] = 4
	body["bp_meds"] = 1

	w := postJSON(router, "/assess", body)
	require.Equal(t, http.StatusOK, w.Code)

	var resp assessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "HIGH", resp.Severity)

	topics := make([]string, len(resp.Recommendations))
	for i, rec := range resp.Recommendations {
		topics[i] = rec.Topic
	}
	assert.Equal(t, []string{
		"weight_management",
		"physical_activity",
		"health_checkup",
		"medication_adherence",
	}, topics)
}

func TestAssessEndpointValidation(t *testing.T) {
	app, dir := newTestApp(t)
	router := setupRouter(app, dir)

	tests := []struct {
		name   string
		mutate func(map[string]interface{})
	}{
		{"bmi below range", func(b map[string]interface{}) { b["bmi"] = 5 }},
		{"age group above range", func(b map[string]interface{}) { b["age_group"] = 14 }},
		{"missing weight", func(b map[string]interface{}) { delete(b, "weight_lbs") }},
		{"alcohol above range", func(b map[string]interface{}) { b["alcohol_status"] = 9 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := assessBody(22, 1, 1)
			tt.mutate(body)

			w := postJSON(router, "/assess", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestAssessEndpointRejectsNonJSON(t *testing.T) {
	app, dir := newTestApp(t)
	router := setupRouter(app, dir)

	req := httptest.NewRequest(http.MethodPost, "/assess", bytes.NewReader([]byte("bmi=22")))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestAssessEndpointCaching(t *testing.T) {
	app, dir := newTestApp(t)
	router := setupRouter(app, dir)

	body := assessBody(31, 1, 4)

	first := postJSON(router, "/assess", body)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Empty(t, first.Header().Get("X-Cache"))

	second := postJSON(router, "/assess", body)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestHealthEndpoint(t *testing.T) {
	app, dir := newTestApp(t)
	router := setupRouter(app, dir)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Contains(t, resp, "artifacts")
	assert.Contains(t, resp, "metrics")
}

func TestMetricsAndStatsEndpoints(t *testing.T) {
	app, dir := newTestApp(t)
	router := setupRouter(app, dir)

	for _, path := range []string{"/metrics", "/cache/stats", "/ratelimit/stats"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	// Severity tallies are disabled when no store is configured
	req := httptest.NewRequest(http.MethodGet, "/stats/severity", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestArtifactReloadEndpoint(t *testing.T) {
	app, dir := newTestApp(t)
	router := setupRouter(app, dir)

	w := postJSON(router, "/admin/artifacts/reload", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(len(testSchema)), resp["features"])
	assert.Equal(t, dir, resp["dir"])
}

func TestArtifactReloadFailureKeepsServing(t *testing.T) {
	app, dir := newTestApp(t)
	router := setupRouter(app, dir)

	w := postJSON(router, "/admin/artifacts/reload?dir="+t.TempDir(), nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	// The previous bundle still serves assessments
	ok := postJSON(router, "/assess", assessBody(22, 1, 1))
	assert.Equal(t, http.StatusOK, ok.Code)
}
