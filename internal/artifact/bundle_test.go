package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validModelJSON = `{
	"type": "gradient_boosted_trees",
	"num_features": 2,
	"base_score": 0.0,
	"trees": [
		{"nodes": [
			{"feature": 0, "threshold": 0.5, "left": 1, "right": 2, "leaf": false, "value": 0.0},
			{"leaf": true, "value": -1.0},
			{"leaf": true, "value": 1.0}
		]}
	]
}`

const validScalerJSON = `{"mean": [1.0, 2.0], "scale": [0.5, 1.5]}`

const validSchemaCSV = "features\nBMI\nGEN_HLTH\n"

func writeBundle(t *testing.T, model, scaler, schema string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ModelFile), []byte(model), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ScalerFile), []byte(scaler), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, SchemaFile), []byte(schema), 0o644))
	return dir
}

func TestLoad(t *testing.T) {
	dir := writeBundle(t, validModelJSON, validScalerJSON, validSchemaCSV)

	bundle, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"BMI", "GEN_HLTH"}, bundle.Schema)
	assert.Equal(t, []float64{1.0, 2.0}, bundle.Scaler.Mean)
	assert.Equal(t, []float64{0.5, 1.5}, bundle.Scaler.Scale)
	assert.Equal(t, 2, bundle.Model.NumFeatures)
	assert.Len(t, bundle.Model.Trees, 1)
	assert.Equal(t, dir, bundle.Dir)
	assert.False(t, bundle.LoadedAt.IsZero())
	assert.Equal(t, 2, bundle.FeatureCount())
}

func TestLoadMissingFiles(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema")
}

func TestLoadRejections(t *testing.T) {
	tests := []struct {
		name   string
		model  string
		scaler string
		schema string
	}{
		{
			name:   "schema without features header",
			model:  validModelJSON,
			scaler: validScalerJSON,
			schema: "columns\nBMI\nGEN_HLTH\n",
		},
		{
			name:   "schema with header only",
			model:  validModelJSON,
			scaler: validScalerJSON,
			schema: "features\n",
		},
		{
			name:   "scaler with zero scale",
			model:  validModelJSON,
			scaler: `{"mean": [1.0, 2.0], "scale": [0.5, 0.0]}`,
			schema: validSchemaCSV,
		},
		{
			name:   "unsupported model type",
			model:  `{"type": "random_forest", "num_features": 2, "trees": [{"nodes": [{"leaf": true, "value": 0}]}]}`,
			scaler: validScalerJSON,
			schema: validSchemaCSV,
		},
		{
			name:   "model without trees",
			model:  `{"type": "gradient_boosted_trees", "num_features": 2, "trees": []}`,
			scaler: validScalerJSON,
			schema: validSchemaCSV,
		},
		{
			name:   "scaler length disagrees with schema",
			model:  validModelJSON,
			scaler: `{"mean": [1.0], "scale": [0.5]}`,
			schema: validSchemaCSV,
		},
		{
			name: "model feature count disagrees with schema",
			model: `{"type": "gradient_boosted_trees", "num_features": 3,
				"trees": [{"nodes": [{"leaf": true, "value": 0}]}]}`,
			scaler: validScalerJSON,
			schema: validSchemaCSV,
		},
		{
			name: "split references feature out of range",
			model: `{"type": "gradient_boosted_trees", "num_features": 2,
				"trees": [{"nodes": [
					{"feature": 5, "threshold": 0.5, "left": 1, "right": 2, "leaf": false, "value": 0},
					{"leaf": true, "value": -1},
					{"leaf": true, "value": 1}
				]}]}`,
			scaler: validScalerJSON,
			schema: validSchemaCSV,
		},
		{
			name: "split references child out of range",
			model: `{"type": "gradient_boosted_trees", "num_features": 2,
				"trees": [{"nodes": [
					{"feature": 0, "threshold": 0.5, "left": 1, "right": 9, "leaf": false, "value": 0},
					{"leaf": true, "value": -1}
				]}]}`,
			scaler: validScalerJSON,
			schema: validSchemaCSV,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeBundle(t, tt.model, tt.scaler, tt.schema)
			_, err := Load(dir)
			assert.Error(t, err)
		})
	}
}
