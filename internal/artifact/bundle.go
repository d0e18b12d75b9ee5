package artifact

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/glucosense/riskmeter/internal/errors"
)

// Artifact file names inside the bundle directory. These match the training
// pipeline's export step.
const (
	ModelFile  = "model.json"
	ScalerFile = "scaler.json"
	SchemaFile = "features.csv"
)

// Node is one decision node of a tree. Internal nodes carry the split
// (feature index, threshold, children); every node carries the expected
// margin of its subtree, which the attribution walk relies on.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Leaf      bool    `json:"leaf"`
	Value     float64 `json:"value"`
}

// Tree is a single regression tree of the ensemble. Nodes[0] is the root.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Model is a pretrained gradient-boosted tree ensemble for binary
// classification. The margin (base score plus the sum of tree outputs) is in
// log-odds space; the positive-class probability is its sigmoid.
type Model struct {
	Type        string  `json:"type"`
	NumFeatures int     `json:"num_features"`
	BaseScore   float64 `json:"base_score"`
	Trees       []Tree  `json:"trees"`
}

// Scaler is a fitted per-feature standardization transform.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Bundle groups the three artifacts the pipeline needs. Loaded once at
// startup, read-only and shared across requests; replaced wholesale on an
// admin reload.
type Bundle struct {
	Schema   []string
	Scaler   *Scaler
	Model    *Model
	Dir      string
	LoadedAt time.Time
}

// Load reads model.json, scaler.json and features.csv from dir and verifies
// dimensional agreement between them. Any failure here is a fatal
// configuration error, not a per-request one.
func Load(dir string) (*Bundle, error) {
	schema, err := loadSchema(filepath.Join(dir, SchemaFile))
	if err != nil {
		return nil, errors.NewArtifactError("schema", err)
	}

	scaler, err := loadScaler(filepath.Join(dir, ScalerFile))
	if err != nil {
		return nil, errors.NewArtifactError("scaler", err)
	}

	model, err := loadModel(filepath.Join(dir, ModelFile))
	if err != nil {
		return nil, errors.NewArtifactError("model", err)
	}

	b := &Bundle{
		Schema:   schema,
		Scaler:   scaler,
		Model:    model,
		Dir:      dir,
		LoadedAt: time.Now(),
	}

	if err := b.Validate(); err != nil {
		return nil, err
	}

	slog.Info("Artifact bundle loaded",
		"dir", dir,
		"features", len(schema),
		"trees", len(model.Trees))

	return b, nil
}

// Validate checks schema/scaler/model dimensional agreement. Skew is never
// truncated or padded over.
func (b *Bundle) Validate() error {
	n := len(b.Schema)
	if n == 0 {
		return errors.NewArtifactError("schema", fmt.Errorf("feature schema is empty"))
	}
	if len(b.Scaler.Mean) != n {
		return errors.NewDimensionError("scaler mean", n, len(b.Scaler.Mean))
	}
	if len(b.Scaler.Scale) != n {
		return errors.NewDimensionError("scaler scale", n, len(b.Scaler.Scale))
	}
	if b.Model.NumFeatures != n {
		return errors.NewDimensionError("model features", n, b.Model.NumFeatures)
	}
	for ti, tree := range b.Model.Trees {
		for ni, node := range tree.Nodes {
			if node.Leaf {
				continue
			}
			if node.Feature < 0 || node.Feature >= n {
				return errors.NewDimensionError(
					fmt.Sprintf("tree %d node %d feature index", ti, ni), n, node.Feature)
			}
			if node.Left < 0 || node.Left >= len(tree.Nodes) ||
				node.Right < 0 || node.Right >= len(tree.Nodes) {
				return errors.NewArtifactError("model",
					fmt.Errorf("tree %d node %d has child index out of range", ti, ni))
			}
		}
	}
	return nil
}

// FeatureCount returns the number of features the bundle was fitted on.
func (b *Bundle) FeatureCount() int {
	return len(b.Schema)
}

func loadSchema(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema file: %w", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema csv: %w", err)
	}
	if len(records) < 2 || len(records[0]) == 0 || records[0][0] != "features" {
		return nil, fmt.Errorf("schema csv must have a 'features' header column")
	}

	schema := make([]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) == 0 || rec[0] == "" {
			continue
		}
		schema = append(schema, rec[0])
	}
	return schema, nil
}

func loadScaler(path string) (*Scaler, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scaler file: %w", err)
	}
	defer file.Close()

	var s Scaler
	if err := json.NewDecoder(file).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode scaler: %w", err)
	}
	for i, sc := range s.Scale {
		if sc == 0 {
			return nil, fmt.Errorf("scaler has zero scale at index %d", i)
		}
	}
	return &s, nil
}

func loadModel(path string) (*Model, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model file: %w", err)
	}
	defer file.Close()

	var m Model
	if err := json.NewDecoder(file).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	if m.Type != "gradient_boosted_trees" {
		return nil, fmt.Errorf("unsupported model type %q", m.Type)
	}
	if len(m.Trees) == 0 {
		return nil, fmt.Errorf("model has no trees")
	}
	for ti, tree := range m.Trees {
		if len(tree.Nodes) == 0 {
			return nil, fmt.Errorf("tree %d has no nodes", ti)
		}
	}
	return &m, nil
}
