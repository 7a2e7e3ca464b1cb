package prediction

import (
	"encoding/json"
	"fmt"
	"os"
)

// forestDocument is a scikit-learn RandomForestClassifier exported tree by tree.
type forestDocument struct {
	NFeatures    int          `json:"n_features"`
	Classes      []int        `json:"classes"`
	FeatureNames []string     `json:"feature_names,omitempty"`
	Trees        []treeArrays `json:"trees"`
}

// treeArrays mirrors the estimator's tree_ attributes. value holds per-class weights per node.
type treeArrays struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

const leafNode = -1

// ForestClassifier evaluates the exported forest in process. It holds no mutable state.
type ForestClassifier struct {
	nFeatures    int
	classes      []int
	featureNames []string
	trees        []treeArrays
}

// LoadForest reads and validates a forest document.
func LoadForest(path string) (*ForestClassifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	return ParseForest(data)
}

// ParseForest decodes and validates a forest document.
func ParseForest(data []byte) (*ForestClassifier, error) {
	var doc forestDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if doc.NFeatures <= 0 {
		return nil, fmt.Errorf("model declares %d features", doc.NFeatures)
	}
	if len(doc.Classes) == 0 {
		return nil, fmt.Errorf("model declares no classes")
	}
	if len(doc.Trees) == 0 {
		return nil, fmt.Errorf("model has no trees")
	}
	if len(doc.FeatureNames) > 0 && len(doc.FeatureNames) != doc.NFeatures {
		return nil, fmt.Errorf("model lists %d feature names for %d features", len(doc.FeatureNames), doc.NFeatures)
	}
	for i, t := range doc.Trees {
		if err := t.validate(doc.NFeatures, len(doc.Classes)); err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
	}

	return &ForestClassifier{
		nFeatures:    doc.NFeatures,
		classes:      doc.Classes,
		featureNames: doc.FeatureNames,
		trees:        doc.Trees,
	}, nil
}

// validate checks array shapes and that every split points forward, so traversal terminates.
func (t treeArrays) validate(nFeatures, nClasses int) error {
	n := len(t.ChildrenLeft)
	if n == 0 {
		return fmt.Errorf("empty tree")
	}
	if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return fmt.Errorf("node arrays have mismatched lengths")
	}
	for node := 0; node < n; node++ {
		left, right := t.ChildrenLeft[node], t.ChildrenRight[node]
		if len(t.Value[node]) != nClasses {
			return fmt.Errorf("node %d has %d class weights, want %d", node, len(t.Value[node]), nClasses)
		}
		if left == leafNode && right == leafNode {
			continue
		}
		if left <= node || right <= node || left >= n || right >= n {
			return fmt.Errorf("node %d has invalid children (%d, %d)", node, left, right)
		}
		if f := t.Feature[node]; f < 0 || f >= nFeatures {
			return fmt.Errorf("node %d splits on feature %d", node, f)
		}
	}
	return nil
}

func (f *ForestClassifier) NumFeatures() int { return f.nFeatures }

func (f *ForestClassifier) Classes() []int { return append([]int(nil), f.classes...) }

// FeatureNames returns the training column names, when the export carried them.
func (f *ForestClassifier) FeatureNames() []string { return append([]string(nil), f.featureNames...) }

func (f *ForestClassifier) Close() error { return nil }

// Predict averages the normalised leaf distributions of all trees and returns the most likely class.
func (f *ForestClassifier) Predict(vector []float64) (int, error) {
	proba, err := f.PredictProba(vector)
	if err != nil {
		return 0, err
	}
	best := 0
	for i := 1; i < len(proba); i++ {
		if proba[i] > proba[best] {
			best = i
		}
	}
	return f.classes[best], nil
}

// PredictProba returns the mean class distribution, indexed like Classes().
func (f *ForestClassifier) PredictProba(vector []float64) ([]float64, error) {
	if len(vector) != f.nFeatures {
		return nil, fmt.Errorf("expected %d features, got %d", f.nFeatures, len(vector))
	}

	// Splits are evaluated on float32 inputs, as the trees were fitted.
	x := make([]float64, len(vector))
	for i, v := range vector {
		x[i] = float64(float32(v))
	}

	proba := make([]float64, len(f.classes))
	for _, t := range f.trees {
		leaf := t.leaf(x)
		weights := t.Value[leaf]
		var total float64
		for _, w := range weights {
			total += w
		}
		if total == 0 {
			continue
		}
		for c, w := range weights {
			proba[c] += w / total
		}
	}
	for c := range proba {
		proba[c] /= float64(len(f.trees))
	}
	return proba, nil
}

func (t treeArrays) leaf(x []float64) int {
	node := 0
	for t.ChildrenLeft[node] != leafNode {
		if x[t.Feature[node]] <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}
	return node
}
