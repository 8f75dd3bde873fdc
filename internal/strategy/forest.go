package strategy

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	sig "signalbot-go/internal/signal"
)

// ErrInvalidArtifact marks a model file that cannot be turned into a classifier.
var ErrInvalidArtifact = errors.New("invalid model artifact")

// ErrNonFiniteFeature is returned when a vector carries NaN or Inf.
var ErrNonFiniteFeature = errors.New("non-finite feature")

// ForestNode is one node of an exported decision tree. Internal nodes route
// x[Feature] <= Threshold to Left and everything else to Right. Leaves have a
// negative Feature (scikit-learn exports -2) and carry per-class weights in Value.
type ForestNode struct {
	Feature   int       `yaml:"feature" json:"feature"`
	Threshold float64   `yaml:"threshold" json:"threshold"`
	Left      int       `yaml:"left" json:"left"`
	Right     int       `yaml:"right" json:"right"`
	Value     []float64 `yaml:"value" json:"value"`
}

// ForestTree is a flat node array with the root at index 0.
type ForestTree struct {
	Nodes []ForestNode `yaml:"nodes" json:"nodes"`
}

// ForestArtifact is the on-disk shape of an exported random forest (JSON or YAML).
type ForestArtifact struct {
	Name     string       `yaml:"name" json:"name"`
	Features []string     `yaml:"features" json:"features"`
	Classes  []int        `yaml:"classes" json:"classes"`
	Trees    []ForestTree `yaml:"trees" json:"trees"`
}

// Forest predicts by averaging normalized leaf distributions over all trees
// and picking the most probable class.
type Forest struct {
	name    string
	classes []sig.Signal
	trees   []ForestTree
}

// LoadForest reads and validates a forest artifact from disk.
func LoadForest(path string) (*Forest, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty model path", ErrInvalidArtifact)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var artifact ForestArtifact
	if err := yaml.Unmarshal(raw, &artifact); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidArtifact, err)
	}
	return NewForest(artifact)
}

// NewForest validates an artifact and builds a Forest from it.
func NewForest(a ForestArtifact) (*Forest, error) {
	if len(a.Features) > 0 {
		if len(a.Features) != NumFeatures {
			return nil, fmt.Errorf("%w: expected %d features, got %d", ErrInvalidArtifact, NumFeatures, len(a.Features))
		}
		for i, name := range a.Features {
			if name != FeatureNames[i] {
				return nil, fmt.Errorf("%w: feature %d is %q, want %q", ErrInvalidArtifact, i, name, FeatureNames[i])
			}
		}
	}
	if len(a.Classes) == 0 {
		return nil, fmt.Errorf("%w: no classes", ErrInvalidArtifact)
	}
	if len(a.Trees) == 0 {
		return nil, fmt.Errorf("%w: no trees", ErrInvalidArtifact)
	}
	classes := make([]sig.Signal, len(a.Classes))
	for i, c := range a.Classes {
		s, err := sig.FromClass(c)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
		}
		classes[i] = s
	}
	for ti, tree := range a.Trees {
		if err := validateTree(tree, len(classes)); err != nil {
			return nil, fmt.Errorf("%w: tree %d: %v", ErrInvalidArtifact, ti, err)
		}
	}
	name := a.Name
	if name == "" {
		name = "Forest"
	}
	return &Forest{name: name, classes: classes, trees: a.Trees}, nil
}

// children always sit after their parent, which rules out cycles.
func validateTree(t ForestTree, numClasses int) error {
	if len(t.Nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, n := range t.Nodes {
		if n.Feature < 0 {
			if len(n.Value) != numClasses {
				return fmt.Errorf("node %d: leaf has %d values for %d classes", i, len(n.Value), numClasses)
			}
			continue
		}
		if n.Feature >= NumFeatures {
			return fmt.Errorf("node %d: feature index %d out of range", i, n.Feature)
		}
		if n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d: bad children %d/%d", i, n.Left, n.Right)
		}
	}
	return nil
}

// Name returns the artifact name.
func (f *Forest) Name() string { return f.name }

// Trees reports the ensemble size.
func (f *Forest) Trees() int { return len(f.trees) }

// Predict runs the vector through every tree.
func (f *Forest) Predict(v FeatureVector) (sig.Signal, error) {
	if err := checkFinite(v); err != nil {
		return sig.Hold, err
	}
	x := v.Values()
	votes := make([]float64, len(f.classes))
	for _, tree := range f.trees {
		leaf := tree.leaf(x)
		var total float64
		for _, w := range leaf.Value {
			total += w
		}
		if total <= 0 {
			continue
		}
		for c, w := range leaf.Value {
			votes[c] += w / total
		}
	}
	best := -1
	for c, score := range votes {
		if score > 0 && (best < 0 || score > votes[best]) {
			best = c
		}
	}
	if best < 0 {
		return sig.Hold, errors.New("forest produced no votes")
	}
	return f.classes[best], nil
}

func (t ForestTree) leaf(x [NumFeatures]float64) ForestNode {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return n
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

func checkFinite(v FeatureVector) error {
	for i, x := range v.Values() {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w: %s=%v", ErrNonFiniteFeature, FeatureNames[i], x)
		}
	}
	return nil
}
