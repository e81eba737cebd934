package artifacts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"waste_service/internal/domain/model"
)

type link int

const (
	linkIdentity link = iota
	linkLog
	linkLogistic
)

var objectiveLinks = map[string]link{
	"reg:squarederror":     linkIdentity,
	"reg:linear":           linkIdentity,
	"reg:absoluteerror":    linkIdentity,
	"reg:pseudohubererror": linkIdentity,
	"reg:quantileerror":    linkIdentity,
	"count:poisson":        linkLog,
	"reg:gamma":            linkLog,
	"reg:tweedie":          linkLog,
	"reg:logistic":         linkLogistic,
}

// TreeEnsemble evaluates a gradient-boosted tree model saved in XGBoost's
// JSON format.
type TreeEnsemble struct {
	trees      []tree
	baseMargin float64
	link       link
	features   int
}

type tree struct {
	left        []int
	right       []int
	feature     []int
	threshold   []float64
	defaultLeft []bool
}

type xgbFile struct {
	Learner struct {
		LearnerModelParam struct {
			BaseScore  string `json:"base_score"`
			NumFeature string `json:"num_feature"`
		} `json:"learner_model_param"`
		GradientBooster struct {
			Name  string `json:"name"`
			Model struct {
				Trees []xgbTree `json:"trees"`
			} `json:"model"`
		} `json:"gradient_booster"`
		Objective struct {
			Name string `json:"name"`
		} `json:"objective"`
	} `json:"learner"`
}

type xgbTree struct {
	LeftChildren    []int      `json:"left_children"`
	RightChildren   []int      `json:"right_children"`
	SplitIndices    []int      `json:"split_indices"`
	SplitConditions []float64  `json:"split_conditions"`
	DefaultLeft     []flexBool `json:"default_left"`
}

// flexBool accepts both 0/1 and true/false; XGBoost versions differ.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "1", "true":
		*b = true
	case "0", "false":
		*b = false
	default:
		return fmt.Errorf("invalid boolean %s", data)
	}
	return nil
}

// DecodeTreeEnsemble reads an XGBoost JSON model.
func DecodeTreeEnsemble(r io.Reader) (*TreeEnsemble, error) {
	var f xgbFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: decode tree model: %v", model.ErrArtifact, err)
	}
	l := f.Learner

	if name := l.GradientBooster.Name; name != "gbtree" {
		return nil, fmt.Errorf("%w: unsupported booster %q", model.ErrArtifact, name)
	}
	lk, ok := objectiveLinks[l.Objective.Name]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported objective %q", model.ErrArtifact, l.Objective.Name)
	}
	base, err := parseXGBFloat(l.LearnerModelParam.BaseScore)
	if err != nil {
		return nil, fmt.Errorf("%w: base_score: %v", model.ErrArtifact, err)
	}
	features, err := strconv.Atoi(strings.TrimSpace(l.LearnerModelParam.NumFeature))
	if err != nil || features <= 0 {
		return nil, fmt.Errorf("%w: invalid num_feature %q", model.ErrArtifact, l.LearnerModelParam.NumFeature)
	}

	m := &TreeEnsemble{link: lk, features: features}
	switch lk {
	case linkIdentity:
		m.baseMargin = base
	case linkLog:
		if base <= 0 {
			return nil, fmt.Errorf("%w: base_score %v invalid for %s", model.ErrArtifact, base, l.Objective.Name)
		}
		m.baseMargin = math.Log(base)
	case linkLogistic:
		if base <= 0 || base >= 1 {
			return nil, fmt.Errorf("%w: base_score %v invalid for %s", model.ErrArtifact, base, l.Objective.Name)
		}
		m.baseMargin = math.Log(base / (1 - base))
	}

	for i, t := range l.GradientBooster.Model.Trees {
		parsed, err := newTree(t, features)
		if err != nil {
			return nil, fmt.Errorf("%w: tree %d: %v", model.ErrArtifact, i, err)
		}
		m.trees = append(m.trees, parsed)
	}
	if len(m.trees) == 0 {
		return nil, fmt.Errorf("%w: model has no trees", model.ErrArtifact)
	}
	return m, nil
}

func newTree(t xgbTree, features int) (tree, error) {
	n := len(t.LeftChildren)
	if n == 0 {
		return tree{}, fmt.Errorf("empty tree")
	}
	if len(t.RightChildren) != n || len(t.SplitIndices) != n || len(t.SplitConditions) != n {
		return tree{}, fmt.Errorf("node arrays have different lengths")
	}
	defaults := make([]bool, n)
	if len(t.DefaultLeft) == n {
		for i, b := range t.DefaultLeft {
			defaults[i] = bool(b)
		}
	}
	for i := 0; i < n; i++ {
		l, r := t.LeftChildren[i], t.RightChildren[i]
		if l == -1 {
			continue
		}
		// Children always follow their parent, which also rules out cycles.
		if l <= i || r <= i || l >= n || r >= n {
			return tree{}, fmt.Errorf("node %d has invalid children %d/%d", i, l, r)
		}
		if f := t.SplitIndices[i]; f < 0 || f >= features {
			return tree{}, fmt.Errorf("node %d splits on feature %d of %d", i, f, features)
		}
	}
	return tree{
		left:        t.LeftChildren,
		right:       t.RightChildren,
		feature:     t.SplitIndices,
		threshold:   t.SplitConditions,
		defaultLeft: defaults,
	}, nil
}

func (t tree) leaf(x []float64) float64 {
	i := 0
	for t.left[i] != -1 {
		v := x[t.feature[i]]
		switch {
		case math.IsNaN(v):
			if t.defaultLeft[i] {
				i = t.left[i]
			} else {
				i = t.right[i]
			}
		case v < t.threshold[i]:
			i = t.left[i]
		default:
			i = t.right[i]
		}
	}
	// Leaves keep their weight in split_conditions.
	return t.threshold[i]
}

// Predict sums the leaf weights of every tree on top of the base margin.
func (m *TreeEnsemble) Predict(_ context.Context, values []float64) (float64, error) {
	if len(values) != m.features {
		return 0, fmt.Errorf("%w: tree model expects %d features, got %d", model.ErrArtifact, m.features, len(values))
	}
	margin := m.baseMargin
	for _, t := range m.trees {
		margin += t.leaf(values)
	}
	switch m.link {
	case linkLog:
		return math.Exp(margin), nil
	case linkLogistic:
		return 1 / (1 + math.Exp(-margin)), nil
	default:
		return margin, nil
	}
}

// FeatureCount is the vector length the model was trained on.
func (m *TreeEnsemble) FeatureCount() int { return m.features }

func parseXGBFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	return strconv.ParseFloat(s, 64)
}
