package artifacts

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"waste_service/internal/domain/model"
)

// LabelEncoder maps each known zone to its index in the class list.
type LabelEncoder struct {
	classes []string
	codes   map[string]int
}

type labelEncoderFile struct {
	Classes []string `json:"classes"`
}

// NewLabelEncoder builds an encoder from classes in code order.
func NewLabelEncoder(classes []string) (*LabelEncoder, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("%w: zone encoder has no classes", model.ErrArtifact)
	}
	codes := make(map[string]int, len(classes))
	for i, c := range classes {
		if _, dup := codes[c]; dup {
			return nil, fmt.Errorf("%w: zone encoder lists %q twice", model.ErrArtifact, c)
		}
		codes[c] = i
	}
	return &LabelEncoder{classes: slices.Clone(classes), codes: codes}, nil
}

// DecodeLabelEncoder reads `{"classes": [...]}`.
func DecodeLabelEncoder(r io.Reader) (*LabelEncoder, error) {
	var f labelEncoderFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: decode zone encoder: %v", model.ErrArtifact, err)
	}
	return NewLabelEncoder(f.Classes)
}

func (e *LabelEncoder) Encode(name string) (int, error) {
	if e == nil || e.codes == nil {
		return 0, fmt.Errorf("%w: zone encoder is not initialised", model.ErrArtifact)
	}
	code, ok := e.codes[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", model.ErrUnknownZone, name)
	}
	return code, nil
}

func (e *LabelEncoder) Classes() []string {
	if e == nil {
		return nil
	}
	return slices.Clone(e.classes)
}
