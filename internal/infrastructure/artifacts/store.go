package artifacts

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"waste_service/internal/domain/model"
)

// ManifestFile is read from the artifact directory when present.
const ManifestFile = "manifest.yaml"

// Model kinds.
const (
	KindXGBoost = "xgboost"
	KindLinear  = "linear"
	KindHTTP    = "http"
)

// Manifest names the files that make up one trained bundle.
type Manifest struct {
	Version string `yaml:"version"`
	Model   struct {
		Kind string `yaml:"kind"`
		Path string `yaml:"path"`
	} `yaml:"model"`
	Encoder string `yaml:"encoder"`
	Scaler  string `yaml:"scaler"`
	Schema  string `yaml:"schema"`
}

// DefaultManifest describes the layout written by the training notebook.
func DefaultManifest() Manifest {
	var m Manifest
	m.Version = "unversioned"
	m.Model.Kind = KindXGBoost
	m.Model.Path = "XGBoost.json"
	m.Encoder = "zone_encoder.json"
	m.Scaler = "scaler.json"
	m.Schema = "columns.csv"
	return m
}

func (m *Manifest) applyDefaults() {
	d := DefaultManifest()
	if m.Version == "" {
		m.Version = d.Version
	}
	if m.Model.Kind == "" {
		m.Model.Kind = d.Model.Kind
	}
	if m.Model.Path == "" && m.Model.Kind == KindXGBoost {
		m.Model.Path = d.Model.Path
	}
	if m.Encoder == "" {
		m.Encoder = d.Encoder
	}
	if m.Scaler == "" {
		m.Scaler = d.Scaler
	}
	if m.Schema == "" {
		m.Schema = d.Schema
	}
}

// FileStore loads artifacts from a directory.
type FileStore struct {
	dir      string
	manifest Manifest
	remote   model.Regressor
}

// StoreOption configures a FileStore.
type StoreOption func(*FileStore)

// WithRemoteRegressor supplies the regressor used for the "http" model kind.
func WithRemoteRegressor(r model.Regressor) StoreOption {
	return func(s *FileStore) { s.remote = r }
}

// NewFileStore reads the manifest of dir, falling back to the default layout.
func NewFileStore(dir string, opts ...StoreOption) (*FileStore, error) {
	s := &FileStore{dir: dir, manifest: DefaultManifest()}
	for _, opt := range opts {
		opt(s)
	}

	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("%w: read manifest: %v", model.ErrArtifact, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: parse manifest: %v", model.ErrArtifact, err)
	}
	m.applyDefaults()
	switch m.Model.Kind {
	case KindXGBoost, KindLinear:
		if m.Model.Path == "" {
			return nil, fmt.Errorf("%w: manifest model %q has no path", model.ErrArtifact, m.Model.Kind)
		}
	case KindHTTP:
	default:
		return nil, fmt.Errorf("%w: unknown model kind %q", model.ErrArtifact, m.Model.Kind)
	}
	s.manifest = m
	return s, nil
}

// Manifest returns the layout in use.
func (s *FileStore) Manifest() Manifest { return s.manifest }

// RequiredFiles lists the files the bundle is loaded from.
func (s *FileStore) RequiredFiles() []string {
	files := make([]string, 0, 4)
	if s.manifest.Model.Kind != KindHTTP {
		files = append(files, s.path(s.manifest.Model.Path))
	}
	return append(files,
		s.path(s.manifest.Encoder),
		s.path(s.manifest.Scaler),
		s.path(s.manifest.Schema),
	)
}

// MissingFiles reports required files that do not exist.
func (s *FileStore) MissingFiles() []string {
	var missing []string
	for _, f := range s.RequiredFiles() {
		if _, err := os.Stat(f); err != nil {
			missing = append(missing, f)
		}
	}
	return missing
}

func (s *FileStore) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.dir, name)
}

func (s *FileStore) open(name string) (*os.File, error) {
	f, err := os.Open(s.path(name))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrArtifact, err)
	}
	return f, nil
}

// LoadModel loads the regressor named by the manifest.
func (s *FileStore) LoadModel() (model.Regressor, error) {
	if s.manifest.Model.Kind == KindHTTP {
		if s.remote == nil {
			return nil, fmt.Errorf("%w: http model configured without a model service", model.ErrArtifact)
		}
		return s.remote, nil
	}

	f, err := s.open(s.manifest.Model.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if s.manifest.Model.Kind == KindLinear {
		m, err := DecodeLinearModel(f)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	m, err := DecodeTreeEnsemble(f)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// LoadZoneEncoder loads the zone label encoder.
func (s *FileStore) LoadZoneEncoder() (*LabelEncoder, error) {
	f, err := s.open(s.manifest.Encoder)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeLabelEncoder(f)
}

// LoadScaler loads the feature scaler.
func (s *FileStore) LoadScaler() (*StandardScaler, error) {
	f, err := s.open(s.manifest.Scaler)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeStandardScaler(f)
}

// LoadSchema loads the ordered column list.
func (s *FileStore) LoadSchema() ([]string, error) {
	f, err := s.open(s.manifest.Schema)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSchema(f)
}

// ReadSchema reads a headerless CSV and returns the first field of each row.
func ReadSchema(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var cols []string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read schema: %v", model.ErrArtifact, err)
		}
		name := strings.TrimSpace(strings.TrimPrefix(rec[0], "\ufeff"))
		if name == "" {
			continue
		}
		cols = append(cols, name)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: schema is empty", model.ErrArtifact)
	}
	return cols, nil
}

type featureCounter interface {
	FeatureCount() int
}

// LoadBundle loads the four artifacts concurrently and checks that their
// shapes agree with the schema.
func (s *FileStore) LoadBundle(ctx context.Context) (*model.ArtifactBundle, error) {
	var (
		reg     model.Regressor
		enc     *LabelEncoder
		scaler  *StandardScaler
		columns []string
	)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var g errgroup.Group
	g.Go(func() (err error) { reg, err = s.LoadModel(); return err })
	g.Go(func() (err error) { enc, err = s.LoadZoneEncoder(); return err })
	g.Go(func() (err error) { scaler, err = s.LoadScaler(); return err })
	g.Go(func() (err error) { columns, err = s.LoadSchema(); return err })
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load artifacts from %s: %w", s.dir, err)
	}

	if n := scaler.FeatureCount(); n != len(columns) {
		return nil, fmt.Errorf("%w: scaler has %d features, schema has %d", model.ErrArtifact, n, len(columns))
	}
	if fc, ok := reg.(featureCounter); ok && fc.FeatureCount() != len(columns) {
		return nil, fmt.Errorf("%w: model has %d features, schema has %d", model.ErrArtifact, fc.FeatureCount(), len(columns))
	}

	return &model.ArtifactBundle{
		Version:   s.manifest.Version,
		Encoder:   enc,
		Scaler:    scaler,
		Regressor: reg,
		Schema:    columns,
	}, nil
}
