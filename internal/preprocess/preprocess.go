// Package preprocess applies a pre-fitted column transformer to a feature
// record, producing the numeric row the classifier was trained on.
package preprocess

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/Skufu/GlycoRisk/internal/artifact"
	"github.com/Skufu/GlycoRisk/internal/features"
)

// ErrSchemaMismatch is returned when a record does not fit the fitted
// schema: an unseen category, a missing column or a type mismatch.
var ErrSchemaMismatch = errors.New("schema mismatch")

// Transformer kinds understood in the artifact.
const (
	KindStandardScaler = "standard_scaler"
	KindOneHot         = "one_hot"
	KindPassthrough    = "passthrough"
)

// Document is the persisted form of a fitted column transformer.
type Document struct {
	Version      string            `json:"version,omitempty"`
	Transformers []TransformerSpec `json:"transformers"`
}

// TransformerSpec is one fitted transformer and the columns it consumes.
type TransformerSpec struct {
	Name       string     `json:"name"`
	Kind       string     `json:"kind"`
	Columns    []string   `json:"columns"`
	Mean       []float64  `json:"mean,omitempty"`
	Scale      []float64  `json:"scale,omitempty"`
	Categories [][]string `json:"categories,omitempty"`
}

// Row is anything that can hand out named values. features.Record is the
// production implementation.
type Row interface {
	Value(name string) (features.Value, bool)
}

type step interface {
	width() int
	namesOut() []string
	apply(row Row, out []float64) error
}

// Preprocessor is immutable once built and safe for concurrent use.
type Preprocessor struct {
	version string
	steps   []step
	width   int
	names   []string
}

// Load reads and validates the artifact at path.
func Load(path string) (*Preprocessor, error) {
	var doc Document
	if err := artifact.Decode(path, artifact.Preprocessor, &doc); err != nil {
		return nil, err
	}
	p, err := New(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", artifact.ErrLoad, path, err)
	}
	return p, nil
}

// New builds a preprocessor from a decoded document. The document's input
// columns must cover the feature record schema exactly once each.
func New(doc Document) (*Preprocessor, error) {
	p := &Preprocessor{version: doc.Version}
	seen := map[string]string{}

	for _, spec := range doc.Transformers {
		for _, col := range spec.Columns {
			if prev, dup := seen[col]; dup {
				return nil, fmt.Errorf("column %q used by both %q and %q", col, prev, spec.Name)
			}
			seen[col] = spec.Name
		}

		s, err := newStep(spec)
		if err != nil {
			return nil, fmt.Errorf("transformer %q: %w", spec.Name, err)
		}
		p.steps = append(p.steps, s)
		p.width += s.width()
		p.names = append(p.names, s.namesOut()...)
	}

	var missing, extra []string
	schema := map[string]bool{}
	for _, col := range features.Columns() {
		schema[col] = true
		if _, ok := seen[col]; !ok {
			missing = append(missing, col)
		}
	}
	for col := range seen {
		if !schema[col] {
			extra = append(extra, col)
		}
	}
	if len(missing) > 0 || len(extra) > 0 {
		return nil, fmt.Errorf("fitted columns do not match record schema (missing: [%s], unexpected: [%s])",
			strings.Join(missing, ", "), strings.Join(extra, ", "))
	}
	if p.width == 0 {
		return nil, errors.New("transformer produces no output columns")
	}
	return p, nil
}

func newStep(spec TransformerSpec) (step, error) {
	switch spec.Kind {
	case KindStandardScaler:
		if len(spec.Mean) != len(spec.Columns) || len(spec.Scale) != len(spec.Columns) {
			return nil, fmt.Errorf("expected %d mean/scale values, got %d/%d", len(spec.Columns), len(spec.Mean), len(spec.Scale))
		}
		for i, s := range spec.Scale {
			if s == 0 {
				return nil, fmt.Errorf("zero scale for %q", spec.Columns[i])
			}
		}
		return &scaler{name: spec.Name, columns: spec.Columns, mean: spec.Mean, scale: spec.Scale}, nil
	case KindOneHot:
		if len(spec.Categories) != len(spec.Columns) {
			return nil, fmt.Errorf("expected %d category lists, got %d", len(spec.Columns), len(spec.Categories))
		}
		return newOneHot(spec.Name, spec.Columns, spec.Categories)
	case KindPassthrough:
		return &passthrough{name: spec.Name, columns: spec.Columns}, nil
	}
	return nil, fmt.Errorf("unknown kind %q", spec.Kind)
}

// Transform maps one record to a 1×OutputWidth matrix.
func (p *Preprocessor) Transform(row Row) (*mat.Dense, error) {
	out := make([]float64, p.width)
	offset := 0
	for _, s := range p.steps {
		w := s.width()
		if err := s.apply(row, out[offset:offset+w]); err != nil {
			return nil, err
		}
		offset += w
	}
	return mat.NewDense(1, p.width, out), nil
}

// OutputWidth is the number of columns Transform produces.
func (p *Preprocessor) OutputWidth() int { return p.width }

// FeatureNamesOut names the output columns in order, "<transformer>__<feature>".
func (p *Preprocessor) FeatureNamesOut() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

func (p *Preprocessor) Version() string { return p.version }

func lookup(row Row, col string, want features.Kind) (features.Value, error) {
	v, ok := row.Value(col)
	if !ok {
		return v, fmt.Errorf("%w: missing column %q", ErrSchemaMismatch, col)
	}
	if v.Kind != want {
		return v, fmt.Errorf("%w: column %q is %s, fitted as %s", ErrSchemaMismatch, col, v.Kind, want)
	}
	return v, nil
}
