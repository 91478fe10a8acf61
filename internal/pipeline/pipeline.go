// Package pipeline runs a feature record through the preprocessor, the
// classifier and risk tiering.
package pipeline

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/Skufu/GlycoRisk/internal/artifact"
	"github.com/Skufu/GlycoRisk/internal/classifier"
	"github.com/Skufu/GlycoRisk/internal/features"
	"github.com/Skufu/GlycoRisk/internal/preprocess"
	"github.com/Skufu/GlycoRisk/internal/risk"
)

// Transformer maps a record to the classifier's input matrix.
type Transformer interface {
	Transform(row preprocess.Row) (*mat.Dense, error)
}

// Predictor maps a matrix to P(positive).
type Predictor interface {
	Predict(x mat.Matrix) (float64, error)
}

// Result is the outcome of one successful run.
type Result struct {
	ID          string    `json:"id"`
	Probability float64   `json:"probability"`
	Tier        risk.Tier `json:"tier"`
}

// PredictionError is the single error surfaced to users when a run fails.
// It unwraps to preprocess.ErrSchemaMismatch or classifier.ErrShapeMismatch.
type PredictionError struct {
	Stage string
	Err   error
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("prediction failed: %v", e.Err)
}

func (e *PredictionError) Unwrap() error { return e.Err }

// Pipeline holds the loaded artifacts. It has no mutable state and can be
// shared by all requests.
type Pipeline struct {
	pre    Transformer
	clf    Predictor
	logger *slog.Logger
}

// New wires a pipeline from already loaded stages. A nil logger falls back
// to slog.Default.
func New(pre Transformer, clf Predictor, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{pre: pre, clf: clf, logger: logger}
}

// Load reads both artifacts. Any error is fatal for the caller: without
// them no prediction can be served.
func Load(modelPath, preprocessorPath string, logger *slog.Logger) (*Pipeline, error) {
	pre, err := preprocess.Load(preprocessorPath)
	if err != nil {
		return nil, fmt.Errorf("load preprocessor: %w", err)
	}
	clf, err := classifier.Load(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	if pre.OutputWidth() != clf.InputDim() {
		return nil, fmt.Errorf("%w: preprocessor emits %d columns but model expects %d: %w",
			artifact.ErrLoad, pre.OutputWidth(), clf.InputDim(), classifier.ErrShapeMismatch)
	}

	p := New(pre, clf, logger)
	p.logger.Info("artifacts loaded",
		"model", modelPath,
		"model_version", clf.Version(),
		"preprocessor", preprocessorPath,
		"preprocessor_version", pre.Version(),
		"features_out", pre.OutputWidth(),
	)
	return p, nil
}

// Run transforms, predicts and tiers a single record. On failure no
// partial result is returned.
func (p *Pipeline) Run(rec features.Record) (Result, error) {
	x, err := p.pre.Transform(rec)
	if err != nil {
		return Result{}, p.fail("transform", err)
	}
	prob, err := p.clf.Predict(x)
	if err != nil {
		return Result{}, p.fail("predict", err)
	}
	if math.IsNaN(prob) || prob < 0 || prob > 1 {
		return Result{}, p.fail("predict", fmt.Errorf("%w: probability %v outside [0, 1]", classifier.ErrShapeMismatch, prob))
	}

	res := Result{
		ID:          uuid.NewString(),
		Probability: prob,
		Tier:        risk.Classify(prob),
	}
	p.logger.Info("prediction", "id", res.ID, "probability", res.Probability, "tier", res.Tier)
	return res, nil
}

func (p *Pipeline) fail(stage string, err error) error {
	p.logger.Warn("prediction failed", "stage", stage, "error", err)
	return &PredictionError{Stage: stage, Err: err}
}
