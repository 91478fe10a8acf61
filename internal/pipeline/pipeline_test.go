package pipeline

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/Skufu/GlycoRisk/internal/artifact"
	"github.com/Skufu/GlycoRisk/internal/classifier"
	"github.com/Skufu/GlycoRisk/internal/features"
	"github.com/Skufu/GlycoRisk/internal/preprocess"
	"github.com/Skufu/GlycoRisk/internal/risk"
)

const (
	modelPath        = "../../artifacts/model.json"
	preprocessorPath = "../../artifacts/preprocessor.json"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeTransformer struct {
	x     *mat.Dense
	err   error
	calls int
}

func (f *fakeTransformer) Transform(preprocess.Row) (*mat.Dense, error) {
	f.calls++
	return f.x, f.err
}

type fakePredictor struct {
	p     float64
	err   error
	calls int
}

func (f *fakePredictor) Predict(mat.Matrix) (float64, error) {
	f.calls++
	return f.p, f.err
}

func loadShipped(t *testing.T) *Pipeline {
	t.Helper()
	p, err := Load(modelPath, preprocessorPath, quiet)
	require.NoError(t, err)
	return p
}

func assemble(t *testing.T, in features.Input) features.Record {
	t.Helper()
	rec, err := features.Assemble(in)
	require.NoError(t, err)
	return rec
}

func exampleInput() features.Input {
	return features.Input{
		Age:            40,
		BMI:            22.0,
		HbA1cLevel:     5.5,
		BloodGlucose:   100,
		Hypertension:   features.No,
		HeartDisease:   features.No,
		Race:           string(features.RaceCaucasian),
		Gender:         "Male",
		Location:       "Urban",
		SmokingHistory: "never",
	}
}

func TestRunExampleScenario(t *testing.T) {
	p := loadShipped(t)
	rec := assemble(t, exampleInput())
	assert.Equal(t, 1, rec.RaceCaucasian)

	res, err := p.Run(rec)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Probability, 0.0)
	assert.LessOrEqual(t, res.Probability, 1.0)
	assert.Equal(t, risk.Classify(res.Probability), res.Tier)
	assert.NotEmpty(t, res.ID)
}

func TestRunShippedArtifactsTierExtremes(t *testing.T) {
	p := loadShipped(t)

	healthy, err := p.Run(assemble(t, exampleInput()))
	require.NoError(t, err)
	assert.Equal(t, risk.Low, healthy.Tier)

	in := exampleInput()
	in.HbA1cLevel = 9.0
	in.BloodGlucose = 260
	in.Age = 70
	in.Hypertension = features.Yes
	sick, err := p.Run(assemble(t, in))
	require.NoError(t, err)
	assert.Equal(t, risk.High, sick.Tier)
	assert.Greater(t, sick.Probability, healthy.Probability)
}

func TestRunValidRecordsStayInRange(t *testing.T) {
	p := loadShipped(t)

	for _, r := range features.FormWidgets().Sliders {
		for _, v := range []float64{r.Min, r.Default, r.Max} {
			for _, race := range features.Races {
				for _, smoking := range features.SmokingHistories {
					in := exampleInput()
					in.Race = string(race)
					in.SmokingHistory = smoking
					switch r.Name {
					case features.ColAge:
						in.Age = int(v)
					case features.ColBMI:
						in.BMI = v
					case features.ColHbA1cLevel:
						in.HbA1cLevel = v
					case features.ColBloodGlucoseLevel:
						in.BloodGlucose = int(v)
					}

					res, err := p.Run(assemble(t, in))
					require.NoError(t, err)
					assert.GreaterOrEqual(t, res.Probability, 0.0)
					assert.LessOrEqual(t, res.Probability, 1.0)
					assert.Contains(t, []risk.Tier{risk.Low, risk.Moderate, risk.High}, res.Tier)
				}
			}
		}
	}
}

func TestRunIsIdempotent(t *testing.T) {
	p := loadShipped(t)
	rec := assemble(t, exampleInput())

	first, err := p.Run(rec)
	require.NoError(t, err)
	second, err := p.Run(rec)
	require.NoError(t, err)

	assert.Equal(t, first.Probability, second.Probability)
	assert.Equal(t, first.Tier, second.Tier)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestRunUnknownCategory(t *testing.T) {
	p := loadShipped(t)
	in := exampleInput()
	in.Location = "Suburban"

	res, err := p.Run(assemble(t, in))
	require.Error(t, err)
	assert.Equal(t, Result{}, res)
	assert.ErrorIs(t, err, preprocess.ErrSchemaMismatch)
	assert.NotErrorIs(t, err, classifier.ErrShapeMismatch)

	var perr *PredictionError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "transform", perr.Stage)
	assert.Contains(t, err.Error(), "prediction failed")
	assert.Contains(t, err.Error(), "Suburban")
}

func TestRunStopsAfterTransformFailure(t *testing.T) {
	pre := &fakeTransformer{err: preprocess.ErrSchemaMismatch}
	clf := &fakePredictor{p: 0.9}

	_, err := New(pre, clf, quiet).Run(features.Record{})
	assert.ErrorIs(t, err, preprocess.ErrSchemaMismatch)
	assert.Equal(t, 1, pre.calls)
	assert.Equal(t, 0, clf.calls)
}

func TestRunPredictFailure(t *testing.T) {
	pre := &fakeTransformer{x: mat.NewDense(1, 3, nil)}
	clf := &fakePredictor{err: classifier.ErrShapeMismatch}

	res, err := New(pre, clf, quiet).Run(features.Record{})
	assert.Equal(t, Result{}, res)
	assert.ErrorIs(t, err, classifier.ErrShapeMismatch)

	var perr *PredictionError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "predict", perr.Stage)
}

func TestRunRejectsOutOfRangeProbability(t *testing.T) {
	pre := &fakeTransformer{x: mat.NewDense(1, 1, nil)}
	for _, p := range []float64{-0.1, 1.5, math.NaN()} {
		res, err := New(pre, &fakePredictor{p: p}, quiet).Run(features.Record{})
		assert.ErrorIs(t, err, classifier.ErrShapeMismatch, "p=%v", p)
		assert.Zero(t, res, "p=%v", p)
	}
}

func TestRunTiersFakeProbabilities(t *testing.T) {
	pre := &fakeTransformer{x: mat.NewDense(1, 1, nil)}
	tests := map[float64]risk.Tier{
		0.4:        risk.Low,
		0.40000001: risk.Moderate,
		0.7:        risk.Moderate,
		0.70000001: risk.High,
	}
	for p, want := range tests {
		res, err := New(pre, &fakePredictor{p: p}, quiet).Run(features.Record{})
		require.NoError(t, err)
		assert.Equal(t, want, res.Tier, "p=%v", p)
	}
}

func TestLoadFailures(t *testing.T) {
	_, err := Load("missing.json", preprocessorPath, quiet)
	assert.ErrorIs(t, err, artifact.ErrLoad)

	_, err = Load(modelPath, "missing.json", quiet)
	assert.ErrorIs(t, err, artifact.ErrLoad)
}

func TestLoadWidthMismatch(t *testing.T) {
	p, err := Load("testdata/model_21.json", preprocessorPath, quiet)
	assert.Nil(t, p)
	assert.ErrorIs(t, err, artifact.ErrLoad)
	assert.ErrorIs(t, err, classifier.ErrShapeMismatch)
	assert.Contains(t, err.Error(), "emits 22 columns but model expects 21")
}

func TestPredictionErrorMessage(t *testing.T) {
	err := &PredictionError{Stage: "transform", Err: errors.New("boom")}
	assert.Equal(t, "prediction failed: boom", err.Error())
}
