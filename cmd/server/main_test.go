package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/Skufu/GlycoRisk/internal/artifact"
	"github.com/Skufu/GlycoRisk/internal/preprocess"
)

const (
	modelPath        = "../../artifacts/model.json"
	preprocessorPath = "../../artifacts/preprocessor.json"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ENABLE_DB", "false")
	t.Setenv("LOG_LEVEL", "error")

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPredictCommandExample(t *testing.T) {
	out, err := execute(t, "predict",
		"--model", modelPath, "--preprocessor", preprocessorPath,
		"--age", "40", "--bmi", "22", "--hba1c", "5.5", "--glucose", "100",
		"--race", "Caucasian", "--gender", "Male", "--location", "Urban", "--smoking-history", "never")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Predicted probability of diabetes:") || !strings.Contains(out, "[low]") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestPredictCommandJSON(t *testing.T) {
	out, err := execute(t, "predict", "--model", modelPath, "--preprocessor", preprocessorPath,
		"--hba1c", "9", "--glucose", "260", "--age", "70", "--hypertension", "yes", "-j")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var res struct {
		ID          string  `json:"id"`
		Probability float64 `json:"probability"`
		Tier        string  `json:"tier"`
		Advisory    string  `json:"advisory"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if res.Tier != "high" || res.Probability <= 0.7 || res.Advisory == "" || res.ID == "" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestPredictCommandUnknownCategory(t *testing.T) {
	_, err := execute(t, "predict", "--model", modelPath, "--preprocessor", preprocessorPath,
		"--gender", "Unknown")
	if !errors.Is(err, preprocess.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "prediction failed:") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestServeFailsFastWithoutArtifacts(t *testing.T) {
	_, err := execute(t, "serve", "--model", "missing.json", "--preprocessor", preprocessorPath, "--port", "0")
	if !errors.Is(err, artifact.ErrLoad) {
		t.Fatalf("expected artifact load error, got %v", err)
	}
}

func TestRootRequiresDatabaseURL(t *testing.T) {
	cmd := newRootCmd()
	t.Setenv("ENABLE_DB", "true")
	t.Setenv("DATABASE_URL", "")
	cmd.SetArgs([]string{"predict"})
	cmd.SetOut(&bytes.Buffer{})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected DATABASE_URL error, got %v", err)
	}
}

func TestServeRejectsMismatchedArtifacts(t *testing.T) {
	_, err := execute(t, "serve", "--model", "../../internal/pipeline/testdata/model_21.json",
		"--preprocessor", preprocessorPath, "--port", "0")
	if !errors.Is(err, artifact.ErrLoad) {
		t.Fatalf("expected artifact load error, got %v", err)
	}
}
