// Package classifier evaluates a pre-trained sequential dense network that
// outputs the probability of the positive class.
package classifier

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/Skufu/GlycoRisk/internal/artifact"
)

// ErrShapeMismatch is returned when the input matrix does not have the
// shape the network was trained on, or holds values that are not finite.
var ErrShapeMismatch = errors.New("shape mismatch")

// Document is the persisted form of a network.
type Document struct {
	Version  string          `json:"version,omitempty"`
	InputDim int             `json:"input_dim"`
	Layers   []LayerDocument `json:"layers"`
}

// LayerDocument is one dense layer. Kernel is indexed [in][out].
type LayerDocument struct {
	Name       string      `json:"name,omitempty"`
	Kernel     [][]float64 `json:"kernel"`
	Bias       []float64   `json:"bias"`
	Activation string      `json:"activation"`
}

type dense struct {
	kernel *mat.Dense // in × out
	bias   *mat.VecDense
	act    func(float64) float64
}

// Network is immutable once built and safe for concurrent use.
type Network struct {
	version  string
	inputDim int
	layers   []dense
}

// Load reads and validates the artifact at path.
func Load(path string) (*Network, error) {
	var doc Document
	if err := artifact.Decode(path, artifact.Model, &doc); err != nil {
		return nil, err
	}
	n, err := New(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", artifact.ErrLoad, path, err)
	}
	return n, nil
}

// New builds a network from a decoded document, checking that consecutive
// layers chain and that the output is a single sigmoid unit.
func New(doc Document) (*Network, error) {
	if doc.InputDim <= 0 {
		return nil, fmt.Errorf("input_dim must be positive, got %d", doc.InputDim)
	}
	if len(doc.Layers) == 0 {
		return nil, errors.New("network has no layers")
	}

	n := &Network{version: doc.Version, inputDim: doc.InputDim}
	in := doc.InputDim
	for i, l := range doc.Layers {
		if len(l.Kernel) != in {
			return nil, fmt.Errorf("layer %d: kernel has %d rows, expected %d", i, len(l.Kernel), in)
		}
		out := len(l.Bias)
		if out == 0 {
			return nil, fmt.Errorf("layer %d: empty bias", i)
		}
		data := make([]float64, 0, in*out)
		for r, row := range l.Kernel {
			if len(row) != out {
				return nil, fmt.Errorf("layer %d: kernel row %d has %d columns, expected %d", i, r, len(row), out)
			}
			data = append(data, row...)
		}
		act, ok := activations[l.Activation]
		if !ok {
			return nil, fmt.Errorf("layer %d: unknown activation %q", i, l.Activation)
		}
		bias := make([]float64, out)
		copy(bias, l.Bias)
		n.layers = append(n.layers, dense{
			kernel: mat.NewDense(in, out, data),
			bias:   mat.NewVecDense(out, bias),
			act:    act,
		})
		in = out
	}

	last := doc.Layers[len(doc.Layers)-1]
	if in != 1 || last.Activation != "sigmoid" {
		return nil, fmt.Errorf("output layer must be a single sigmoid unit, got %d %s unit(s)", in, last.Activation)
	}
	return n, nil
}

// InputDim is the number of columns Predict expects.
func (n *Network) InputDim() int { return n.inputDim }

func (n *Network) Version() string { return n.version }

// Predict returns P(positive) for a single-row matrix.
func (n *Network) Predict(x mat.Matrix) (float64, error) {
	r, c := x.Dims()
	if r != 1 || c != n.inputDim {
		return 0, fmt.Errorf("%w: expected 1x%d input, got %dx%d", ErrShapeMismatch, n.inputDim, r, c)
	}

	h := mat.NewVecDense(c, nil)
	for j := 0; j < c; j++ {
		v := x.At(0, j)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: non-finite value %v at column %d", ErrShapeMismatch, v, j)
		}
		h.SetVec(j, v)
	}

	for _, l := range n.layers {
		_, out := l.kernel.Dims()
		next := mat.NewVecDense(out, nil)
		next.MulVec(l.kernel.T(), h)
		next.AddVec(next, l.bias)
		for i := 0; i < out; i++ {
			next.SetVec(i, l.act(next.AtVec(i)))
		}
		h = next
	}

	p := h.AtVec(0)
	if math.IsNaN(p) {
		return 0, fmt.Errorf("%w: network produced NaN", ErrShapeMismatch)
	}
	return p, nil
}
