package classifier

import "math"

var activations = map[string]func(float64) float64{
	"relu":    relu,
	"sigmoid": sigmoid,
	"tanh":    math.Tanh,
	"linear":  func(x float64) float64 { return x },
}

func sigmoid(x float64) float64 { return 1.0 / (1.0 + math.Exp(-x)) }

func relu(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}
