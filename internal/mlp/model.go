// v1
// internal/mlp/model.go
package mlp

import (
	"errors"
	"fmt"
)

// ErrFeatureLength reports an input vector whose arity does not match the
// model's configured input width.
var ErrFeatureLength = errors.New("feature length mismatch")

// Model is a fixed-topology feed-forward network: standardize the inputs,
// two ReLU hidden layers, one identity output neuron. Weight matrices are
// stored [inputIndex][neuronIndex]: a neuron's weight vector is a column,
// not a row.
type Model struct {
	mean  []float64
	scale []float64

	w0 [][]float64 // input -> hidden 1
	w1 [][]float64 // hidden 1 -> hidden 2
	w2 [][]float64 // hidden 2 -> output
	b0 []float64
	b1 []float64
	b2 []float64
}

// New validates the dimensional consistency of the parameter tables and
// returns the assembled model. Any mismatch is a construction-time error;
// a Model that exists is safe to evaluate.
func New(mean, scale []float64, w0, w1, w2 [][]float64, b0, b1, b2 []float64) (*Model, error) {
	if len(mean) != len(scale) {
		return nil, fmt.Errorf("scaler mean/scale widths differ: %d vs %d", len(mean), len(scale))
	}
	if err := checkLayer("hidden 1", len(mean), w0, b0); err != nil {
		return nil, err
	}
	if err := checkLayer("hidden 2", len(b0), w1, b1); err != nil {
		return nil, err
	}
	if err := checkLayer("output", len(b1), w2, b2); err != nil {
		return nil, err
	}
	return &Model{mean: mean, scale: scale, w0: w0, w1: w1, w2: w2, b0: b0, b1: b1, b2: b2}, nil
}

// checkLayer verifies weights shaped [inputs][neurons] against the previous
// layer width and the layer's bias vector.
func checkLayer(name string, inputs int, w [][]float64, bias []float64) error {
	if len(w) != inputs {
		return fmt.Errorf("%s: weight rows %d, want %d (previous layer width)", name, len(w), inputs)
	}
	for i, row := range w {
		if len(row) != len(bias) {
			return fmt.Errorf("%s: weight row %d has %d columns, want %d (bias width)", name, i, len(row), len(bias))
		}
	}
	if len(bias) == 0 {
		return fmt.Errorf("%s: empty bias vector", name)
	}
	return nil
}

// InputWidth returns the number of features the model consumes.
func (m *Model) InputWidth() int { return len(m.mean) }

// PredictET0 evaluates the network on raw (unscaled) features, ordered
// [tmax C, relative humidity %, solar energy MJ/m^2/day]. The output is the
// raw regression value: a negative ET0 is mathematically possible and is the
// caller's job to clamp, the physical constraint lives at the call site.
func (m *Model) PredictET0(features []float64) (float64, error) {
	if len(features) != len(m.mean) {
		return 0, fmt.Errorf("%w: got %d features, want %d", ErrFeatureLength, len(features), len(m.mean))
	}
	scaled := make([]float64, len(features))
	for i, f := range features {
		if m.scale[i] == 0 {
			scaled[i] = 0
			continue
		}
		scaled[i] = (f - m.mean[i]) / m.scale[i]
	}
	h1 := dense(scaled, m.w0, m.b0, true)
	h2 := dense(h1, m.w1, m.b1, true)
	out := dense(h2, m.w2, m.b2, false)
	return out[0], nil
}

// dense computes one layer. For each neuron the input-weight vector is
// gathered down a column of w (one element per row), then dotted with the
// input and offset by the bias. relu applies max(0, x).
func dense(in []float64, w [][]float64, bias []float64, relu bool) []float64 {
	out := make([]float64, len(bias))
	for n := range bias {
		sum := bias[n]
		for i, x := range in {
			sum += x * w[i][n]
		}
		if relu && sum < 0 {
			sum = 0
		}
		out[n] = sum
	}
	return out
}
