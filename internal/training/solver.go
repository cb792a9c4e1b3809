package training

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// solverOpts tunes the logistic-regression fit. Full-batch gradient descent
// with zero initialization and a fixed iteration count keeps the result fully
// deterministic for a given dataset.
type solverOpts struct {
	learningRate float64
	iterations   int
	l2           float64 // ridge penalty on weights (not the bias)
}

// fitLogistic minimizes weighted log-loss over (features, labels) and returns
// the weight vector and bias. sampleWeights compensates for class imbalance;
// pass all-ones for unweighted fits.
func fitLogistic(features *mat.Dense, labels, sampleWeights []float64, opts solverOpts) ([]float64, float64) {
	n, d := features.Dims()
	weights := mat.NewVecDense(d, nil)
	bias := 0.0

	grad := mat.NewVecDense(d, nil)
	row := mat.NewVecDense(d, nil)

	for iter := 0; iter < opts.iterations; iter++ {
		grad.Zero()
		biasGrad := 0.0
		for i := 0; i < n; i++ {
			row.CopyVec(features.RowView(i).(*mat.VecDense))
			z := mat.Dot(weights, row) + bias
			// residual of the sigmoid prediction against the label
			r := sampleWeights[i] * (sigmoid(z) - labels[i])
			grad.AddScaledVec(grad, r, row)
			biasGrad += r
		}
		scale := opts.learningRate / float64(n)
		grad.AddScaledVec(grad, opts.l2, weights)
		weights.AddScaledVec(weights, -scale, grad)
		bias -= scale * biasGrad
	}

	out := make([]float64, d)
	for i := range out {
		out[i] = weights.AtVec(i)
	}
	return out, bias
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	// numerically stable branch for large negative z
	e := math.Exp(z)
	return e / (1 + e)
}
