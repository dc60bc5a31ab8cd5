package Chebyshev2D

import (
	"fmt"
	"math"

	"github.com/notargets/gorom/utils"
)

// ChebyshevGL returns the N+1 Chebyshev-Gauss-Lobatto nodes on [a,b] in
// ascending order.
func ChebyshevGL(N int, a, b float64) (X utils.Vector) {
	X = utils.NewVector(N + 1)
	for j := 0; j <= N; j++ {
		xi := -math.Cos(math.Pi * float64(j) / float64(N))
		X.DataP[j] = a + 0.5*(b-a)*(xi+1)
	}
	// Pin the end points and the symmetric centre exactly
	X.DataP[0], X.DataP[N] = a, b
	if N%2 == 0 {
		X.DataP[N/2] = 0.5 * (a + b)
	}
	return
}

// BarycentricWeights returns w_j = 1/prod_{k!=j}(x_j - x_k).
func BarycentricWeights(x []float64) (w []float64) {
	w = make([]float64, len(x))
	for j := range x {
		prod := 1.
		for k := range x {
			if k != j {
				prod *= x[j] - x[k]
			}
		}
		w[j] = 1. / prod
	}
	return
}

// DiffMatrix returns the collocation derivative matrix of the Lagrange
// interpolant through nodes x, evaluated at the same nodes.
func DiffMatrix(x []float64) (D utils.Matrix) {
	var (
		N = len(x)
		w = BarycentricWeights(x)
	)
	D = utils.NewMatrix(N, N)
	for i := 0; i < N; i++ {
		var rowSum float64
		for j := 0; j < N; j++ {
			if i == j {
				continue
			}
			val := (w[j] / w[i]) / (x[i] - x[j])
			D.DataP[i*N+j] = val
			rowSum += val
		}
		// Negative sum trick: the derivative of a constant is exactly zero
		D.DataP[i*N+i] = -rowSum
	}
	return
}

// DiffMatrixAt returns the len(xe) x len(x) matrix that maps values at nodes x
// to the derivative of their interpolant at the points xe.
func DiffMatrixAt(x, xe []float64) (D utils.Matrix) {
	var (
		N  = len(x)
		Ne = len(xe)
		w  = BarycentricWeights(x)
	)
	D = utils.NewMatrix(Ne, N)
	for i, xi := range xe {
		node := -1
		for k, xk := range x {
			if math.Abs(xi-xk) < utils.NODETOL {
				node = k
				break
			}
		}
		if node >= 0 {
			var rowSum float64
			for j := 0; j < N; j++ {
				if j == node {
					continue
				}
				val := (w[j] / w[node]) / (x[node] - x[j])
				D.DataP[i*N+j] = val
				rowSum += val
			}
			D.DataP[i*N+node] = -rowSum
			continue
		}
		// xe[i] is not a node: l_j'(x) = l_j(x) * sum_{k!=j} 1/(x-x_k)
		for j := 0; j < N; j++ {
			lj := w[j]
			var s float64
			for k := 0; k < N; k++ {
				if k == j {
					continue
				}
				lj *= xi - x[k]
				s += 1. / (xi - x[k])
			}
			D.DataP[i*N+j] = lj * s
		}
	}
	return
}

// ReducedDiffMatrix is the PN-PN-2 derivative operator: the derivative of the
// degree N-2 interpolant through the interior nodes x[1:N], evaluated at all
// N+1 nodes. Columns belonging to the two boundary nodes are zero.
func ReducedDiffMatrix(x []float64) (D utils.Matrix) {
	var (
		Np = len(x)
	)
	D = utils.NewMatrix(Np, Np)
	if Np < 3 {
		return
	}
	Di := DiffMatrixAt(x[1:Np-1], x)
	_, nc := Di.Dims()
	for i := 0; i < Np; i++ {
		for j := 0; j < nc; j++ {
			D.DataP[i*Np+j+1] = Di.DataP[i*nc+j]
		}
	}
	return
}

func checkOrder(N int) (err error) {
	if N < 2 {
		err = fmt.Errorf("%w: polynomial degree must be >= 2, have %d", utils.ErrShapeMismatch, N)
	}
	return
}
