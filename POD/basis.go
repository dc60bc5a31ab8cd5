package POD

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/notargets/gorom/utils"
)

// RankTol is the singular value cutoff, relative to the largest, below which
// a direction is not counted in the snapshot rank.
const RankTol = 1.e-10

/*
Basis holds the truncated POD modes of an interior snapshot matrix.

The modes are the leading left singular vectors. Each mode is oriented so that
its entry of largest magnitude is positive, which makes the basis a
deterministic function of the snapshots.
*/
type Basis struct {
	M     int          // Number of retained modes
	Rank  int          // Numerical rank of the snapshot matrix
	Modes utils.Matrix // NInterior x M, orthonormal columns
	Sigma []float64    // All singular values, descending
}

func NewBasis(Interior utils.Matrix, M int) (b *Basis, err error) {
	var (
		nr, NSample = Interior.Dims()
		svd         mat.SVD
		U           mat.Dense
	)
	if M < 1 {
		err = fmt.Errorf("%w: M = %d", utils.ErrInvalidModeCount, M)
		return
	}
	if M > NSample || M > nr {
		err = fmt.Errorf("%w: M = %d exceeds snapshot matrix dimensions %d x %d",
			utils.ErrInvalidModeCount, M, nr, NSample)
		return
	}
	if ok := svd.Factorize(Interior.M, mat.SVDThin); !ok {
		err = fmt.Errorf("SVD of %d x %d snapshot matrix failed to converge", nr, NSample)
		return
	}
	b = &Basis{
		M:     M,
		Sigma: svd.Values(nil),
	}
	for _, s := range b.Sigma {
		if s > RankTol*b.Sigma[0] {
			b.Rank++
		}
	}
	if M > b.Rank {
		err = fmt.Errorf("%w: M = %d exceeds snapshot rank %d", utils.ErrInvalidModeCount, M, b.Rank)
		b = nil
		return
	}
	svd.UTo(&U)
	b.Modes = utils.NewMatrixFromDense(U.Slice(0, nr, 0, M))
	for j := 0; j < M; j++ {
		var (
			maxAbs, sign = 0., 1.
		)
		for i := 0; i < nr; i++ {
			if val := b.Modes.DataP[i*M+j]; math.Abs(val) > maxAbs {
				maxAbs = math.Abs(val)
				sign = math.Copysign(1, val)
			}
		}
		if sign < 0 {
			for i := 0; i < nr; i++ {
				b.Modes.DataP[i*M+j] *= -1
			}
		}
	}
	b.Modes.SetReadOnly("Modes")
	return
}

// NInterior is the length of a mode.
func (b *Basis) NInterior() int {
	nr, _ := b.Modes.Dims()
	return nr
}

// Project returns the modal coefficients of every snapshot column, one row
// per snapshot: Lambda = Interior^T * Modes, NSample x M.
func (b *Basis) Project(Interior utils.Matrix) (Lambda utils.Matrix, err error) {
	var (
		nr, NSample = Interior.Dims()
		L           mat.Dense
	)
	if nr != b.NInterior() {
		err = fmt.Errorf("%w: snapshot length %d, modes have length %d",
			utils.ErrShapeMismatch, nr, b.NInterior())
		return
	}
	Lambda = utils.NewMatrix(NSample, b.M)
	L.Mul(Interior.T(), b.Modes.M)
	Lambda.M.Copy(&L)
	return
}

// Reconstruct returns Modes * lambda, an interior vector.
func (b *Basis) Reconstruct(lambda []float64) (Vec []float64) {
	if len(lambda) != b.M {
		panic(fmt.Errorf("%w: %d coefficients for %d modes", utils.ErrShapeMismatch, len(lambda), b.M))
	}
	var (
		nr = b.NInterior()
		v  = mat.NewVecDense(nr, nil)
	)
	v.MulVec(b.Modes.M, mat.NewVecDense(b.M, lambda))
	Vec = v.RawVector().Data
	return
}

// Normalization carries the per-mode statistics of the training projections.
type Normalization struct {
	Mean, Std []float64
}

// NewNormalization computes population mean and standard deviation of each
// column of an NSample x M projection matrix. A mode with zero spread gets a
// unit scale.
func NewNormalization(Lambda utils.Matrix) (n Normalization) {
	var (
		NSample, M = Lambda.Dims()
		col        = make([]float64, NSample)
	)
	n.Mean, n.Std = make([]float64, M), make([]float64, M)
	for m := 0; m < M; m++ {
		mat.Col(col, m, Lambda.M)
		n.Mean[m], n.Std[m] = stat.PopMeanStdDev(col, nil)
		if n.Std[m] == 0 || math.IsNaN(n.Std[m]) {
			n.Std[m] = 1
		}
	}
	return
}

func (n Normalization) Normalize(lambda []float64) (r []float64) {
	r = make([]float64, len(lambda))
	for m := range lambda {
		r[m] = (lambda[m] - n.Mean[m]) / n.Std[m]
	}
	return
}

func (n Normalization) Denormalize(lambdaN []float64) (r []float64) {
	r = make([]float64, len(lambdaN))
	for m := range lambdaN {
		r[m] = lambdaN[m]*n.Std[m] + n.Mean[m]
	}
	return
}
