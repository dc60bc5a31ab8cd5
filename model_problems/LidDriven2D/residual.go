package LidDriven2D

import (
	"fmt"

	"github.com/notargets/gorom/geometry2D"
	"github.com/notargets/gorom/types"
	"github.com/notargets/gorom/utils"
)

// lincomb returns sum(c[n]*x[n]), skipping zero coefficients.
func lincomb[T any](ops types.NumericOps[T], c []float64, x []T) (r T) {
	r = ops.Const(0)
	for n, cn := range c {
		if cn == 0 {
			continue
		}
		r = ops.Add(r, ops.Mul(ops.Const(cn), x[n]))
	}
	return
}

/*
Residual evaluates the reduced Navier-Stokes system at one design point

	F_k = sum_ij A_kij lambda_i lambda_j + sum_j B_kj lambda_j - source_k

with A = sum_t Acoef_t Aeqs[t], B = sum_t Acoef_t Abc[t] + sum_t Bcoef_t Beqs[t]
and source = -sum_t Bcoef_t Bbc[t]. The same formula runs on float64 values
and on graph nodes, depending on ops.
*/
func Residual[T any](ops types.NumericOps[T], rt *ReducedTensors, re, angle T, lambda []T) (F []T) {
	var (
		M            = rt.M
		Acoef, Bcoef = geometry2D.ABCoef(ops, re, angle)
		quad         = make([]T, M*M)
		sum          T
	)
	if len(lambda) != M {
		panic(fmt.Errorf("%w: %d coefficients for %d modes", utils.ErrShapeMismatch, len(lambda), M))
	}
	for i := 0; i < M; i++ {
		for j := 0; j < M; j++ {
			quad[i*M+j] = ops.Mul(lambda[i], lambda[j])
		}
	}
	for k := 0; k < M; k++ {
		sum = ops.Const(0)
		for t := 0; t < geometry2D.NACoef; t++ {
			a := rt.AeqsIndex(t, k, 0, 0)
			term := ops.Add(
				lincomb(ops, rt.Aeqs[a:a+M*M], quad),
				lincomb(ops, rt.Abc[rt.AbcIndex(t, k, 0):rt.AbcIndex(t, k, 0)+M], lambda))
			sum = ops.Add(sum, ops.Mul(Acoef[t], term))
		}
		for t := 0; t < geometry2D.NBCoef; t++ {
			b := rt.BeqsIndex(t, k, 0)
			term := ops.Add(
				lincomb(ops, rt.Beqs[b:b+M], lambda),
				ops.Const(rt.BbcAt(t, k)))
			sum = ops.Add(sum, ops.Mul(Bcoef[t], term))
		}
		F = ops.Cat(F, []T{sum})
	}
	return
}

// ResidualBatch evaluates Residual for each design point and row of Lambda.
func (m *Model) ResidualBatch(alpha []types.DesignPoint, Lambda utils.Matrix) (F utils.Matrix, err error) {
	var (
		NCase, M = Lambda.Dims()
		ops      = types.Float64Ops{}
	)
	if NCase != len(alpha) || M != m.Opts.M {
		err = fmt.Errorf("%w: %d design points, coefficients are %d x %d, model has %d modes",
			utils.ErrShapeMismatch, len(alpha), NCase, M, m.Opts.M)
		return
	}
	F = utils.NewMatrix(NCase, M)
	for n, dp := range alpha {
		f := Residual[float64](ops, m.Tensors, dp.Re, dp.Angle, Lambda.DataP[n*M:(n+1)*M])
		copy(F.DataP[n*M:], f)
	}
	return
}
