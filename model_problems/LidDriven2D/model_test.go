package LidDriven2D

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gorom/geometry2D"
	"github.com/notargets/gorom/readfiles"
	"github.com/notargets/gorom/types"
	"github.com/notargets/gorom/utils"
)

func TestNewModel(t *testing.T) {
	m := newTestModel(t, 2)
	{ // Basis
		nr, nc := m.Basis.Modes.Dims()
		assert.Equal(t, 5*5*types.NVar, nr)
		assert.Equal(t, 2, nc)
		G := m.Basis.Modes.Transpose().Mul(m.Basis.Modes)
		assert.InDelta(t, 1., G.At(0, 0), 1.e-12)
		assert.InDelta(t, 1., G.At(1, 1), 1.e-12)
		assert.InDelta(t, 0., G.At(0, 1), 1.e-12)
		assert.Equal(t, 3, m.Basis.Rank)
		nr, nc = m.Projections.Dims()
		assert.Equal(t, 3, nr)
		assert.Equal(t, 2, nc)
		nr, _ = m.LambdaProj.Dims()
		assert.Equal(t, 2, nr)
	}
	{ // Tensor shapes
		rt := m.Tensors
		assert.Equal(t, [4]int{4, 2, 2, 2}, rt.AeqsShape())
		assert.Equal(t, [3]int{4, 2, 2}, rt.AbcShape())
		assert.Equal(t, [3]int{7, 2, 2}, rt.BeqsShape())
		assert.Equal(t, [2]int{7, 2}, rt.BbcShape())
		assert.Len(t, rt.Aeqs, 4*2*2*2)
		assert.Len(t, rt.Abc, 4*2*2)
		assert.Len(t, rt.Beqs, 7*2*2)
		assert.Len(t, rt.Bbc, 7*2)
	}
	{ // Dirichlet profiles
		Ny := m.Grid.Ny
		for i := 0; i < m.Grid.Nx; i++ {
			_, u, _ := cavityFields(trainPoints[0], m.Grid.X.AtVec(i), 1)
			assert.InDelta(t, u, m.UBC.At(i, Ny-1), 1.e-15)
		}
		assert.Zero(t, m.UBC.DotMasked(m.Map.Interior, m.UBC))
		assert.Zero(t, m.VBC.MaxAbs())
	}
	// With fewer modes than the snapshot rank the validation set is not
	// reproduced exactly
	assert.Greater(t, m.ProjError.Total, 1.e-6)
	assert.Less(t, m.ProjError.Total, 1.)
	e, err := m.GetError(m.LambdaProj)
	require.NoError(t, err)
	assert.Equal(t, m.ProjError, e)
}

func TestNewModelErrors(t *testing.T) {
	var (
		ctx   = context.Background()
		train = syntheticSnapshots(t, trainPoints)
		valid = syntheticSnapshots(t, validPoints)
		opts  = DefaultOptions(4)
	)
	_, err := NewModel(ctx, train, valid, opts)
	assert.ErrorIs(t, err, utils.ErrInvalidModeCount)

	opts = DefaultOptions(3)
	opts.PODNum = 2
	_, err = NewModel(ctx, train, valid, opts)
	assert.ErrorIs(t, err, utils.ErrInvalidModeCount)

	bad := *valid
	bad.FieldShape = [2]int{49, 1}
	_, err = NewModel(ctx, train, &bad, DefaultOptions(2))
	assert.ErrorIs(t, err, utils.ErrShapeMismatch)

	bad = *train
	bad.DesignSpace.Upper.Angle = 180
	_, err = NewModel(ctx, &bad, valid, DefaultOptions(2))
	assert.ErrorIs(t, err, utils.ErrDegenerateAngle)

	// Training on a subset still works
	opts = DefaultOptions(2)
	opts.PODNum = 2
	opts.Logger = utils.NoopLogger()
	m, err := NewModel(ctx, train, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Train.NSample())
	_, err = m.GetError(utils.NewMatrix(2, 2))
	assert.ErrorIs(t, err, utils.ErrShapeMismatch)
}

func TestBoundaryTerms(t *testing.T) {
	m := newTestModel(t, 2)
	rt := m.Tensors
	for k := 0; k < rt.M; k++ {
		// The lid profile is constant along yc at interior rows, so its xc
		// derivative vanishes there, and the y velocity profile is zero.
		for i := 0; i < rt.M; i++ {
			assert.Zero(t, rt.AbcAt(0, k, i))
			assert.Zero(t, rt.AbcAt(2, k, i))
		}
		for _, slot := range []int{0, 2, 3, 4} {
			assert.Zero(t, rt.BbcAt(slot, k))
		}
	}
	// The yc derivative of the lid drives the flow
	var sum float64
	for k := 0; k < rt.M; k++ {
		sum += math.Abs(rt.BbcAt(5, k))
		for i := 0; i < rt.M; i++ {
			sum += math.Abs(rt.AbcAt(1, k, i))
		}
	}
	assert.Greater(t, sum, 0.)
}

func TestBoundaryNormalVelocityIgnored(t *testing.T) {
	var (
		ctx   = context.Background()
		train = syntheticSnapshots(t, trainPoints)
		valid = syntheticSnapshots(t, validPoints)
		Nx    = train.FieldShape[0]
		Ny    = train.FieldShape[1]
		opts  = DefaultOptions(2)
	)
	// Wall noise in the y velocity of the first sample
	for i := 0; i < Nx; i++ {
		for _, j := range []int{0, Ny - 1} {
			ind := (i*Ny+j)*types.NVarLoad + int(types.V)
			train.Samples.Set(ind, 0, 1.e-3*float64(i))
		}
	}
	opts.Logger = utils.NoopLogger()
	m, err := NewModel(ctx, train, valid, opts)
	require.NoError(t, err)
	assert.Zero(t, m.VBC.MaxAbs())
	rt := m.Tensors
	for k := 0; k < rt.M; k++ {
		assert.Zero(t, rt.BbcAt(2, k), "k=%d", k)
		assert.Zero(t, rt.BbcAt(3, k), "k=%d", k)
	}
	// Matches the model built from clean data
	clean := newTestModel(t, 2)
	assert.Equal(t, clean.Tensors.Bbc, rt.Bbc)
	assert.Equal(t, clean.Tensors.Abc, rt.Abc)
	// No wall velocity is added back to v
	_, _, v := m.Fields(m.ProjectionRow(0))
	for n := range v.DataP {
		if m.Map.Boundary.DataP[n] != 0 {
			assert.Zero(t, v.DataP[n])
		}
	}
}

func TestTensorEntries(t *testing.T) {
	var (
		m    = newTestModel(t, 2)
		rt   = m.Tensors
		mask = m.Map.Interior
	)
	for k := 0; k < rt.M; k++ {
		mk := m.modes[k]
		for i := 0; i < rt.M; i++ {
			mi := m.modes[i]
			for j := 0; j < rt.M; j++ {
				mj := m.modes[j]
				// v_i u_j,yc u_k + v_i v_j,yc v_k
				w := mi.V.Copy().ElMul(mk.U)
				want := w.DotMasked(mask, mj.Uy)
				w = mi.V.Copy().ElMul(mk.V)
				want += w.DotMasked(mask, mj.Vy)
				assert.InDelta(t, want, rt.AeqsAt(3, k, i, j), 1.e-14)
			}
			// p_k continuity pairs with the pressure gradient tested by u_k
			want := mi.Ux.DotMasked(mask, mk.P) + mi.Px.DotMasked(mask, mk.U)
			assert.InDelta(t, want, rt.BeqsAt(0, k, i), 1.e-14)
		}
	}
	// Swapping the roles of the convecting and convected mode is a
	// different term
	assert.NotEqual(t, rt.AeqsAt(0, 0, 0, 1), rt.AeqsAt(0, 0, 1, 0))
}

func TestResidual(t *testing.T) {
	// With a basis that spans the snapshots, the reduced residual at a
	// training projection equals the projected residual of the full fields.
	m := newTestModel(t, 3)
	F, err := m.ResidualBatch(trainPoints, m.Projections)
	require.NoError(t, err)
	for s, dp := range trainPoints {
		p := m.Map.Field(m.Train.Samples, s, types.P)
		u := m.Map.Field(m.Train.Samples, s, types.U)
		v := m.Map.Field(m.Train.Samples, s, types.V)
		for k := 0; k < 3; k++ {
			want := directResidual(m, dp, p, u, v, k)
			assert.InDelta(t, want, F.At(s, k), 1.e-12*math.Max(1, math.Abs(want)))
		}
	}
	_, err = m.ResidualBatch(trainPoints[:2], m.Projections)
	assert.ErrorIs(t, err, utils.ErrShapeMismatch)
	assert.Panics(t, func() {
		Residual[float64](types.Float64Ops{}, m.Tensors, 100, 90, []float64{1, 2})
	})
}

func TestGalerkinSolve(t *testing.T) {
	var (
		ctx = context.Background()
		m   = newTestModel(t, 2)
	)
	{ // Nearest neighbour initial guess
		L0 := m.InitialGuess([]types.DesignPoint{{Re: 110, Angle: 62}, {Re: 290, Angle: 95}, {Re: 210, Angle: 115}})
		for n := 0; n < 3; n++ {
			assert.Equal(t, m.ProjectionRow(n), L0.Row(n).DataP)
		}
	}
	query := []types.DesignPoint{trainPoints[1], validPoints[0], validPoints[1]}
	results, err := m.GalerkinSolve(ctx, query, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.True(t, r.Converged)
		assert.Less(t, r.Residual, 1.e-6)
		assert.LessOrEqual(t, r.Iterations, 100)
		assert.Len(t, r.Lambda, 2)
	}
	F, err := m.ResidualBatch(query, Lambda(results))
	require.NoError(t, err)
	for n := range query {
		assert.Less(t, floatsNorm(F.Row(n).DataP), 1.e-6)
	}

	// Same initial guess, same answer
	L0 := m.InitialGuess(query)
	again, err := m.GalerkinSolve(ctx, query, &L0)
	require.NoError(t, err)
	for n := range results {
		assert.InDeltaSlice(t, results[n].Lambda, again[n].Lambda, 1.e-12)
	}

	{ // An unreachable tolerance is reported, not discarded
		m.Opts.NewtonTol = 1.e-300
		soft, err := m.GalerkinSolve(ctx, query[:1], nil)
		require.NoError(t, err)
		assert.False(t, soft[0].Converged)
		assert.Less(t, soft[0].Residual, 1.e-6)
		assert.InDeltaSlice(t, results[0].Lambda, soft[0].Lambda, 1.e-6)
		m.Opts.NewtonTol = 1.e-6
	}

	_, err = m.GalerkinSolve(ctx, []types.DesignPoint{{Re: 100, Angle: 0}}, nil)
	assert.ErrorIs(t, err, utils.ErrDegenerateAngle)
	bad := utils.NewMatrix(2, 2)
	_, err = m.GalerkinSolve(ctx, query, &bad)
	assert.ErrorIs(t, err, utils.ErrShapeMismatch)
}

func floatsNorm(x []float64) (n float64) {
	for _, v := range x {
		n += v * v
	}
	return math.Sqrt(n)
}

func TestReconstruct(t *testing.T) {
	var (
		ctx = context.Background()
		m   = newTestModel(t, 3)
		Nx  = m.Grid.Nx
		Ny  = m.Grid.Ny
	)
	for s, dp := range trainPoints {
		cf, err := m.Reconstruct(ctx, s, dp, m.ProjectionRow(s))
		require.NoError(t, err)
		for i := 0; i < Nx; i++ {
			for j := 0; j < Ny; j++ {
				p, u, v := cavityFields(dp, m.Grid.X.AtVec(i), m.Grid.Y.AtVec(j))
				assert.InDelta(t, u, cf.U.At(i, j), 1.e-14)
				assert.InDelta(t, v, cf.V.At(i, j), 1.e-14)
				if m.Map.Interior.At(i, j) == 1 {
					assert.InDelta(t, p, cf.P.At(i, j), 1.e-14)
				} else {
					assert.Zero(t, cf.P.At(i, j))
				}
			}
		}
		// Vorticity is u_yp - v_xp
		J := geometry2D.Jacobian[float64](types.Float64Ops{}, dp.Angle)
		ux, uy := m.Grid.Grad(cf.U)
		vx, vy := m.Grid.Grad(cf.V)
		for n := range cf.Omega.DataP {
			want := J[2]*ux.DataP[n] + J[3]*uy.DataP[n] - J[0]*vx.DataP[n] - J[1]*vy.DataP[n]
			assert.InDelta(t, want, cf.Omega.DataP[n], 1.e-14)
		}
		// The stream function solves the Poisson problem on interior points
		assert.True(t, cf.Stream.Converged)
		assert.Less(t, cf.Stream.MaxUpdate, 1.e-8)
		gxx, gyy, gxy := geometry2D.Metric(J)
		dxx, dyy, dxy := m.Grid.Hessian(cf.Psi)
		for n := range cf.Psi.DataP {
			if m.Map.Interior.DataP[n] == 0 {
				assert.Zero(t, cf.Psi.DataP[n])
				continue
			}
			lap := gxx*dxx.DataP[n] + gyy*dyy.DataP[n] + gxy*dxy.DataP[n]
			assert.InDelta(t, cf.Omega.DataP[n], lap, 1.e-8)
		}
		// Physical grid
		xp, yp := geometry2D.Grid(dp, m.xc, m.yc)
		assert.Equal(t, xp.DataP, cf.Xp.DataP)
		assert.Equal(t, yp.DataP, cf.Yp.DataP)
	}

	_, err := m.Reconstruct(ctx, 0, types.DesignPoint{Re: 100, Angle: 180}, m.ProjectionRow(0))
	assert.ErrorIs(t, err, utils.ErrDegenerateAngle)
	_, err = m.Reconstruct(ctx, 0, trainPoints[0], []float64{1})
	assert.ErrorIs(t, err, utils.ErrShapeMismatch)

	{ // Budget exhaustion is reported
		m.Opts.RelaxMaxIter = 5
		cf, err := m.Reconstruct(ctx, 0, trainPoints[0], m.ProjectionRow(0))
		require.NoError(t, err)
		assert.False(t, cf.Stream.Converged)
		assert.Equal(t, 5, cf.Stream.Iterations)
		assert.Greater(t, cf.Stream.MaxUpdate, 1.e-8)
	}
}

func TestGetError(t *testing.T) {
	// A basis spanning the family reproduces the validation set
	m := newTestModel(t, 3)
	assert.Less(t, m.ProjError.Total, 1.e-10)
	assert.Less(t, m.ProjError.P, 1.e-10)
	assert.Less(t, m.ProjError.U, 1.e-10)
	assert.Less(t, m.ProjError.V, 1.e-10)

	// Scaling every coefficient by 1.1 gives a 10% error in every variable
	L := m.LambdaProj.Copy().Scale(1.1)
	e, err := m.GetError(L)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, e.P, 1.e-8)
	assert.InDelta(t, 0.1, e.U, 1.e-8)
	assert.InDelta(t, 0.1, e.V, 1.e-8)
	assert.InDelta(t, 0.1, e.Total, 1.e-8)

	_, err = m.GetError(m.Projections)
	assert.ErrorIs(t, err, utils.ErrShapeMismatch)
}

func TestGetPredFields(t *testing.T) {
	var (
		ctx    = context.Background()
		m      = newTestModel(t, 2)
		prefix = filepath.Join(t.TempDir(), "pred")
	)
	results, err := m.GalerkinSolve(ctx, validPoints, nil)
	require.NoError(t, err)
	cases, err := m.GetPredFields(ctx, validPoints, Lambda(results), prefix)
	require.NoError(t, err)
	require.Len(t, cases, 2)
	for n := range cases {
		_, err = os.Stat(fmt.Sprintf("%s%d.plt", prefix, n))
		assert.NoError(t, err)
	}
	fa, err := readfiles.ReadFieldsArchive(prefix + ".json.zst")
	require.NoError(t, err)
	require.Len(t, fa.Fields, 2)
	assert.Len(t, fa.Fields[1][6], m.Grid.Nx)
	assert.Equal(t, cases[1].U.At(3, 6), fa.Fields[1][3][3][6])

	// Without a prefix nothing is written
	cases, err = m.GetPredFields(ctx, validPoints[:1], Lambda(results[:1]), "")
	require.NoError(t, err)
	assert.Len(t, cases, 1)

	_, err = m.GetPredFields(ctx, validPoints, Lambda(results[:1]), "")
	assert.ErrorIs(t, err, utils.ErrShapeMismatch)
}
