package LidDriven2D

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/notargets/gorom/Chebyshev2D"
	"github.com/notargets/gorom/geometry2D"
	"github.com/notargets/gorom/readfiles"
	"github.com/notargets/gorom/types"
	"github.com/notargets/gorom/utils"
)

const amplitude = 1.e-2

var (
	trainPoints = []types.DesignPoint{{Re: 100, Angle: 60}, {Re: 300, Angle: 90}, {Re: 200, Angle: 120}}
	validPoints = []types.DesignPoint{{Re: 150, Angle: 75}, {Re: 250, Angle: 105}}
	designSpace = types.DesignSpace{
		Lower: types.DesignPoint{Re: 100, Angle: 60},
		Upper: types.DesignPoint{Re: 300, Angle: 120},
	}
)

// cavityFields is an analytic, low amplitude lid driven cavity state on
// [-1,1]^2. The lid moves along y = 1, all other walls are at rest. Every
// state lies in a three dimensional family, so three samples span it.
func cavityFields(dp types.DesignPoint, x, y float64) (p, u, v float64) {
	var (
		a, b   = dp.Re / 200, dp.Angle / 90
		bubble = (1 - x*x) * (1 - y*y)
		yl     = (1 + y) / 2
		lid    = (1 - x*x) * (1 - x*x) * yl * yl * yl
	)
	u = amplitude * (lid + a*bubble*(x+0.5) + b*bubble*y)
	v = amplitude * (a*bubble*x*y + b*bubble*(1-x))
	p = amplitude * (a*x*y + b*(x*x+0.3*y) + 0.2)
	return
}

// syntheticSnapshots samples cavityFields on a 7x7 Chebyshev grid, which has
// a 5x5 interior.
func syntheticSnapshots(t *testing.T, points []types.DesignPoint) *readfiles.Snapshots {
	var (
		Nx, Ny = 7, 7
	)
	g, err := Chebyshev2D.NewGrid(-1, 1, -1, 1, Nx-1, Ny-1)
	require.NoError(t, err)
	s := &readfiles.Snapshots{
		Samples:     utils.NewMatrix(Nx*Ny*types.NVarLoad, len(points)),
		FieldShape:  [2]int{Nx, Ny},
		NVarLoad:    types.NVarLoad,
		Parameters:  points,
		DesignSpace: designSpace,
	}
	for n, dp := range points {
		for i := 0; i < Nx; i++ {
			for j := 0; j < Ny; j++ {
				p, u, v := cavityFields(dp, g.X.AtVec(i), g.Y.AtVec(j))
				ind := (i*Ny + j) * types.NVarLoad
				s.Samples.Set(ind+int(types.P), n, p)
				s.Samples.Set(ind+int(types.U), n, u)
				s.Samples.Set(ind+int(types.V), n, v)
			}
		}
	}
	require.NoError(t, s.Validate())
	return s
}

func newTestModel(t *testing.T, M int, modify ...func(*Options)) *Model {
	opts := DefaultOptions(M)
	opts.Logger = utils.NoopLogger()
	for _, f := range modify {
		f(&opts)
	}
	m, err := NewModel(context.Background(),
		syntheticSnapshots(t, trainPoints), syntheticSnapshots(t, validPoints), opts)
	require.NoError(t, err)
	return m
}

// directResidual projects the discrete Navier-Stokes residual of full fields
// onto test mode k, without going through the reduced tensors.
func directResidual(m *Model, dp types.DesignPoint, p, u, v utils.Matrix, k int) (F float64) {
	var (
		g             = m.Grid
		J             = geometry2D.Jacobian[float64](types.Float64Ops{}, dp.Angle)
		nu            = 1 / dp.Re
		gxx, gyy, gxy = geometry2D.Metric(J)
		ux, uy        = g.Grad(u)
		vx, vy        = g.Grad(v)
		px, py        = g.GradP(p)
		uxx, uyy, uxy = g.Hessian(u)
		vxx, vyy, vxy = g.Hessian(v)
		mk            = m.modes[k]
	)
	for n := range u.DataP {
		if m.Map.Interior.DataP[n] == 0 {
			continue
		}
		uu, vv := u.DataP[n], v.DataP[n]
		dudxp := J[0]*ux.DataP[n] + J[1]*uy.DataP[n]
		dudyp := J[2]*ux.DataP[n] + J[3]*uy.DataP[n]
		dvdxp := J[0]*vx.DataP[n] + J[1]*vy.DataP[n]
		dvdyp := J[2]*vx.DataP[n] + J[3]*vy.DataP[n]
		dpdxp := J[0]*px.DataP[n] + J[1]*py.DataP[n]
		dpdyp := J[2]*px.DataP[n] + J[3]*py.DataP[n]
		lapU := gxx*uxx.DataP[n] + gyy*uyy.DataP[n] + gxy*uxy.DataP[n]
		lapV := gxx*vxx.DataP[n] + gyy*vyy.DataP[n] + gxy*vxy.DataP[n]
		F += mk.U.DataP[n] * (uu*dudxp + vv*dudyp + dpdxp - nu*lapU)
		F += mk.V.DataP[n] * (uu*dvdxp + vv*dvdyp + dpdyp - nu*lapV)
		F += mk.P.DataP[n] * (dudxp + dvdyp)
	}
	return
}
