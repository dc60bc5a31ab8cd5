package LidDriven2D

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/gorom/geometry2D"
	"github.com/notargets/gorom/readfiles"
	"github.com/notargets/gorom/types"
	"github.com/notargets/gorom/utils"
)

// Errors are relative L2 errors against the validation fields, averaged over
// cases.
type Errors struct {
	P, U, V, Total float64
}

// StreamResult reports the stream function relaxation. Converged is false
// when the iteration budget ran out first.
type StreamResult struct {
	Iterations int
	MaxUpdate  float64 // max |Laplacian(psi) - omega| over interior points
	Converged  bool
}

// CaseFields are the reconstructed physical fields of one case.
type CaseFields struct {
	Design     types.DesignPoint
	Xp, Yp     utils.Matrix
	P, U, V    utils.Matrix
	Omega, Psi utils.Matrix
	Stream     StreamResult
}

// Plot returns the fields in result file column order.
func (cf *CaseFields) Plot() []utils.Matrix {
	return []utils.Matrix{cf.P, cf.U, cf.V, cf.Omega, cf.Psi}
}

// Fields maps modal coefficients to p, u, v, adding the lid profile.
func (m *Model) Fields(lambda []float64) (p, u, v utils.Matrix) {
	p, u, v = m.Map.Mode2Field(m.Basis.Reconstruct(lambda))
	u.Add(m.UBC)
	return
}

// Vorticity returns u_yp - v_xp through the chain rule coefficients J.
func (m *Model) Vorticity(u, v utils.Matrix, J [4]float64) (omega utils.Matrix) {
	var (
		ux, uy = m.Grid.Grad(u)
		vx, vy = m.Grid.Grad(v)
	)
	omega = ux.Scale(J[2]).AddScaled(J[3], uy).AddScaled(-J[0], vx).AddScaled(-J[1], vy)
	return
}

/*
StreamFunction relaxes psi toward the solution of Laplacian(psi) = omega with
psi = 0 on the boundary, by explicit pseudo time stepping on interior points

	psi += dt*(Laplacian(psi) - omega),  dt = 0.5*min(hx,hy)^2

where hx, hy are the physical node spacings at the first corner. The loop
stops when the interior residual Laplacian(psi) - omega, before scaling by dt,
drops below RelaxTol.
*/
func (m *Model) StreamFunction(ctx context.Context, icase int, omega, xp, yp utils.Matrix, J [4]float64) (psi utils.Matrix, sr StreamResult) {
	var (
		Ny            = m.Grid.Ny
		gxx, gyy, gxy = geometry2D.Metric(J)
		hx            = math.Abs(xp.DataP[0] - xp.DataP[Ny])
		hy            = math.Abs(yp.DataP[0] - yp.DataP[1])
		dt            = 0.5 * math.Pow(math.Min(hx, hy), 2)
		mask          = m.Map.Interior.DataP
		report        = m.Opts.RelaxReport
	)
	psi = utils.NewMatrix(m.Grid.Nx, Ny)
	for sr.Iterations = 0; sr.Iterations < m.Opts.RelaxMaxIter; sr.Iterations++ {
		if sr.Iterations%1000 == 0 && ctx.Err() != nil {
			return
		}
		dxx, dyy, dxy := m.Grid.Hessian(psi)
		sr.MaxUpdate = 0
		for n := range psi.DataP {
			if mask[n] == 0 {
				dxx.DataP[n] = 0
				continue
			}
			dxx.DataP[n] = gxx*dxx.DataP[n] + gyy*dyy.DataP[n] + gxy*dxy.DataP[n] - omega.DataP[n]
			sr.MaxUpdate = math.Max(sr.MaxUpdate, math.Abs(dxx.DataP[n]))
		}
		if report > 0 && sr.Iterations%report == 0 {
			m.log.LogRelaxation(ctx, icase, sr.Iterations, sr.MaxUpdate)
		}
		// psi is left as the iterate the residual was measured on
		if sr.MaxUpdate < m.Opts.RelaxTol {
			sr.Converged = true
			return
		}
		for n, r := range dxx.DataP {
			psi.DataP[n] += dt * r
		}
	}
	m.log.LogRelaxationBudget(ctx, icase, sr.Iterations, sr.MaxUpdate)
	return
}

// Reconstruct builds the physical fields of one case.
func (m *Model) Reconstruct(ctx context.Context, icase int, dp types.DesignPoint, lambda []float64) (cf *CaseFields, err error) {
	if err = geometry2D.CheckDesignPoint(dp); err != nil {
		return
	}
	if len(lambda) != m.Opts.M {
		err = fmt.Errorf("%w: %d coefficients for %d modes", utils.ErrShapeMismatch, len(lambda), m.Opts.M)
		return
	}
	J := geometry2D.Jacobian[float64](types.Float64Ops{}, dp.Angle)
	cf = &CaseFields{Design: dp}
	cf.Xp, cf.Yp = geometry2D.Grid(dp, m.xc, m.yc)
	cf.P, cf.U, cf.V = m.Fields(lambda)
	cf.Omega = m.Vorticity(cf.U, cf.V, J)
	cf.Psi, cf.Stream = m.StreamFunction(ctx, icase, cf.Omega, cf.Xp, cf.Yp, J)
	return
}

/*
GetError compares the fields predicted by each row of Lambda with the
validation snapshots. Per variable errors use the interior values of that
variable only.
*/
func (m *Model) GetError(Lambda utils.Matrix) (e Errors, err error) {
	var (
		NCase, M = Lambda.Dims()
	)
	if m.Valid == nil {
		err = fmt.Errorf("%w: no validation snapshots", utils.ErrShapeMismatch)
		return
	}
	if NCase != m.Valid.NSample() || M != m.Opts.M {
		err = fmt.Errorf("%w: %d x %d coefficients for %d validation cases and %d modes",
			utils.ErrShapeMismatch, NCase, M, m.Valid.NSample(), m.Opts.M)
		return
	}
	var (
		nInt       = m.Map.NInterior
		nPoint     = nInt / types.NVar
		truth      = make([]float64, nInt)
		vTrue      = make([]float64, nPoint)
		vPred      = make([]float64, nPoint)
		errs       [types.NVar]float64
		_, NSample = m.validInt.Dims()
	)
	for n := 0; n < NCase; n++ {
		pred := m.Basis.Reconstruct(Lambda.DataP[n*M : (n+1)*M])
		for i := range truth {
			truth[i] = m.validInt.DataP[i*NSample+n]
		}
		for nvar := 0; nvar < types.NVar; nvar++ {
			for i := 0; i < nPoint; i++ {
				vTrue[i] = truth[i*types.NVar+nvar]
				vPred[i] = pred[i*types.NVar+nvar]
			}
			errs[nvar] += floats.Distance(vPred, vTrue, 2) / floats.Norm(vTrue, 2)
		}
		e.Total += floats.Distance(pred, truth, 2) / floats.Norm(truth, 2)
	}
	e.P = errs[types.P] / float64(NCase)
	e.U = errs[types.U] / float64(NCase)
	e.V = errs[types.V] / float64(NCase)
	e.Total /= float64(NCase)
	return
}

/*
GetPredFields reconstructs every case and, when prefix is not empty, writes
<prefix><case>.plt for each case plus the <prefix>.json.zst Fields archive.
*/
func (m *Model) GetPredFields(ctx context.Context, alpha []types.DesignPoint, Lambda utils.Matrix, prefix string) (cases []*CaseFields, err error) {
	var (
		NCase, M = Lambda.Dims()
		grp      *errgroup.Group
		gctx     context.Context
	)
	if NCase != len(alpha) {
		err = fmt.Errorf("%w: %d coefficient rows for %d design points", utils.ErrShapeMismatch, NCase, len(alpha))
		return
	}
	cases = make([]*CaseFields, NCase)
	grp, gctx = errgroup.WithContext(ctx)
	grp.SetLimit(m.ParallelDegree(NCase))
	for n := range alpha {
		n := n
		grp.Go(func() (err error) {
			cases[n], err = m.Reconstruct(gctx, n, alpha[n], Lambda.DataP[n*M:(n+1)*M])
			return
		})
	}
	if err = grp.Wait(); err != nil {
		return nil, err
	}
	if len(prefix) == 0 {
		return
	}
	var fa readfiles.FieldsArchive
	for n, cf := range cases {
		if err = readfiles.WriteTecplotFile(fmt.Sprintf("%s%d.plt", prefix, n), cf.Xp, cf.Yp, cf.Plot()); err != nil {
			return
		}
		fa.AddCase(cf.Xp, cf.Yp, cf.Plot())
	}
	err = readfiles.WriteFieldsArchive(prefix+".json.zst", &fa)
	return
}
