package LidDriven2D

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/notargets/gorom/geometry2D"
	"github.com/notargets/gorom/types"
	"github.com/notargets/gorom/utils"
)

// GalerkinResult is the outcome of one reduced solve. A case that misses the
// tolerance is still returned with Converged false.
type GalerkinResult struct {
	Lambda     []float64
	Residual   float64 // Euclidean norm of F at Lambda
	Iterations int
	Converged  bool
}

// designPoint is a training design point scaled into [-1,1]^2, tagged with
// its sample index.
type designPoint struct {
	X     [2]float64
	Index int
}

func (p designPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(designPoint)
	return p.X[d] - q.X[d]
}

func (p designPoint) Dims() int { return 2 }

func (p designPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(designPoint)
	dx, dy := p.X[0]-q.X[0], p.X[1]-q.X[1]
	return dx*dx + dy*dy
}

type designPoints []designPoint

func (p designPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p designPoints) Len() int                              { return len(p) }
func (p designPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }
func (p designPoints) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(designPlane{designPoints: p, Dim: d}, kdtree.MedianOfMedians(designPlane{designPoints: p, Dim: d}))
}

type designPlane struct {
	designPoints
	kdtree.Dim
}

func (p designPlane) Less(i, j int) bool {
	return p.designPoints[i].X[p.Dim] < p.designPoints[j].X[p.Dim]
}
func (p designPlane) Slice(start, end int) kdtree.SortSlicer {
	return designPlane{designPoints: p.designPoints[start:end], Dim: p.Dim}
}
func (p designPlane) Swap(i, j int) {
	p.designPoints[i], p.designPoints[j] = p.designPoints[j], p.designPoints[i]
}

func (m *Model) newDesignTree() *kdtree.Tree {
	pts := make(designPoints, len(m.Train.Parameters))
	for n, dp := range m.Train.Parameters {
		pts[n] = designPoint{X: m.Train.DesignSpace.Scale(dp), Index: n}
	}
	return kdtree.New(pts, false)
}

// nearestSample returns the training sample closest to dp in the scaled
// design space, the lowest index among equidistant samples.
func (m *Model) nearestSample(tree *kdtree.Tree, dp types.DesignPoint) (index int) {
	q := designPoint{X: m.Train.DesignSpace.Scale(dp)}
	_, dist := tree.Nearest(q)
	keeper := kdtree.NewDistKeeper(dist)
	tree.NearestSet(keeper, q)
	index = math.MaxInt
	for _, cd := range keeper.Heap {
		if cd.Comparable == nil {
			continue
		}
		if n := cd.Comparable.(designPoint).Index; n < index {
			index = n
		}
	}
	return
}

// InitialGuess returns the training projection of the nearest sample for
// each design point.
func (m *Model) InitialGuess(alpha []types.DesignPoint) (Lambda0 utils.Matrix) {
	var (
		tree = m.newDesignTree()
		M    = m.Opts.M
	)
	Lambda0 = utils.NewMatrix(len(alpha), M)
	for n, dp := range alpha {
		copy(Lambda0.DataP[n*M:], m.ProjectionRow(m.nearestSample(tree, dp)))
	}
	return
}

/*
GalerkinSolve solves the reduced system for every design point. Lambda0
supplies initial guesses, one row per point; when it is nil the nearest
training projection is used. Cases are solved concurrently.
*/
func (m *Model) GalerkinSolve(ctx context.Context, alpha []types.DesignPoint, Lambda0 *utils.Matrix) (results []GalerkinResult, err error) {
	var (
		M   = m.Opts.M
		L0  utils.Matrix
		grp *errgroup.Group
	)
	for _, dp := range alpha {
		if err = geometry2D.CheckDesignPoint(dp); err != nil {
			return
		}
	}
	if Lambda0 == nil {
		L0 = m.InitialGuess(alpha)
	} else {
		L0 = *Lambda0
		if nr, nc := L0.Dims(); nr != len(alpha) || nc != M {
			err = fmt.Errorf("%w: initial guess is %d x %d for %d points and %d modes",
				utils.ErrShapeMismatch, nr, nc, len(alpha), M)
			return
		}
	}
	results = make([]GalerkinResult, len(alpha))
	grp, ctx = errgroup.WithContext(ctx)
	grp.SetLimit(m.ParallelDegree(len(alpha)))
	for n := range alpha {
		n := n
		grp.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[n] = m.solveCase(alpha[n], L0.DataP[n*M:(n+1)*M])
			m.log.LogSolve(ctx, n, alpha[n].Re, alpha[n].Angle,
				results[n].Residual, results[n].Iterations, results[n].Converged)
			return nil
		})
	}
	if err = grp.Wait(); err != nil {
		return nil, err
	}
	return
}

// Lambda stacks the solutions of a batch, one row per case.
func Lambda(results []GalerkinResult) (L utils.Matrix) {
	if len(results) == 0 {
		return utils.NewMatrix(0, 0)
	}
	M := len(results[0].Lambda)
	L = utils.NewMatrix(len(results), M)
	for n, r := range results {
		copy(L.DataP[n*M:], r.Lambda)
	}
	return
}

/*
solveCase runs a damped Newton iteration on the residual expressed in
normalized coefficients, with a central difference Jacobian. If Newton stalls
the least squares residual is polished with Nelder-Mead.
*/
func (m *Model) solveCase(dp types.DesignPoint, lambda0 []float64) (res GalerkinResult) {
	var (
		M    = m.Opts.M
		ops  = types.Float64Ops{}
		tol  = m.Opts.NewtonTol
		x    = m.Norm.Normalize(lambda0)
		F    = make([]float64, M)
		Ft   = make([]float64, M)
		xt   = make([]float64, M)
		J    = mat.NewDense(M, M, nil)
		dx   = mat.NewVecDense(M, nil)
		fnrm float64
	)
	f := func(y, xn []float64) {
		copy(y, Residual[float64](ops, m.Tensors, dp.Re, dp.Angle, m.Norm.Denormalize(xn)))
	}
	f(F, x)
	fnrm = floats.Norm(F, 2)
	for res.Iterations = 0; res.Iterations < m.Opts.NewtonMaxIter && fnrm >= tol; res.Iterations++ {
		fd.Jacobian(J, f, x, &fd.JacobianSettings{
			Formula:     fd.Central,
			OriginValue: F,
		})
		if err := dx.SolveVec(J, mat.NewVecDense(M, F)); err != nil {
			break
		}
		// Backtrack until the residual decreases
		step, accepted := 1., false
		for ; step > 1.e-4; step *= 0.5 {
			floats.AddScaledTo(xt, x, -step, dx.RawVector().Data)
			f(Ft, xt)
			if nrm := floats.Norm(Ft, 2); nrm < fnrm {
				copy(x, xt)
				copy(F, Ft)
				fnrm = nrm
				accepted = true
				break
			}
		}
		if !accepted {
			break
		}
	}
	if fnrm >= tol {
		problem := optimize.Problem{
			Func: func(xn []float64) float64 {
				f(Ft, xn)
				return floats.Dot(Ft, Ft)
			},
		}
		settings := optimize.Settings{
			MajorIterations: 1000 * M,
			Converger: &optimize.FunctionConverge{
				Absolute:   tol * tol * 1.e-4,
				Iterations: 100,
			},
		}
		// Hitting an evaluation limit still returns the best location found
		if result, _ := optimize.Minimize(problem, x, &settings, &optimize.NelderMead{}); result != nil {
			f(Ft, result.X)
			if nrm := floats.Norm(Ft, 2); nrm < fnrm {
				copy(x, result.X)
				fnrm = nrm
			}
			res.Iterations += result.Stats.MajorIterations
		}
	}
	res.Lambda = m.Norm.Denormalize(x)
	res.Residual = fnrm
	res.Converged = fnrm < tol
	return
}
