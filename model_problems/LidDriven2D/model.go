package LidDriven2D

import (
	"context"
	"fmt"

	"github.com/notargets/gorom/Chebyshev2D"
	"github.com/notargets/gorom/POD"
	"github.com/notargets/gorom/geometry2D"
	"github.com/notargets/gorom/readfiles"
	"github.com/notargets/gorom/types"
	"github.com/notargets/gorom/utils"
)

type Options struct {
	PODNum    int // Number of leading training samples used for the basis, 0 for all
	M         int // Number of retained modes
	ProcLimit int // Upper bound on goroutines, 0 for one per CPU

	NewtonTol     float64 // Residual norm accepted by the Galerkin solve
	NewtonMaxIter int

	RelaxTol     float64 // Max pointwise stream function update at convergence
	RelaxMaxIter int
	RelaxReport  int // Iterations between relaxation progress reports

	Logger *utils.Logger
}

func DefaultOptions(M int) Options {
	return Options{
		M:             M,
		NewtonTol:     1.e-6,
		NewtonMaxIter: 100,
		RelaxTol:      1.e-8,
		RelaxMaxIter:  100000000,
		RelaxReport:   10000,
	}
}

/*
Model is a POD-Galerkin reduced model of the lid driven cavity.

Everything built by NewModel is read-only afterwards. Solves and
reconstructions only read the basis and the reduced tensors, so they may run
concurrently.
*/
type Model struct {
	Opts        Options
	Train       *readfiles.Snapshots // First PODNum training samples
	Valid       *readfiles.Snapshots // Independent validation samples, may be nil
	Grid        *Chebyshev2D.Grid
	Map         *POD.InteriorMap
	Basis       *POD.Basis
	Projections utils.Matrix // NSample x M training projections
	LambdaProj  utils.Matrix // NValid x M validation projections
	Norm        POD.Normalization
	UBC         utils.Matrix // Dirichlet lid profile, zero at interior points
	VBC         utils.Matrix // Always zero, the walls carry no normal velocity
	Tensors     *ReducedTensors
	ProjError   Errors // Error of the validation projections
	validInt    utils.Matrix
	modes       []*modeFields
	xc, yc      utils.Matrix
	log         *utils.Logger
}

// NewModel extracts the basis from the training snapshots and builds the
// reduced tensors. Snapshot fields live on a Chebyshev grid over [-1,1]^2.
func NewModel(ctx context.Context, train, valid *readfiles.Snapshots, opts Options) (m *Model, err error) {
	var (
		interior utils.Matrix
	)
	if err = train.Validate(); err != nil {
		return
	}
	if err = geometry2D.CheckDesignSpace(train.DesignSpace); err != nil {
		return
	}
	if opts.PODNum > 0 && opts.PODNum < train.NSample() {
		if train, err = train.Head(opts.PODNum); err != nil {
			return
		}
	}
	m = &Model{
		Opts:  opts,
		Train: train,
		Valid: valid,
		log:   opts.Logger,
	}
	if m.log == nil {
		m.log = utils.NoopLogger()
	}
	if m.Grid, err = Chebyshev2D.NewGrid(-1, 1, -1, 1, train.FieldShape[0]-1, train.FieldShape[1]-1); err != nil {
		return nil, err
	}
	m.xc, m.yc = m.Grid.Grid()
	if m.Map, err = POD.NewInteriorMap(train.FieldShape, train.NVarLoad); err != nil {
		return nil, err
	}
	if interior, err = m.Map.ExtractInteriorSnapshots(train.Samples); err != nil {
		return nil, err
	}
	if m.Basis, err = POD.NewBasis(interior, opts.M); err != nil {
		return nil, err
	}
	if m.Projections, err = m.Basis.Project(interior); err != nil {
		return nil, err
	}
	m.Norm = POD.NewNormalization(m.Projections)
	m.UBC = m.Map.Field(train.Samples, 0, types.U).ElMul(m.Map.Boundary)
	m.VBC = utils.NewMatrix(m.Grid.Nx, m.Grid.Ny)
	m.modes = m.buildModeFields()
	m.Tensors = m.BuildTensors()
	m.log.InfoContext(ctx, "reduced model built",
		"samples", train.NSample(),
		"modes", opts.M,
		"rank", m.Basis.Rank,
		"shape", fmt.Sprintf("%dx%d", train.FieldShape[0], train.FieldShape[1]),
	)
	if valid != nil {
		if err = m.setValidation(ctx, valid); err != nil {
			return nil, err
		}
	}
	return
}

func (m *Model) setValidation(ctx context.Context, valid *readfiles.Snapshots) (err error) {
	if err = valid.Validate(); err != nil {
		return
	}
	if valid.FieldShape != m.Train.FieldShape || valid.NVarLoad != m.Train.NVarLoad {
		err = fmt.Errorf("%w: validation shape %v/%d, training shape %v/%d", utils.ErrShapeMismatch,
			valid.FieldShape, valid.NVarLoad, m.Train.FieldShape, m.Train.NVarLoad)
		return
	}
	if m.validInt, err = m.Map.ExtractInteriorSnapshots(valid.Samples); err != nil {
		return
	}
	if m.LambdaProj, err = m.Basis.Project(m.validInt); err != nil {
		return
	}
	if m.ProjError, err = m.GetError(m.LambdaProj); err != nil {
		return
	}
	m.log.LogErrors(ctx, "projection", m.ProjError.P, m.ProjError.U, m.ProjError.V, m.ProjError.Total)
	return
}

func (m *Model) ParallelDegree(Kmax int) int {
	return utils.ParallelDegree(m.Opts.ProcLimit, Kmax)
}

// Mode2Field returns the p, u, v fields of mode n, zero on the boundary.
func (m *Model) Mode2Field(n int) (p, u, v utils.Matrix) {
	return m.Map.Mode2Field(m.Basis.Modes.Col(n).DataP)
}

// ProjectionRow returns the training projection of sample s.
func (m *Model) ProjectionRow(s int) []float64 {
	return m.Projections.Row(s).DataP
}
