package surrogate

import (
	"context"
	"fmt"

	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/notargets/gorom/POD"
	"github.com/notargets/gorom/model_problems/LidDriven2D"
	"github.com/notargets/gorom/types"
	"github.com/notargets/gorom/utils"
)

type Mode uint8

const (
	NN   Mode = iota // Labeled projections only
	PINN             // Labeled projections plus the reduced residual
)

func (m Mode) String() string {
	switch m {
	case NN:
		return "pod-nn"
	case PINN:
		return "pod-pinn"
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// NewMode parses "nn" or "pinn".
func NewMode(label string) (m Mode, err error) {
	switch label {
	case "nn", "pod-nn":
		m = NN
	case "pinn", "pod-pinn":
		m = PINN
	default:
		err = fmt.Errorf("unknown surrogate mode %q, want nn or pinn", label)
	}
	return
}

type Config struct {
	Hidden      []int   // Widths of the hidden layers
	Epochs      int     // Full batch Adam steps
	LearnRate   float64 //
	PINNWeight  float64 // Residual weight w in mean((w F)^2)
	Mode        Mode
	Seed        int64
	ReportEvery int // Epochs between progress reports, 0 for none
}

func DefaultConfig() Config {
	return Config{
		Hidden:     []int{32, 32},
		Epochs:     2000,
		LearnRate:  1.e-3,
		PINNWeight: 1,
		Mode:       NN,
	}
}

/*
Model maps a design point to modal coefficients. The network sees the design
point scaled to [-1,1]^2 and produces normalized coefficients, which are
de-normalized with the statistics of the training projections.

In PINN mode the reduced residual of the Galerkin system is evaluated on the
network output inside the same graph, so its gradient flows into the weights.
*/
type Model struct {
	Cfg         Config
	Net         *Network
	DesignSpace types.DesignSpace
	Norm        POD.Normalization
	Tensors     *LidDriven2D.ReducedTensors
	History     []float64 // Training loss per epoch
	log         *utils.Logger
}

// NewModel creates an untrained surrogate for the reduced model rom.
func NewModel(rom *LidDriven2D.Model, cfg Config) (sm *Model, err error) {
	var (
		layers = append(append([]int{2}, cfg.Hidden...), rom.Opts.M)
	)
	if cfg.Epochs < 0 {
		err = fmt.Errorf("negative epoch count %d", cfg.Epochs)
		return
	}
	sm = &Model{
		Cfg:         cfg,
		DesignSpace: rom.Train.DesignSpace,
		Norm:        rom.Norm,
		Tensors:     rom.Tensors,
		log:         rom.Opts.Logger,
	}
	if sm.log == nil {
		sm.log = utils.NoopLogger()
	}
	if sm.Net, err = NewNetwork(layers, cfg.Seed); err != nil {
		sm = nil
	}
	return
}

func (sm *Model) M() int { return sm.Tensors.M }

func (sm *Model) scaleInputs(alpha []types.DesignPoint) (X utils.Matrix) {
	X = utils.NewMatrix(len(alpha), 2)
	for n, dp := range alpha {
		s := sm.DesignSpace.Scale(dp)
		X.DataP[2*n], X.DataP[2*n+1] = s[0], s[1]
	}
	return
}

func (sm *Model) normalizeTargets(Lambda utils.Matrix) (Y utils.Matrix) {
	var (
		NCase, M = Lambda.Dims()
	)
	Y = utils.NewMatrix(NCase, M)
	for n := 0; n < NCase; n++ {
		copy(Y.DataP[n*M:], sm.Norm.Normalize(Lambda.DataP[n*M:(n+1)*M]))
	}
	return
}

// Predict returns the de-normalized coefficients, one row per design point.
func (sm *Model) Predict(alpha []types.DesignPoint) (Lambda utils.Matrix) {
	var (
		M = sm.M()
		Y = sm.Net.Forward(sm.scaleInputs(alpha))
	)
	Lambda = utils.NewMatrix(len(alpha), M)
	for n := range alpha {
		copy(Lambda.DataP[n*M:], sm.Norm.Denormalize(Y.DataP[n*M:(n+1)*M]))
	}
	return
}

/*
Train fits the network by full batch Adam on the loss

	mean(((Lambda - out)/std)^2)                       labeled, always
	+ sum_k mean((w F_k(alphaR, out))^2) / M           PINN mode only

Lambda holds the labeled projections of alpha. alphaR are the residual
collocation points, which need no labels; in PINN mode an empty alphaR falls
back to alpha.
*/
func (sm *Model) Train(ctx context.Context, alpha []types.DesignPoint, Lambda utils.Matrix,
	alphaR []types.DesignPoint) (err error) {
	var (
		NCase, M = Lambda.Dims()
		g        = gorgonia.NewGraph()
		gn       = sm.Net.bind(g)
		cost     *gorgonia.Node
	)
	if NCase != len(alpha) || M != sm.M() {
		err = fmt.Errorf("%w: %d design points, labels are %d x %d, surrogate has %d outputs",
			utils.ErrShapeMismatch, len(alpha), NCase, M, sm.M())
		return
	}
	if NCase < 2 {
		err = fmt.Errorf("%w: need at least two labeled design points, have %d",
			utils.ErrShapeMismatch, NCase)
		return
	}
	if cost, err = sm.labeledLoss(gn, alpha, Lambda); err != nil {
		return
	}
	if sm.Cfg.Mode == PINN {
		if len(alphaR) == 0 {
			alphaR = alpha
		}
		var pinn *gorgonia.Node
		if pinn, err = sm.residualLoss(gn, alphaR); err != nil {
			return
		}
		if pinn != nil {
			cost = gorgonia.Must(gorgonia.Add(cost, pinn))
		}
	}
	if _, err = gorgonia.Grad(cost, gn.weights...); err != nil {
		return
	}
	var (
		vm     = gorgonia.NewTapeMachine(g, gorgonia.BindDualValues(gn.weights...))
		solver = gorgonia.NewAdamSolver(gorgonia.WithLearnRate(sm.Cfg.LearnRate))
	)
	defer vm.Close()
	sm.History = sm.History[:0]
	for epoch := 0; epoch < sm.Cfg.Epochs; epoch++ {
		if err = ctx.Err(); err != nil {
			break
		}
		if err = vm.RunAll(); err != nil {
			break
		}
		loss := cost.Value().Data().(float64)
		sm.History = append(sm.History, loss)
		if utils.IsNan(loss) {
			err = fmt.Errorf("training loss is NaN at epoch %d", epoch)
			break
		}
		if sm.Cfg.ReportEvery > 0 && epoch%sm.Cfg.ReportEvery == 0 {
			sm.log.LogTraining(ctx, sm.Cfg.Mode.String(), epoch, loss)
		}
		if err = solver.Step(gorgonia.NodesToValueGrads(gn.weights)); err != nil {
			break
		}
		vm.Reset()
	}
	sm.Net.store(gn)
	return
}

func (sm *Model) labeledLoss(gn *graphNetwork, alpha []types.DesignPoint, Lambda utils.Matrix) (loss *gorgonia.Node, err error) {
	var (
		x   = inputNode(gn.g, "x", sm.scaleInputs(alpha))
		y   = inputNode(gn.g, "y", sm.normalizeTargets(Lambda))
		out = gn.forward(x, len(alpha), "x")
	)
	diff := gorgonia.Must(gorgonia.Sub(out, y))
	loss, err = gorgonia.Mean(gorgonia.Must(gorgonia.Square(diff)))
	return
}

// residualLoss returns nil when every residual component folds to a constant.
func (sm *Model) residualLoss(gn *graphNetwork, alphaR []types.DesignPoint) (loss *gorgonia.Node, err error) {
	var (
		B      = len(alphaR)
		M      = sm.M()
		ops    = GraphOps{}
		xr     = inputNode(gn.g, "xr", sm.scaleInputs(alphaR))
		out    = gn.forward(xr, B, "xr")
		lambda = make([]GraphValue, M)
		reData = make([]float64, B)
		anData = make([]float64, B)
		w      = constNode(sm.Cfg.PINNWeight)
	)
	if B < 2 {
		err = fmt.Errorf("%w: need at least two residual points, have %d", utils.ErrShapeMismatch, B)
		return
	}
	for n, dp := range alphaR {
		reData[n], anData[n] = dp.Re, dp.Angle
	}
	re := GraphValue{Node: vectorNode(gn.g, "re", reData)}
	angle := GraphValue{Node: vectorNode(gn.g, "angle", anData)}
	for m := 0; m < M; m++ {
		col := GraphValue{Node: gorgonia.Must(gorgonia.Slice(out, nil, gorgonia.S(m)))}
		lambda[m] = ops.Add(ops.Mul(col, ops.Const(sm.Norm.Std[m])), ops.Const(sm.Norm.Mean[m]))
	}
	F := LidDriven2D.Residual[GraphValue](ops, sm.Tensors, re, angle, lambda)
	for _, Fk := range F {
		if Fk.IsConst() {
			continue
		}
		wF := gorgonia.Must(gorgonia.HadamardProd(Fk.Node, w))
		term := gorgonia.Must(gorgonia.Mean(gorgonia.Must(gorgonia.Square(wF))))
		if loss == nil {
			loss = term
		} else {
			loss = gorgonia.Must(gorgonia.Add(loss, term))
		}
	}
	if loss != nil {
		loss = gorgonia.Must(gorgonia.Mul(loss, constNode(1/float64(M))))
	}
	return
}

func vectorNode(g *gorgonia.ExprGraph, name string, data []float64) *gorgonia.Node {
	return gorgonia.NewVector(g, tensor.Float64,
		gorgonia.WithShape(len(data)),
		gorgonia.WithName(name),
		gorgonia.WithValue(tensor.New(tensor.WithShape(len(data)), tensor.WithBacking(data))))
}

// ResidualLoss evaluates the PINN loss term on plain values for the
// coefficients Lambda at alpha.
func (sm *Model) ResidualLoss(alpha []types.DesignPoint, Lambda utils.Matrix) (loss float64, err error) {
	var (
		NCase, M = Lambda.Dims()
		ops      = types.Float64Ops{}
		w        = sm.Cfg.PINNWeight
	)
	if NCase != len(alpha) || M != sm.M() || NCase == 0 {
		err = fmt.Errorf("%w: %d design points, coefficients are %d x %d, surrogate has %d outputs",
			utils.ErrShapeMismatch, len(alpha), NCase, M, sm.M())
		return
	}
	for n, dp := range alpha {
		F := LidDriven2D.Residual[float64](ops, sm.Tensors, dp.Re, dp.Angle, Lambda.DataP[n*M:(n+1)*M])
		for _, Fk := range F {
			loss += (w * Fk) * (w * Fk)
		}
	}
	loss /= float64(NCase * M)
	return
}

// LabeledResidualLoss is the residual loss of the labeled projections
// themselves, the floor a PINN can reach on the training points.
func (sm *Model) LabeledResidualLoss(alpha []types.DesignPoint, Lambda utils.Matrix) (float64, error) {
	return sm.ResidualLoss(alpha, Lambda)
}

// LabeledLoss evaluates the labeled loss term of the current weights.
func (sm *Model) LabeledLoss(alpha []types.DesignPoint, Lambda utils.Matrix) (loss float64, err error) {
	var (
		NCase, M = Lambda.Dims()
	)
	if NCase != len(alpha) || M != sm.M() || NCase == 0 {
		err = fmt.Errorf("%w: %d design points, labels are %d x %d, surrogate has %d outputs",
			utils.ErrShapeMismatch, len(alpha), NCase, M, sm.M())
		return
	}
	var (
		Y   = sm.normalizeTargets(Lambda)
		Out = sm.Net.Forward(sm.scaleInputs(alpha))
	)
	for i, y := range Y.DataP {
		d := Out.DataP[i] - y
		loss += d * d
	}
	loss /= float64(NCase * M)
	return
}
