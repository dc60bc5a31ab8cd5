package LidDriven2D

import (
	"sync"

	"github.com/notargets/gorom/geometry2D"
	"github.com/notargets/gorom/utils"
)

// modeFields holds one velocity/pressure field and the derivatives used by
// the Galerkin inner products.
type modeFields struct {
	P, U, V        utils.Matrix
	Ux, Uy, Vx, Vy utils.Matrix
	Px, Py         utils.Matrix // PN-PN-2 pressure derivatives
	Uxx, Uyy, Uxy  utils.Matrix
	Vxx, Vyy, Vxy  utils.Matrix
}

func (m *Model) newModeFields(p, u, v utils.Matrix) (mf *modeFields) {
	mf = &modeFields{P: p, U: u, V: v}
	mf.Ux, mf.Uy = m.Grid.Grad(u)
	mf.Vx, mf.Vy = m.Grid.Grad(v)
	mf.Px, mf.Py = m.Grid.GradP(p)
	mf.Uxx, mf.Uyy, mf.Uxy = m.Grid.Hessian(u)
	mf.Vxx, mf.Vyy, mf.Vxy = m.Grid.Hessian(v)
	return
}

func (m *Model) buildModeFields() (modes []*modeFields) {
	modes = make([]*modeFields, m.Opts.M)
	for n := range modes {
		modes[n] = m.newModeFields(m.Mode2Field(n))
	}
	return
}

/*
ReducedTensors are the parameter independent Galerkin tensors. For test mode
k and trial modes i, j, with <.> the sum over interior points:

	Aeqs[0,k,i,j] = <u_i u_j,xc u_k + u_i v_j,xc v_k>     weight J11
	Aeqs[1,k,i,j] = <u_i u_j,yc u_k + u_i v_j,yc v_k>     weight J12
	Aeqs[2,k,i,j] = <v_i u_j,xc u_k + v_i v_j,xc v_k>     weight J21
	Aeqs[3,k,i,j] = <v_i u_j,yc u_k + v_i v_j,yc v_k>     weight J22

	Beqs[0,k,j] = <u_j,xc p_k + p_j,xc u_k>               weight J11
	Beqs[1,k,j] = <u_j,yc p_k + p_j,yc u_k>               weight J12
	Beqs[2,k,j] = <v_j,xc p_k + p_j,xc v_k>               weight J21
	Beqs[3,k,j] = <v_j,yc p_k + p_j,yc v_k>               weight J22
	Beqs[4,k,j] = -<u_j,xcxc u_k + v_j,xcxc v_k>          weight nu(J11²+J21²)
	Beqs[5,k,j] = -<u_j,ycyc u_k + v_j,ycyc v_k>          weight nu(J12²+J22²)
	Beqs[6,k,j] = -<u_j,xcyc u_k + v_j,xcyc v_k>          weight 2nu(J11J12+J21J22)

Abc and Bbc are the same terms with the Dirichlet profile (uBC, vBC) in place
of trial mode j; Abc is linear in mode i, Bbc is constant.
*/
type ReducedTensors struct {
	M    int
	Aeqs []float64 // NACoef x M x M x M
	Abc  []float64 // NACoef x M x M
	Beqs []float64 // NBCoef x M x M
	Bbc  []float64 // NBCoef x M
}

func NewReducedTensors(M int) *ReducedTensors {
	return &ReducedTensors{
		M:    M,
		Aeqs: make([]float64, geometry2D.NACoef*M*M*M),
		Abc:  make([]float64, geometry2D.NACoef*M*M),
		Beqs: make([]float64, geometry2D.NBCoef*M*M),
		Bbc:  make([]float64, geometry2D.NBCoef*M),
	}
}

func (rt *ReducedTensors) AeqsShape() [4]int { return [4]int{geometry2D.NACoef, rt.M, rt.M, rt.M} }
func (rt *ReducedTensors) AbcShape() [3]int  { return [3]int{geometry2D.NACoef, rt.M, rt.M} }
func (rt *ReducedTensors) BeqsShape() [3]int { return [3]int{geometry2D.NBCoef, rt.M, rt.M} }
func (rt *ReducedTensors) BbcShape() [2]int  { return [2]int{geometry2D.NBCoef, rt.M} }

func (rt *ReducedTensors) AeqsIndex(t, k, i, j int) int { return ((t*rt.M+k)*rt.M+i)*rt.M + j }
func (rt *ReducedTensors) AbcIndex(t, k, i int) int     { return (t*rt.M+k)*rt.M + i }
func (rt *ReducedTensors) BeqsIndex(t, k, j int) int    { return (t*rt.M+k)*rt.M + j }
func (rt *ReducedTensors) BbcIndex(t, k int) int        { return t*rt.M + k }

func (rt *ReducedTensors) AeqsAt(t, k, i, j int) float64 { return rt.Aeqs[rt.AeqsIndex(t, k, i, j)] }
func (rt *ReducedTensors) AbcAt(t, k, i int) float64     { return rt.Abc[rt.AbcIndex(t, k, i)] }
func (rt *ReducedTensors) BeqsAt(t, k, j int) float64    { return rt.Beqs[rt.BeqsIndex(t, k, j)] }
func (rt *ReducedTensors) BbcAt(t, k int) float64        { return rt.Bbc[rt.BbcIndex(t, k)] }

// BuildTensors computes all reduced tensors, sharding the test modes across
// goroutines.
func (m *Model) BuildTensors() (rt *ReducedTensors) {
	var (
		M  = m.Opts.M
		pm = utils.NewPartitionMap(m.ParallelDegree(M), M)
		wg = sync.WaitGroup{}
	)
	rt = NewReducedTensors(M)
	bc := m.newModeFields(utils.NewMatrix(m.Grid.Nx, m.Grid.Ny), m.UBC, utils.NewMatrix(m.Grid.Nx, m.Grid.Ny))
	for np := 0; np < pm.ParallelDegree; np++ {
		wg.Add(1)
		go func(np int) {
			defer wg.Done()
			kMin, kMax := pm.GetBucketRange(np)
			for k := kMin; k < kMax; k++ {
				m.getA(rt, k, bc)
				m.getB(rt, k, bc)
			}
		}(np)
	}
	wg.Wait()
	return
}

// getA fills the convective slots of test mode k.
func (m *Model) getA(rt *ReducedTensors, k int, bc *modeFields) {
	var (
		mask = m.Map.Interior
		mk   = m.modes[k]
		wU   = utils.NewMatrix(m.Grid.Nx, m.Grid.Ny)
		wV   = utils.NewMatrix(m.Grid.Nx, m.Grid.Ny)
	)
	// wU, wV hold the convecting field times the test mode velocity
	convect := func(trial *modeFields) (terms [2]float64) {
		terms[0] = wU.DotMasked(mask, trial.Ux) + wV.DotMasked(mask, trial.Vx)
		terms[1] = wU.DotMasked(mask, trial.Uy) + wV.DotMasked(mask, trial.Vy)
		return
	}
	for i := 0; i < rt.M; i++ {
		mi := m.modes[i]
		for c, weight := range []utils.Matrix{mi.U, mi.V} {
			copy(wU.DataP, weight.DataP)
			wU.ElMul(mk.U)
			copy(wV.DataP, weight.DataP)
			wV.ElMul(mk.V)
			for j := 0; j < rt.M; j++ {
				terms := convect(m.modes[j])
				rt.Aeqs[rt.AeqsIndex(2*c, k, i, j)] = terms[0]
				rt.Aeqs[rt.AeqsIndex(2*c+1, k, i, j)] = terms[1]
			}
			terms := convect(bc)
			rt.Abc[rt.AbcIndex(2*c, k, i)] = terms[0]
			rt.Abc[rt.AbcIndex(2*c+1, k, i)] = terms[1]
		}
	}
}

// getB fills the pressure, continuity and diffusion slots of test mode k.
func (m *Model) getB(rt *ReducedTensors, k int, bc *modeFields) {
	var (
		mask = m.Map.Interior
		mk   = m.modes[k]
	)
	terms := func(trial *modeFields) (b [geometry2D.NBCoef]float64) {
		b[0] = trial.Ux.DotMasked(mask, mk.P) + trial.Px.DotMasked(mask, mk.U)
		b[1] = trial.Uy.DotMasked(mask, mk.P) + trial.Py.DotMasked(mask, mk.U)
		b[2] = trial.Vx.DotMasked(mask, mk.P) + trial.Px.DotMasked(mask, mk.V)
		b[3] = trial.Vy.DotMasked(mask, mk.P) + trial.Py.DotMasked(mask, mk.V)
		b[4] = -(trial.Uxx.DotMasked(mask, mk.U) + trial.Vxx.DotMasked(mask, mk.V))
		b[5] = -(trial.Uyy.DotMasked(mask, mk.U) + trial.Vyy.DotMasked(mask, mk.V))
		b[6] = -(trial.Uxy.DotMasked(mask, mk.U) + trial.Vxy.DotMasked(mask, mk.V))
		return
	}
	for j := 0; j < rt.M; j++ {
		b := terms(m.modes[j])
		for t := range b {
			rt.Beqs[rt.BeqsIndex(t, k, j)] = b[t]
		}
	}
	b := terms(bc)
	for t := range b {
		rt.Bbc[rt.BbcIndex(t, k)] = b[t]
	}
}
