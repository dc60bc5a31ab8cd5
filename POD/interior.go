package POD

import (
	"fmt"

	"github.com/james-bowman/sparse"

	"github.com/notargets/gorom/types"
	"github.com/notargets/gorom/utils"
)

/*
InteriorMap relates the full snapshot layout to the interior unknowns.

A snapshot column stores, for every grid point (i,j) in row-major order,
NVarLoad variables: index = (i*Ny + j)*NVarLoad + var.
The interior vector keeps only p, u, v at interior points:
index = ((i-1)*(Ny-2) + (j-1))*NVar + var.
*/
type InteriorMap struct {
	FieldShape    [2]int
	InteriorShape [2]int
	NVarLoad      int
	NInterior     int          // Number of interior unknowns, (Nx-2)*(Ny-2)*NVar
	Restrict      *sparse.CSR  // NInterior x NFull selection operator
	Interior      utils.Matrix // 1 at interior points, 0 on the boundary
	Boundary      utils.Matrix // 1 - Interior
}

func NewInteriorMap(FieldShape [2]int, NVarLoad int) (im *InteriorMap, err error) {
	var (
		Nx, Ny = FieldShape[0], FieldShape[1]
	)
	if Nx < 3 || Ny < 3 {
		err = fmt.Errorf("%w: field shape %v has no interior", utils.ErrShapeMismatch, FieldShape)
		return
	}
	if NVarLoad < types.NVar {
		err = fmt.Errorf("%w: need at least %d variables per point, have %d",
			utils.ErrShapeMismatch, types.NVar, NVarLoad)
		return
	}
	im = &InteriorMap{
		FieldShape:    FieldShape,
		InteriorShape: [2]int{Nx - 2, Ny - 2},
		NVarLoad:      NVarLoad,
		NInterior:     (Nx - 2) * (Ny - 2) * types.NVar,
		Interior:      utils.NewMatrix(Nx, Ny),
		Boundary:      utils.NewMatrix(Nx, Ny),
	}
	dok := sparse.NewDOK(im.NInterior, im.NFull())
	for i := 1; i < Nx-1; i++ {
		for j := 1; j < Ny-1; j++ {
			for nvar := 0; nvar < types.NVar; nvar++ {
				dok.Set(im.InteriorIndex(i, j, nvar), im.FullIndex(i, j, nvar), 1)
			}
			im.Interior.Set(i, j, 1)
		}
	}
	im.Restrict = dok.ToCSR()
	im.Boundary.AddScalar(1).Subtract(im.Interior)
	im.Interior.SetReadOnly("Interior")
	im.Boundary.SetReadOnly("Boundary")
	return
}

// NFull is the length of one full snapshot column.
func (im *InteriorMap) NFull() int {
	return im.FieldShape[0] * im.FieldShape[1] * im.NVarLoad
}

func (im *InteriorMap) FullIndex(i, j int, nvar int) int {
	return (i*im.FieldShape[1]+j)*im.NVarLoad + nvar
}

func (im *InteriorMap) InteriorIndex(i, j int, nvar int) int {
	return ((i-1)*im.InteriorShape[1]+(j-1))*types.NVar + nvar
}

// ExtractInteriorSnapshots restricts NFull x NSample snapshots to the
// NInterior x NSample interior unknowns.
func (im *InteriorMap) ExtractInteriorSnapshots(Samples utils.Matrix) (R utils.Matrix, err error) {
	var (
		nr, NSample = Samples.Dims()
	)
	if nr != im.NFull() {
		err = fmt.Errorf("%w: snapshot length %d, expected %d for shape %v with %d variables",
			utils.ErrShapeMismatch, nr, im.NFull(), im.FieldShape, im.NVarLoad)
		return
	}
	R = utils.NewMatrix(im.NInterior, NSample)
	im.Restrict.DoNonZero(func(i, j int, v float64) {
		rowR := R.DataP[i*NSample : (i+1)*NSample]
		rowS := Samples.DataP[j*NSample : (j+1)*NSample]
		for s := range rowR {
			rowR[s] += v * rowS[s]
		}
	})
	return
}

// Field returns variable nvar of snapshot column s as an Nx x Ny field.
func (im *InteriorMap) Field(Samples utils.Matrix, s int, nvar types.FlowVariable) (F utils.Matrix) {
	var (
		Nx, Ny     = im.FieldShape[0], im.FieldShape[1]
		_, NSample = Samples.Dims()
	)
	F = utils.NewMatrix(Nx, Ny)
	for i := 0; i < Nx; i++ {
		for j := 0; j < Ny; j++ {
			F.DataP[i*Ny+j] = Samples.DataP[im.FullIndex(i, j, int(nvar))*NSample+s]
		}
	}
	return
}

// Mode2Field unpacks an interior vector into p, u, v fields that are zero on
// the boundary.
func (im *InteriorMap) Mode2Field(Vec []float64) (p, u, v utils.Matrix) {
	var (
		Nx, Ny = im.FieldShape[0], im.FieldShape[1]
		fields [types.NVar]utils.Matrix
	)
	if len(Vec) != im.NInterior {
		panic(fmt.Errorf("%w: interior vector length %d, expected %d", utils.ErrShapeMismatch, len(Vec), im.NInterior))
	}
	for nvar := 0; nvar < types.NVar; nvar++ {
		fields[nvar] = utils.NewMatrix(Nx, Ny)
	}
	for i := 1; i < Nx-1; i++ {
		for j := 1; j < Ny-1; j++ {
			ind := im.InteriorIndex(i, j, 0)
			for nvar := 0; nvar < types.NVar; nvar++ {
				fields[nvar].DataP[i*Ny+j] = Vec[ind+nvar]
			}
		}
	}
	return fields[types.P], fields[types.U], fields[types.V]
}
