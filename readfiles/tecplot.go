package readfiles

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/notargets/gorom/utils"
)

// PlotVariables is the column order of a result file after x and y.
var PlotVariables = []string{"P", "u", "v", "omega", "psi"}

/*
WriteTecplot writes one case as a Tecplot ASCII point zone:

	title="result"
	variables="x","y","P","u","v","omega","psi"
	zone,j=Ny, i=Nx,f=point

followed by one line per node, j outer and i inner, columns tab separated.
Fields are Nx x Ny matrices in PlotVariables order.
*/
func WriteTecplot(w io.Writer, xp, yp utils.Matrix, fields []utils.Matrix) (err error) {
	var (
		Nx, Ny = xp.Dims()
		bw     = bufio.NewWriter(w)
		cols   = append([]utils.Matrix{xp, yp}, fields...)
	)
	if len(fields) != len(PlotVariables) {
		return fmt.Errorf("%w: %d fields, expected %d", utils.ErrShapeMismatch, len(fields), len(PlotVariables))
	}
	for _, f := range cols {
		if nr, nc := f.Dims(); nr != Nx || nc != Ny {
			return fmt.Errorf("%w: field is %d x %d, grid is %d x %d", utils.ErrShapeMismatch, nr, nc, Nx, Ny)
		}
	}
	fmt.Fprintf(bw, "title=\"result\"\n")
	fmt.Fprintf(bw, "variables=\"x\",\"y\"")
	for _, name := range PlotVariables {
		fmt.Fprintf(bw, ",\"%s\"", name)
	}
	fmt.Fprintf(bw, "\n")
	fmt.Fprintf(bw, "zone,j=%d, i=%d,f=point\n", Ny, Nx)
	for j := 0; j < Ny; j++ {
		for i := 0; i < Nx; i++ {
			for _, f := range cols {
				fmt.Fprintf(bw, "%21.16f\t", f.DataP[i*Ny+j])
			}
			fmt.Fprintf(bw, "\n")
		}
	}
	return bw.Flush()
}

func WriteTecplotFile(fileName string, xp, yp utils.Matrix, fields []utils.Matrix) (err error) {
	var (
		file *os.File
	)
	if file, err = os.Create(fileName); err != nil {
		return
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	return WriteTecplot(file, xp, yp, fields)
}

// FieldsArchive bundles the reconstructed fields of every case, shaped
// [case][x, y, P, u, v, omega, psi][Nx][Ny].
type FieldsArchive struct {
	Fields [][7][][]float64 `json:"Fields"`
}

// AddCase appends one case in the same column order as WriteTecplot.
func (fa *FieldsArchive) AddCase(xp, yp utils.Matrix, fields []utils.Matrix) {
	var (
		c    [7][][]float64
		cols = append([]utils.Matrix{xp, yp}, fields...)
	)
	for n, f := range cols {
		nr, nc := f.Dims()
		c[n] = make([][]float64, nr)
		for i := 0; i < nr; i++ {
			c[n][i] = append([]float64{}, f.DataP[i*nc:(i+1)*nc]...)
		}
	}
	fa.Fields = append(fa.Fields, c)
}

func WriteFieldsArchive(fileName string, fa *FieldsArchive) error {
	return writeArchive(fileName, fa)
}

func ReadFieldsArchive(fileName string) (fa *FieldsArchive, err error) {
	fa = &FieldsArchive{}
	if err = readArchive(fileName, fa); err != nil {
		return nil, err
	}
	return
}
