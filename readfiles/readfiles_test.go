package readfiles

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gorom/types"
	"github.com/notargets/gorom/utils"
)

func testSnapshots() *Snapshots {
	var (
		Nx, Ny, NVarLoad = 3, 2, 2
		NSample          = 3
		nr               = Nx * Ny * NVarLoad
		s                = &Snapshots{
			Samples:    utils.NewMatrix(nr, NSample),
			FieldShape: [2]int{Nx, Ny},
			NVarLoad:   NVarLoad,
			Parameters: []types.DesignPoint{{Re: 100, Angle: 60}, {Re: 200, Angle: 90}, {Re: 300, Angle: 120}},
			DesignSpace: types.DesignSpace{
				Lower: types.DesignPoint{Re: 100, Angle: 60},
				Upper: types.DesignPoint{Re: 300, Angle: 120},
			},
		}
	)
	for i := range s.Samples.DataP {
		s.Samples.DataP[i] = float64(i) + 0.25
	}
	return s
}

func TestSnapshotArchive(t *testing.T) {
	var (
		s   = testSnapshots()
		dir = t.TempDir()
	)
	require.NoError(t, s.Validate())
	for _, name := range []string{"snap.json", "snap.json.zst"} {
		fileName := filepath.Join(dir, name)
		require.NoError(t, WriteSnapshots(fileName, s))
		r, err := ReadSnapshots(fileName)
		require.NoError(t, err)
		assert.Equal(t, s.FieldShape, r.FieldShape)
		assert.Equal(t, s.NVarLoad, r.NVarLoad)
		assert.Equal(t, s.Parameters, r.Parameters)
		assert.Equal(t, s.DesignSpace, r.DesignSpace)
		assert.Equal(t, s.Samples.DataP, r.Samples.DataP)
	}

	h, err := s.Head(2)
	require.NoError(t, err)
	assert.Equal(t, 2, h.NSample())
	assert.Len(t, h.Parameters, 2)
	assert.Equal(t, s.Samples.At(5, 1), h.Samples.At(5, 1))
	_, err = s.Head(4)
	assert.ErrorIs(t, err, utils.ErrShapeMismatch)

	// Missing NVarLoad defaults to the full variable set
	a := s.Archive()
	a.NVarLoad = 0
	_, err = NewSnapshots(a)
	assert.ErrorIs(t, err, utils.ErrShapeMismatch)

	a = s.Archive()
	a.Parameters = a.Parameters[:2]
	_, err = NewSnapshots(a)
	assert.ErrorIs(t, err, utils.ErrShapeMismatch)

	a = s.Archive()
	a.Samples[3] = a.Samples[3][:1]
	_, err = NewSnapshots(a)
	assert.ErrorIs(t, err, utils.ErrShapeMismatch)

	_, err = ReadSnapshots(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestWriteTecplot(t *testing.T) {
	var (
		Nx, Ny = 2, 3
		xp     = utils.NewMatrix(Nx, Ny, []float64{0, 0, 0, 1, 1, 1})
		yp     = utils.NewMatrix(Nx, Ny, []float64{0, 0.5, 1, 0, 0.5, 1})
		fields []utils.Matrix
		buf    bytes.Buffer
	)
	for n := range PlotVariables {
		f := utils.NewMatrix(Nx, Ny)
		for i := range f.DataP {
			f.DataP[i] = float64(10*n + i)
		}
		fields = append(fields, f)
	}
	require.NoError(t, WriteTecplot(&buf, xp, yp, fields))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3+Nx*Ny)
	assert.Equal(t, `title="result"`, lines[0])
	assert.Equal(t, `variables="x","y","P","u","v","omega","psi"`, lines[1])
	assert.Equal(t, "zone,j=3, i=2,f=point", lines[2])
	// j outer, i inner: the second data line is node (i=1, j=0)
	cols := strings.Fields(lines[4])
	require.Len(t, cols, 7)
	assert.Equal(t, "1.0000000000000000", cols[0])
	assert.Equal(t, "0.0000000000000000", cols[1])
	assert.Equal(t, "3.0000000000000000", cols[2])
	assert.Equal(t, "43.0000000000000000", cols[6])
	assert.True(t, strings.HasPrefix(lines[3], "   0.0000000000000000\t"))

	assert.ErrorIs(t, WriteTecplot(&buf, xp, yp, fields[:4]), utils.ErrShapeMismatch)
	fields[2] = utils.NewMatrix(Ny, Nx)
	assert.ErrorIs(t, WriteTecplot(&buf, xp, yp, fields), utils.ErrShapeMismatch)
}

func TestFieldsArchive(t *testing.T) {
	var (
		Nx, Ny = 2, 2
		xp     = utils.NewMatrix(Nx, Ny, []float64{0, 0, 1, 1})
		yp     = utils.NewMatrix(Nx, Ny, []float64{0, 1, 0, 1})
		fields = make([]utils.Matrix, len(PlotVariables))
		fa     FieldsArchive
	)
	for n := range fields {
		fields[n] = utils.NewMatrix(Nx, Ny, []float64{float64(n), 1, 2, 3})
	}
	fa.AddCase(xp, yp, fields)
	fa.AddCase(yp, xp, fields)
	fileName := filepath.Join(t.TempDir(), "fields.json.zst")
	require.NoError(t, WriteFieldsArchive(fileName, &fa))
	r, err := ReadFieldsArchive(fileName)
	require.NoError(t, err)
	require.Len(t, r.Fields, 2)
	assert.Equal(t, [][]float64{{0, 0}, {1, 1}}, r.Fields[0][0])
	assert.Equal(t, [][]float64{{0, 0}, {1, 1}}, r.Fields[1][1])
	assert.Equal(t, [][]float64{{4, 1}, {2, 3}}, r.Fields[1][6])
}
