package readfiles

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"

	"github.com/notargets/gorom/types"
	"github.com/notargets/gorom/utils"
)

// SnapshotArchive is the on-disk layout of a snapshot record.
// Samples holds one row per (point, variable) and one column per sample.
type SnapshotArchive struct {
	Samples     [][]float64   `json:"Samples"`
	FieldShape  [2]int        `json:"FieldShape"`
	Parameters  [][2]float64  `json:"parameters"`
	DesignSpace [2][2]float64 `json:"design_space"` // row 0 lower, row 1 upper
	NVarLoad    int           `json:"NVarLoad,omitempty"`
}

// Snapshots is a loaded snapshot record, treated as read-only.
type Snapshots struct {
	Samples     utils.Matrix // NFull x NSample
	FieldShape  [2]int
	NVarLoad    int
	Parameters  []types.DesignPoint
	DesignSpace types.DesignSpace
}

func (s *Snapshots) NSample() int {
	_, nc := s.Samples.Dims()
	return nc
}

func (s *Snapshots) Validate() (err error) {
	var (
		Nx, Ny      = s.FieldShape[0], s.FieldShape[1]
		nr, NSample = s.Samples.Dims()
	)
	if Nx < 1 || Ny < 1 || s.NVarLoad < 1 {
		err = fmt.Errorf("%w: field shape %v with %d variables", utils.ErrShapeMismatch, s.FieldShape, s.NVarLoad)
		return
	}
	if nr != Nx*Ny*s.NVarLoad {
		err = fmt.Errorf("%w: %d rows in Samples, expected %d x %d x %d",
			utils.ErrShapeMismatch, nr, Nx, Ny, s.NVarLoad)
		return
	}
	if len(s.Parameters) != NSample {
		err = fmt.Errorf("%w: %d parameter rows for %d samples",
			utils.ErrShapeMismatch, len(s.Parameters), NSample)
	}
	return
}

// Head returns a record holding the first n samples.
func (s *Snapshots) Head(n int) (h *Snapshots, err error) {
	var (
		nr, NSample = s.Samples.Dims()
	)
	if n < 1 || n > NSample {
		err = fmt.Errorf("%w: requested %d of %d samples", utils.ErrShapeMismatch, n, NSample)
		return
	}
	h = &Snapshots{
		Samples:     utils.NewMatrix(nr, n),
		FieldShape:  s.FieldShape,
		NVarLoad:    s.NVarLoad,
		Parameters:  append([]types.DesignPoint{}, s.Parameters[:n]...),
		DesignSpace: s.DesignSpace,
	}
	for i := 0; i < nr; i++ {
		copy(h.Samples.DataP[i*n:(i+1)*n], s.Samples.DataP[i*NSample:i*NSample+n])
	}
	return
}

func NewSnapshots(a *SnapshotArchive) (s *Snapshots, err error) {
	var (
		nr      = len(a.Samples)
		NSample int
	)
	if nr == 0 {
		err = fmt.Errorf("%w: empty Samples", utils.ErrShapeMismatch)
		return
	}
	NSample = len(a.Samples[0])
	s = &Snapshots{
		Samples:    utils.NewMatrix(nr, NSample),
		FieldShape: a.FieldShape,
		NVarLoad:   a.NVarLoad,
		DesignSpace: types.DesignSpace{
			Lower: types.DesignPoint{Re: a.DesignSpace[0][0], Angle: a.DesignSpace[0][1]},
			Upper: types.DesignPoint{Re: a.DesignSpace[1][0], Angle: a.DesignSpace[1][1]},
		},
	}
	if s.NVarLoad == 0 {
		s.NVarLoad = types.NVarLoad
	}
	for i, row := range a.Samples {
		if len(row) != NSample {
			err = fmt.Errorf("%w: Samples row %d has %d columns, expected %d",
				utils.ErrShapeMismatch, i, len(row), NSample)
			return nil, err
		}
		copy(s.Samples.DataP[i*NSample:], row)
	}
	for _, p := range a.Parameters {
		s.Parameters = append(s.Parameters, types.DesignPoint{Re: p[0], Angle: p[1]})
	}
	if err = s.Validate(); err != nil {
		return nil, err
	}
	return
}

func (s *Snapshots) Archive() (a *SnapshotArchive) {
	var (
		nr, NSample = s.Samples.Dims()
	)
	a = &SnapshotArchive{
		Samples:    make([][]float64, nr),
		FieldShape: s.FieldShape,
		NVarLoad:   s.NVarLoad,
		DesignSpace: [2][2]float64{
			s.DesignSpace.Lower.Row(),
			s.DesignSpace.Upper.Row(),
		},
	}
	for i := range a.Samples {
		a.Samples[i] = append([]float64{}, s.Samples.DataP[i*NSample:(i+1)*NSample]...)
	}
	for _, p := range s.Parameters {
		a.Parameters = append(a.Parameters, p.Row())
	}
	return
}

// ReadSnapshots loads a JSON snapshot record, zstd compressed when the file
// name ends in ".zst".
func ReadSnapshots(fileName string) (s *Snapshots, err error) {
	var (
		a SnapshotArchive
	)
	if err = readArchive(fileName, &a); err != nil {
		return
	}
	if s, err = NewSnapshots(&a); err != nil {
		err = fmt.Errorf("%s: %w", fileName, err)
	}
	return
}

func WriteSnapshots(fileName string, s *Snapshots) (err error) {
	return writeArchive(fileName, s.Archive())
}

func readArchive(fileName string, v any) (err error) {
	var (
		file *os.File
		r    io.Reader
	)
	if file, err = os.Open(fileName); err != nil {
		return
	}
	defer file.Close()
	r = bufio.NewReader(file)
	if strings.HasSuffix(fileName, ".zst") {
		var dec *zstd.Decoder
		if dec, err = zstd.NewReader(r); err != nil {
			return
		}
		defer dec.Close()
		r = dec
	}
	if err = json.NewDecoder(r).Decode(v); err != nil {
		err = fmt.Errorf("decoding %s: %w", fileName, err)
	}
	return
}

func writeArchive(fileName string, v any) (err error) {
	var (
		file *os.File
		bw   *bufio.Writer
	)
	if file, err = os.Create(fileName); err != nil {
		return
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	bw = bufio.NewWriter(file)
	if strings.HasSuffix(fileName, ".zst") {
		var enc *zstd.Encoder
		if enc, err = zstd.NewWriter(bw, zstd.WithEncoderLevel(zstd.SpeedDefault)); err != nil {
			return
		}
		if err = json.NewEncoder(enc).Encode(v); err != nil {
			enc.Close()
			return
		}
		if err = enc.Close(); err != nil {
			return
		}
	} else if err = json.NewEncoder(bw).Encode(v); err != nil {
		return
	}
	return bw.Flush()
}
