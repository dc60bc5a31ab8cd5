package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestMatrix(t *testing.T) {
	// Transpose
	{
		M := NewMatrix(2, 3, []float64{
			1, 2, 3,
			4, 5, 6,
		})
		mNr, mNc := M.Dims()
		A := M.Transpose()
		aNr, aNc := A.Dims()
		assert.Equal(t, aNc, mNr)
		assert.Equal(t, aNr, mNc)
		assert.Equal(t, A.RawMatrix().Data, []float64{1, 4, 2, 5, 3, 6})
	}
	// Mul
	{
		M := NewMatrix(2, 3, []float64{
			1, 2, 3,
			4, 5, 6,
		})
		A := M.Mul(M.Transpose())
		assert.Equal(t, []float64{14, 32, 32, 77}, A.DataP)
	}
	// Chained element-wise operations change the receiver
	{
		M := NewMatrix(2, 2, []float64{1, -2, 3, -4})
		C := M.Copy()
		M.Scale(2).AddScalar(1).ElMul(C)
		assert.Equal(t, []float64{3, 6, 21, 28}, M.DataP)
		assert.Equal(t, []float64{1, -2, 3, -4}, C.DataP)
		M.Subtract(C).Add(C).AddScaled(-1, C)
		assert.Equal(t, []float64{2, 8, 18, 32}, M.DataP)
		M.Apply(math.Sqrt)
		assert.InDelta(t, 4*math.Sqrt(2), M.At(1, 1), 1.e-14)
		assert.Equal(t, 4., C.MaxAbs())
		assert.Equal(t, -2., C.Sum())
	}
	// Rows, columns and masked products
	{
		M := NewMatrix(2, 3, []float64{
			1, 2, 3,
			4, 5, 6,
		})
		assert.Equal(t, []float64{2, 5}, M.Col(1).DataP)
		assert.Equal(t, []float64{4, 5, 6}, M.Row(1).DataP)
		mask := NewMatrix(2, 3, []float64{0, 1, 0, 1, 0, 1})
		assert.Equal(t, 2.*2+4*4+6*6, M.DotMasked(mask, M))
	}
	// Wrapping a gonum matrix copies it
	{
		D := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
		M := NewMatrixFromDense(D.T())
		D.Set(0, 0, 10)
		assert.Equal(t, []float64{1, 3, 2, 4}, M.Data())
	}
	// Read only matrices panic on write
	{
		M := NewMatrix(2, 2)
		M.Set(0, 1, 1)
		M.SetReadOnly("M")
		assert.True(t, M.IsReadOnly())
		assert.Panics(t, func() { M.Set(0, 0, 1) })
		assert.Panics(t, func() { M.Scale(2) })
		assert.Equal(t, 1., M.At(0, 1))
	}
	// Allocation mismatch
	assert.Panics(t, func() { NewMatrix(2, 2, []float64{1, 2, 3}) })
}

func TestMath(t *testing.T) {
	assert.Equal(t, []float64{2, 2, 2}, ConstArray(3, 2))
	assert.True(t, Near(1, 1+1.e-9))
	assert.False(t, Near(1, 1+1.e-6))
	assert.True(t, Near(1.e6, 1.e6+1, 1.e-5))
	assert.True(t, IsNan(math.NaN()))
	assert.True(t, IsNan(NewMatrix(1, 2, []float64{0, math.NaN()})))
	assert.True(t, IsNan(NewVector(2, []float64{math.NaN(), 0})))
	assert.False(t, IsNan([]float64{1, 2}))
	assert.False(t, IsNan("x"))
	require.NotEmpty(t, GetMemUsage())
}
