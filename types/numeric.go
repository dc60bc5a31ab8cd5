package types

import "math"

// NumericOps is the arithmetic a formula needs so that it can be evaluated
// either on plain float64 values or on nodes of a differentiable graph.
type NumericOps[T any] interface {
	Const(v float64) T
	Add(a, b T) T
	Sub(a, b T) T
	Mul(a, b T) T
	Div(a, b T) T
	Cos(a T) T
	Sin(a T) T
	Cat(parts ...[]T) []T
}

// Float64Ops evaluates formulas on plain float64 values.
type Float64Ops struct{}

func (Float64Ops) Const(v float64) float64          { return v }
func (Float64Ops) Add(a, b float64) float64         { return a + b }
func (Float64Ops) Sub(a, b float64) float64         { return a - b }
func (Float64Ops) Mul(a, b float64) float64         { return a * b }
func (Float64Ops) Div(a, b float64) float64         { return a / b }
func (Float64Ops) Cos(a float64) float64            { return math.Cos(a) }
func (Float64Ops) Sin(a float64) float64            { return math.Sin(a) }
func (Float64Ops) Cat(parts ...[]float64) []float64 { return concat(parts) }

func concat[T any](parts [][]T) (r []T) {
	var (
		n int
	)
	for _, p := range parts {
		n += len(p)
	}
	r = make([]T, 0, n)
	for _, p := range parts {
		r = append(r, p...)
	}
	return
}

// Concat is the slice concatenation shared by NumericOps implementations.
func Concat[T any](parts ...[]T) []T { return concat(parts) }
