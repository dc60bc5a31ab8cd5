package geometry2D

import (
	"fmt"
	"math"

	"github.com/notargets/gorom/types"
	"github.com/notargets/gorom/utils"
)

/*
The cavity is a parallelogram with unit-scaled sides, skewed by the design
angle. Computational coordinates (xc,yc) in [-1,1]^2 map to physical space by

	xp = xc*XCoef + yc*YCoef*cos(theta)
	yp = yc*YCoef*sin(theta)

with chain rule coefficients

	J11 = dxc/dxp = 1/XCoef          J12 = dyc/dxp = 0
	J21 = dxc/dyp = -cos/sin/XCoef   J22 = dyc/dyp = 1/(YCoef*sin)

so that d/dxp = J11 d/dxc + J12 d/dyc and d/dyp = J21 d/dxc + J22 d/dyc.
*/
const (
	XCoef = 0.5
	YCoef = 0.5
)

// NACoef and NBCoef are the number of convective and pressure/diffusion
// coefficients per design point.
const (
	NACoef = 4
	NBCoef = 7
)

// Jacobian evaluates J11, J12, J21, J22 at one design point. Angle is in
// degrees. The formula is not guarded: an angle of 0 or 180 propagates Inf/NaN.
func Jacobian[T any](ops types.NumericOps[T], angle T) (J [4]T) {
	var (
		theta    = ops.Mul(angle, ops.Const(math.Pi/180))
		cos, sin = ops.Cos(theta), ops.Sin(theta)
	)
	J[0] = ops.Const(1 / XCoef)
	J[1] = ops.Const(0)
	J[2] = ops.Div(ops.Mul(ops.Const(-1/XCoef), cos), sin)
	J[3] = ops.Div(ops.Const(1/YCoef), sin)
	return
}

// JacobianBatch evaluates the Jacobian for each row (Re, Angle) and returns
// the four entries as columns.
func JacobianBatch[T any](ops types.NumericOps[T], alpha [][2]T) (J [4][]T) {
	for _, row := range alpha {
		j := Jacobian(ops, row[1])
		for k := range J {
			J[k] = ops.Cat(J[k], []T{j[k]})
		}
	}
	return
}

/*
ABCoef returns the weights that combine the reduced tensors at one design
point (Re, Angle):

	Acoef = [J11, J12, J21, J22]
	Bcoef = [J11, J12, J21, J22, nu(J11²+J21²), nu(J12²+J22²), 2nu(J11J12+J21J22)]

with nu = 1/Re.
*/
func ABCoef[T any](ops types.NumericOps[T], re, angle T) (Acoef [NACoef]T, Bcoef [NBCoef]T) {
	var (
		J  = Jacobian(ops, angle)
		nu = ops.Div(ops.Const(1), re)
	)
	copy(Acoef[:], J[:])
	copy(Bcoef[:4], J[:])
	Bcoef[4] = ops.Mul(nu, ops.Add(ops.Mul(J[0], J[0]), ops.Mul(J[2], J[2])))
	Bcoef[5] = ops.Mul(nu, ops.Add(ops.Mul(J[1], J[1]), ops.Mul(J[3], J[3])))
	Bcoef[6] = ops.Mul(ops.Mul(ops.Const(2), nu), ops.Add(ops.Mul(J[0], J[1]), ops.Mul(J[2], J[3])))
	return
}

// Metric returns the Laplacian weights (J11²+J21², J12²+J22², 2(J11J12+J21J22))
// of the xc², yc² and xc-yc second derivatives.
func Metric(J [4]float64) (gxx, gyy, gxy float64) {
	gxx = J[0]*J[0] + J[2]*J[2]
	gyy = J[1]*J[1] + J[3]*J[3]
	gxy = 2 * (J[0]*J[1] + J[2]*J[3])
	return
}

// Grid maps computational node coordinates to physical space for one design
// point.
func Grid(dp types.DesignPoint, xc, yc utils.Matrix) (xp, yp utils.Matrix) {
	var (
		theta    = dp.Angle * math.Pi / 180
		cos, sin = math.Cos(theta), math.Sin(theta)
	)
	xp = xc.Copy().Scale(XCoef).AddScaled(YCoef*cos, yc)
	yp = yc.Copy().Scale(YCoef * sin)
	return
}

// CheckDesignPoint rejects points where the coordinate map is singular or the
// viscosity is undefined.
func CheckDesignPoint(dp types.DesignPoint) (err error) {
	if !(dp.Angle > 0 && dp.Angle < 180) {
		err = fmt.Errorf("%w: angle %g is outside (0,180) degrees", utils.ErrDegenerateAngle, dp.Angle)
		return
	}
	if !(dp.Re > 0) || math.IsInf(dp.Re, 0) {
		err = fmt.Errorf("%w: Reynolds number %g must be positive and finite", utils.ErrDesignSpace, dp.Re)
	}
	return
}

// CheckDesignSpace validates a design-space box.
func CheckDesignSpace(ds types.DesignSpace) (err error) {
	w := ds.Width()
	if !(w[0] > 0) || !(w[1] > 0) {
		err = fmt.Errorf("%w: lower %v must be below upper %v", utils.ErrDesignSpace, ds.Lower, ds.Upper)
		return
	}
	if err = CheckDesignPoint(ds.Lower); err != nil {
		return
	}
	return CheckDesignPoint(ds.Upper)
}
