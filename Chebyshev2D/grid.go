package Chebyshev2D

import (
	"fmt"

	"github.com/notargets/gorom/utils"
)

/*
Grid is a tensor product Chebyshev collocation grid on [XL,XR]x[YD,YU].

A field on the grid is an Nx x Ny matrix, the first index running along x.
Derivatives along x left-multiply the field by Dx, derivatives along y
right-multiply by Dy^T. Higher derivatives are compositions of first
derivatives.

Pressure terms use the PN-PN-2 operators Dxp, Dyp, which differentiate the
interpolant through interior nodes only, so boundary pressure never enters.
*/
type Grid struct {
	Mx, My         int // Polynomial degree along each axis
	Nx, Ny         int // Number of nodes along each axis, Mx+1 and My+1
	XL, XR, YD, YU float64
	X, Y           utils.Vector // Nodes along each axis
	Dx, Dy         utils.Matrix // First derivative matrices, Nx x Nx and Ny x Ny
	Dxp, Dyp       utils.Matrix // PN-PN-2 first derivative matrices for pressure
	dyT, dypT      utils.Matrix
}

func NewGrid(xL, xR, yD, yU float64, Mx, My int) (g *Grid, err error) {
	if err = checkOrder(Mx); err != nil {
		return
	}
	if err = checkOrder(My); err != nil {
		return
	}
	if !(xR > xL) || !(yU > yD) {
		err = fmt.Errorf("%w: empty domain [%g,%g]x[%g,%g]", utils.ErrShapeMismatch, xL, xR, yD, yU)
		return
	}
	g = &Grid{
		Mx: Mx, My: My,
		Nx: Mx + 1, Ny: My + 1,
		XL: xL, XR: xR, YD: yD, YU: yU,
		X: ChebyshevGL(Mx, xL, xR),
		Y: ChebyshevGL(My, yD, yU),
	}
	g.Dx = DiffMatrix(g.X.DataP)
	g.Dy = DiffMatrix(g.Y.DataP)
	g.Dxp = ReducedDiffMatrix(g.X.DataP)
	g.Dyp = ReducedDiffMatrix(g.Y.DataP)
	g.dyT = g.Dy.Transpose()
	g.dypT = g.Dyp.Transpose()
	g.Dx.SetReadOnly("Dx")
	g.Dy.SetReadOnly("Dy")
	g.Dxp.SetReadOnly("Dxp")
	g.Dyp.SetReadOnly("Dyp")
	return
}

// Shape returns the field shape (Nx, Ny).
func (g *Grid) Shape() [2]int { return [2]int{g.Nx, g.Ny} }

// DxCoeff returns the order-th derivative matrices along x and y.
func (g *Grid) DxCoeff(order int) (dx, dy utils.Matrix) {
	dx, dy = g.Dx.Copy(), g.Dy.Copy()
	for n := 1; n < order; n++ {
		dx = dx.Mul(g.Dx)
		dy = dy.Mul(g.Dy)
	}
	return
}

// DxCoeffN2 returns the pressure derivative matrices along x and y.
func (g *Grid) DxCoeffN2() (dxp, dyp utils.Matrix) {
	return g.Dxp.Copy(), g.Dyp.Copy()
}

// Grid returns the node coordinates as Nx x Ny fields.
func (g *Grid) Grid() (xc, yc utils.Matrix) {
	xc, yc = utils.NewMatrix(g.Nx, g.Ny), utils.NewMatrix(g.Nx, g.Ny)
	for i := 0; i < g.Nx; i++ {
		for j := 0; j < g.Ny; j++ {
			xc.DataP[i*g.Ny+j] = g.X.DataP[i]
			yc.DataP[i*g.Ny+j] = g.Y.DataP[j]
		}
	}
	return
}

func (g *Grid) DdXc(phi utils.Matrix) utils.Matrix  { return g.Dx.Mul(phi) }
func (g *Grid) DdYc(phi utils.Matrix) utils.Matrix  { return phi.Mul(g.dyT) }
func (g *Grid) DpdXc(phi utils.Matrix) utils.Matrix { return g.Dxp.Mul(phi) }
func (g *Grid) DpdYc(phi utils.Matrix) utils.Matrix { return phi.Mul(g.dypT) }

func (g *Grid) D2dXc2(phi utils.Matrix) utils.Matrix { return g.DdXc(g.DdXc(phi)) }
func (g *Grid) D2dYc2(phi utils.Matrix) utils.Matrix { return g.DdYc(g.DdYc(phi)) }

// D2dXcYc is the mixed derivative, x first then y.
func (g *Grid) D2dXcYc(phi utils.Matrix) utils.Matrix { return g.DdYc(g.DdXc(phi)) }

// Grad returns the first derivatives along x and y.
func (g *Grid) Grad(phi utils.Matrix) (dxc, dyc utils.Matrix) {
	return g.DdXc(phi), g.DdYc(phi)
}

// GradP returns the pressure first derivatives along x and y.
func (g *Grid) GradP(phi utils.Matrix) (dxc, dyc utils.Matrix) {
	return g.DpdXc(phi), g.DpdYc(phi)
}

// Hessian returns the xx, yy and xy second derivatives.
func (g *Grid) Hessian(phi utils.Matrix) (dxx, dyy, dxy utils.Matrix) {
	dxc := g.DdXc(phi)
	return g.DdXc(dxc), g.D2dYc2(phi), g.DdYc(dxc)
}
