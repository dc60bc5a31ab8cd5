package types

import "fmt"

type FlowVariable uint8

const (
	P FlowVariable = iota
	U
	V
	T // loaded but unused
	Omega
	Psi
)

const (
	NVar     = 3 // unknowns carried by the reduced model: p, u, v
	NVarLoad = 6 // variables stored per point in a snapshot: p, u, v, t, omega, psi
)

var FlowVariableNames = map[FlowVariable]string{
	P:     "P",
	U:     "u",
	V:     "v",
	T:     "t",
	Omega: "omega",
	Psi:   "psi",
}

func (fv FlowVariable) String() string {
	if name, ok := FlowVariableNames[fv]; ok {
		return name
	}
	return fmt.Sprintf("FlowVariable(%d)", uint8(fv))
}

// DesignPoint is one row of the design space: Reynolds number and cavity skew
// angle in degrees.
type DesignPoint struct {
	Re, Angle float64
}

func (dp DesignPoint) Row() [2]float64 { return [2]float64{dp.Re, dp.Angle} }

func (dp DesignPoint) String() string {
	return fmt.Sprintf("(Re=%g, Angle=%g)", dp.Re, dp.Angle)
}

// DesignSpace is the rectangular box of admissible design points.
type DesignSpace struct {
	Lower, Upper DesignPoint
}

func (ds DesignSpace) Width() [2]float64 {
	return [2]float64{ds.Upper.Re - ds.Lower.Re, ds.Upper.Angle - ds.Lower.Angle}
}

func (ds DesignSpace) Center() [2]float64 {
	return [2]float64{0.5 * (ds.Upper.Re + ds.Lower.Re), 0.5 * (ds.Upper.Angle + ds.Lower.Angle)}
}

// Scale maps a design point into [-1,1]^2.
func (ds DesignSpace) Scale(dp DesignPoint) [2]float64 {
	var (
		c = ds.Center()
		w = ds.Width()
	)
	return [2]float64{2 * (dp.Re - c[0]) / w[0], 2 * (dp.Angle - c[1]) / w[1]}
}
