package surrogate

import (
	"math"

	"gorgonia.org/gorgonia"

	"github.com/notargets/gorom/types"
)

// GraphValue is either a constant or a node of the expression graph. Nodes
// are scalars or vectors over a batch; constants broadcast.
type GraphValue struct {
	Node *gorgonia.Node // nil for a constant
	C    float64
}

func (gv GraphValue) IsConst() bool { return gv.Node == nil }

// GraphOps evaluates NumericOps formulas by building gorgonia nodes. Constant
// operands are folded so that zero terms add nothing to the graph.
type GraphOps struct{}

var _ types.NumericOps[GraphValue] = GraphOps{}

func constNode(c float64) *gorgonia.Node { return gorgonia.NewConstant(c) }

func (GraphOps) Const(v float64) GraphValue { return GraphValue{C: v} }

func (GraphOps) Add(a, b GraphValue) GraphValue {
	switch {
	case a.IsConst() && b.IsConst():
		return GraphValue{C: a.C + b.C}
	case a.IsConst() && a.C == 0:
		return b
	case b.IsConst() && b.C == 0:
		return a
	case a.IsConst():
		return GraphValue{Node: gorgonia.Must(gorgonia.Add(b.Node, constNode(a.C)))}
	case b.IsConst():
		return GraphValue{Node: gorgonia.Must(gorgonia.Add(a.Node, constNode(b.C)))}
	}
	return GraphValue{Node: gorgonia.Must(gorgonia.Add(a.Node, b.Node))}
}

func (ops GraphOps) Sub(a, b GraphValue) GraphValue {
	switch {
	case a.IsConst() && b.IsConst():
		return GraphValue{C: a.C - b.C}
	case b.IsConst():
		return ops.Add(a, GraphValue{C: -b.C})
	case a.IsConst() && a.C == 0:
		return GraphValue{Node: gorgonia.Must(gorgonia.Neg(b.Node))}
	case a.IsConst():
		return GraphValue{Node: gorgonia.Must(gorgonia.Sub(constNode(a.C), b.Node))}
	}
	return GraphValue{Node: gorgonia.Must(gorgonia.Sub(a.Node, b.Node))}
}

func (GraphOps) Mul(a, b GraphValue) GraphValue {
	switch {
	case a.IsConst() && b.IsConst():
		return GraphValue{C: a.C * b.C}
	case a.IsConst() && a.C == 0, b.IsConst() && b.C == 0:
		return GraphValue{C: 0}
	case a.IsConst() && a.C == 1:
		return b
	case b.IsConst() && b.C == 1:
		return a
	case a.IsConst():
		return GraphValue{Node: gorgonia.Must(gorgonia.Mul(b.Node, constNode(a.C)))}
	case b.IsConst():
		return GraphValue{Node: gorgonia.Must(gorgonia.Mul(a.Node, constNode(b.C)))}
	}
	return GraphValue{Node: gorgonia.Must(gorgonia.HadamardProd(a.Node, b.Node))}
}

func (ops GraphOps) Div(a, b GraphValue) GraphValue {
	switch {
	case a.IsConst() && b.IsConst():
		return GraphValue{C: a.C / b.C}
	case b.IsConst():
		return ops.Mul(a, GraphValue{C: 1 / b.C})
	case a.IsConst():
		return ops.Mul(a, GraphValue{Node: gorgonia.Must(gorgonia.Inverse(b.Node))})
	}
	return GraphValue{Node: gorgonia.Must(gorgonia.HadamardDiv(a.Node, b.Node))}
}

func (GraphOps) Cos(a GraphValue) GraphValue {
	if a.IsConst() {
		return GraphValue{C: math.Cos(a.C)}
	}
	return GraphValue{Node: gorgonia.Must(gorgonia.Cos(a.Node))}
}

func (GraphOps) Sin(a GraphValue) GraphValue {
	if a.IsConst() {
		return GraphValue{C: math.Sin(a.C)}
	}
	return GraphValue{Node: gorgonia.Must(gorgonia.Sin(a.Node))}
}

func (GraphOps) Cat(parts ...[]GraphValue) []GraphValue { return types.Concat(parts...) }
