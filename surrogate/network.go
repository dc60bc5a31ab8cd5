package surrogate

import (
	"fmt"
	"math"
	"math/rand"

	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/notargets/gorom/utils"
)

/*
Network is a fully connected network with tanh hidden layers and a linear
output layer. Layer l maps a batch H (B x n_l) to [H 1]*W_l, so each weight
matrix is (n_l+1) x n_(l+1) with the bias in its last row.
*/
type Network struct {
	Layers  []int          // Widths, input first and output last
	Weights []utils.Matrix // Plain copies of the trained weights
}

// NewNetwork draws Glorot uniform weights and zero biases from seed.
func NewNetwork(layers []int, seed int64) (n *Network, err error) {
	if len(layers) < 2 {
		err = fmt.Errorf("%w: network needs at least an input and an output layer, have %v",
			utils.ErrShapeMismatch, layers)
		return
	}
	for _, w := range layers {
		if w < 1 {
			err = fmt.Errorf("%w: layer widths must be positive, have %v", utils.ErrShapeMismatch, layers)
			return
		}
	}
	var (
		rnd = rand.New(rand.NewSource(seed))
	)
	n = &Network{Layers: append([]int{}, layers...)}
	for l := 0; l < len(layers)-1; l++ {
		var (
			nIn, nOut = layers[l], layers[l+1]
			limit     = math.Sqrt(6 / float64(nIn+nOut))
			W         = utils.NewMatrix(nIn+1, nOut)
		)
		for i := 0; i < nIn*nOut; i++ {
			W.DataP[i] = limit * (2*rnd.Float64() - 1)
		}
		n.Weights = append(n.Weights, W)
	}
	return
}

func (n *Network) NIn() int  { return n.Layers[0] }
func (n *Network) NOut() int { return n.Layers[len(n.Layers)-1] }

// Forward evaluates the network on a B x NIn input.
func (n *Network) Forward(X utils.Matrix) (Y utils.Matrix) {
	Y = X
	for l, W := range n.Weights {
		B, nIn := Y.Dims()
		H := utils.NewMatrix(B, nIn+1)
		for b := 0; b < B; b++ {
			copy(H.DataP[b*(nIn+1):], Y.DataP[b*nIn:(b+1)*nIn])
			H.DataP[b*(nIn+1)+nIn] = 1
		}
		Y = H.Mul(W)
		if l < len(n.Weights)-1 {
			Y.Apply(math.Tanh)
		}
	}
	return
}

// graphNetwork is a Network bound to an expression graph for training.
type graphNetwork struct {
	g       *gorgonia.ExprGraph
	weights []*gorgonia.Node
}

func (n *Network) bind(g *gorgonia.ExprGraph) (gn *graphNetwork) {
	gn = &graphNetwork{g: g}
	for l, W := range n.Weights {
		nr, nc := W.Dims()
		data := append([]float64{}, W.DataP...)
		gn.weights = append(gn.weights, gorgonia.NewMatrix(g, tensor.Float64,
			gorgonia.WithShape(nr, nc),
			gorgonia.WithName(fmt.Sprintf("w%d", l)),
			gorgonia.WithValue(tensor.New(tensor.WithShape(nr, nc), tensor.WithBacking(data)))))
	}
	return
}

// inputNode places a constant B x nc matrix in the graph.
func inputNode(g *gorgonia.ExprGraph, name string, X utils.Matrix) *gorgonia.Node {
	nr, nc := X.Dims()
	data := append([]float64{}, X.DataP...)
	return gorgonia.NewMatrix(g, tensor.Float64,
		gorgonia.WithShape(nr, nc),
		gorgonia.WithName(name),
		gorgonia.WithValue(tensor.New(tensor.WithShape(nr, nc), tensor.WithBacking(data))))
}

// forward builds the network output for input node x of batch size B.
func (gn *graphNetwork) forward(x *gorgonia.Node, B int, name string) (y *gorgonia.Node) {
	ones := inputNode(gn.g, name+"_ones", utils.NewMatrix(B, 1, utils.ConstArray(B, 1)))
	y = x
	for l, w := range gn.weights {
		y = gorgonia.Must(gorgonia.Concat(1, y, ones))
		y = gorgonia.Must(gorgonia.Mul(y, w))
		if l < len(gn.weights)-1 {
			y = gorgonia.Must(gorgonia.Tanh(y))
		}
	}
	return
}

// store copies trained weight values back into the plain network.
func (n *Network) store(gn *graphNetwork) {
	for l, w := range gn.weights {
		copy(n.Weights[l].DataP, w.Value().Data().([]float64))
	}
}
