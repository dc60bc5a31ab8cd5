//go:build netlib
// +build netlib

package utils

/*
Build with -tags netlib to route gonum's BLAS calls through a system
OpenBLAS. The tensor build and the SVD are the only places this matters.
*/

import (
	"fmt"

	"gonum.org/v1/gonum/blas/blas64"
	netblas "gonum.org/v1/netlib/blas/netlib"
)

func init() {
	blas64.Use(netblas.Implementation{})
	fmt.Println("Using netlib to accelerate BLAS")
}
