/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/gorom/InputParameters"
	"github.com/notargets/gorom/model_problems/LidDriven2D"
	"github.com/notargets/gorom/readfiles"
	"github.com/notargets/gorom/types"
	"github.com/notargets/gorom/utils"
)

// ROMCmd represents the rom command
var ROMCmd = &cobra.Command{
	Use:   "rom",
	Short: "Build the POD-Galerkin model, solve the validation cases and write their fields",
	Long: `
Reads the training snapshots, extracts the POD basis, builds the reduced
tensors and solves the reduced system at every validation design point.
Relative errors against the validation snapshots are reported, and the
reconstructed fields are written as Tecplot files.

gorom rom -I input.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("rom called")
		ip := processInput(viper.GetString("inputFile"), viper.GetInt("modes"))
		if viper.GetBool("profile") {
			defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
		}
		if err := RunROM(context.Background(), ip, os.Stdout); err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(ROMCmd)
	ROMCmd.Flags().Bool("profile", false, "write a CPU profile to the current directory")
	_ = viper.BindPFlag("profile", ROMCmd.Flags().Lookup("profile"))
}

const exampleFile = `
########################################
Title: "Lid Driven Cavity"
SnapshotFile: train.json.zst
ValidationFile: valid.json.zst
PODNum: 40
NumModes: 10
OutputPrefix: rom
Surrogate:
  Mode: pinn # Can be "nn"
  Hidden: [32, 32]
  Epochs: 2000
########################################
`

func processInput(inputFile string, modes int) (ip *InputParameters.ROMParameters) {
	var (
		err  error
		data []byte
	)
	if len(inputFile) == 0 {
		fmt.Printf("error: must supply an input parameters file (-I, --inputFile)\n")
		fmt.Printf("Example File:%s\n", exampleFile)
		os.Exit(1)
	}
	if data, err = os.ReadFile(inputFile); err != nil {
		panic(err)
	}
	ip = InputParameters.NewROMParameters()
	if err = ip.Parse(data); err != nil {
		panic(err)
	}
	if modes > 0 {
		ip.NumModes = modes
	}
	return
}

// loadModel reads the snapshot archives named in ip and builds the reduced
// model.
func loadModel(ctx context.Context, ip *InputParameters.ROMParameters) (m *LidDriven2D.Model, err error) {
	var (
		train, valid *readfiles.Snapshots
	)
	if train, err = readfiles.ReadSnapshots(ip.SnapshotFile); err != nil {
		return
	}
	if len(ip.ValidationFile) != 0 {
		if valid, err = readfiles.ReadSnapshots(ip.ValidationFile); err != nil {
			return
		}
	}
	opts := LidDriven2D.DefaultOptions(ip.NumModes)
	opts.PODNum = ip.PODNum
	opts.ProcLimit = ip.ProcLimit
	opts.NewtonTol = ip.NewtonTol
	opts.NewtonMaxIter = ip.NewtonMaxIter
	opts.RelaxTol = ip.RelaxTol
	opts.RelaxMaxIter = ip.RelaxMaxIter
	opts.RelaxReport = ip.RelaxReport
	level := slog.LevelInfo
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	opts.Logger = utils.NewTextLogger(os.Stderr, level)
	if m, err = LidDriven2D.NewModel(ctx, train, valid, opts); err != nil {
		return
	}
	fmt.Printf("Model built: %s\n", utils.GetMemUsage())
	return
}

// PrintSigma writes the singular value decay table.
func PrintSigma(w io.Writer, m *LidDriven2D.Model) {
	var (
		sigma = m.Basis.Sigma
	)
	fmt.Fprintf(w, "%5s %14s %14s\n", "Mode", "Sigma", "Sigma/Sigma0")
	for n, s := range sigma {
		fmt.Fprintf(w, "%5d %14.6e %14.6e\n", n, s, s/sigma[0])
	}
}

func printErrors(w io.Writer, label string, e LidDriven2D.Errors) {
	fmt.Fprintf(w, "%-12s P: %10.3e  u: %10.3e  v: %10.3e  total: %10.3e\n", label, e.P, e.U, e.V, e.Total)
}

// selectCases returns the design points and coefficient rows of the chosen
// validation cases, all of them when cases is empty.
func selectCases(alpha []types.DesignPoint, Lambda utils.Matrix, cases []int) (a []types.DesignPoint, L utils.Matrix, err error) {
	var (
		_, M = Lambda.Dims()
	)
	if len(cases) == 0 {
		return alpha, Lambda, nil
	}
	L = utils.NewMatrix(len(cases), M)
	for n, c := range cases {
		if c < 0 || c >= len(alpha) {
			err = fmt.Errorf("case %d out of range, have %d validation cases", c, len(alpha))
			return
		}
		a = append(a, alpha[c])
		copy(L.DataP[n*M:], Lambda.DataP[c*M:(c+1)*M])
	}
	return
}

// RunROM builds the model, solves the validation cases with the Galerkin
// solver and writes the reconstructed fields with ip.OutputPrefix.
func RunROM(ctx context.Context, ip *InputParameters.ROMParameters, w io.Writer) (err error) {
	var (
		m       *LidDriven2D.Model
		results []LidDriven2D.GalerkinResult
		e       LidDriven2D.Errors
	)
	ip.Print()
	if m, err = loadModel(ctx, ip); err != nil {
		return
	}
	PrintSigma(w, m)
	if m.Valid == nil {
		return
	}
	alpha := m.Valid.Parameters
	if results, err = m.GalerkinSolve(ctx, alpha, nil); err != nil {
		return
	}
	var nFail int
	for _, r := range results {
		if !r.Converged {
			nFail++
		}
	}
	fmt.Fprintf(w, "Galerkin: %d of %d cases converged\n", len(results)-nFail, len(results))
	Lambda := LidDriven2D.Lambda(results)
	if e, err = m.GetError(Lambda); err != nil {
		return
	}
	printErrors(w, "Projection", m.ProjError)
	printErrors(w, "Galerkin", e)
	return writeCases(ctx, m, alpha, Lambda, ip.Cases, ip.OutputPrefix+"_galerkin")
}

func writeCases(ctx context.Context, m *LidDriven2D.Model, alpha []types.DesignPoint, Lambda utils.Matrix,
	cases []int, prefix string) (err error) {
	var (
		a []types.DesignPoint
		L utils.Matrix
	)
	if a, L, err = selectCases(alpha, Lambda, cases); err != nil {
		return
	}
	_, err = m.GetPredFields(ctx, a, L, prefix)
	return
}
