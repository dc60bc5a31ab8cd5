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
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/gorom/InputParameters"
	"github.com/notargets/gorom/model_problems/LidDriven2D"
	"github.com/notargets/gorom/surrogate"
)

// TrainCmd represents the train command
var TrainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a POD-NN or POD-PINN surrogate on the reduced model",
	Long: `
Builds the reduced model, then trains a network from design points to modal
coefficients on the training projections. In pinn mode the reduced residual
at the validation design points is added to the loss.

gorom train -I input.yaml --mode pinn`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("train called")
		ip := processInput(viper.GetString("inputFile"), viper.GetInt("modes"))
		if mode := viper.GetString("mode"); len(mode) != 0 {
			ip.Surrogate.Mode = mode
		}
		if err := RunTrain(context.Background(), ip, os.Stdout); err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(TrainCmd)
	TrainCmd.Flags().String("mode", "", "surrogate mode, nn or pinn, overrides Surrogate.Mode")
	_ = viper.BindPFlag("mode", TrainCmd.Flags().Lookup("mode"))
}

func surrogateConfig(ip *InputParameters.ROMParameters) (cfg surrogate.Config, err error) {
	cfg = surrogate.DefaultConfig()
	if cfg.Mode, err = surrogate.NewMode(ip.Surrogate.Mode); err != nil {
		return
	}
	if len(ip.Surrogate.Hidden) != 0 {
		cfg.Hidden = ip.Surrogate.Hidden
	}
	if ip.Surrogate.Epochs > 0 {
		cfg.Epochs = ip.Surrogate.Epochs
	}
	if ip.Surrogate.LearnRate > 0 {
		cfg.LearnRate = ip.Surrogate.LearnRate
	}
	cfg.PINNWeight = ip.Surrogate.PINNWeight
	cfg.Seed = ip.Seed
	cfg.ReportEvery = max(cfg.Epochs/10, 1)
	return
}

// RunTrain builds the model and trains the surrogate. With validation
// snapshots the surrogate predictions are scored and their fields written.
func RunTrain(ctx context.Context, ip *InputParameters.ROMParameters, w io.Writer) (err error) {
	var (
		m   *LidDriven2D.Model
		sm  *surrogate.Model
		cfg surrogate.Config
		e   LidDriven2D.Errors
	)
	ip.Print()
	if cfg, err = surrogateConfig(ip); err != nil {
		return
	}
	if m, err = loadModel(ctx, ip); err != nil {
		return
	}
	PrintSigma(w, m)
	if sm, err = surrogate.NewModel(m, cfg); err != nil {
		return
	}
	alphaR := m.Train.Parameters
	if m.Valid != nil {
		alphaR = m.Valid.Parameters
	}
	if err = sm.Train(ctx, m.Train.Parameters, m.Projections, alphaR); err != nil {
		return
	}
	fmt.Fprintf(w, "%s: loss %10.3e after %d epochs\n", cfg.Mode, sm.History[len(sm.History)-1], len(sm.History))
	floor, err := sm.LabeledResidualLoss(m.Train.Parameters, m.Projections)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "Residual loss of the training projections: %10.3e\n", floor)
	if m.Valid == nil {
		return
	}
	alpha := m.Valid.Parameters
	Lambda := sm.Predict(alpha)
	if e, err = m.GetError(Lambda); err != nil {
		return
	}
	printErrors(w, "Projection", m.ProjError)
	printErrors(w, cfg.Mode.String(), e)
	return writeCases(ctx, m, alpha, Lambda, ip.Cases, ip.OutputPrefix+"_"+cfg.Mode.String())
}
