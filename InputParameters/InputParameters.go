package InputParameters

import (
	"fmt"

	"github.com/ghodss/yaml"
)

// Parameters obtained from the YAML input file
type ROMParameters struct {
	Title          string  `yaml:"Title"`
	SnapshotFile   string  `yaml:"SnapshotFile"`   // Training snapshot archive (.json or .json.zst)
	ValidationFile string  `yaml:"ValidationFile"` // Validation snapshot archive, optional
	PODNum         int     `yaml:"PODNum"`         // Leading training samples used for the basis, 0 for all
	NumModes       int     `yaml:"NumModes"`
	NewtonTol      float64 `yaml:"NewtonTol"`
	NewtonMaxIter  int     `yaml:"NewtonMaxIter"`
	RelaxTol       float64 `yaml:"RelaxTol"`
	RelaxMaxIter   int     `yaml:"RelaxMaxIter"`
	RelaxReport    int     `yaml:"RelaxReport"`
	ProcLimit      int     `yaml:"ProcLimit"` // 0 for one goroutine per CPU
	Seed           int64   `yaml:"Seed"`
	OutputPrefix   string  `yaml:"OutputPrefix"`
	Cases          []int   `yaml:"Cases"` // Validation cases to reconstruct, empty for all
	Surrogate      struct {
		Mode       string  `yaml:"Mode"` // nn or pinn
		Hidden     []int   `yaml:"Hidden"`
		Epochs     int     `yaml:"Epochs"`
		LearnRate  float64 `yaml:"LearnRate"`
		PINNWeight float64 `yaml:"PINNWeight"`
	} `yaml:"Surrogate"`
}

// NewROMParameters returns the defaults that Parse overlays.
func NewROMParameters() (ip *ROMParameters) {
	ip = &ROMParameters{
		Title:         "Lid Driven Cavity ROM",
		NumModes:      10,
		NewtonTol:     1.e-6,
		NewtonMaxIter: 100,
		RelaxTol:      1.e-8,
		RelaxMaxIter:  100000000,
		RelaxReport:   10000,
		OutputPrefix:  "rom",
	}
	ip.Surrogate.Mode = "nn"
	ip.Surrogate.Hidden = []int{32, 32}
	ip.Surrogate.Epochs = 2000
	ip.Surrogate.LearnRate = 1.e-3
	ip.Surrogate.PINNWeight = 1
	return
}

func (ip *ROMParameters) Parse(data []byte) (err error) {
	if err = yaml.Unmarshal(data, ip); err != nil {
		return
	}
	return ip.Validate()
}

func (ip *ROMParameters) Validate() (err error) {
	switch {
	case ip.NumModes < 1:
		err = fmt.Errorf("NumModes must be positive, have %d", ip.NumModes)
	case ip.PODNum < 0:
		err = fmt.Errorf("PODNum must not be negative, have %d", ip.PODNum)
	case ip.NewtonTol <= 0 || ip.RelaxTol <= 0:
		err = fmt.Errorf("tolerances must be positive, have NewtonTol=%g RelaxTol=%g", ip.NewtonTol, ip.RelaxTol)
	case ip.NewtonMaxIter < 1 || ip.RelaxMaxIter < 1:
		err = fmt.Errorf("iteration budgets must be positive, have NewtonMaxIter=%d RelaxMaxIter=%d",
			ip.NewtonMaxIter, ip.RelaxMaxIter)
	}
	return
}

func (ip *ROMParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("[%s]\t\t= Snapshot File\n", ip.SnapshotFile)
	fmt.Printf("[%s]\t\t= Validation File\n", ip.ValidationFile)
	fmt.Printf("[%d]\t\t\t\t= POD Samples\n", ip.PODNum)
	fmt.Printf("[%d]\t\t\t\t= Modes\n", ip.NumModes)
	fmt.Printf("%8.2e\t\t= Newton Tolerance\n", ip.NewtonTol)
	fmt.Printf("[%d]\t\t\t\t= Newton Iterations\n", ip.NewtonMaxIter)
	fmt.Printf("%8.2e\t\t= Relaxation Tolerance\n", ip.RelaxTol)
	fmt.Printf("[%d]\t\t= Relaxation Iterations\n", ip.RelaxMaxIter)
	fmt.Printf("[%s]\t\t\t= Output Prefix\n", ip.OutputPrefix)
	if len(ip.Cases) != 0 {
		fmt.Printf("%v\t\t\t= Cases\n", ip.Cases)
	}
	fmt.Printf("[%s] %v\t= Surrogate\n", ip.Surrogate.Mode, ip.Surrogate.Hidden)
}
