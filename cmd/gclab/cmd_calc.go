package main

import (
	"github.com/spf13/cobra"

	"gclabcore/pkg/calc"
	"gclabcore/pkg/domain"
)

// Shared column/condition flags for the calc subcommands.
var (
	flagLengthM    float64
	flagIDmm       float64
	flagFilmUm     float64
	flagParticleUm float64
	flagTempC      float64
	flagFlow       float64
	flagGas        string
	flagInletPSI   float64
	flagOutletPSI  float64
)

func column() domain.ColumnSpec {
	return domain.ColumnSpec{
		LengthM:         flagLengthM,
		IDmm:            flagIDmm,
		FilmThicknessUm: flagFilmUm,
		ParticleSizeUm:  flagParticleUm,
	}
}

func conditions() domain.MethodConditions {
	return domain.MethodConditions{
		TemperatureC:      flagTempC,
		FlowMLMin:         flagFlow,
		CarrierGas:        domain.CarrierGas(flagGas),
		InletPressurePSI:  flagInletPSI,
		OutletPressurePSI: flagOutletPSI,
	}
}

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Column physics calculators",
}

var calcVanDeemterCmd = &cobra.Command{
	Use:   "vandeemter",
	Short: "Optimal linear velocity and minimum plate height for a column",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := calc.VanDeemterOptimize(column(), conditions())
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

var calcPressureCmd = &cobra.Command{
	Use:   "pressure",
	Short: "Pressure drop and required inlet pressure for the method flow",
	RunE: func(cmd *cobra.Command, args []string) error {
		col := column()
		result, err := calc.PressureDropCalculate(col, conditions(), col.Packed())
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

var calcFlowCmd = &cobra.Command{
	Use:   "flow",
	Short: "Compressibility-corrected optimal volumetric flow",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := calc.OptimalFlow(column(), conditions())
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

var (
	flagUnknownRT   float64
	flagLowerRT     float64
	flagUpperRT     float64
	flagLowerCarbon int
	flagUpperCarbon int
	flagRampRate    float64
)

var calcRICmd = &cobra.Command{
	Use:   "ri",
	Short: "Kovats, Lee, and programmed-temperature retention indices",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := calc.RetentionIndexCalculate(domain.RetentionIndexInput{
			UnknownRT:      flagUnknownRT,
			NMinus1RT:      flagLowerRT,
			NPlus1RT:       flagUpperRT,
			NMinus1Carbons: flagLowerCarbon,
			NPlus1Carbons:  flagUpperCarbon,
			TemperatureC:   flagTempC,
			RampRateCMin:   flagRampRate,
		})
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{calcVanDeemterCmd, calcPressureCmd, calcFlowCmd} {
		cmd.Flags().Float64Var(&flagLengthM, "length", 30, "column length in meters")
		cmd.Flags().Float64Var(&flagIDmm, "id", 0.25, "column internal diameter in mm")
		cmd.Flags().Float64Var(&flagFilmUm, "film", 0.25, "stationary phase film thickness in um")
		cmd.Flags().Float64Var(&flagParticleUm, "particle", 0, "particle size in um for packed columns")
		cmd.Flags().Float64Var(&flagTempC, "temp", 100, "oven temperature in C")
		cmd.Flags().Float64Var(&flagFlow, "flow", 1.0, "carrier flow in mL/min")
		cmd.Flags().StringVar(&flagGas, "gas", "helium", "carrier gas: helium|hydrogen|nitrogen")
		cmd.Flags().Float64Var(&flagInletPSI, "inlet", 0, "inlet pressure in psi (0 = unspecified)")
		cmd.Flags().Float64Var(&flagOutletPSI, "outlet", 0, "outlet pressure in psi (0 = atmospheric)")
	}

	calcRICmd.Flags().Float64Var(&flagUnknownRT, "rt", 0, "unknown peak retention time in minutes")
	calcRICmd.Flags().Float64Var(&flagLowerRT, "rt-lower", 0, "retention time of the lower bracketing alkane")
	calcRICmd.Flags().Float64Var(&flagUpperRT, "rt-upper", 0, "retention time of the upper bracketing alkane")
	calcRICmd.Flags().IntVar(&flagLowerCarbon, "carbons-lower", 0, "carbon number of the lower bracketing alkane")
	calcRICmd.Flags().IntVar(&flagUpperCarbon, "carbons-upper", 0, "carbon number of the upper bracketing alkane")
	calcRICmd.Flags().Float64Var(&flagTempC, "temp", 100, "column temperature in C")
	calcRICmd.Flags().Float64Var(&flagRampRate, "ramp", 0, "temperature ramp rate in C/min")
	for _, name := range []string{"rt", "rt-lower", "rt-upper", "carbons-lower", "carbons-upper"} {
		_ = calcRICmd.MarkFlagRequired(name)
	}

	calcCmd.AddCommand(calcVanDeemterCmd, calcPressureCmd, calcFlowCmd, calcRICmd)
}
