package main

import (
	"github.com/spf13/cobra"

	"github.com/ayuxy027/Krishak-AI/internal/usecase/advisory"
)

var farmingCmd = &cobra.Command{
	Use:   "farming",
	Short: "Evaluate a modern farming technique for a farm",
	RunE: func(cmd *cobra.Command, args []string) error {
		technique, _ := cmd.Flags().GetString("technique")
		size, _ := cmd.Flags().GetFloat64("size")
		budget, _ := cmd.Flags().GetString("budget")

		res, err := advisor.ModernFarming(cmd.Context(), advisory.ModernFarmingRequest{
			Technique: technique,
			FarmSize:  size,
			Budget:    budget,
		})
		if err != nil {
			return err
		}
		return printResult(cmd, res)
	},
}

func init() {
	rootCmd.AddCommand(farmingCmd)

	farmingCmd.Flags().String("technique", "", "technique to evaluate, e.g. Drip Irrigation")
	farmingCmd.Flags().Float64("size", 0, "farm size in acres")
	farmingCmd.Flags().String("budget", "medium", "budget: low, medium or high")
	_ = farmingCmd.MarkFlagRequired("technique")
	_ = farmingCmd.MarkFlagRequired("size")
}
