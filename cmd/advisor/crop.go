package main

import (
	"github.com/spf13/cobra"

	"github.com/ayuxy027/Krishak-AI/internal/usecase/advisory"
)

var cropCmd = &cobra.Command{
	Use:   "crop",
	Short: "Market analytics for a crop in a city",
	RunE: func(cmd *cobra.Command, args []string) error {
		city, _ := cmd.Flags().GetString("city")
		state, _ := cmd.Flags().GetString("state")
		crop, _ := cmd.Flags().GetString("crop")
		dateRange, _ := cmd.Flags().GetString("date-range")
		historical, _ := cmd.Flags().GetBool("historical")

		res, err := advisor.CropAnalytics(cmd.Context(), advisory.CropAnalyticsRequest{
			City:              city,
			State:             state,
			CropName:          crop,
			DateRange:         dateRange,
			IncludeHistorical: historical,
		})
		if err != nil {
			return err
		}
		return printResult(cmd, res)
	},
}

func init() {
	rootCmd.AddCommand(cropCmd)

	cropCmd.Flags().String("city", "", "market city")
	cropCmd.Flags().String("state", "", "state of the market city")
	cropCmd.Flags().String("crop", "", "crop name, e.g. Rice")
	cropCmd.Flags().String("date-range", "", "analysis window, e.g. \"last 30 days\"")
	cropCmd.Flags().Bool("historical", false, "include historical data analysis")
	_ = cropCmd.MarkFlagRequired("city")
	_ = cropCmd.MarkFlagRequired("state")
	_ = cropCmd.MarkFlagRequired("crop")
}
