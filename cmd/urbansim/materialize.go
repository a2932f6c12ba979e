package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhinav24jha/blank-slate/internal/scenario"
)

var (
	flagMatBaseline string
	flagMatScenario string
	flagMatOut      string
)

var materializeCmd = &cobra.Command{
	Use:   "materialize",
	Short: "Apply a scenario diff to baseline assets",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := scenario.LoadFile(flagMatScenario)
		if err != nil {
			return err
		}
		res, err := scenario.Materialize(flagMatBaseline, s, flagMatOut)
		if err != nil {
			return err
		}
		fmt.Printf("materialized %s: %d POIs (%d added, %d updated, %d buildings opened)\n",
			s.ID, res.POICount, res.Added, res.Updated, res.OpenedBuildings)
		return nil
	},
}

func init() {
	materializeCmd.Flags().StringVar(&flagMatBaseline, "baseline", "assets/baseline", "baseline asset directory")
	materializeCmd.Flags().StringVar(&flagMatScenario, "scenario", "", "scenario JSON file")
	materializeCmd.Flags().StringVar(&flagMatOut, "out", "", "output asset directory")
	materializeCmd.MarkFlagRequired("scenario")
	materializeCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(materializeCmd)
}
