package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhinav24jha/blank-slate/internal/grid"
	"github.com/abhinav24jha/blank-slate/internal/gridgen"
)

var genCfg = gridgen.DefaultConfig()
var flagGenOut string

var gridgenCmd = &cobra.Command{
	Use:   "gridgen",
	Short: "Generate a synthetic baseline asset directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, pois := gridgen.Generate(genCfg)
		if err := grid.Save(flagGenOut, g, pois); err != nil {
			return err
		}
		fmt.Printf("wrote %s: %s, %d POIs\n", flagGenOut, g, len(pois))
		return nil
	},
}

func init() {
	gridgenCmd.Flags().StringVar(&flagGenOut, "out", "assets/baseline", "output asset directory")
	gridgenCmd.Flags().IntVar(&genCfg.H, "height", genCfg.H, "grid height in cells")
	gridgenCmd.Flags().IntVar(&genCfg.W, "width", genCfg.W, "grid width in cells")
	gridgenCmd.Flags().Int64Var(&genCfg.Seed, "seed", genCfg.Seed, "generation seed")
	gridgenCmd.Flags().IntVar(&genCfg.BlockSize, "block", genCfg.BlockSize, "cells between streets")
	rootCmd.AddCommand(gridgenCmd)
}
