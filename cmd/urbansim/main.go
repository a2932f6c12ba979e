// Command urbansim runs urban-planning what-if simulations: baseline vs
// scenario agent runs over rasterized city grids, with live analytics.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
