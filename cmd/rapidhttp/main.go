package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "rapidhttp",
	Short:   "A fast terminal HTTP client with session pooling",
	Version: version,
	Long: `rapidhttp is a terminal HTTP client built on the rapidhttp engine:
persistent connections, redirect handling and streaming responses,
with a built-in latency benchmark.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newRequestCmd("get"))
	rootCmd.AddCommand(newRequestCmd("post"))
	rootCmd.AddCommand(newRequestCmd("put"))
	rootCmd.AddCommand(newRequestCmd("patch"))
	rootCmd.AddCommand(newRequestCmd("delete"))
	rootCmd.AddCommand(newRequestCmd("head"))
	rootCmd.AddCommand(newRequestCmd("options"))
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(benchCmd)
}
