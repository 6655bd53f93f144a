package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// set via -ldflags at build time
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the program version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Printf("suspendctl %s (%s/%s)\n", version, runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
