package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagConfig  string
	flagDebug   bool
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:           "suspendctl",
	Short:         "Suspend a host on inactivity and wake it when needed",
	Long:          "suspendctl periodically probes the host for activity, suspends it once it has been idle long enough, and programs a wake alarm for the next moment it must be up.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "config file to use instead of /etc/suspendctl.conf")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "d", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
