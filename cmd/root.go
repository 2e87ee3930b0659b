package cmd

import (
	"fmt"
	"os"

	"github.com/metal-toolbox/bootline/internal/model"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
	trace   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   model.AppName,
	Short: "bootline identifies servers at network boot and serves their boot and provisioning scripts",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// logLevel returns the log level set by the --debug, --trace flags.
func logLevel() int {
	switch {
	case trace:
		return model.LogLevelTrace
	case debug:
		return model.LogLevelDebug
	default:
		return model.LogLevelInfo
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "configuration file (default: none, env variables prefixed with BOOTLINE_ apply)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "", false, "set logging level to debug")
	rootCmd.PersistentFlags().BoolVarP(&trace, "trace", "", false, "set logging level to trace")
}
