package cmd

import (
	"encoding/json"
	"io"
	"log"

	"github.com/metal-toolbox/bootline/internal/version"
	"github.com/spf13/cobra"
)

var cmdVersion = &cobra.Command{
	Use:   "version",
	Short: "Print bootline build and dependency versions as JSON",
	Run: func(cmd *cobra.Command, _ []string) {
		if err := writeVersion(cmd.OutOrStdout(), version.Current()); err != nil {
			log.Fatal(err)
		}
	},
}

func writeVersion(w io.Writer, v version.Version) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}

func init() {
	rootCmd.AddCommand(cmdVersion)
}
