package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Actual version can be specified in build command.
var version = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and the build details",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Printf("%s version: %s\n", app, version)

		if cmd.Flag("verbose").Value.String() != "true" {
			return
		}
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		fmt.Printf("go: %s\n", info.GoVersion)
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" || setting.Key == "vcs.time" {
				fmt.Printf("%s: %s\n", setting.Key, setting.Value)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().BoolP("verbose", "v", false, "print go version and vcs details")
}
