package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version information, set during build with ldflags. A binary built without
// them falls back to what the module system recorded.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and build details",
	Run: func(cmd *cobra.Command, args []string) {
		commit, date := GitCommit, BuildDate
		if commit == "unknown" {
			if bi, ok := debug.ReadBuildInfo(); ok {
				for _, setting := range bi.Settings {
					switch setting.Key {
					case "vcs.revision":
						commit = setting.Value
					case "vcs.time":
						date = setting.Value
					}
				}
			}
		}
		fmt.Printf("careerflow version %s\n", Version)
		fmt.Printf("Git commit: %s\n", commit)
		fmt.Printf("Build date: %s\n", date)
		fmt.Printf("Go version: %s\n", runtime.Version())
	},
}
