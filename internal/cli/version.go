package cli

import (
	"runtime"

	"github.com/abdul-hamid-achik/photomark/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printer.Result(map[string]string{
			"version": version.Version,
			"commit":  version.Commit,
			"date":    version.Date,
			"os":      runtime.GOOS,
			"arch":    runtime.GOARCH,
		}, func() {
			printer.Printf("photomark %s\n", version.Full())
		})
	},
}
