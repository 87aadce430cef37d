package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/whatsmeow-ffi/build-tools/pkg"
	"github.com/whatsmeow-ffi/build-tools/pkg/buildsys"
)

// lookPath resolves executables; nil means exec.LookPath
var lookPath func(string) (string, error)

var checkToolsCmd = &cobra.Command{
	Use:   "check-tools",
	Short: "Checks that the build tools are installed",
	Long: `Looks up go, dumpbin, dlltool and cargo (using the names from the configuration) in PATH.
Cargo is only required if the downstream build is enabled.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		pkg.PrintTask("Checking build tools")
		statuses, err := buildsys.CheckTools(cfg.ToolNames().Requirements(cfg.Downstream.Build), lookPath)
		for _, status := range statuses {
			req := status.Requirement
			switch {
			case status.Found != "":
				pkg.PrintSubtask(fmt.Sprintf("%s: %s", req.Name, status.Found))
			case req.Optional:
				pkg.PrintSubtask(fmt.Sprintf("%s: not found (optional, %s)", req.Name, req.Purpose))
			default:
				pkg.PrintError(fmt.Sprintf("%s: not found (%s)", req.Name, req.Purpose))
			}
		}

		return err
	},
}

func init() {
	rootCmd.AddCommand(checkToolsCmd)
}
