package cmd

import (
	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install [dir]",
	Short: "Installs the built library",
	Long: `Copies the built library into dir (default: install.dir or ~/.cargo/bin) and verifies
the copy. Run the build first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cfg, b, err := prepare(cmd)
		if err != nil {
			return err
		}

		dir := cfg.Install.Dir
		if len(args) > 0 {
			dir = args[0]
		}

		dest, err := b.Install(ctx, dir)
		if err != nil {
			return err
		}

		logger.Info().Str("path", dest).Msgf("Installed %s", dest)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}
