// Package cmd implements the ffibuild CLI
package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/whatsmeow-ffi/build-tools/pkg"
	"github.com/whatsmeow-ffi/build-tools/pkg/buildsys"
	"github.com/whatsmeow-ffi/build-tools/pkg/config"
)

var logger = zerolog.New(NewConsoleWriter(os.Stderr)).With().Timestamp().Logger()

// newRunner is replaced in tests
var newRunner = buildsys.NewRunner

var rootCmd = &cobra.Command{
	Use:   "ffibuild",
	Short: "Builds the Go shared library used by the Rust bindings",
	Long: `Compiles the Go sources in the artifact directory into a C shared library, generates a
module-definition file and an import library from its exports and copies the library into the
Cargo target directory.

Use --clean to delete the generated files and run cargo clean instead.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		clean, err := cmd.Flags().GetBool("clean")
		if err != nil {
			return err
		}

		cargo, err := cmd.Flags().GetBool("cargo")
		if err != nil {
			return err
		}

		if err := checkModeFlags(clean, cargo); err != nil {
			return err
		}

		ctx, _, b, err := prepare(cmd)
		if err != nil {
			return err
		}

		if clean {
			if err := b.Clean(ctx); err != nil {
				return err
			}
			logger.Info().Msg("Cleanup complete.")
			return nil
		}

		if cargo {
			b.Downstream = true
		}

		if err := b.Build(ctx); err != nil {
			return err
		}
		logger.Info().Msg("Build complete.")
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("root", "", "Project root (default: nearest parent directory with ffibuild.toml, Cargo.toml or .git)")
	flags.BoolP("dry", "n", false, "Only print the commands and file operations instead of executing them")
	flags.Bool("log-json", false, "Output JSON lines instead of pretty console messages")

	rootCmd.Flags().Bool("clean", false, "Delete the generated files and run cargo clean")
	rootCmd.Flags().Bool("cargo", false, "Run cargo build after staging the library")
}

// checkModeFlags rejects flag combinations that select more than one mode
func checkModeFlags(clean, cargo bool) error {
	if clean && cargo {
		return eris.New("--clean and --cargo can't be combined")
	}
	return nil
}

// loadConfig loads the configuration for the selected project root and reconfigures the logger
func loadConfig(cmd *cobra.Command) (string, *config.Config, error) {
	root, err := projectRoot(cmd)
	if err != nil {
		return "", nil, err
	}

	cfg, err := config.Load(root)
	if err != nil {
		return "", nil, err
	}

	jsonLog, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		return "", nil, err
	}
	configureLogger(cmd, cfg, jsonLog)

	logger.Debug().Str("path", root).Msgf("Project root: %s", root)
	return root, cfg, nil
}

// prepare is loadConfig followed by the creation of a Builder for the project
func prepare(cmd *cobra.Command) (context.Context, *config.Config, *buildsys.Builder, error) {
	root, cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}

	dryRun, err := cmd.Flags().GetBool("dry")
	if err != nil {
		return nil, nil, nil, err
	}

	runner := newRunner()
	runner.DryRun = dryRun
	runner.Stdout = cmd.OutOrStdout()
	runner.Stderr = cmd.ErrOrStderr()

	ctx := buildsys.WithLogger(context.Background(), &logger)
	b, err := cfg.NewBuilder(ctx, root, runner)
	if err != nil {
		return nil, nil, nil, err
	}
	b.Tools = b.Tools.Resolve(lookPath)

	return ctx, cfg, b, nil
}

func projectRoot(cmd *cobra.Command) (string, error) {
	root, err := cmd.Flags().GetString("root")
	if err != nil {
		return "", err
	}

	if root == "" {
		root, err = os.Getwd()
		if err != nil {
			return "", eris.Wrap(err, "failed to retrieve the current working directory")
		}
	}

	return pkg.FindProjectRoot(root)
}

func configureLogger(cmd *cobra.Command, cfg *config.Config, jsonLog bool) {
	out := cmd.ErrOrStderr()
	if jsonLog || cfg.Log.JSON {
		logger = zerolog.New(out)
	} else {
		logger = zerolog.New(NewConsoleWriter(out))
	}

	logger = logger.Level(cfg.LogLevel()).With().Timestamp().Logger()
}

// Execute runs the root command and exits with status 1 on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		event := logger.Error().Err(err)

		var stageErr *buildsys.StageError
		if errors.As(err, &stageErr) {
			event = event.Str("stage", stageErr.Stage).Str("kind", stageErr.Kind.String())
		}

		event.Msg("Failed")
		os.Exit(1)
	}
}
