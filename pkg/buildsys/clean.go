package buildsys

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
)

// Clean removes the generated library, export definition and import library, then runs
// "cargo clean". A file that can't be deleted only produces a warning; a failing cargo clean is fatal.
func (b *Builder) Clean(ctx context.Context) error {
	l := stageLog(ctx, StageClean)
	l.Info().Msg("Cleaning up generated files...")

	for _, path := range b.Paths.Generated() {
		if _, err := os.Stat(path); err != nil {
			continue
		}

		if b.dryRun() {
			l.Info().Str("path", path).Msgf("Would delete %s", path)
			continue
		}

		if err := b.remove(path); err != nil {
			l.Warn().Err(err).Str("path", path).Msgf("Could not delete %s", path)
			continue
		}
		l.Info().Str("path", path).Msgf("Deleted: %s", path)
	}

	l.Info().Msg("Running 'cargo clean'...")
	if err := b.Runner.Run(ctx, b.Paths.Root, b.Tools.Cargo, "clean"); err != nil {
		return stageError(StageClean, KindSubprocess, eris.Wrap(err, "cargo clean failed"))
	}

	return nil
}
