package buildsys

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// DefaultInstallDir is ~/.cargo/bin, which rustup puts on PATH.
func DefaultInstallDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", eris.Wrap(err, "home directory not found")
	}
	return filepath.Join(home, ".cargo", "bin"), nil
}

// Install copies the built library into dir so binaries outside the target directory can load it,
// then verifies the copy. It returns the installed path.
func (b *Builder) Install(ctx context.Context, dir string) (string, error) {
	l := stageLog(ctx, StageInstall)
	if dir == "" {
		var err error
		dir, err = DefaultInstallDir()
		if err != nil {
			return "", stageError(StageInstall, KindIO, err)
		}
	}

	dest := filepath.Join(dir, b.Paths.LibraryName())
	l.Info().Str("path", dest).Msgf("Copying library to: %s", dest)
	if b.dryRun() {
		return dest, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", stageError(StageInstall, KindIO, eris.Wrapf(err, "failed to create %s", dir))
	}

	if err := b.copyFile(b.Paths.Library(), dest); err != nil {
		return "", stageError(StageInstall, KindIO, eris.Wrapf(err, "failed to copy library to %s", dest))
	}

	if err := VerifyInstall(dest); err != nil {
		return "", stageError(StageInstall, KindPostcondition, err)
	}

	if !inPath(dir, b.Runner.getenv("PATH")) {
		l.Warn().Str("path", dir).Msgf("%s is not in PATH; add it so the library can be found at runtime", dir)
	}

	return dest, nil
}

// VerifyInstall checks that path is a non-empty regular file
func VerifyInstall(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return eris.Wrapf(err, "installed library missing: %s", path)
	}
	if !info.Mode().IsRegular() || info.Size() == 0 {
		return eris.Errorf("installed library is not a valid file: %s", path)
	}
	return nil
}

func inPath(dir, pathVar string) bool {
	dir = filepath.Clean(dir)
	for _, entry := range filepath.SplitList(pathVar) {
		if entry != "" && filepath.Clean(entry) == dir {
			return true
		}
	}
	return false
}
