package buildsys

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aidarkhanov/nanoid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
)

const (
	defaultAttempts = 5
	retryStep       = 100 * time.Millisecond
)

// CopyPrimary copies the library into the primary output directory. Failures are not retried.
func (b *Builder) CopyPrimary(ctx context.Context) error {
	l := stageLog(ctx, StageCopy)
	dest := b.Paths.PrimaryLibrary()
	l.Info().Str("path", b.Paths.Primary).Msgf("Copying library to target directory: %s", b.Paths.Primary)

	if b.dryRun() {
		return nil
	}

	if err := os.MkdirAll(b.Paths.Primary, 0o755); err != nil {
		return stageError(StageCopy, KindIO, eris.Wrapf(err, "failed to create %s", b.Paths.Primary))
	}

	if err := b.copyFile(b.Paths.Library(), dest); err != nil {
		return stageError(StageCopy, KindIO, eris.Wrapf(err, "failed to copy library to %s", dest))
	}

	l.Info().Str("path", dest).Msgf("Library copied to: %s", dest)
	return nil
}

// CopyAuxiliary copies the library into every auxiliary directory. Another process (usually a
// running test binary) may hold the destination open, so each copy is retried with a linear backoff.
func (b *Builder) CopyAuxiliary(ctx context.Context) error {
	l := stageLog(ctx, StageCopyAux)

	for idx, dest := range b.Paths.AuxLibraries() {
		dir := b.Paths.Aux[idx]
		if b.dryRun() {
			l.Info().Str("path", dest).Msgf("Would copy library to %s", dest)
			continue
		}

		if err := os.MkdirAll(dir, 0o755); err != nil {
			return stageError(StageCopyAux, KindIO, eris.Wrapf(err, "failed to create %s", dir))
		}

		if err := b.copyWithRetry(l, b.Paths.Library(), dest); err != nil {
			return stageError(StageCopyAux, KindIO, err)
		}

		l.Info().Str("path", dest).Msgf("Copied library to test directory: %s", dest)
	}

	return nil
}

func (b *Builder) copyWithRetry(l *zerolog.Logger, src, dst string) error {
	attempts := b.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = b.copyFile(src, dst)
		if err == nil {
			return nil
		}

		if attempt < attempts {
			l.Warn().
				Err(err).
				Str("path", dst).
				Msgf("Failed to copy %s to %s (attempt %d/%d). Retrying...", src, dst, attempt, attempts)
			b.sleep(time.Duration(attempt) * retryStep)
		}
	}

	return eris.Wrapf(err, "failed to copy %s to %s after %d attempts", src, dst, attempts)
}

// copyFile copies src to dst keeping its mode and modification time. The data goes to a temporary
// file next to dst first which is then renamed over dst.
func copyFile(src, dst string, progress bool) (err error) {
	info, err := os.Stat(src)
	if err != nil {
		return eris.Wrapf(err, "failed to stat %s", src)
	}

	in, err := os.Open(src)
	if err != nil {
		return eris.Wrapf(err, "failed to open %s", src)
	}
	defer in.Close()

	tmp := filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+"."+nanoid.New()+".tmp")
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return eris.Wrapf(err, "failed to create %s", tmp)
	}
	defer func() {
		if err != nil {
			out.Close()
			os.Remove(tmp)
		}
	}()

	bar := getProgressBar(info.Size(), "Copying "+filepath.Base(dst), progress)
	if _, err = io.Copy(io.MultiWriter(out, bar), in); err != nil {
		return eris.Wrapf(err, "failed to write %s", tmp)
	}

	if err = out.Close(); err != nil {
		return eris.Wrapf(err, "failed to close %s", tmp)
	}

	if err = os.Chmod(tmp, info.Mode().Perm()); err != nil {
		return eris.Wrapf(err, "failed to set mode on %s", tmp)
	}

	if err = os.Chtimes(tmp, info.ModTime(), info.ModTime()); err != nil {
		return eris.Wrapf(err, "failed to set times on %s", tmp)
	}

	if err = os.Rename(tmp, dst); err != nil {
		return eris.Wrapf(err, "failed to replace %s", dst)
	}

	return nil
}

func getProgressBar(length int64, desc string, visible bool) *progressbar.ProgressBar {
	if !visible || os.Getenv("CI") == "true" {
		return progressbar.NewOptions64(length, progressbar.OptionSetVisibility(false))
	}

	return progressbar.DefaultBytes(length, desc)
}
