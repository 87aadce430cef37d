package buildsys

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
)

// moduleMarker marks an initialized Go module inside the artifact directory.
const moduleMarker = "go.mod"

// Builder runs the individual pipeline stages. Each stage returns a *StageError on failure.
type Builder struct {
	Paths  Paths
	Tools  Tools
	Runner *Runner
	// Attempts bounds the auxiliary copy retries.
	Attempts int
	// Progress shows a progress bar while copying.
	Progress bool
	// Downstream enables "cargo build" after the library has been staged.
	Downstream bool

	sleep    func(time.Duration)
	copyFile func(src, dst string) error
	remove   func(path string) error
}

// NewBuilder returns a Builder with default retry settings
func NewBuilder(paths Paths, tools Tools, runner *Runner) *Builder {
	b := &Builder{
		Paths:    paths,
		Tools:    tools,
		Runner:   runner,
		Attempts: defaultAttempts,
		sleep:    time.Sleep,
		remove:   os.Remove,
	}
	b.copyFile = func(src, dst string) error {
		return copyFile(src, dst, b.Progress)
	}
	return b
}

func (b *Builder) dryRun() bool {
	return b.Runner.DryRun
}

// EnsureDirs creates the artifact directory including its parents.
func (b *Builder) EnsureDirs(ctx context.Context) error {
	l := stageLog(ctx, StageDirs)
	dir := b.Paths.ArtifactDir

	info, err := os.Stat(dir)
	if err == nil && info.IsDir() {
		l.Info().Str("path", dir).Msgf("Directory already exists: %s", dir)
		return nil
	}

	l.Info().Str("path", dir).Msgf("Creating directory: %s", dir)
	if b.dryRun() {
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return stageError(StageDirs, KindIO, eris.Wrapf(err, "failed to create %s", dir))
	}
	return nil
}

// InitModule runs "go mod init" in the artifact directory unless a go.mod already exists.
func (b *Builder) InitModule(ctx context.Context) error {
	l := stageLog(ctx, StageModInit)
	marker := filepath.Join(b.Paths.ArtifactDir, moduleMarker)

	_, err := os.Stat(marker)
	if err == nil {
		l.Info().Str("path", marker).Msgf("Go module already initialized (%s exists)", marker)
		return nil
	}
	if !os.IsNotExist(err) {
		return stageError(StageModInit, KindIO, eris.Wrapf(err, "failed to check %s", marker))
	}

	l.Info().Msg("Initializing Go module...")
	err = b.Runner.Run(ctx, b.Paths.ArtifactDir, b.Tools.Go, "mod", "init", b.Tools.Module)
	if err != nil {
		return stageError(StageModInit, KindSubprocess, eris.Wrap(err, "failed to initialize Go module"))
	}
	return nil
}

// CompileLibrary builds the shared library. The command runs inside the artifact directory so the
// output name carries no extra path components.
func (b *Builder) CompileLibrary(ctx context.Context) error {
	l := stageLog(ctx, StageCompile)
	l.Info().Msg("Building Go shared library...")

	err := b.Runner.Run(ctx, b.Paths.ArtifactDir,
		b.Tools.Go, "build", "-buildmode=c-shared", "-o", b.Paths.LibraryName(), b.Paths.SourceName())
	if err != nil {
		return stageError(StageCompile, KindSubprocess, eris.Wrap(err, "Go build failed"))
	}

	if b.dryRun() {
		return nil
	}

	// go build has been seen to exit 0 without writing the library
	lib := b.Paths.Library()
	if _, err := os.Stat(lib); err != nil {
		return stageError(StageCompile, KindPostcondition, eris.Wrapf(err, "expected library not found: %s", lib))
	}

	l.Info().Str("path", lib).Msgf("Library built: %s", lib)
	return nil
}

// GenerateDef dumps the library's export table and writes it as a module-definition file.
func (b *Builder) GenerateDef(ctx context.Context) error {
	l := stageLog(ctx, StageDef)
	l.Info().Msg("Generating DEF file...")

	output, err := b.Runner.Output(ctx, b.Paths.ArtifactDir, b.Tools.Dumpbin, "/exports", b.Paths.LibraryName())
	if err != nil {
		return stageError(StageDef, KindSubprocess, eris.Wrap(err, "dumpbin failed"))
	}

	names := ParseExports(output)
	def := b.Paths.Def()
	if b.dryRun() {
		l.Info().Str("path", def).Msgf("Would write %s", def)
		return nil
	}

	if err := ioutil.WriteFile(def, []byte(DefContent(names)), 0o644); err != nil {
		return stageError(StageDef, KindIO, eris.Wrapf(err, "failed to write %s", def))
	}

	l.Info().Str("path", def).Int("exports", len(names)).Msgf("DEF file generated: %s", def)
	return nil
}

// GenerateImportLib turns the module-definition file into an import library with dlltool.
func (b *Builder) GenerateImportLib(ctx context.Context) error {
	l := stageLog(ctx, StageImportLib)
	l.Info().Msg("Generating import library (.lib) using dlltool...")

	err := b.Runner.Run(ctx, b.Paths.ArtifactDir, b.Tools.Dlltool,
		"-d", b.Paths.DefName(),
		"-D", b.Paths.LibraryName(),
		"-l", b.Paths.ImportLibName(),
	)
	if err != nil {
		return stageError(StageImportLib, KindSubprocess, eris.Wrap(err, "dlltool failed"))
	}

	l.Info().Str("path", b.Paths.ImportLib()).Msgf("Import library generated: %s", b.Paths.ImportLib())
	return nil
}

// DownstreamBuild runs "cargo build" in the project root. Build only calls it when Downstream is set.
func (b *Builder) DownstreamBuild(ctx context.Context) error {
	l := stageLog(ctx, StageDownstream)
	l.Info().Msg("Building Rust project with Cargo...")

	if err := b.Runner.Run(ctx, b.Paths.Root, b.Tools.Cargo, "build"); err != nil {
		return stageError(StageDownstream, KindSubprocess, eris.Wrap(err, "cargo build failed"))
	}

	l.Info().Msg("Rust project built successfully.")
	return nil
}
