package buildsys

import (
	"fmt"
	"path/filepath"
)

// Stage names used in logs and errors
const (
	StageDirs       = "dirs"
	StageModInit    = "mod-init"
	StageCompile    = "compile"
	StageDef        = "def"
	StageImportLib  = "import-lib"
	StageCopy       = "copy"
	StageCopyAux    = "copy-aux"
	StageDownstream = "cargo-build"
	StageClean      = "clean"
	StageInstall    = "install"
)

// Paths derives every artifact location from a single base name.
// All files share Name; only the directory and the extension differ.
type Paths struct {
	// Root is the project root; downstream cargo commands run here.
	Root string
	// ArtifactDir holds the Go source and all generated linker files.
	ArtifactDir string
	Name        string
	// Primary is the main output directory (usually target/debug).
	Primary string
	// Aux lists additional output directories that get a retried copy.
	Aux []string
}

func (p Paths) artifact(ext string) string {
	return filepath.Join(p.ArtifactDir, p.Name+ext)
}

func (p Paths) Source() string    { return p.artifact(".go") }
func (p Paths) Library() string   { return p.artifact(".dll") }
func (p Paths) Header() string    { return p.artifact(".h") }
func (p Paths) Def() string       { return p.artifact(".def") }
func (p Paths) ImportLib() string { return p.artifact(".lib") }

func (p Paths) SourceName() string    { return p.Name + ".go" }
func (p Paths) LibraryName() string   { return p.Name + ".dll" }
func (p Paths) DefName() string       { return p.Name + ".def" }
func (p Paths) ImportLibName() string { return p.Name + ".lib" }

// PrimaryLibrary is the location of the copy in the primary output directory
func (p Paths) PrimaryLibrary() string {
	return filepath.Join(p.Primary, p.LibraryName())
}

// AuxLibraries returns the copy destination for each auxiliary directory, in order
func (p Paths) AuxLibraries() []string {
	result := make([]string, len(p.Aux))
	for idx, dir := range p.Aux {
		result[idx] = filepath.Join(dir, p.LibraryName())
	}
	return result
}

// Generated lists the files removed by Clean: library, export definition, import library.
func (p Paths) Generated() []string {
	return []string{p.Library(), p.Def(), p.ImportLib()}
}

// Tools names the executables the pipeline invokes
type Tools struct {
	Go      string
	Dumpbin string
	Dlltool string
	Cargo   string
	// Module is passed to "go mod init".
	Module string
}

// DefaultTools returns the executable names used when nothing is configured
func DefaultTools() Tools {
	return Tools{
		Go:      "go",
		Dumpbin: "dumpbin",
		Dlltool: "dlltool",
		Cargo:   "cargo",
		Module:  "whatsmeow-ffi",
	}
}

// Kind classifies stage failures
type Kind int

const (
	// KindIO covers failed directory creation, file writes and copies.
	KindIO Kind = iota + 1
	// KindSubprocess means a tool could not be started or exited non-zero.
	KindSubprocess
	// KindPostcondition means a tool reported success but its output is missing.
	KindPostcondition
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindSubprocess:
		return "subprocess"
	case KindPostcondition:
		return "postcondition"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// StageError is returned by every stage. The CLI maps any StageError to exit status 1.
type StageError struct {
	Stage string
	Kind  Kind
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageError(stage string, kind Kind, err error) error {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}
