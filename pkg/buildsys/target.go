package buildsys

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// TargetOptions controls where the Cargo output directory is looked for
type TargetOptions struct {
	// Dir overrides every other source when set.
	Dir     string
	Profile string
	// Metadata asks "cargo metadata" when neither Dir nor CARGO_TARGET_DIR is set.
	Metadata bool
	Cargo    string
}

type cargoMetadata struct {
	TargetDirectory string `json:"target_directory"`
}

// ResolveTargetDir returns the profile directory (e.g. <root>/target/debug) the Cargo project
// loads the library from. Relative directories are resolved against root.
func (r *Runner) ResolveTargetDir(ctx context.Context, root string, opts TargetOptions) (string, error) {
	dir := opts.Dir
	if dir == "" {
		dir = r.getenv("CARGO_TARGET_DIR")
	}

	if dir == "" && opts.Metadata {
		cargo := opts.Cargo
		if cargo == "" {
			cargo = "cargo"
		}

		output, err := r.query(ctx, root, cargo, "metadata", "--format-version=1", "--no-deps")
		if err != nil {
			return "", eris.Wrap(err, "failed to query cargo metadata")
		}

		var meta cargoMetadata
		if err := json.Unmarshal([]byte(output), &meta); err != nil {
			return "", eris.Wrap(err, "failed to parse cargo metadata")
		}

		if meta.TargetDirectory == "" {
			return "", eris.New("cargo metadata did not report a target directory")
		}
		dir = meta.TargetDirectory
	}

	if dir == "" {
		dir = "target"
	}

	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}

	profile := opts.Profile
	if profile == "" {
		profile = "debug"
	}

	return filepath.Join(dir, profile), nil
}
