package config

import (
	"context"
	"path/filepath"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigtoml"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/whatsmeow-ffi/build-tools/pkg/buildsys"
)

// FileName is looked up in the project root
const FileName = "ffibuild.toml"

// Config describes all configuration options
type Config struct {
	Name        string `default:"go_lib" usage:"Base name shared by every artifact" toml:"name" env:"NAME" yaml:"name"`
	ArtifactDir string `default:"go_lib" usage:"Directory holding the Go source and generated files" toml:"artifact_dir" env:"ARTIFACT_DIR" yaml:"artifact_dir"`
	Module      string `default:"whatsmeow-ffi" usage:"Module path passed to go mod init" toml:"module" env:"MODULE" yaml:"module"`

	Target struct {
		Dir      string   `usage:"Cargo target directory (default: $CARGO_TARGET_DIR or target)" toml:"dir" env:"DIR" yaml:"dir"`
		Profile  string   `default:"debug" usage:"Cargo profile directory" toml:"profile" env:"PROFILE" yaml:"profile"`
		Metadata bool     `default:"false" usage:"Ask cargo metadata for the target directory" toml:"metadata" env:"METADATA" yaml:"metadata"`
		Aux      []string `default:"deps,." usage:"Additional copy destinations relative to the profile directory" toml:"aux" env:"AUX" yaml:"aux"`
	} `toml:"target" env:"TARGET" yaml:"target"`

	Tools struct {
		Go      string `default:"go" toml:"go" env:"GO" yaml:"go"`
		Dumpbin string `default:"dumpbin" toml:"dumpbin" env:"DUMPBIN" yaml:"dumpbin"`
		Dlltool string `default:"dlltool" toml:"dlltool" env:"DLLTOOL" yaml:"dlltool"`
		Cargo   string `default:"cargo" toml:"cargo" env:"CARGO" yaml:"cargo"`
	} `toml:"tools" env:"TOOLS" yaml:"tools"`

	Copy struct {
		Attempts int  `default:"5" usage:"Attempts per auxiliary copy" toml:"attempts" env:"ATTEMPTS" yaml:"attempts"`
		Progress bool `default:"false" usage:"Show a progress bar while copying" toml:"progress" env:"PROGRESS" yaml:"progress"`
	} `toml:"copy" env:"COPY" yaml:"copy"`

	Downstream struct {
		Build bool `default:"false" usage:"Run cargo build after staging the library" toml:"build" env:"BUILD" yaml:"build"`
	} `toml:"downstream" env:"DOWNSTREAM" yaml:"downstream"`

	Install struct {
		Dir string `usage:"Install destination (default: ~/.cargo/bin)" toml:"dir" env:"DIR" yaml:"dir"`
	} `toml:"install" env:"INSTALL" yaml:"install"`

	Log struct {
		Level string `default:"info" toml:"level" env:"LEVEL" yaml:"level"`
		JSON  bool   `default:"false" usage:"Output JSON lines instead of pretty console messages" toml:"json" env:"JSON" yaml:"json"`
	} `toml:"log" env:"LOG" yaml:"log"`
}

var logLevels = map[string]zerolog.Level{
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
}

// Loader initializes an empty config object and returns a new Loader for this object.
// Values come from defaults, <root>/ffibuild.toml and FFI_* environment variables, in that order.
func Loader(root string) (*Config, *aconfig.Loader) {
	cfg := Config{}
	return &cfg, aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix:        "FFI",
		SkipFlags:        true,
		AllowUnknownEnvs: true,
		Files:            []string{filepath.Join(root, FileName)},
		FileDecoders: map[string]aconfig.FileDecoder{
			".toml": aconfigtoml.New(),
		},
	})
}

// Load is a shortcut for Loader followed by Load and Validate
func Load(root string) (*Config, error) {
	cfg, loader := Loader(root)
	if err := loader.Load(); err != nil {
		return nil, eris.Wrapf(err, "failed to load configuration from %s", root)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate verifies that all config fields have valid values
func (cfg *Config) Validate() error {
	if cfg.Name == "" || filepath.Base(cfg.Name) != cfg.Name {
		return eris.Errorf(`Invalid value for name: %q (must be a bare file name)`, cfg.Name)
	}

	if cfg.ArtifactDir == "" {
		return eris.New(`Invalid value for artifact_dir: must not be empty`)
	}

	if cfg.Copy.Attempts < 1 {
		return eris.Errorf(`Invalid value for copy.attempts: %d (must be at least 1)`, cfg.Copy.Attempts)
	}

	_, ok := logLevels[cfg.Log.Level]
	if !ok {
		return eris.Errorf(`Invalid value for log.level: %s`, cfg.Log.Level)
	}

	return nil
}

// LogLevel converts the .Log.Level field to a zerolog.Level
func (cfg *Config) LogLevel() zerolog.Level {
	return logLevels[cfg.Log.Level]
}

// ToolNames returns the configured executables
func (cfg *Config) ToolNames() buildsys.Tools {
	return buildsys.Tools{
		Go:      cfg.Tools.Go,
		Dumpbin: cfg.Tools.Dumpbin,
		Dlltool: cfg.Tools.Dlltool,
		Cargo:   cfg.Tools.Cargo,
		Module:  cfg.Module,
	}
}

// TargetOptions returns the settings used to locate the Cargo profile directory
func (cfg *Config) TargetOptions() buildsys.TargetOptions {
	return buildsys.TargetOptions{
		Dir:      cfg.Target.Dir,
		Profile:  cfg.Target.Profile,
		Metadata: cfg.Target.Metadata,
		Cargo:    cfg.Tools.Cargo,
	}
}

// Paths resolves every artifact location. profileDir is the result of Runner.ResolveTargetDir.
func (cfg *Config) Paths(root, profileDir string) buildsys.Paths {
	artifactDir := cfg.ArtifactDir
	if !filepath.IsAbs(artifactDir) {
		artifactDir = filepath.Join(root, artifactDir)
	}

	aux := make([]string, 0, len(cfg.Target.Aux))
	for _, dir := range cfg.Target.Aux {
		if dir == "" {
			continue
		}
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(profileDir, dir)
		}
		aux = append(aux, filepath.Clean(dir))
	}

	return buildsys.Paths{
		Root:        root,
		ArtifactDir: filepath.Clean(artifactDir),
		Name:        cfg.Name,
		Primary:     profileDir,
		Aux:         aux,
	}
}

// NewBuilder resolves the target directory and returns a Builder wired to runner
func (cfg *Config) NewBuilder(ctx context.Context, root string, runner *buildsys.Runner) (*buildsys.Builder, error) {
	profileDir, err := runner.ResolveTargetDir(ctx, root, cfg.TargetOptions())
	if err != nil {
		return nil, err
	}

	b := buildsys.NewBuilder(cfg.Paths(root, profileDir), cfg.ToolNames(), runner)
	b.Attempts = cfg.Copy.Attempts
	b.Progress = cfg.Copy.Progress
	b.Downstream = cfg.Downstream.Build
	return b, nil
}
