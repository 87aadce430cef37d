package config

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/whatsmeow-ffi/build-tools/pkg/buildsys"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Name != "go_lib" || cfg.ArtifactDir != "go_lib" || cfg.Module != "whatsmeow-ffi" {
		t.Errorf("unexpected names %+v", cfg)
	}
	if cfg.Target.Profile != "debug" || !reflect.DeepEqual(cfg.Target.Aux, []string{"deps", "."}) {
		t.Errorf("unexpected target %+v", cfg.Target)
	}
	if cfg.Copy.Attempts != 5 {
		t.Errorf("attempts = %d", cfg.Copy.Attempts)
	}
	if cfg.Downstream.Build {
		t.Error("downstream build must be disabled by default")
	}
	if cfg.ToolNames() != buildsys.DefaultTools() {
		t.Errorf("tools = %+v", cfg.ToolNames())
	}
	if cfg.LogLevel() != zerolog.InfoLevel {
		t.Errorf("level = %v", cfg.LogLevel())
	}
}

func TestLoadFile(t *testing.T) {
	root := t.TempDir()
	content := "name = \"bridge\"\n\n[target]\nprofile = \"release\"\n"
	if err := ioutil.WriteFile(filepath.Join(root, FileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(root)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "bridge" {
		t.Errorf("name = %q", cfg.Name)
	}
	if cfg.Target.Profile != "release" {
		t.Errorf("profile = %q", cfg.Target.Profile)
	}
	if cfg.ArtifactDir != "go_lib" {
		t.Errorf("artifact dir default lost: %q", cfg.ArtifactDir)
	}
}

func validConfig(t *testing.T) *Config {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty name", func(c *Config) { c.Name = "" }},
		{"name with directory", func(c *Config) { c.Name = filepath.Join("a", "b") }},
		{"empty artifact dir", func(c *Config) { c.ArtifactDir = "" }},
		{"no attempts", func(c *Config) { c.Copy.Attempts = 0 }},
		{"unknown level", func(c *Config) { c.Log.Level = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestPaths(t *testing.T) {
	cfg := validConfig(t)
	root := t.TempDir()
	profile := filepath.Join(root, "target", "debug")
	abs := filepath.Join(root, "tests", "bin")
	cfg.Target.Aux = []string{"deps", ".", "", abs}

	paths := cfg.Paths(root, profile)

	if paths.ArtifactDir != filepath.Join(root, "go_lib") {
		t.Errorf("artifact dir = %s", paths.ArtifactDir)
	}
	if paths.Primary != profile {
		t.Errorf("primary = %s", paths.Primary)
	}

	expect := []string{filepath.Join(profile, "deps"), profile, abs}
	if !reflect.DeepEqual(paths.Aux, expect) {
		t.Errorf("aux = %q, want %q", paths.Aux, expect)
	}
}

func TestNewBuilder(t *testing.T) {
	cfg := validConfig(t)
	cfg.Copy.Attempts = 3
	cfg.Downstream.Build = true
	root := t.TempDir()

	logger := zerolog.Nop()
	ctx := buildsys.WithLogger(context.Background(), &logger)
	runner := &buildsys.Runner{Env: []string{"PATH="}}

	b, err := cfg.NewBuilder(ctx, root, runner)
	if err != nil {
		t.Fatal(err)
	}
	if b.Attempts != 3 || !b.Downstream {
		t.Errorf("settings not applied: attempts=%d downstream=%v", b.Attempts, b.Downstream)
	}
	if b.Paths.Primary != filepath.Join(root, "target", "debug") {
		t.Errorf("primary = %s", b.Paths.Primary)
	}
}
