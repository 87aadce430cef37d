package buildsys

import (
	"context"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"mvdan.cc/sh/v3/interp"
)

const dumpbinFixture = `Microsoft (R) COFF/PE Dumper Version 14.29.30133.0
Copyright (C) Microsoft Corporation.  All rights reserved.


Dump of file go_lib.dll

File Type: DLL

  Section contains the following exports for go_lib.dll

    00000000 characteristics
    FFFFFFFF time date stamp
        0.00 version
           1 ordinal base

    ordinal hint RVA      name

          1    0 000A1B20 AddNumbers
          2    1 000A1B60 GoFunction

  Summary

        1000 .bss
        1000 .data
`

func testContext() context.Context {
	logger := zerolog.Nop()
	return WithLogger(context.Background(), &logger)
}

type call struct {
	dir  string
	args []string
}

// fakeExec records every command and optionally simulates the tool.
type fakeExec struct {
	calls  []call
	handle func(hc interp.HandlerContext, args []string) error
}

func (f *fakeExec) exec(ctx context.Context, args []string) error {
	hc := interp.HandlerCtx(ctx)
	f.calls = append(f.calls, call{dir: hc.Dir, args: append([]string(nil), args...)})
	if f.handle != nil {
		return f.handle(hc, args)
	}
	return nil
}

func (f *fakeExec) tools() []string {
	result := make([]string, len(f.calls))
	for idx, c := range f.calls {
		result[idx] = c.args[0] + " " + c.args[1]
	}
	return result
}

// fakeToolchain behaves like go, dumpbin, dlltool and cargo would on success.
func fakeToolchain(dumpOutput string) func(interp.HandlerContext, []string) error {
	return func(hc interp.HandlerContext, args []string) error {
		switch args[0] {
		case "go":
			switch args[1] {
			case "mod":
				return ioutil.WriteFile(filepath.Join(hc.Dir, "go.mod"), []byte("module "+args[3]+"\n"), 0o644)
			case "build":
				return ioutil.WriteFile(filepath.Join(hc.Dir, args[4]), []byte("MZ fake library"), 0o755)
			}
		case "dumpbin":
			_, err := io.WriteString(hc.Stdout, dumpOutput)
			return err
		case "dlltool":
			return ioutil.WriteFile(filepath.Join(hc.Dir, args[6]), []byte("!<arch>\n"), 0o644)
		}
		return nil
	}
}

// failOn wraps handle and fails every command starting with tool.
func failOn(tool string, handle func(interp.HandlerContext, []string) error) func(interp.HandlerContext, []string) error {
	return func(hc interp.HandlerContext, args []string) error {
		if args[0] == tool {
			return eris.Errorf("%s: exit status 1", tool)
		}
		return handle(hc, args)
	}
}

func newTestBuilder(t *testing.T, fake *fakeExec) *Builder {
	t.Helper()

	root := t.TempDir()
	primary := filepath.Join(root, "target", "debug")
	paths := Paths{
		Root:        root,
		ArtifactDir: filepath.Join(root, "go_lib"),
		Name:        "go_lib",
		Primary:     primary,
		Aux:         []string{filepath.Join(primary, "deps"), primary},
	}

	runner := &Runner{Exec: fake.exec, Env: []string{"PATH=" + os.Getenv("PATH")}}
	b := NewBuilder(paths, DefaultTools(), runner)
	b.sleep = func(time.Duration) {}
	return b
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := ioutil.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func requireKind(t *testing.T, err error, stage string, kind Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error from %s, got nil", kind, stage)
	}

	stageErr, ok := err.(*StageError)
	if !ok {
		t.Fatalf("expected *StageError, got %T: %v", err, err)
	}
	if stageErr.Stage != stage || stageErr.Kind != kind {
		t.Fatalf("expected %s/%s, got %s/%s: %v", stage, kind, stageErr.Stage, stageErr.Kind, err)
	}
}
