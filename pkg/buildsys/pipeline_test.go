package buildsys

import (
	"context"
	"io/ioutil"
	"reflect"
	"testing"
)

func TestBuildRunsStagesInOrder(t *testing.T) {
	fake := &fakeExec{handle: fakeToolchain(dumpbinFixture)}
	b := newTestBuilder(t, fake)
	writeFile(t, b.Paths.Source(), "package main\n")

	if err := b.Build(testContext()); err != nil {
		t.Fatal(err)
	}

	expect := []string{"go mod", "go build", "dumpbin /exports", "dlltool -d"}
	if !reflect.DeepEqual(fake.tools(), expect) {
		t.Errorf("ran %q, want %q", fake.tools(), expect)
	}

	def, err := ioutil.ReadFile(b.Paths.Def())
	if err != nil {
		t.Fatal(err)
	}
	if string(def) != "EXPORTS\nAddNumbers\nGoFunction" {
		t.Errorf("unexpected def file %q", def)
	}

	for _, dest := range append([]string{b.Paths.PrimaryLibrary()}, b.Paths.AuxLibraries()...) {
		data, err := ioutil.ReadFile(dest)
		if err != nil {
			t.Fatalf("library not staged at %s: %v", dest, err)
		}
		if string(data) != "MZ fake library" {
			t.Errorf("%s has content %q", dest, data)
		}
	}
}

func TestBuildSecondRunSkipsModInit(t *testing.T) {
	fake := &fakeExec{handle: fakeToolchain(dumpbinFixture)}
	b := newTestBuilder(t, fake)

	for i := 0; i < 2; i++ {
		if err := b.Build(testContext()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	inits := 0
	for _, tool := range fake.tools() {
		if tool == "go mod" {
			inits++
		}
	}
	if inits != 1 {
		t.Errorf("go mod init ran %d times", inits)
	}
}

func TestBuildStopsAtFirstFailure(t *testing.T) {
	fake := &fakeExec{handle: failOn("dumpbin", fakeToolchain(dumpbinFixture))}
	b := newTestBuilder(t, fake)

	requireKind(t, b.Build(testContext()), StageDef, KindSubprocess)

	expect := []string{"go mod", "go build", "dumpbin /exports"}
	if !reflect.DeepEqual(fake.tools(), expect) {
		t.Errorf("ran %q, want %q", fake.tools(), expect)
	}
	if exists(b.Paths.PrimaryLibrary()) {
		t.Error("library staged after a failed stage")
	}
}

func TestBuildDownstream(t *testing.T) {
	fake := &fakeExec{handle: fakeToolchain(dumpbinFixture)}
	b := newTestBuilder(t, fake)
	b.Downstream = true

	if err := b.Build(testContext()); err != nil {
		t.Fatal(err)
	}

	last := fake.calls[len(fake.calls)-1]
	if !reflect.DeepEqual(last.args, []string{"cargo", "build"}) || last.dir != b.Paths.Root {
		t.Errorf("expected cargo build in the project root, got %v", last)
	}
}

func TestBuildNeverDeletes(t *testing.T) {
	fake := &fakeExec{handle: fakeToolchain(dumpbinFixture)}
	b := newTestBuilder(t, fake)
	b.remove = func(path string) error {
		t.Errorf("build mode removed %s", path)
		return nil
	}

	if err := b.Build(testContext()); err != nil {
		t.Fatal(err)
	}
	for _, c := range fake.calls {
		if c.args[0] == "cargo" {
			t.Errorf("build mode ran %q", c.args)
		}
	}
}

func TestCleanNeverCompiles(t *testing.T) {
	fake := &fakeExec{handle: fakeToolchain(dumpbinFixture)}
	b := newTestBuilder(t, fake)

	if err := b.Clean(testContext()); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(fake.tools(), []string{"cargo clean"}) {
		t.Errorf("clean mode ran %q", fake.tools())
	}
}

func TestBuildDryRun(t *testing.T) {
	fake := &fakeExec{handle: fakeToolchain(dumpbinFixture)}
	b := newTestBuilder(t, fake)
	b.Runner.DryRun = true

	if err := b.Build(testContext()); err != nil {
		t.Fatal(err)
	}
	if len(fake.calls) != 0 {
		t.Errorf("dry run executed %q", fake.tools())
	}
	if exists(b.Paths.ArtifactDir) || exists(b.Paths.Primary) {
		t.Error("dry run touched the filesystem")
	}
}

func TestBuildHonorsCancellation(t *testing.T) {
	fake := &fakeExec{handle: fakeToolchain(dumpbinFixture)}
	b := newTestBuilder(t, fake)

	ctx, cancel := context.WithCancel(testContext())
	cancel()

	if err := b.Build(ctx); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(fake.calls) != 0 {
		t.Errorf("ran %q after cancellation", fake.tools())
	}
}
