package buildsys

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// Runner executes external tools through the mvdan.cc/sh interpreter. Every call blocks until the
// tool exits.
type Runner struct {
	// Exec is invoked for every command. Tests replace it to avoid spawning real tools.
	Exec interp.ExecHandlerFunc
	// Env is passed to every command. Defaults to os.Environ().
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
	// DryRun only logs commands.
	DryRun bool
}

// NewRunner returns a Runner that executes real processes and forwards their output to the console
func NewRunner() *Runner {
	return &Runner{
		Exec:   interp.DefaultExecHandler(2 * time.Second),
		Env:    os.Environ(),
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

func (r *Runner) environ() []string {
	if r.Env == nil {
		return os.Environ()
	}
	return r.Env
}

func (r *Runner) getenv(name string) string {
	prefix := name + "="
	value := ""
	for _, item := range r.environ() {
		if strings.HasPrefix(item, prefix) {
			// later entries win, same as the interpreter
			value = item[len(prefix):]
		}
	}
	return value
}

// Run executes args in dir, streaming its output to r.Stdout.
func (r *Runner) Run(ctx context.Context, dir string, args ...string) error {
	return r.exec(ctx, dir, r.Stdout, r.DryRun, args)
}

// Output executes args in dir and returns everything the command wrote to stdout.
func (r *Runner) Output(ctx context.Context, dir string, args ...string) (string, error) {
	var buf bytes.Buffer
	err := r.exec(ctx, dir, &buf, r.DryRun, args)
	return buf.String(), err
}

// query is Output without dry-run handling; used for read-only commands whose result is
// needed to compute paths.
func (r *Runner) query(ctx context.Context, dir string, args ...string) (string, error) {
	var buf bytes.Buffer
	err := r.exec(ctx, dir, &buf, false, args)
	return buf.String(), err
}

func (r *Runner) exec(ctx context.Context, dir string, stdout io.Writer, dryRun bool, args []string) error {
	if len(args) == 0 {
		return eris.New("empty command")
	}

	call := buildCall(args)
	log(ctx).Info().
		Bool("command", true).
		Str("path", dir).
		Msg(formatCall(call))

	if dryRun {
		return nil
	}

	stderr := r.Stderr
	if stderr == nil {
		stderr = io.Discard
	}
	if stdout == nil {
		stdout = io.Discard
	}

	handler := r.Exec
	if handler == nil {
		handler = interp.DefaultExecHandler(2 * time.Second)
	}

	runner, err := interp.New(
		interp.Dir(dir),
		interp.Env(expand.ListEnviron(r.environ()...)),
		interp.ExecHandler(handler),
		interp.StdIO(nil, stdout, stderr),
		interp.Params("-e"),
	)
	if err != nil {
		return eris.Wrapf(err, "failed to initialize runner for %s", args[0])
	}

	err = runner.Run(ctx, &syntax.Stmt{Cmd: call})
	if err != nil {
		return eris.Wrapf(err, "%s failed", formatCall(call))
	}

	return nil
}

// shellSpecial lists the characters the interpreter would expand (globs, tilde, braces, parameters)
// or the printer would render ambiguously in an unquoted word.
const shellSpecial = " \t\n$'\"\\*?[]~{}|&;<>()`#!"

func buildCall(args []string) *syntax.CallExpr {
	call := new(syntax.CallExpr)
	call.Args = make([]*syntax.Word, len(args))

	for idx, arg := range args {
		var part syntax.WordPart
		if arg == "" || strings.ContainsAny(arg, shellSpecial) {
			part = &syntax.SglQuoted{Value: arg}
		} else {
			part = &syntax.Lit{Value: arg}
		}

		call.Args[idx] = &syntax.Word{Parts: []syntax.WordPart{part}}
	}

	return call
}

func formatCall(call *syntax.CallExpr) string {
	var buf strings.Builder
	printer := syntax.NewPrinter(syntax.Minify(true))
	if err := printer.Print(&buf, call); err != nil {
		// only reachable with a broken writer
		return "<unprintable command>"
	}
	return buf.String()
}
