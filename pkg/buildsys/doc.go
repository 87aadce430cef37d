// Package buildsys builds a Go c-shared library, derives a linker import library from its exports
// and stages the binary into the directories a Cargo project loads it from.
// External tools are executed through mvdan.cc/sh so every invocation can be logged, dry-run or
// replaced in tests.
package buildsys
