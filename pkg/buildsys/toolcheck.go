package buildsys

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"
)

// dlltoolAlternatives accept the same -d/-D/-l flags as dlltool
var dlltoolAlternatives = []string{"llvm-dlltool"}

// ToolRequirement describes an executable the pipeline depends on
type ToolRequirement struct {
	Name string
	// Alternatives satisfy the requirement as well when Name is missing. Resolve picks the same
	// alternative for the pipeline.
	Alternatives []string
	// Optional tools are reported but never fail the check.
	Optional bool
	Purpose  string
}

// Requirements lists the tools needed by Build and Clean. Cargo is only required when the
// downstream build is enabled since "cargo clean" is the only other user.
func (t Tools) Requirements(downstream bool) []ToolRequirement {
	return []ToolRequirement{
		{Name: t.Go, Purpose: "Go toolchain (c-shared build)"},
		{Name: t.Dumpbin, Purpose: "export table dump"},
		{Name: t.Dlltool, Alternatives: dlltoolAlternatives, Purpose: "import library generation"},
		{Name: t.Cargo, Optional: !downstream, Purpose: "Rust project build and clean"},
	}
}

// Resolve replaces a missing dlltool with the first available alternative. Tools that can't be
// found at all are left unchanged.
func (t Tools) Resolve(lookPath func(string) (string, error)) Tools {
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	if _, err := lookPath(t.Dlltool); err == nil {
		return t
	}

	for _, alt := range dlltoolAlternatives {
		if _, err := lookPath(alt); err == nil {
			t.Dlltool = alt
			break
		}
	}
	return t
}

// ToolStatus is the result of checking a single requirement
type ToolStatus struct {
	Requirement ToolRequirement
	// Found is the resolved path, empty if nothing matched.
	Found string
}

// CheckTools resolves every requirement with lookPath (exec.LookPath when nil). The returned error
// lists all missing required tools.
func CheckTools(requirements []ToolRequirement, lookPath func(string) (string, error)) ([]ToolStatus, error) {
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	var missing []ToolRequirement
	result := make([]ToolStatus, 0, len(requirements))

	for _, req := range requirements {
		status := ToolStatus{Requirement: req}
		for _, name := range append([]string{req.Name}, req.Alternatives...) {
			if path, err := lookPath(name); err == nil {
				status.Found = path
				break
			}
		}
		result = append(result, status)

		if status.Found == "" && !req.Optional {
			missing = append(missing, req)
		}
	}

	switch len(missing) {
	case 0:
		return result, nil
	case 1:
		req := missing[0]
		if req.Purpose == "" {
			return result, eris.Errorf("%s not found in PATH", req.Name)
		}
		return result, eris.Errorf("%s not found in PATH (needed for %s)", req.Name, req.Purpose)
	default:
		names := make([]string, len(missing))
		for idx, req := range missing {
			names[idx] = req.Name
			if req.Purpose != "" {
				names[idx] = fmt.Sprintf("%s (%s)", req.Name, req.Purpose)
			}
		}
		return result, eris.Errorf("missing required tools: %s", strings.Join(names, ", "))
	}
}
