package build

import (
	"fmt"
	"strings"
)

// WorkspaceError reports a filesystem failure while preparing or cleaning
// a build workspace.
type WorkspaceError struct {
	Op   string
	Path string
	Err  error
}

func (e *WorkspaceError) Error() string {
	return fmt.Sprintf("workspace %s failed for %s: %v", e.Op, e.Path, e.Err)
}

func (e *WorkspaceError) Unwrap() error { return e.Err }

// ToolchainError reports a missing native toolchain or a failed compile.
// Output carries the toolchain's diagnostic text verbatim; it is the
// primary debugging aid for compile failures and is never summarized.
type ToolchainError struct {
	Missing []string // non-empty when required tools are absent
	Output  string
	Err     error
}

func (e *ToolchainError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("missing toolchain dependencies: %s", strings.Join(e.Missing, ", "))
	}
	if e.Output != "" {
		return fmt.Sprintf("native build failed: %v\n%s", e.Err, e.Output)
	}
	return fmt.Sprintf("native build failed: %v", e.Err)
}

func (e *ToolchainError) Unwrap() error { return e.Err }
