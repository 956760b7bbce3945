// Package build materializes a native solver workspace from the embedded
// template tree, injects generated model definitions and drives the native
// toolchain to produce a solver executable. One Engine owns one workspace
// for its lifetime; concurrent builds each get their own Engine.
package build

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/bionetgo/crnc/internal/sanitize"
	"github.com/bionetgo/crnc/internal/template"
)

// Targets are the solver flavors the template tree can produce.
var Targets = []string{"ssa", "ode"}

// dependencies are the external tools a build requires.
var dependencies = []string{"cc", "make"}

// MissingDependencies probes the host for the required toolchain and
// returns the names of tools not found. Callers use this to fail fast
// before preparing anything.
func MissingDependencies() []string {
	var missing []string
	for _, tool := range dependencies {
		if _, err := exec.LookPath(tool); err != nil {
			missing = append(missing, tool)
		}
	}
	return missing
}

// ObjectCache is the optional precompiled-object extension point. Objects
// always compile inside the engine's own workspace; a cache seeds shared
// dependency objects in before the build and promotes them out after, so
// concurrent engines never write the same object path. Absence of caching
// never changes build correctness.
type ObjectCache interface {
	// Seed copies cached objects into a workspace object directory
	// before a build, letting make skip recompiling them.
	Seed(objDir string) error

	// Record promotes the model-independent objects produced by a
	// successful build of target from objDir into the cache.
	// Implementations must serialize Seed and Record.
	Record(ctx context.Context, target, objDir string) error
}

// NopCache is the no-op ObjectCache.
type NopCache struct{}

func (NopCache) Seed(string) error                            { return nil }
func (NopCache) Record(context.Context, string, string) error { return nil }

// Options configures an Engine.
type Options struct {
	// Dir roots the workspace. Empty means a fresh temp directory.
	Dir string

	// Retain keeps the workspace on Clean, for debugging generated
	// source and build artifacts.
	Retain bool

	// Cache shares precompiled objects across builds. Nil means no cache.
	Cache ObjectCache

	Logger *slog.Logger
}

// Engine is the build orchestrator. Lifecycle: New (workspace allocated)
// -> Prepare (template materialized, definitions injected) -> Build ->
// Clean.
type Engine struct {
	workspace string
	retain    bool
	cache     ObjectCache
	logger    *slog.Logger

	prepared bool
	cleaned  bool
}

// New allocates a workspace directory for one build.
func New(opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cache := opts.Cache
	if cache == nil {
		cache = NopCache{}
	}

	dir := opts.Dir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "crnc-build-")
		if err != nil {
			return nil, &WorkspaceError{Op: "create", Path: "temp dir", Err: err}
		}
		dir = tmp
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &WorkspaceError{Op: "create", Path: dir, Err: err}
	}

	return &Engine{
		workspace: dir,
		retain:    opts.Retain,
		cache:     cache,
		logger:    logger,
	}, nil
}

// Workspace returns the workspace root.
func (e *Engine) Workspace() string { return e.workspace }

// TemplateDir returns the per-model template directory inside the workspace.
func (e *Engine) TemplateDir() string { return filepath.Join(e.workspace, "template") }

// Prepare copies the native template tree into the workspace, removes the
// placeholder definitions header and writes the generated one for sm.
func (e *Engine) Prepare(sm *sanitize.Model, variable bool) error {
	if err := materialize(e.workspace); err != nil {
		return &WorkspaceError{Op: "copy template", Path: e.workspace, Err: err}
	}

	defsPath := filepath.Join(e.TemplateDir(), template.DefinitionsFileName)
	if err := os.Remove(defsPath); err != nil {
		return &WorkspaceError{Op: "remove placeholder", Path: defsPath, Err: err}
	}
	if err := template.Compile(sm, variable).WriteFile(defsPath); err != nil {
		return &WorkspaceError{Op: "write definitions", Path: defsPath, Err: err}
	}

	e.prepared = true
	e.logger.Debug("workspace prepared", "dir", e.workspace, "model", sm.Name, "variable", variable)
	return nil
}

// Build invokes the native toolchain against the prepared workspace and
// returns the path of the solver executable. The toolchain probe runs
// first: a missing compiler fails before any process is spawned.
func (e *Engine) Build(ctx context.Context, target string) (string, error) {
	if !e.prepared {
		return "", fmt.Errorf("build requested before workspace preparation")
	}
	if !validTarget(target) {
		return "", fmt.Errorf("unknown solver target %q", target)
	}
	if missing := MissingDependencies(); len(missing) > 0 {
		return "", &ToolchainError{Missing: missing}
	}

	objDir := filepath.Join(e.workspace, "obj")
	outputDir := filepath.Join(e.workspace, "bin")
	if err := os.MkdirAll(objDir, 0o755); err != nil {
		return "", &WorkspaceError{Op: "create objects", Path: objDir, Err: err}
	}
	if err := e.cache.Seed(objDir); err != nil {
		// A failed seed only costs recompilation.
		e.logger.Warn("object cache seed failed", "err", err)
	}

	cmd := exec.CommandContext(ctx, "make",
		"-C", e.workspace,
		"simulation",
		"SOLVER="+target,
		"TEMPLATE_DIR="+e.TemplateDir(),
		"OBJ_DIR="+objDir,
		"OUTPUT_DIR="+outputDir,
	)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	e.logger.Debug("invoking toolchain", "target", target, "workspace", e.workspace)
	if err := cmd.Run(); err != nil {
		return "", &ToolchainError{Output: output.String(), Err: err}
	}

	if err := e.cache.Record(ctx, target, objDir); err != nil {
		// Cache bookkeeping failures never fail the build.
		e.logger.Warn("object cache record failed", "err", err)
	}

	return filepath.Join(outputDir, target), nil
}

// Clean removes the workspace. It is idempotent and a no-op when the
// engine was created with Retain.
func (e *Engine) Clean() error {
	if e.retain || e.cleaned {
		return nil
	}
	if err := os.RemoveAll(e.workspace); err != nil {
		return &WorkspaceError{Op: "clean", Path: e.workspace, Err: err}
	}
	e.cleaned = true
	return nil
}

func validTarget(target string) bool {
	for _, t := range Targets {
		if t == target {
			return true
		}
	}
	return false
}
