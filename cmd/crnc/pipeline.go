package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bionetgo/crnc/internal/build"
	"github.com/bionetgo/crnc/internal/cache"
	"github.com/bionetgo/crnc/internal/sanitize"
	"github.com/bionetgo/crnc/pkg/model"
)

// compileOptions are the build-affecting flags shared by build, run and
// resume.
type compileOptions struct {
	modelPath string
	target    string
	variable  bool
	workspace string
	cacheDir  string
	retain    bool
}

// compiled is the outcome of the sanitize+generate+build pipeline stage.
type compiled struct {
	executable string
	model      *model.Model
	sanitized  *sanitize.Model
	engine     *build.Engine
	cache      *cache.Dir
}

// compile runs the front half of the pipeline: load and sanitize the
// model, prepare a workspace and drive the native toolchain.
func compile(ctx context.Context, logger *slog.Logger, opts compileOptions) (*compiled, error) {
	m, err := model.Load(opts.modelPath)
	if err != nil {
		return nil, err
	}

	sm, err := sanitize.Sanitize(m)
	if err != nil {
		return nil, err
	}

	engineOpts := build.Options{
		Dir:    opts.workspace,
		Retain: opts.retain,
		Logger: logger,
	}
	var objCache *cache.Dir
	if opts.cacheDir != "" {
		objCache, err = cache.Open(opts.cacheDir, logger)
		if err != nil {
			return nil, err
		}
		engineOpts.Cache = objCache
	}

	engine, err := build.New(engineOpts)
	if err != nil {
		closeCache(objCache)
		return nil, err
	}
	if err := engine.Prepare(sm, opts.variable); err != nil {
		closeCache(objCache)
		return nil, err
	}

	executable, err := engine.Build(ctx, opts.target)
	if err != nil {
		closeCache(objCache)
		return nil, err
	}

	logger.Info("solver built", "model", m.Name, "target", opts.target, "exe", executable)
	return &compiled{executable: executable, model: m, sanitized: sm, engine: engine, cache: objCache}, nil
}

// close releases the workspace (honoring retain) and the cache index.
func (c *compiled) close(logger *slog.Logger) {
	if err := c.engine.Clean(); err != nil {
		logger.Warn("workspace cleanup failed", "err", err)
	}
	closeCache(c.cache)
}

func closeCache(c *cache.Dir) {
	if c != nil {
		c.Close()
	}
}

// addCompileFlags registers the shared build flags on cmd.
func addCompileFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("model", "m", "", "Path to the model YAML document (required)")
	cmd.Flags().StringP("target", "t", "ssa", "Solver target: ssa or ode")
	cmd.Flags().Bool("variable", false, "Build with run-time overridable populations and parameters")
	cmd.Flags().String("workspace", "", "Build workspace directory (default: fresh temp dir)")
	cmd.Flags().String("cache", "", "Shared object-cache directory")
	cmd.Flags().Bool("retain", false, "Keep the build workspace for inspection")
	_ = cmd.MarkFlagRequired("model")
}

// compileOptionsFromFlags reads the shared build flags.
func compileOptionsFromFlags(cmd *cobra.Command) compileOptions {
	modelPath, _ := cmd.Flags().GetString("model")
	target, _ := cmd.Flags().GetString("target")
	variable, _ := cmd.Flags().GetBool("variable")
	workspace, _ := cmd.Flags().GetString("workspace")
	cacheDir, _ := cmd.Flags().GetString("cache")
	retain, _ := cmd.Flags().GetBool("retain")
	return compileOptions{
		modelPath: modelPath,
		target:    target,
		variable:  variable,
		workspace: workspace,
		cacheDir:  cacheDir,
		retain:    retain,
	}
}

// speciesNames extracts the sanitized species order for the runtime.
func speciesNames(sm *sanitize.Model) []string {
	names := make([]string, len(sm.Species))
	for i, s := range sm.Species {
		names[i] = s.Name
	}
	return names
}
