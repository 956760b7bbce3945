package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bionetgo/crnc/internal/display"
	"github.com/bionetgo/crnc/internal/solver"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compile and run a simulation",
	Long: `Runs the full pipeline: sanitize the model, build the solver executable,
execute it under supervision and decode the trajectory results. Results are
written as YAML to stdout or to --out. A timed-out run that stopped cleanly
is reported as paused and its results can be fed to 'crnc resume'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(cmd)

		end, _ := cmd.Flags().GetFloat64("end")
		increment, _ := cmd.Flags().GetFloat64("increment")
		trajectories, _ := cmd.Flags().GetInt("trajectories")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		live, _ := cmd.Flags().GetBool("live")
		outPath, _ := cmd.Flags().GetString("out")
		vars, _ := cmd.Flags().GetStringToString("set")

		opts := compileOptionsFromFlags(cmd)
		if len(vars) > 0 {
			opts.variable = true
		}

		c, err := compile(cmd.Context(), logger, opts)
		if err != nil {
			return err
		}
		defer c.close(logger)

		params := solver.Params{
			Trajectories: trajectories,
			End:          end,
			Increment:    increment,
		}
		if params.End == 0 {
			params.End = c.model.Tspan.End
		}
		if params.Increment == 0 {
			params.Increment = c.model.Tspan.Increment
		}
		if cmd.Flags().Changed("seed") {
			seed, _ := cmd.Flags().GetInt64("seed")
			params.Seed = &seed
		}
		if opts.variable {
			overrides := make(map[string]any, len(vars))
			for k, v := range vars {
				overrides[k] = v
			}
			params.Overrides, err = solver.BuildOverrides(c.sanitized, overrides)
			if err != nil {
				return err
			}
		}

		runnerOpts := solver.RunnerOptions{
			Variable: opts.variable,
			Timeout:  timeout,
			Logger:   logger,
		}
		var term *display.Terminal
		if live {
			term = display.NewTerminal(os.Stderr, params.End)
			runnerOpts.Display = term
		}

		runner := solver.NewRunner(c.executable, speciesNames(c.sanitized), runnerOpts)
		results, err := runner.Run(cmd.Context(), params)
		if term != nil {
			term.Done()
		}
		if err != nil {
			return err
		}

		if results.Status == solver.Paused {
			logger.Info("run paused", "time_stopped", results.TimeStopped,
				"hint", "resume with 'crnc resume'")
		}
		return writeResults(results, outPath)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	addCompileFlags(runCmd)

	runCmd.Flags().Float64("end", 0, "End time (default: model timespan)")
	runCmd.Flags().Float64("increment", 0, "Sample spacing (default: model timespan)")
	runCmd.Flags().Int("trajectories", 1, "Number of trajectories")
	runCmd.Flags().Int64("seed", 0, "RNG seed (omit to let the solver choose)")
	runCmd.Flags().Duration("timeout", 0, "Abort/pause the run after this duration")
	runCmd.Flags().Bool("live", false, "Render live progress while the solver runs")
	runCmd.Flags().StringP("out", "o", "", "Write results YAML to this file instead of stdout")
	runCmd.Flags().StringToString("set", nil, "Variable overrides, e.g. --set X=100 --set k1=0.5")
}

// writeResults emits results YAML to path, or stdout when path is empty.
func writeResults(results *solver.Results, path string) error {
	data, err := yaml.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
