package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bionetgo/crnc/internal/solver"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Continue a paused single-trajectory run",
	Long: `Loads the results of a paused run, rebuilds the solver in variable mode,
simulates the remaining span from the paused populations and splices the
new segment onto the prior trajectory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(cmd)

		resultsPath, _ := cmd.Flags().GetString("results")
		end, _ := cmd.Flags().GetFloat64("end")
		increment, _ := cmd.Flags().GetFloat64("increment")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		outPath, _ := cmd.Flags().GetString("out")

		prior, err := loadResults(resultsPath)
		if err != nil {
			return err
		}
		if len(prior.Trajectories) != 1 {
			return solver.ErrMultiTrajectoryResume
		}

		// Resume always needs a variable build to inject the paused
		// populations as new initial conditions.
		opts := compileOptionsFromFlags(cmd)
		opts.variable = true

		c, err := compile(cmd.Context(), logger, opts)
		if err != nil {
			return err
		}
		defer c.close(logger)

		if increment == 0 && len(prior.Time) > 1 {
			increment = prior.Time[1] - prior.Time[0]
		}

		overrides, err := solver.BuildOverrides(c.sanitized, nil)
		if err != nil {
			return err
		}

		runner := solver.NewRunner(c.executable, speciesNames(c.sanitized), solver.RunnerOptions{
			Variable: true,
			Timeout:  timeout,
			Logger:   logger,
		})
		combined, err := runner.Resume(cmd.Context(), prior, solver.Params{
			Trajectories: 1,
			End:          end,
			Increment:    increment,
			Overrides:    overrides,
		})
		if err != nil {
			return err
		}

		logger.Info("resume finished", "status", combined.Status.String(),
			"time_stopped", combined.TimeStopped)
		return writeResults(combined, outPath)
	},
}

func init() {
	rootCmd.AddCommand(resumeCmd)
	addCompileFlags(resumeCmd)

	resumeCmd.Flags().String("results", "", "Results YAML of the paused run (required)")
	resumeCmd.Flags().Float64("end", 0, "New absolute end time (required)")
	resumeCmd.Flags().Float64("increment", 0, "Sample spacing (default: inferred from prior results)")
	resumeCmd.Flags().Duration("timeout", 0, "Abort/pause the resumed run after this duration")
	resumeCmd.Flags().StringP("out", "o", "", "Write combined results YAML to this file instead of stdout")
	_ = resumeCmd.MarkFlagRequired("results")
	_ = resumeCmd.MarkFlagRequired("end")
}

// loadResults reads a prior run's results YAML.
func loadResults(path string) (*solver.Results, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results file: %w", err)
	}
	var r solver.Results
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse results file: %w", err)
	}
	return &r, nil
}
