package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// PeriodicOptions periodic 命令的参数
type PeriodicOptions struct {
	*RootOptions
	Period    time.Duration
	Ticks     int
	Scheduler string
}

// NewPeriodicCommand 创建 periodic 命令
func NewPeriodicCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PeriodicOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "periodic",
		Short: "Run a periodic action and report per-tick drift",
		Long: `Schedules a periodic action on a worker and prints how far each tick
started from its ideal time initial + k*period.

Example:
  rxbench periodic --period 50ms --ticks 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bench := opts.Config.Bench
			if cmd.Flags().Changed("period") {
				bench.Period = opts.Period
			}
			if cmd.Flags().Changed("ticks") {
				bench.Ticks = opts.Ticks
			}
			if cmd.Flags().Changed("scheduler") {
				bench.Scheduler = opts.Scheduler
			}
			if bench.Period <= 0 || bench.Ticks < 1 {
				return fmt.Errorf("period and ticks must be positive")
			}

			sched, err := opts.scheduler(bench.Scheduler)
			if err != nil {
				return err
			}

			ticks, err := RunPeriodic(cmd.Context(), sched, bench.Period, bench.Ticks)
			out := cmd.OutOrStdout()
			var worst time.Duration
			for _, t := range ticks {
				fmt.Fprintf(out, "tick %d drift %s\n", t.Index, t.Drift)
				if t.Drift > worst {
					worst = t.Drift
				}
			}
			fmt.Fprintf(out, "max drift: %s\n", worst)
			return err
		},
	}

	cmd.Flags().DurationVar(&opts.Period, "period", 0, "interval between ticks")
	cmd.Flags().IntVar(&opts.Ticks, "ticks", 0, "number of ticks to run")
	cmd.Flags().StringVar(&opts.Scheduler, "scheduler", "", "immediate | current_thread | new_thread")

	return cmd
}
