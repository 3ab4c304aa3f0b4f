package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// RangeOptions range 命令的参数
type RangeOptions struct {
	*RootOptions
	Sections  int
	Count     int
	Scheduler string
}

// RangeResult 一次 range 基准的结果
type RangeResult struct {
	Emitted int
	Elapsed time.Duration
}

// NewRangeCommand 创建 range 命令
func NewRangeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RangeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "range",
		Short: "Concatenate filtered ranges and count the results",
		Long: `Builds range(1, sections) and concat-maps every section onto
range(1, count) filtered to even values, then blocks on the total count.

Example:
  rxbench range --sections 10 --count 100000 --scheduler new_thread`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bench := opts.Config.Bench
			if cmd.Flags().Changed("sections") {
				bench.Sections = opts.Sections
			}
			if cmd.Flags().Changed("count") {
				bench.Count = opts.Count
			}
			if cmd.Flags().Changed("scheduler") {
				bench.Scheduler = opts.Scheduler
			}
			if bench.Sections < 1 || bench.Count < 1 {
				return fmt.Errorf("sections and count must be positive")
			}

			sched, err := opts.scheduler(bench.Scheduler)
			if err != nil {
				return err
			}

			opts.Log.Info().
				Int("sections", bench.Sections).
				Int("count", bench.Count).
				Str("scheduler", bench.Scheduler).
				Msg("range benchmark starting")

			res, err := RunRange(cmd.Context(), sched, bench.Sections, bench.Count)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "emitted: %d\n", res.Emitted)
			fmt.Fprintf(out, "elapsed: %s\n", res.Elapsed)
			if secs := res.Elapsed.Seconds(); secs > 0 {
				fmt.Fprintf(out, "ops/sec: %.0f\n", float64(res.Emitted)/secs)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Sections, "sections", 0, "number of concatenated inner ranges")
	cmd.Flags().IntVar(&opts.Count, "count", 0, "length of each inner range")
	cmd.Flags().StringVar(&opts.Scheduler, "scheduler", "", "immediate | current_thread | new_thread")

	return cmd
}
