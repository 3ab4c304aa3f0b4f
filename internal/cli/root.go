// Package cli rxbench 命令行
package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/xinjiayu/rxgo"
	"github.com/xinjiayu/rxgo/internal/config"
	"github.com/xinjiayu/rxgo/internal/logging"
)

// RootOptions 全局参数，以及为子命令准备好的配置、日志和指标
type RootOptions struct {
	ConfigFile string
	Verbose    bool
	Metrics    bool

	Config *config.Config
	Log    zerolog.Logger

	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
}

// NewRootCommand 创建 rxbench 根命令
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "rxbench",
		Short: "Exercise RxGo schedulers and operators",
		Long: `rxbench runs reactive pipelines against the RxGo schedulers and reports
throughput and timing.

Configuration is read from --config (YAML), a .env file in the working
directory and RXGO_* environment variables, in increasing priority.
Command line flags override all of them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.prepare()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return opts.finish(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "path to YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log worker lifecycle at debug level")
	cmd.PersistentFlags().BoolVar(&opts.Metrics, "metrics", false, "collect scheduler metrics and print them at exit")

	cmd.AddCommand(NewRangeCommand(opts))
	cmd.AddCommand(NewPeriodicCommand(opts))

	return cmd
}

func (o *RootOptions) prepare() error {
	cfg, err := config.Load(o.ConfigFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}
	if o.Metrics {
		cfg.Metrics.Enabled = true
	}
	o.Config = cfg

	o.Log = logging.New(cfg.Log, "rxbench")
	rxgo.SetLogger(o.Log)

	if cfg.Metrics.Enabled {
		o.reader = sdkmetric.NewManualReader()
		o.provider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(o.reader))
	}
	return nil
}

func (o *RootOptions) finish(cmd *cobra.Command) error {
	if o.provider == nil {
		return nil
	}
	ctx := context.Background()
	if err := printMetrics(ctx, cmd.OutOrStdout(), o.reader); err != nil {
		return err
	}
	return o.provider.Shutdown(ctx)
}

// scheduler 按名称创建调度器，开启指标时包装为监控调度器
func (o *RootOptions) scheduler(name string) (rxgo.Scheduler, error) {
	sched, err := rxgo.SchedulerByName(name, rxgo.WithLogger(o.Log))
	if err != nil {
		return nil, err
	}
	if o.provider == nil {
		return sched, nil
	}
	meter := o.provider.Meter(o.Config.Metrics.Meter)
	return rxgo.NewMonitoredScheduler(sched, meter, attribute.String("scheduler", name))
}
