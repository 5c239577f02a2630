// Command prodplan schedules a week of production at minimum labor cost.
//
//	prodplan serve                       run the HTTP service
//	prodplan solve -i week.xlsx -o plan.xlsx
//	prodplan template -o week.xlsx       write a sample input workbook
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	service "github.com/okian/prodplan/internal/app"
	"github.com/okian/prodplan/internal/config"
	"github.com/okian/prodplan/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "prodplan",
		Short: "Weekly production scheduling at minimum labor cost",
		Long: `prodplan builds a mixed-integer model of a week of production: products with
daily demand, a production rate and regular and overtime unit costs, against
the plant's regular and overtime hours for Monday to Saturday. Surplus made on
one day is credited to the next. The cheapest integer schedule is returned.

Configuration is read from PRODPLAN_* environment variables and, when
PRODPLAN_CONFIG names one, a YAML file.`,
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd(), solveCmd(), templateCmd())
	return root
}

// setupLogging initializes the global logger with the configured format and
// level, writing to w.
func setupLogging(cfg *config.Config, w io.Writer) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	if err := logger.Configure(w, cfg.LogFormat); err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return fmt.Errorf("failed to set log level: %w", err)
	}
	return nil
}

// newService builds a service from cfg. extra options are applied last.
func newService(cfg *config.Config, log logger.Logger, extra ...service.Option) (*service.Service, error) {
	policy, err := cfg.CapacityPolicy()
	if err != nil {
		return nil, err
	}
	opts := []service.Option{
		service.WithLogger(log),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithSolveTimeout(cfg.SolveTimeout()),
		service.WithJobRetention(cfg.JobRetention),
		service.WithNodeLimit(cfg.NodeLimit),
		service.WithCapacityPolicy(policy),
		service.WithExcessWeight(cfg.ExcessWeight),
	}
	return service.New(append(opts, extra...)...), nil
}
