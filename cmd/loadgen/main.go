// Command loadgen drives a running prodplan service with random feasible
// weeks and verifies every schedule it returns.
package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/prodplan/internal/loadgen"
	"github.com/okian/prodplan/pkg/logger"
)

const defaultRunTimeout = 10 * time.Minute

func main() {
	var (
		cfg        loadgen.Config
		runTimeout time.Duration
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "loadgen",
		Short: "Submit random weeks to a prodplan service and verify the schedules",
		Example: `  loadgen --jobs 1000 --workers 16 --url http://localhost:9080
  loadgen --jobs 50 --products 8 --duplicate-every 5 --output weeks.json`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(); err != nil {
				return err
			}
			if verbose {
				_ = logger.SetLevelString("debug")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, runTimeout)
			defer cancel()

			_, err := loadgen.Run(ctx, cfg)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", loadgen.DefaultBaseURL, "base URL of the service")
	f.IntVar(&cfg.Jobs, "jobs", loadgen.DefaultJobs, "number of weeks to submit")
	f.IntVar(&cfg.Products, "products", loadgen.DefaultProducts, "products per week")
	f.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*2, "concurrent clients")
	f.DurationVar(&cfg.Timeout, "timeout", loadgen.DefaultTimeout, "HTTP request timeout")
	f.DurationVar(&cfg.PollInterval, "poll", loadgen.DefaultPollInterval, "job poll interval")
	f.DurationVar(&cfg.JobTimeout, "job-timeout", loadgen.DefaultJobTimeout, "wait limit for one job")
	f.IntVar(&cfg.DuplicateEvery, "duplicate-every", 10, "resubmit every n-th job with its idempotency key; 0 disables")
	f.IntVar(&cfg.MaxRetries, "retries", loadgen.DefaultMaxRetries, "retries when the queue is full")
	f.Uint64Var(&cfg.Seed, "seed", uint64(time.Now().UnixNano()), "generator seed")
	f.StringVar(&cfg.OutputFile, "output", "", "save generated weeks to this JSON file")
	f.DurationVar(&runTimeout, "run-timeout", defaultRunTimeout, "limit for the whole run")
	f.BoolVar(&verbose, "verbose", false, "log each failing job")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
