package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/prodplan/internal/adapters/solver/simplex"
	service "github.com/okian/prodplan/internal/app"
	"github.com/okian/prodplan/internal/config"
	"github.com/okian/prodplan/internal/domain/solver"
	"github.com/okian/prodplan/pkg/logger"
)

type solveOptions struct {
	input     string
	output    string
	policy    string
	timeout   time.Duration
	dumpModel string
}

func solveCmd() *cobra.Command {
	var o solveOptions
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Solve one week from a workbook, JSON or YAML file",
		Example: `  prodplan solve -i data/input.xlsx -o data/output.xlsx
  prodplan solve -i week.yaml --policy bounded --timeout 5s -o plan.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			if err := setupLogging(cfg, cmd.ErrOrStderr()); err != nil {
				return err
			}
			return runSolve(cmd.Context(), cmd.OutOrStdout(), cfg, o)
		},
	}
	cmd.Flags().StringVarP(&o.input, "input", "i", "", "input week (.xlsx, .json, .yaml)")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "write the schedule (.xlsx, .json)")
	cmd.Flags().StringVar(&o.policy, "policy", "", "regular hours policy: exact or bounded (default from config)")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 0, "solve time limit (default from config)")
	cmd.Flags().StringVar(&o.dumpModel, "dump-model", "", "write the built model in LP format")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// runSolve solves the week in o.input, prints the report to w and writes the
// requested files. Flags override cfg.
func runSolve(ctx context.Context, w io.Writer, cfg *config.Config, o solveOptions) error {
	in, err := readInput(o.input)
	if err != nil {
		return err
	}

	if o.policy != "" {
		cfg.RegularCapacityPolicy = o.policy
	}
	if o.timeout > 0 {
		cfg.SolveTimeoutMS = int(o.timeout.Milliseconds())
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.Get()
	engine := simplex.New(
		simplex.WithNodeLimit(cfg.NodeLimit),
		simplex.WithTimeLimit(service.SearchBudget(cfg.SolveTimeout())),
		simplex.WithLogger(log.Named("simplex")),
	)
	svc, err := newService(cfg, log, service.WithEngineFactory(func() solver.Engine { return engine }))
	if err != nil {
		return err
	}

	out, solveErr := svc.Solve(ctx, in)

	if o.dumpModel != "" && engine.NumVariables() > 0 {
		if err := dumpModel(o.dumpModel, engine); err != nil {
			return err
		}
	}
	if solveErr != nil {
		printFailure(w, solveErr)
		return solveErr
	}

	printReport(w, out, engine.Stats())
	if o.output != "" {
		if err := writeOutput(o.output, out); err != nil {
			return err
		}
		log.Info(ctx, "schedule written", logger.String("path", o.output))
	}
	return nil
}

func dumpModel(path string, engine *simplex.Engine) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create model dump: %w", err)
	}
	if err := engine.WriteLP(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write model dump: %w", err)
	}
	return f.Close()
}
