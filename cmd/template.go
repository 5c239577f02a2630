package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okian/prodplan/internal/adapters/workbook"
	"github.com/okian/prodplan/internal/loadgen"
)

func templateCmd() *cobra.Command {
	var (
		output   string
		products int
		seed     uint64
	)
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write a sample input workbook with a random feasible week",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if ext := strings.ToLower(filepath.Ext(output)); ext != ".xlsx" {
				return fmt.Errorf("%w: %q (want .xlsx)", ErrUnsupportedFormat, ext)
			}
			in := loadgen.GenerateN(seed, 1, products)[0]

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create template: %w", err)
			}
			if err := workbook.WriteInput(f, in); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("write template: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s with %d products\n", output, len(in.Products))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "input.xlsx", "workbook to write")
	cmd.Flags().IntVar(&products, "products", loadgen.DefaultProducts, "number of products")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "generator seed")
	return cmd
}
