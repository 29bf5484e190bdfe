package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/compiler"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
)

// batchFile is the input of the batch command.
//
//	formulas:
//	  - name: total
//	    expression: qty * price
type batchFile struct {
	Formulas []formula `yaml:"formulas"`
}

type formula struct {
	Name       string `yaml:"name"`
	Expression string `yaml:"expression"`
}

type batchResult struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type,omitempty"`
	Value string `yaml:"value,omitempty"`
	Error string `yaml:"error,omitempty"`
}

func newBatchCmd(s *settings) *cobra.Command {
	var (
		workers int
		strict  bool
	)
	cmd := &cobra.Command{
		Use:   "batch FILE",
		Short: "Evaluate the formulas of a YAML file concurrently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var in batchFile
			if err := yaml.Unmarshal(data, &in); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			ctx, err := s.context(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			results, err := runBatch(cmd.Context(), ctx, in.Formulas, workers, strict)
			if err != nil {
				return err
			}
			return writeResults(cmd.OutOrStdout(), results)
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "j", runtime.GOMAXPROCS(0), "formulas evaluated at once")
	cmd.Flags().BoolVar(&strict, "strict", false, "stop at the first failing formula")
	return cmd
}

// runBatch compiles and evaluates the formulas in ctx with at most workers
// running at once. Results keep the input order. Unless strict, a failing
// formula is reported in its result instead of stopping the batch.
func runBatch(parent context.Context, ctx *compiler.Context, formulas []formula, workers int, strict bool) ([]batchResult, error) {
	if parent == nil {
		parent = context.Background()
	}
	results := make([]batchResult, len(formulas))
	g, gctx := errgroup.WithContext(parent)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, f := range formulas {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r := batchResult{Name: f.Name}
			if r.Name == "" {
				r.Name = fmt.Sprintf("#%d", i+1)
			}
			expr, err := ctx.Compile(f.Expression)
			if err == nil {
				r.Type = types.Name(expr.ResultType())
				var v any
				if v, err = expr.Evaluate(); err == nil {
					r.Value = formatValue(v)
				}
			}
			if err != nil {
				if strict {
					return fmt.Errorf("%s: %w", r.Name, err)
				}
				r.Error = err.Error()
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func writeResults(w io.Writer, results []batchResult) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(results); err != nil {
		return err
	}
	return enc.Close()
}
