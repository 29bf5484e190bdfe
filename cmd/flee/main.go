// Command flee compiles and evaluates expressions from the command line.
//
//	flee eval 'Math.Round(a / 3.0, 2)' --var a=10
//	flee idents 'price * qty + tax'
//	flee dump 'if(a > 1, "big", "small")' --var a=2
//	flee batch formulas.yaml --vars vars.yaml
//	flee repl
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	flee "github.com/caiosm1005/outsystems-formula-flee"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/compiler"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/parser"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
)

type settings struct {
	varsFile      string
	vars          []string
	caseSensitive bool
	checked       bool
	asDoubles     bool
	ignoreCase    bool
	realLiteral   string
	dateFormat    string
	verbose       bool
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	s := &settings{}
	root := &cobra.Command{
		Use:           "flee",
		Short:         "Compile and evaluate typed expressions",
		Version:       flee.Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	f := root.PersistentFlags()
	f.StringVar(&s.varsFile, "vars", "", "YAML or JSON file of variables")
	f.StringArrayVar(&s.vars, "var", nil, "variable as name=expression, repeatable")
	f.BoolVar(&s.caseSensitive, "case-sensitive", false, "match names case-sensitively")
	f.BoolVar(&s.checked, "checked", false, "fail on integer overflow")
	f.BoolVar(&s.asDoubles, "integers-as-doubles", false, "type integer literals as double")
	f.BoolVar(&s.ignoreCase, "ignore-case", false, "compare strings ignoring case")
	f.StringVar(&s.realLiteral, "real-literal", "double", "type of real literals without suffix: double, single or decimal")
	f.StringVar(&s.dateFormat, "date-format", parser.DefaultDateTimeFormat, "format of #date# literals")
	f.BoolVarP(&s.verbose, "verbose", "v", false, "log compilation details to stderr")

	root.AddCommand(
		newEvalCmd(s),
		newIdentsCmd(s),
		newDumpCmd(s),
		newBatchCmd(s),
		newReplCmd(s),
	)
	return root
}

func (s *settings) options(stderr io.Writer) ([]compiler.Option, error) {
	realType, ok := types.BuiltinType(s.realLiteral)
	if !ok || (realType != types.Double && realType != types.Single && realType != types.Decimal) {
		return nil, fmt.Errorf("invalid --real-literal %q", s.realLiteral)
	}
	level := slog.LevelWarn
	if s.verbose {
		level = slog.LevelDebug
	}
	cmp := compiler.CompareOrdinal
	if s.ignoreCase {
		cmp = compiler.CompareIgnoreCase
	}
	return []compiler.Option{
		compiler.WithCaseSensitive(s.caseSensitive),
		compiler.WithChecked(s.checked),
		compiler.WithIntegersAsDoubles(s.asDoubles),
		compiler.WithRealLiteralType(realType),
		compiler.WithStringComparison(cmp),
		compiler.WithParserOptions(parser.WithDateTimeFormat(s.dateFormat)),
		compiler.WithLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))),
	}, nil
}

// context builds a compile context holding the variables of --vars and
// --var.
func (s *settings) context(stderr io.Writer) (*compiler.Context, error) {
	opts, err := s.options(stderr)
	if err != nil {
		return nil, err
	}
	ctx, err := flee.NewContext(nil, opts...)
	if err != nil {
		return nil, err
	}
	if s.varsFile != "" {
		vars, err := loadVarsFile(s.varsFile)
		if err != nil {
			return nil, err
		}
		if err := defineAll(ctx, vars); err != nil {
			return nil, err
		}
	}
	for _, kv := range s.vars {
		name, text, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --var %q: want name=expression", kv)
		}
		if err := setFromExpression(ctx, strings.TrimSpace(name), text); err != nil {
			return nil, err
		}
	}
	return ctx, nil
}

func newEvalCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "eval EXPRESSION",
		Short: "Evaluate an expression and print its value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := s.context(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			expr, err := ctx.Compile(args[0])
			if err != nil {
				return err
			}
			v, err := expr.Evaluate()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatValue(v))
			return nil
		},
	}
}

func newIdentsCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "idents EXPRESSION",
		Short: "List the names an expression needs defined",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := s.context(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			names, err := ctx.ParseIdentifiers(args[0])
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}

func newDumpCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "dump EXPRESSION",
		Short: "Print the result type and compiled program of an expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := s.context(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			expr, err := ctx.Compile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "; %s -> %s\n", expr.Text(), types.Name(expr.ResultType()))
			fmt.Fprint(out, expr.Program().Disassemble())
			return nil
		},
	}
}
