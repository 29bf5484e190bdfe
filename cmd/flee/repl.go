package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/compiler"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
)

const (
	historyFile = ".flee_history"
	prompt      = "flee> "
)

const replHelp = `Enter an expression to evaluate it. Commands:
  :set NAME = EXPR   store the value of EXPR as variable NAME
  :unset NAME        remove variable NAME
  :vars              list variables
  :type EXPR         print the result type of EXPR
  :dump EXPR         print the compiled program of EXPR
  :idents EXPR       list the undefined names EXPR reads
  :help              show this help
  :quit              leave`

func newReplCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Evaluate expressions interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, err := s.context(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return runREPL(ctx, cmd.OutOrStdout())
		},
	}
}

func runREPL(ctx *compiler.Context, out io.Writer) error {
	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(func(line string) []string {
		return complete(ctx, line)
	})

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	fmt.Fprintln(out, "flee REPL, :help for commands")
	for {
		line, err := ln.Prompt(prompt)
		if err != nil {
			fmt.Fprintln(out)
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ln.AppendHistory(line)
		if exit := handleLine(ctx, out, line); exit {
			break
		}
	}

	if f, err := os.Create(histPath); err == nil {
		_, _ = ln.WriteHistory(f)
		_ = f.Close()
	}
	return nil
}

// handleLine runs one REPL line and reports whether the session ends.
func handleLine(ctx *compiler.Context, out io.Writer, line string) (exit bool) {
	if !strings.HasPrefix(line, ":") {
		printResult(ctx, out, line)
		return false
	}
	cmd, rest, _ := strings.Cut(line[1:], " ")
	rest = strings.TrimSpace(rest)
	switch cmd {
	case "q", "quit", "exit":
		return true
	case "h", "help":
		fmt.Fprintln(out, replHelp)
	case "set":
		name, text, ok := strings.Cut(rest, "=")
		if !ok {
			fmt.Fprintln(out, "usage: :set NAME = EXPR")
			return false
		}
		if err := setFromExpression(ctx, strings.TrimSpace(name), text); err != nil {
			fmt.Fprintln(out, "error:", err)
		}
	case "unset":
		ctx.Variables().Remove(rest)
	case "vars":
		for _, name := range ctx.Variables().Names() {
			v, _ := ctx.Variables().Get(name)
			t, _ := ctx.Variables().Type(name)
			fmt.Fprintf(out, "%s %s = %s\n", types.Name(t), name, formatValue(v))
		}
	case "type":
		if expr, err := ctx.Compile(rest); err != nil {
			fmt.Fprintln(out, "error:", err)
		} else {
			fmt.Fprintln(out, types.Name(expr.ResultType()))
		}
	case "dump":
		if expr, err := ctx.Compile(rest); err != nil {
			fmt.Fprintln(out, "error:", err)
		} else {
			fmt.Fprint(out, expr.Program().Disassemble())
		}
	case "idents":
		names, err := ctx.ParseIdentifiers(rest)
		if err != nil {
			fmt.Fprintln(out, "error:", err)
			return false
		}
		fmt.Fprintln(out, strings.Join(names, " "))
	default:
		fmt.Fprintf(out, "unknown command :%s, :help for commands\n", cmd)
	}
	return false
}

func printResult(ctx *compiler.Context, out io.Writer, text string) {
	expr, err := ctx.Compile(text)
	if err != nil {
		fmt.Fprintln(out, "error:", err)
		return
	}
	v, err := expr.Evaluate()
	if err != nil {
		fmt.Fprintln(out, "error:", err)
		return
	}
	fmt.Fprintln(out, formatValue(v))
}

// complete offers variable and root import names matching the word under
// the cursor.
func complete(ctx *compiler.Context, line string) []string {
	i := strings.LastIndexFunc(line, func(r rune) bool {
		return !(r == '_' || r == '.' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	})
	head, word := line[:i+1], line[i+1:]
	if word == "" {
		return nil
	}
	var out []string
	for _, name := range append(ctx.Variables().Names(), ctx.Imports().Names()...) {
		if strings.HasPrefix(strings.ToLower(name), strings.ToLower(word)) {
			out = append(out, head+name)
		}
	}
	return out
}
