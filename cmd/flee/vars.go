package main

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/compiler"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
)

// loadVarsFile reads a YAML (or JSON) mapping of variable names to values.
func loadVarsFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var vars map[string]any
	if err := yaml.Unmarshal(data, &vars); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return vars, nil
}

// defineAll defines vars in name order, mapping decoded YAML values onto
// the builtin types.
func defineAll(ctx *compiler.Context, vars map[string]any) error {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := normalize(vars[name])
		t := types.Object
		if v != nil {
			t = nil
		}
		if err := ctx.Variables().Define(name, t, v); err != nil {
			return err
		}
	}
	return nil
}

// normalize maps YAML ints onto int (int32) or long (int64). Other scalars
// are already builtin types; lists and mappings stay objects.
func normalize(v any) any {
	switch x := v.(type) {
	case int:
		if x >= math.MinInt32 && x <= math.MaxInt32 {
			return int32(x)
		}
		return int64(x)
	case uint64:
		return x
	case []any:
		for i := range x {
			x[i] = normalize(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = normalize(x[k])
		}
		return x
	}
	return v
}

// setFromExpression evaluates text in ctx and stores the value as name.
func setFromExpression(ctx *compiler.Context, name, text string) error {
	if name == "" {
		return fmt.Errorf("empty variable name in %q", text)
	}
	expr, err := ctx.Compile(text)
	if err != nil {
		return fmt.Errorf("variable %s: %w", name, err)
	}
	v, err := expr.Evaluate()
	if err != nil {
		return fmt.Errorf("variable %s: %w", name, err)
	}
	if ctx.Variables().Contains(name) {
		ctx.Variables().Remove(name)
	}
	return ctx.Variables().Define(name, expr.ResultType(), v)
}

// formatValue renders a result for the terminal.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", x)
	case types.Char:
		return fmt.Sprintf("'%c'", rune(x))
	case decimal.Decimal:
		return x.String() + "m"
	case time.Time:
		return "#" + x.Format(time.RFC3339) + "#"
	case time.Duration:
		return x.String()
	case float32:
		return fmt.Sprintf("%gf", x)
	case float64:
		s := fmt.Sprintf("%g", x)
		if !strings.ContainsAny(s, ".eEIN") {
			s += ".0"
		}
		return s
	}
	return fmt.Sprint(v)
}
