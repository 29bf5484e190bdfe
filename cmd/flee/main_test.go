package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestEvalCmd(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"eval", "a * 2", "--var", "a=21"}, "42\n"},
		{[]string{"eval", `Strings.ToUpper("x") + "y"`}, "\"Xy\"\n"},
		{[]string{"eval", "1.5", "--real-literal", "decimal"}, "1.5m\n"},
		{[]string{"eval", "10 / 4.0"}, "2.5\n"},
		{[]string{"eval", `"A" = "a"`, "--ignore-case"}, "true\n"},
		{[]string{"eval", "#2024-03-15#", "--date-format", "yyyy-MM-dd"}, "#2024-03-15T00:00:00Z#\n"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			out, err := run(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestEvalCmd_Errors(t *testing.T) {
	_, err := run(t, "eval", "1 +")
	assert.ErrorIs(t, err, types.ErrSyntax)

	_, err = run(t, "eval", "1", "--real-literal", "int")
	assert.ErrorContains(t, err, "--real-literal")

	_, err = run(t, "eval", "a", "--var", "a")
	assert.ErrorContains(t, err, "name=expression")

	_, err = run(t, "eval", "2147483647 + 1", "--checked")
	assert.ErrorIs(t, err, types.ErrOverflow)
}

func TestEvalCmd_VarsFile(t *testing.T) {
	path := writeFile(t, "vars.yaml", "qty: 3\nprice: 2.5\nname: ann\nbig: 5000000000\n")
	out, err := run(t, "eval", "qty * price", "--vars", path)
	require.NoError(t, err)
	assert.Equal(t, "7.5\n", out)

	out, err = run(t, "eval", "big + 1", "--vars", path)
	require.NoError(t, err)
	assert.Equal(t, "5000000001\n", out)
}

func TestIdentsCmd(t *testing.T) {
	out, err := run(t, "idents", "x + Math.Max(y, x)", "--var", "y=1")
	require.NoError(t, err)
	assert.Equal(t, "x\n", out)
}

func TestDumpCmd(t *testing.T) {
	out, err := run(t, "dump", "a + 1", "--var", "a=1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "; a + 1 -> int\n"), out)
	assert.Contains(t, out, "0000")
}

func TestBatchCmd(t *testing.T) {
	path := writeFile(t, "formulas.yaml", `
formulas:
  - name: total
    expression: qty * 2
  - name: broken
    expression: qty +
  - expression: '"a" + "b"'
`)
	out, err := run(t, "batch", path, "--var", "qty=4", "-j", "2")
	require.NoError(t, err)

	var got []batchResult
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	require.Len(t, got, 3)
	assert.Equal(t, batchResult{Name: "total", Type: "int", Value: "8"}, got[0])
	assert.Equal(t, "broken", got[1].Name)
	assert.NotEmpty(t, got[1].Error)
	assert.Equal(t, batchResult{Name: "#3", Type: "string", Value: `"ab"`}, got[2])

	_, err = run(t, "batch", path, "--var", "qty=4", "--strict")
	assert.ErrorContains(t, err, "broken")
}

func TestRunBatch_Cancelled(t *testing.T) {
	s := &settings{realLiteral: "double", dateFormat: "dd/MM/yyyy"}
	ctx, err := s.context(&bytes.Buffer{})
	require.NoError(t, err)

	cctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = runBatch(cctx, ctx, []formula{{Expression: "1"}}, 1, false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHandleLine(t *testing.T) {
	s := &settings{realLiteral: "double", dateFormat: "dd/MM/yyyy"}
	ctx, err := s.context(&bytes.Buffer{})
	require.NoError(t, err)

	var out bytes.Buffer
	lines := []string{
		":set a = 20",
		"a + 1",
		":set a = 1.5",
		":vars",
		":type a * 2",
		":idents a + b",
		"a +",
		":unset a",
		":bogus",
	}
	for _, line := range lines {
		assert.False(t, handleLine(ctx, &out, line), line)
	}
	assert.True(t, handleLine(ctx, &out, ":quit"))

	got := out.String()
	assert.Contains(t, got, "21\n")
	assert.Contains(t, got, "double a = 1.5\n")
	assert.Contains(t, got, "double\n")
	assert.Contains(t, got, "b\n")
	assert.Contains(t, got, "error:")
	assert.Contains(t, got, "unknown command :bogus")
	assert.False(t, ctx.Variables().Contains("a"))
}

func TestComplete(t *testing.T) {
	s := &settings{realLiteral: "double", dateFormat: "dd/MM/yyyy", vars: []string{"price=1"}}
	ctx, err := s.context(&bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, []string{"1 + price"}, complete(ctx, "1 + pr"))
	assert.Contains(t, complete(ctx, "ma"), "Math")
	assert.Nil(t, complete(ctx, "1 + "))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, int32(3), normalize(3))
	assert.Equal(t, int64(5000000000), normalize(5000000000))
	assert.Equal(t, []any{int32(1), "x"}, normalize([]any{1, "x"}))
	assert.Equal(t, map[string]any{"n": int32(2)}, normalize(map[string]any{"n": 2}))
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "null"},
		{"hi", `"hi"`},
		{types.Char('x'), "'x'"},
		{decimal.RequireFromString("1.25"), "1.25m"},
		{2.0, "2.0"},
		{float32(1.5), "1.5f"},
		{int32(7), "7"},
		{90 * time.Second, "1m30s"},
		{time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "#2024-01-02T00:00:00Z#"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatValue(tt.in))
		})
	}
}
