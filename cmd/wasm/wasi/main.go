//go:build wasip1

// Command flee-wasm-wasi is the WASI (wasip1) entrypoint for use from any
// language that supports the WebAssembly System Interface.
//
// Protocol: single JSON object on stdin, single JSON object on stdout.
//
//	stdin:  { "expression": "<formula>", "variables": { "a": 1, ... } }
//	stdout: { "result": <any JSON value>, "type": "<type>" }   on success
//	        { "error":  "<message>" }                          on failure (exit code 1)
//
// JSON numbers arrive as double variables.
//
// Build:
//
//	GOOS=wasip1 GOARCH=wasm go build -o flee.wasm ./cmd/wasm/wasi/
//
// Usage with wasmtime CLI:
//
//	echo '{"expression":"a * 2","variables":{"a":21}}' | wasmtime flee.wasm
package main

import (
	"encoding/json"
	"os"

	flee "github.com/caiosm1005/outsystems-formula-flee"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
)

type request struct {
	Expression string         `json:"expression"`
	Variables  map[string]any `json:"variables"`
}

type response struct {
	Result any    `json:"result,omitempty"`
	Type   string `json:"type,omitempty"`
	Error  string `json:"error,omitempty"`
}

func writeResponse(r response, exitCode int) {
	_ = json.NewEncoder(os.Stdout).Encode(r)
	os.Exit(exitCode)
}

func main() {
	var req request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(response{Error: "invalid request JSON: " + err.Error()}, 1)
	}

	ctx, err := flee.NewContext(nil)
	if err != nil {
		writeResponse(response{Error: err.Error()}, 1)
	}
	for name, v := range req.Variables {
		t := types.Object
		if v != nil {
			t = nil
		}
		if err := ctx.Variables().Define(name, t, v); err != nil {
			writeResponse(response{Error: err.Error()}, 1)
		}
	}

	expr, err := ctx.Compile(req.Expression)
	if err != nil {
		writeResponse(response{Error: err.Error()}, 1)
	}
	result, err := expr.Evaluate()
	if err != nil {
		writeResponse(response{Error: err.Error()}, 1)
	}

	writeResponse(response{Result: result, Type: types.Name(expr.ResultType())}, 0)
}
