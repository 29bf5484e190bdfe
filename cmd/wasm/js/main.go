//go:build js && wasm

// Command flee-wasm-js is the WebAssembly entrypoint for browser and Node.js.
//
// It exposes a global `flee` object with the following API:
//
//	flee.version()                        → string
//	flee.eval(expression, variablesJSON)  → resultJSON  (throws on error)
//	flee.identifiers(expression)          → [string]    (throws on error)
//	flee.compile(expression, typesJSON)   → { eval(variablesJSON) → resultJSON, type }  (throws on error)
//
// Variables are passed as a JSON object; JSON numbers arrive as doubles.
// compile takes a JSON object of sample values that fixes the variable
// types; each eval call then sets new values of the same types.
//
// Build:
//
//	GOOS=js GOARCH=wasm go build -o flee.wasm ./cmd/wasm/js/
//
// Usage in Node.js:
//
//	const f = await load()
//	console.log(JSON.parse(f.eval('a * 2', JSON.stringify({a: 21})))) // 42
package main

import (
	"encoding/json"
	"fmt"
	"reflect"
	"syscall/js"

	flee "github.com/caiosm1005/outsystems-formula-flee"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/compiler"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
)

// jsThrow panics with a JS Error so the caller receives a thrown exception.
func jsThrow(msg string) {
	js.Global().Get("Error").New(msg)
	panic(msg)
}

func decodeVars(fn, s string) map[string]any {
	vars := map[string]any{}
	if s == "" {
		return vars
	}
	if err := json.Unmarshal([]byte(s), &vars); err != nil {
		jsThrow(fmt.Sprintf("%s: invalid variables JSON: %v", fn, err))
	}
	return vars
}

func encodeResult(fn string, v any) string {
	out, err := json.Marshal(v)
	if err != nil {
		jsThrow(fmt.Sprintf("%s: marshal result: %v", fn, err))
	}
	return string(out)
}

func stringArg(args []js.Value, i int) string {
	if i < len(args) && args[i].Type() == js.TypeString {
		return args[i].String()
	}
	return ""
}

// jsEval implements flee.eval(expression, variablesJSON) → resultJSON.
func jsEval(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		jsThrow("flee.eval requires an expression")
	}
	result, err := flee.Eval(args[0].String(), decodeVars("flee.eval", stringArg(args, 1)))
	if err != nil {
		jsThrow(fmt.Sprintf("flee.eval: %v", err))
	}
	return encodeResult("flee.eval", result)
}

// jsIdentifiers implements flee.identifiers(expression) → [string].
func jsIdentifiers(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		jsThrow("flee.identifiers requires an expression")
	}
	names, err := flee.ParseIdentifiers(args[0].String())
	if err != nil {
		jsThrow(fmt.Sprintf("flee.identifiers: %v", err))
	}
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = n
	}
	return js.ValueOf(out)
}

// jsCompile implements flee.compile(expression, typesJSON).
func jsCompile(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		jsThrow("flee.compile requires an expression")
	}
	ctx, err := flee.NewContext(nil)
	if err != nil {
		jsThrow(fmt.Sprintf("flee.compile: %v", err))
	}
	for name, v := range decodeVars("flee.compile", stringArg(args, 1)) {
		if err := ctx.Variables().Define(name, sampleType(v), v); err != nil {
			jsThrow(fmt.Sprintf("flee.compile: %v", err))
		}
	}
	expr, err := ctx.Compile(args[0].String())
	if err != nil {
		jsThrow(fmt.Sprintf("flee.compile: %v", err))
	}

	evalFn := js.FuncOf(func(_ js.Value, inner []js.Value) any {
		return evalCompiled(expr, stringArg(inner, 0))
	})
	return js.ValueOf(map[string]any{
		"eval": evalFn,
		"type": types.Name(expr.ResultType()),
	})
}

// sampleType is nil (take the type of the value) except for null samples,
// which make object variables.
func sampleType(v any) reflect.Type {
	if v == nil {
		return types.Object
	}
	return nil
}

func evalCompiled(expr *compiler.Expression, varsJSON string) any {
	vars := expr.Context().Variables()
	for name, v := range decodeVars("compiled.eval", varsJSON) {
		if err := vars.Set(name, v); err != nil {
			jsThrow(fmt.Sprintf("compiled.eval: %v", err))
		}
	}
	r, err := expr.Evaluate()
	if err != nil {
		jsThrow(fmt.Sprintf("compiled.eval: %v", err))
	}
	return encodeResult("compiled.eval", r)
}

func main() {
	api := map[string]any{
		"eval":        js.FuncOf(jsEval),
		"identifiers": js.FuncOf(jsIdentifiers),
		"compile":     js.FuncOf(jsCompile),
		"version": js.FuncOf(func(_ js.Value, _ []js.Value) any {
			return flee.Version()
		}),
	}
	js.Global().Set("flee", js.ValueOf(api))

	// Block forever: the JS event loop owns execution from here.
	select {}
}
