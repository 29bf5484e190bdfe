package overload_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/convert"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/overload"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
)

func candidate(name string, params ...reflect.Type) *overload.Candidate {
	return &overload.Candidate{Name: name, Params: params, Accessible: true, Value: name}
}

func TestResolve_PicksClosestOverload(t *testing.T) {
	i, d, f := types.Int32, types.Double, types.Single
	cands := []*overload.Candidate{
		candidate("III", i, i, i),
		candidate("UII", types.UInt32, i, i),
		candidate("FFD", f, f, d),
		candidate("DDD", d, d, d),
	}
	s := convert.New(nil)

	tests := []struct {
		name string
		args []reflect.Type
		want string
	}{
		{"exact ints", []reflect.Type{i, i, i}, "III"},
		{"byte widens to int", []reflect.Type{types.Byte, i, i}, "III"},
		{"uint first", []reflect.Type{types.UInt32, i, i}, "UII"},
		{"double last", []reflect.Type{i, i, d}, "FFD"},
		{"all doubles", []reflect.Type{d, d, d}, "DDD"},
		{"long first", []reflect.Type{types.Int64, i, i}, "FFD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := overload.Resolve("F", cands, tt.args, s)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Candidate.Value)
		})
	}
}

func TestResolve_Ambiguous(t *testing.T) {
	cands := []*overload.Candidate{
		candidate("A", types.Int64, types.Double),
		candidate("B", types.Double, types.Int64),
	}
	_, err := overload.Resolve("F", cands, []reflect.Type{types.Int32, types.Int32}, convert.New(nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrAmbiguousMatch))
	assert.Contains(t, err.Error(), "A(long, double)")
	assert.Contains(t, err.Error(), "B(double, long)")
}

func TestResolve_NoMatch(t *testing.T) {
	cands := []*overload.Candidate{candidate("A", types.Int32)}
	_, err := overload.Resolve("F", cands, []reflect.Type{types.String}, convert.New(nil))
	assert.ErrorIs(t, err, types.ErrUndefinedName)

	_, err = overload.Resolve("F", cands, nil, convert.New(nil))
	assert.ErrorIs(t, err, types.ErrUndefinedName)
}

func TestResolve_AccessDenied(t *testing.T) {
	hidden := candidate("hidden", types.Int32)
	hidden.Accessible = false
	_, err := overload.Resolve("F", []*overload.Candidate{hidden}, []reflect.Type{types.Int32}, convert.New(nil))
	assert.ErrorIs(t, err, types.ErrAccessDenied)

	// An accessible candidate wins even with a worse score.
	open := candidate("open", types.Double)
	m, err := overload.Resolve("F", []*overload.Candidate{hidden, open}, []reflect.Type{types.Int32}, convert.New(nil))
	require.NoError(t, err)
	assert.Equal(t, "open", m.Candidate.Value)
}

func TestResolve_Variadic(t *testing.T) {
	sum := &overload.Candidate{
		Name:       "Sum",
		Params:     []reflect.Type{types.String, reflect.TypeFor[[]float64]()},
		Variadic:   true,
		Accessible: true,
	}
	s := convert.New(nil)

	m, err := overload.Resolve("Sum", []*overload.Candidate{sum}, []reflect.Type{types.String, types.Int32, types.Double}, s)
	require.NoError(t, err)
	assert.True(t, m.Expanded)
	assert.InDelta(t, 5.0/3+overload.VariadicPenalty, m.Score, 1e-9)
	assert.Equal(t, types.Double, m.ParamType(1))
	assert.Equal(t, types.Double, m.ParamType(2))

	m, err = overload.Resolve("Sum", []*overload.Candidate{sum}, []reflect.Type{types.String}, s)
	require.NoError(t, err)
	assert.True(t, m.Expanded)

	m, err = overload.Resolve("Sum", []*overload.Candidate{sum}, []reflect.Type{types.String, reflect.TypeFor[[]float64]()}, s)
	require.NoError(t, err)
	assert.False(t, m.Expanded)

	fixed := candidate("fixed", types.String, types.Double)
	m, err = overload.Resolve("Sum", []*overload.Candidate{sum, fixed}, []reflect.Type{types.String, types.Double}, s)
	require.NoError(t, err)
	assert.Equal(t, "fixed", m.Candidate.Value)
}

func TestResolve_Extension(t *testing.T) {
	s := convert.New(nil)
	upper := &overload.Candidate{Name: "Upper", Params: []reflect.Type{types.String}, Extension: true, Accessible: true}
	pad := &overload.Candidate{Name: "Pad", Params: []reflect.Type{types.String, types.Int32}, Extension: true, Accessible: true}

	m, err := overload.Resolve("Upper", []*overload.Candidate{upper}, nil, s)
	require.NoError(t, err)
	assert.Equal(t, overload.EmptyExtensionScore, m.Score)

	m, err = overload.Resolve("Pad", []*overload.Candidate{pad}, []reflect.Type{types.Byte}, s)
	require.NoError(t, err)
	assert.Equal(t, float64(5), m.Score)
	assert.Equal(t, types.Int32, m.ParamType(0))
	assert.Equal(t, "Pad(int)", pad.Signature())
}
