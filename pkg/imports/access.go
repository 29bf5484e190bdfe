package imports

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
)

// Get reads a field, property or constant. recv is the value the member is
// read from; it is ignored for constants.
func (m *Member) Get(recv any) (any, error) {
	switch m.Kind {
	case KindConstant:
		return m.Value, nil
	case KindField:
		return m.getField(recv)
	case KindProperty:
		return m.Call(recv, nil)
	}
	return nil, fmt.Errorf("%s %s has no value", m.Kind, m.Name)
}

func (m *Member) getField(recv any) (any, error) {
	rv := reflect.ValueOf(recv)
	if !rv.IsValid() {
		return nil, fmt.Errorf("read field %s: %w", m.Name, types.ErrNilReference)
	}
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("read field %s: %w", m.Name, types.ErrNilReference)
		}
		rv = rv.Elem()
	} else if !m.Exported {
		// unexported fields are read through their address
		addressable := reflect.New(rv.Type()).Elem()
		addressable.Set(rv)
		rv = addressable
	}

	fv, err := rv.FieldByIndexErr(m.Index)
	if err != nil {
		return nil, fmt.Errorf("read field %s: %w", m.Name, types.ErrNilReference)
	}
	if !fv.CanInterface() {
		fv = reflect.NewAt(fv.Type(), unsafe.Pointer(fv.UnsafeAddr())).Elem()
	}
	return fv.Interface(), nil
}

// Call invokes a method on recv or a function (recv is ignored). args must
// already have the parameter types; for a variadic callable the trailing
// arguments are passed one by one unless spread is false, in which case the
// last argument is the slice itself.
func (m *Member) Call(recv any, args []any, spread ...bool) (any, error) {
	var fn reflect.Value
	switch m.Kind {
	case KindFunction:
		fn = m.Func
	case KindMethod, KindProperty:
		rv := reflect.ValueOf(recv)
		if !rv.IsValid() || (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) && rv.IsNil() {
			return nil, fmt.Errorf("call %s: %w", m.Name, types.ErrNilReference)
		}
		fn = rv.MethodByName(m.Name)
		if !fn.IsValid() {
			return nil, fmt.Errorf("call %s: no such method on %s", m.Name, rv.Type())
		}
	default:
		return nil, fmt.Errorf("%s %s is not callable", m.Kind, m.Name)
	}

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		in[i] = valueFor(a, paramType(m.Sig, i))
	}

	var out []reflect.Value
	if m.Sig.IsVariadic() && len(spread) > 0 && !spread[0] {
		out = fn.CallSlice(in)
	} else {
		out = fn.Call(in)
	}

	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if m.Sig.Out(0) == types.ErrorInterface {
			if !out[0].IsNil() {
				return nil, out[0].Interface().(error)
			}
			return nil, nil
		}
		return out[0].Interface(), nil
	}
	if !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

func paramType(sig reflect.Type, i int) reflect.Type {
	n := sig.NumIn()
	if sig.IsVariadic() && i >= n-1 {
		return sig.In(n - 1).Elem()
	}
	return sig.In(i)
}

func valueFor(v any, t reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(t)
	}
	rv := reflect.ValueOf(v)
	if rv.Type() != t && rv.Type().ConvertibleTo(t) && t.Kind() != reflect.Interface {
		return rv.Convert(t)
	}
	return rv
}
