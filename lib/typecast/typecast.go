// Package typecast converts loosely-typed wire values into strongly-typed
// call arguments.
//
// Clients submit hook and action arguments as text (query parameters, form
// values) or as untyped JSON. A Signature declares what the target hook
// expects; Cast coerces every declared parameter that was supplied and drops
// everything else:
//
//	sig := typecast.Signature{
//	    {Name: "count", Kind: typecast.Int},
//	    {Name: "open", Kind: typecast.Bool},
//	}
//	args, err := typecast.Cast(map[string]any{"count": "3", "open": "1"}, sig)
//	// args == map[string]any{"count": 3, "open": true}
//
// Cast never substitutes a default for input it cannot parse; it returns an
// *InvalidArgumentTypeError naming the parameter and the expected kind.
package typecast

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// Kind is the declared type of a hook parameter.
type Kind string

const (
	String Kind = "string"
	Bool   Kind = "bool"
	Int    Kind = "int"
	Float  Kind = "float"
	// Array is a structured value: a JSON object or array.
	Array Kind = "array"
)

// Known reports whether Cast applies a coercion rule to k.
func (k Kind) Known() bool {
	switch k {
	case String, Bool, Int, Float, Array:
		return true
	}
	return false
}

// Param describes one declared parameter of a hook.
type Param struct {
	Name string
	Kind Kind

	// Optional parameters fall back to Default when neither the client nor
	// the resolver supplies a value.
	Optional bool
	Default  any
}

// Signature is the ordered parameter list of a hook.
type Signature []Param

// Lookup returns the parameter declared under name.
func (s Signature) Lookup(name string) (Param, bool) {
	for _, p := range s {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// Names returns the declared parameter names in order.
func (s Signature) Names() []string {
	names := make([]string, len(s))
	for i, p := range s {
		names[i] = p.Name
	}
	return names
}

// ErrInvalidArgumentType is matched by every coercion failure.
var ErrInvalidArgumentType = errors.New("typecast: invalid argument type")

// InvalidArgumentTypeError reports a raw value that cannot be coerced to the
// declared kind of its parameter.
type InvalidArgumentTypeError struct {
	Param string
	Kind  Kind
	Value any
	Err   error
}

func (e *InvalidArgumentTypeError) Error() string {
	msg := fmt.Sprintf("typecast: invalid argument type: parameter %q expects %s, got %T", e.Param, e.Kind, e.Value)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is makes errors.Is(err, ErrInvalidArgumentType) hold.
func (e *InvalidArgumentTypeError) Is(target error) bool {
	return target == ErrInvalidArgumentType
}

func (e *InvalidArgumentTypeError) Unwrap() error {
	return e.Err
}

// Cast coerces the values in raw that are declared in sig.
//
// Parameters missing from raw are not returned, and neither are raw values
// the signature does not declare. Parameters of an unknown kind are passed
// through unchanged.
func Cast(raw map[string]any, sig Signature) (map[string]any, error) {
	out := make(map[string]any, len(sig))
	for _, p := range sig {
		v, ok := raw[p.Name]
		if !ok {
			continue
		}
		cv, err := Value(p.Kind, v)
		if err != nil {
			return nil, &InvalidArgumentTypeError{Param: p.Name, Kind: p.Kind, Value: v, Err: err}
		}
		out[p.Name] = cv
	}
	return out, nil
}

// Value coerces a single raw value to kind. Unknown kinds pass through.
// The returned error is not wrapped in an InvalidArgumentTypeError; Cast adds
// the parameter name.
func Value(kind Kind, v any) (any, error) {
	switch kind {
	case Bool:
		return toBool(v)
	case Int:
		return toInt(v)
	case Float:
		return toFloat(v)
	case Array:
		return toStructured(v)
	default:
		return v, nil
	}
}

var errNotText = errors.New("unsupported value")

func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		switch b {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		}
		return false, fmt.Errorf("%q is not a boolean", b)
	}
	return false, errNotText
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case int32:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		if n < math.MinInt || n >= math.MaxInt {
			return 0, fmt.Errorf("%v is out of range", n)
		}
		return int(n), nil
	case json.Number:
		return strconv.Atoi(n.String())
	case string:
		return strconv.Atoi(n)
	}
	return 0, errNotText
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(n, 64)
	}
	return 0, errNotText
}

func toStructured(v any) (any, error) {
	switch s := v.(type) {
	case map[string]any, []any:
		return s, nil
	case string:
		return DecodeStructured([]byte(s))
	case []byte:
		return DecodeStructured(s)
	}
	return nil, errNotText
}

// DecodeStructured decodes a JSON object or array. Integral numbers decode
// to int, others to float64.
func DecodeStructured(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after structured value")
	}
	switch out.(type) {
	case map[string]any, []any:
	default:
		return nil, fmt.Errorf("expected object or array, got %T", out)
	}
	return normalizeNumbers(out), nil
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeNumbers(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = normalizeNumbers(e)
		}
		return t
	case json.Number:
		if i, err := strconv.Atoi(t.String()); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	}
	return v
}
