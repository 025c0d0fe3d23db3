package typecast

// Arg is a single resolved argument.
type Arg struct {
	Name  string
	Value any
}

// Args is an ordered list of resolved arguments, in signature order.
//
// The typed getters return the zero value when the argument is absent or has
// a different dynamic type; resolved arguments have already been coerced, so
// callers normally know what they get.
type Args []Arg

// Bind pairs values returned by a resolver with the signature they were
// resolved against. Extra values are ignored; missing values are omitted.
func Bind(sig Signature, values []any) Args {
	n := len(sig)
	if len(values) < n {
		n = len(values)
	}
	args := make(Args, 0, n)
	for i := 0; i < n; i++ {
		args = append(args, Arg{Name: sig[i].Name, Value: values[i]})
	}
	return args
}

// Has reports whether an argument named name is present.
func (a Args) Has(name string) bool {
	_, ok := a.Value(name)
	return ok
}

// Value returns the raw argument value.
func (a Args) Value(name string) (any, bool) {
	for _, arg := range a {
		if arg.Name == name {
			return arg.Value, true
		}
	}
	return nil, false
}

// Values returns the argument values in order.
func (a Args) Values() []any {
	out := make([]any, len(a))
	for i, arg := range a {
		out[i] = arg.Value
	}
	return out
}

// Map returns the arguments keyed by name.
func (a Args) Map() map[string]any {
	out := make(map[string]any, len(a))
	for _, arg := range a {
		out[arg.Name] = arg.Value
	}
	return out
}

func (a Args) String(name string) string {
	v, _ := a.Value(name)
	s, _ := v.(string)
	return s
}

func (a Args) Int(name string) int {
	v, _ := a.Value(name)
	n, _ := toInt(v)
	return n
}

func (a Args) Float(name string) float64 {
	v, _ := a.Value(name)
	f, _ := toFloat(v)
	return f
}

func (a Args) Bool(name string) bool {
	v, _ := a.Value(name)
	b, _ := v.(bool)
	return b
}

// Object returns a structured argument decoded as a JSON object.
func (a Args) Object(name string) map[string]any {
	v, _ := a.Value(name)
	m, _ := v.(map[string]any)
	return m
}

// List returns a structured argument decoded as a JSON array.
func (a Args) List(name string) []any {
	v, _ := a.Value(name)
	l, _ := v.([]any)
	return l
}
