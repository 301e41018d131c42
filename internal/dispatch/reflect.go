package dispatch

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"unicode"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// goNames returns the Go identifiers an operation name may refer to,
// most specific first. "to_upper" -> ToUpper, "empty?" -> Empty, IsEmpty,
// HasEmpty, "sort!" -> Sort. Names that cannot be identifiers yield nil.
func goNames(name string) []string {
	base := name
	predicate := false
	switch {
	case strings.HasSuffix(base, "?"):
		base = strings.TrimSuffix(base, "?")
		predicate = true
	case strings.HasSuffix(base, "!"):
		base = strings.TrimSuffix(base, "!")
	}
	if base == "" {
		return nil
	}
	for _, r := range base {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return nil
		}
	}

	var names []string
	add := func(n string) {
		for _, existing := range names {
			if existing == n {
				return
			}
		}
		names = append(names, n)
	}

	if isExported(base) {
		add(base)
	}
	camel := camelCase(base)
	if camel != "" {
		add(camel)
		if predicate {
			add("Is" + camel)
			add("Has" + camel)
		}
	}
	return names
}

func camelCase(s string) string {
	var b strings.Builder
	for _, part := range strings.Split(s, "_") {
		if part == "" {
			continue
		}
		runes := []rune(part)
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	out := b.String()
	if out == "" || unicode.IsDigit([]rune(out)[0]) {
		return ""
	}
	return out
}

func isExported(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

// findMethod looks up a method for name on v, falling back to the pointer
// method set of an addressable copy when v is not a pointer.
func findMethod(v reflect.Value, name string) (reflect.Value, bool) {
	names := goNames(name)
	for _, n := range names {
		if m := v.MethodByName(n); m.IsValid() {
			return m, true
		}
	}
	if v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		return reflect.Value{}, false
	}
	p := reflect.New(v.Type())
	p.Elem().Set(v)
	for _, n := range names {
		if m := p.MethodByName(n); m.IsValid() {
			return m, true
		}
	}
	return reflect.Value{}, false
}

// callMethod calls the bound method m with op's arguments, the block
// appended last, and unpacks its results.
func callMethod(m reflect.Value, recv any, op Operation) (any, error) {
	args := op.Args
	if op.Block != nil {
		args = append(append([]any(nil), op.Args...), op.Block)
	}

	mt := m.Type()
	numIn := mt.NumIn()
	if mt.IsVariadic() {
		if len(args) < numIn-1 {
			return nil, NewArgumentError(op.Name, recv,
				"wrong number of arguments (given %d, expected %d+)", len(args), numIn-1)
		}
	} else if len(args) != numIn {
		return nil, NewArgumentError(op.Name, recv,
			"wrong number of arguments (given %d, expected %d)", len(args), numIn)
	}

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		var pt reflect.Type
		if mt.IsVariadic() && i >= numIn-1 {
			pt = mt.In(numIn - 1).Elem()
		} else {
			pt = mt.In(i)
		}
		v, err := coerce(a, pt)
		if err != nil {
			return nil, NewArgumentError(op.Name, recv, "argument %d: %v", i+1, err)
		}
		in[i] = v
	}

	return unpackResults(m.Call(in))
}

// unpackResults maps a method's results onto (value, error).
// A trailing error result is returned unchanged.
func unpackResults(out []reflect.Value) (any, error) {
	if len(out) == 0 {
		return nil, nil
	}

	last := out[len(out)-1]
	if last.Type() == errorType {
		if !last.IsNil() {
			return nil, last.Interface().(error)
		}
		out = out[:len(out)-1]
	}

	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0].Interface(), nil
	default:
		vals := make([]any, len(out))
		for i, v := range out {
			vals[i] = v.Interface()
		}
		return vals, nil
	}
}

// readMember reads an exported struct field or an existing string-keyed
// map entry named name.
func readMember(v reflect.Value, name string) (any, bool) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		for _, n := range goNames(name) {
			f := v.FieldByName(n)
			if f.IsValid() && f.CanInterface() {
				return f.Interface(), true
			}
		}
	case reflect.Map:
		kt := v.Type().Key()
		if kt.Kind() != reflect.String {
			return nil, false
		}
		mv := v.MapIndex(reflect.ValueOf(name).Convert(kt))
		if mv.IsValid() {
			return mv.Interface(), true
		}
	}
	return nil, false
}

// coerce converts a to a value assignable to t.
//
// Beyond plain assignability it allows numeric conversions that lose no
// information, conversions between types of the same kind (string to a
// named string type), element-wise slice conversion, and Func to any
// convertible func type.
func coerce(a any, t reflect.Type) (reflect.Value, error) {
	if a == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("nil cannot be used as %s", t)
	}

	av := reflect.ValueOf(a)
	at := av.Type()
	if at.AssignableTo(t) {
		return av, nil
	}

	switch {
	case isNumberKind(at.Kind()) && isNumberKind(t.Kind()):
		if isFloatKind(at.Kind()) && !isFloatKind(t.Kind()) {
			f := av.Float()
			if f != math.Trunc(f) {
				return reflect.Value{}, fmt.Errorf("cannot use %v as %s without truncation", a, t)
			}
		}
		if overflows(av, t) {
			return reflect.Value{}, fmt.Errorf("%v overflows %s", a, t)
		}
		return av.Convert(t), nil

	case at.Kind() == t.Kind() && at.ConvertibleTo(t) && at.Kind() != reflect.Slice:
		return av.Convert(t), nil

	case at.Kind() == reflect.Slice && t.Kind() == reflect.Slice:
		out := reflect.MakeSlice(t, av.Len(), av.Len())
		for i := 0; i < av.Len(); i++ {
			ev, err := coerce(av.Index(i).Interface(), t.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			out.Index(i).Set(ev)
		}
		return out, nil
	}

	return reflect.Value{}, fmt.Errorf("cannot use %s as %s", at, t)
}

// overflows reports whether the number v is out of range for t.
func overflows(v reflect.Value, t reflect.Type) bool {
	z := reflect.Zero(t)
	switch {
	case isIntKind(v.Kind()):
		i := v.Int()
		switch {
		case isIntKind(t.Kind()):
			return z.OverflowInt(i)
		case isUintKind(t.Kind()):
			return i < 0 || z.OverflowUint(uint64(i))
		}
		return false

	case isUintKind(v.Kind()):
		u := v.Uint()
		switch {
		case isIntKind(t.Kind()):
			return u > math.MaxInt64 || z.OverflowInt(int64(u))
		case isUintKind(t.Kind()):
			return z.OverflowUint(u)
		}
		return false
	}

	f := v.Float()
	switch {
	case isIntKind(t.Kind()):
		return f < -(1<<63) || f >= 1<<63 || z.OverflowInt(int64(f))
	case isUintKind(t.Kind()):
		return f < 0 || f >= 1<<64 || z.OverflowUint(uint64(f))
	}
	return z.OverflowFloat(f)
}

func isNumberKind(k reflect.Kind) bool {
	return isIntKind(k) || isUintKind(k) || isFloatKind(k)
}

func isIntKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUintKind(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

func isFloatKind(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}
