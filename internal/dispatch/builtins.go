package dispatch

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Builtins returns the registry of extensions available to every chain:
// text transforms for strings, enumerable operations for slices and maps,
// and word aliases for the arithmetic operators.
func Builtins() *Registry {
	return builtins
}

var builtins = NewRegistry(map[string]Extension{
	"upcase":     textExt("upcase", func(s string) string { return cases.Upper(language.Und).String(s) }),
	"upper":      textExt("upper", func(s string) string { return cases.Upper(language.Und).String(s) }),
	"downcase":   textExt("downcase", func(s string) string { return cases.Lower(language.Und).String(s) }),
	"lower":      textExt("lower", func(s string) string { return cases.Lower(language.Und).String(s) }),
	"capitalize": textExt("capitalize", capitalize),
	"titleize":   textExt("titleize", func(s string) string { return cases.Title(language.Und).String(s) }),
	"strip":      textExt("strip", strings.TrimSpace),
	"normalize":  textExt("normalize", norm.NFC.String),

	"reverse":   reverseExt,
	"length":    lengthExt("length"),
	"size":      lengthExt("size"),
	"empty?":    emptyExt,
	"split":     splitExt,
	"chars":     charsExt,
	"join":      joinExt,
	"first":     endExt("first", true),
	"last":      endExt("last", false),
	"include?":  includeExt,
	"sum":       sumExt,
	"sort":      sortExt,
	"keys":      keysExt,
	"values":    valuesExt,
	"count":     countExt,
	"map":       mapExt,
	"select":    filterExt("select", true),
	"filter":    filterExt("filter", true),
	"reject":    filterExt("reject", false),
	"to_s":      toSExt,
	"to_i":      toIExt,
	"nil?":      nilExt,
	"add":       operatorAlias("add", "+"),
	"subtract":  operatorAlias("subtract", "-"),
	"multiply":  operatorAlias("multiply", "*"),
	"divide":    operatorAlias("divide", "/"),
	"modulo":    operatorAlias("modulo", "%"),
	"pow":       operatorAlias("pow", "**"),
	"negate":    operatorAlias("negate", "-@"),
})

func wantArgs(name string, recv any, args []any, lo, hi int) error {
	if len(args) < lo || len(args) > hi {
		if lo == hi {
			return NewArgumentError(name, recv, "wrong number of arguments (given %d, expected %d)", len(args), lo)
		}
		return NewArgumentError(name, recv, "wrong number of arguments (given %d, expected %d..%d)", len(args), lo, hi)
	}
	return nil
}

func asString(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.String {
		return "", false
	}
	return rv.String(), true
}

func asSeq(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	return toAnySlice(rv), true
}

func textExt(name string, fn func(string) string) Extension {
	return func(recv any, args []any, _ Func) (any, error) {
		s, ok := asString(recv)
		if !ok {
			return nil, errNotApplicable
		}
		if err := wantArgs(name, recv, args, 0, 0); err != nil {
			return nil, err
		}
		return fn(s), nil
	}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return cases.Upper(language.Und).String(string(r)) + cases.Lower(language.Und).String(s[size:])
}

func reverseExt(recv any, args []any, _ Func) (any, error) {
	if err := wantArgs("reverse", recv, args, 0, 0); err != nil {
		return nil, err
	}
	if s, ok := asString(recv); ok {
		runes := []rune(s)
		slices.Reverse(runes)
		return string(runes), nil
	}
	if elems, ok := asSeq(recv); ok {
		slices.Reverse(elems)
		return elems, nil
	}
	return nil, errNotApplicable
}

func length(recv any) (int, bool) {
	if s, ok := asString(recv); ok {
		return utf8.RuneCountInString(s), true
	}
	if recv == nil {
		return 0, false
	}
	rv := reflect.ValueOf(recv)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len(), true
	}
	return 0, false
}

func lengthExt(name string) Extension {
	return func(recv any, args []any, _ Func) (any, error) {
		n, ok := length(recv)
		if !ok {
			return nil, errNotApplicable
		}
		if err := wantArgs(name, recv, args, 0, 0); err != nil {
			return nil, err
		}
		return n, nil
	}
}

func emptyExt(recv any, args []any, _ Func) (any, error) {
	n, ok := length(recv)
	if !ok {
		return nil, errNotApplicable
	}
	if err := wantArgs("empty?", recv, args, 0, 0); err != nil {
		return nil, err
	}
	return n == 0, nil
}

func splitExt(recv any, args []any, _ Func) (any, error) {
	s, ok := asString(recv)
	if !ok {
		return nil, errNotApplicable
	}
	if err := wantArgs("split", recv, args, 0, 1); err != nil {
		return nil, err
	}
	var parts []string
	if len(args) == 0 {
		parts = strings.Fields(s)
	} else {
		sep, ok := asString(args[0])
		if !ok {
			return nil, NewOperandError("split", recv, args[0])
		}
		parts = strings.Split(s, sep)
	}
	out := make([]any, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return out, nil
}

func charsExt(recv any, args []any, _ Func) (any, error) {
	s, ok := asString(recv)
	if !ok {
		return nil, errNotApplicable
	}
	if err := wantArgs("chars", recv, args, 0, 0); err != nil {
		return nil, err
	}
	out := make([]any, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out, nil
}

func joinExt(recv any, args []any, _ Func) (any, error) {
	elems, ok := asSeq(recv)
	if !ok {
		return nil, errNotApplicable
	}
	if err := wantArgs("join", recv, args, 0, 1); err != nil {
		return nil, err
	}
	sep := ""
	if len(args) == 1 {
		if sep, ok = asString(args[0]); !ok {
			return nil, NewOperandError("join", recv, args[0])
		}
	}
	parts := make([]string, len(elems))
	for i, e := range elems {
		parts[i] = toS(e)
	}
	return strings.Join(parts, sep), nil
}

// endExt implements first/last: with no argument the end element (nil
// when empty), with n the first or last n elements.
func endExt(name string, front bool) Extension {
	return func(recv any, args []any, _ Func) (any, error) {
		var elems []any
		s, isStr := asString(recv)
		switch {
		case isStr:
			for _, r := range s {
				elems = append(elems, string(r))
			}
		default:
			var ok bool
			if elems, ok = asSeq(recv); !ok {
				return nil, errNotApplicable
			}
		}
		if err := wantArgs(name, recv, args, 0, 1); err != nil {
			return nil, err
		}

		if len(args) == 0 {
			if len(elems) == 0 {
				return nil, nil
			}
			if front {
				return elems[0], nil
			}
			return elems[len(elems)-1], nil
		}

		n, ok := intArg(args[0])
		if !ok || n < 0 {
			return nil, NewArgumentError(name, recv, "count must be a non-negative integer")
		}
		n = min(n, len(elems))
		var part []any
		if front {
			part = elems[:n]
		} else {
			part = elems[len(elems)-n:]
		}
		if isStr {
			var b strings.Builder
			for _, p := range part {
				b.WriteString(p.(string))
			}
			return b.String(), nil
		}
		return append([]any{}, part...), nil
	}
}

func includeExt(recv any, args []any, _ Func) (any, error) {
	if recv == nil {
		return nil, errNotApplicable
	}
	if s, ok := asString(recv); ok {
		if err := wantArgs("include?", recv, args, 1, 1); err != nil {
			return nil, err
		}
		sub, ok := asString(args[0])
		if !ok {
			return nil, NewOperandError("include?", recv, args[0])
		}
		return strings.Contains(s, sub), nil
	}
	if elems, ok := asSeq(recv); ok {
		if err := wantArgs("include?", recv, args, 1, 1); err != nil {
			return nil, err
		}
		return slices.ContainsFunc(elems, func(e any) bool { return Equal(e, args[0]) }), nil
	}
	rv := reflect.ValueOf(recv)
	if rv.Kind() == reflect.Map {
		if err := wantArgs("include?", recv, args, 1, 1); err != nil {
			return nil, err
		}
		k, err := coerce(args[0], rv.Type().Key())
		if err != nil {
			return false, nil
		}
		return rv.MapIndex(k).IsValid(), nil
	}
	return nil, errNotApplicable
}

func sumExt(recv any, args []any, _ Func) (any, error) {
	elems, ok := asSeq(recv)
	if !ok {
		return nil, errNotApplicable
	}
	if err := wantArgs("sum", recv, args, 0, 1); err != nil {
		return nil, err
	}
	var acc any = 0
	if len(args) == 1 {
		acc = args[0]
	}
	op := Operation{Name: "+"}
	for _, e := range elems {
		if !isNumber(acc) || !isNumber(e) {
			return nil, NewOperandError("sum", recv, e)
		}
		var err error
		if acc, err = arith("+", acc, e, op); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func sortExt(recv any, args []any, _ Func) (any, error) {
	elems, ok := asSeq(recv)
	if !ok {
		return nil, errNotApplicable
	}
	if err := wantArgs("sort", recv, args, 0, 0); err != nil {
		return nil, err
	}
	var sortErr error
	slices.SortStableFunc(elems, func(a, b any) int {
		switch {
		case isNumber(a) && isNumber(b):
			c, _ := compareNumbers(a, b)
			return c
		case isString(a) && isString(b):
			return strings.Compare(reflect.ValueOf(a).String(), reflect.ValueOf(b).String())
		}
		if sortErr == nil {
			sortErr = NewOperandError("sort", a, b)
		}
		return 0
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return elems, nil
}

// sortedKeys returns a map's keys ordered by their string form.
func sortedKeys(rv reflect.Value) []reflect.Value {
	keys := rv.MapKeys()
	slices.SortFunc(keys, func(a, b reflect.Value) int {
		return strings.Compare(fmt.Sprint(a.Interface()), fmt.Sprint(b.Interface()))
	})
	return keys
}

func keysExt(recv any, args []any, _ Func) (any, error) {
	if recv == nil || reflect.ValueOf(recv).Kind() != reflect.Map {
		return nil, errNotApplicable
	}
	if err := wantArgs("keys", recv, args, 0, 0); err != nil {
		return nil, err
	}
	keys := sortedKeys(reflect.ValueOf(recv))
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = k.Interface()
	}
	return out, nil
}

func valuesExt(recv any, args []any, _ Func) (any, error) {
	if recv == nil || reflect.ValueOf(recv).Kind() != reflect.Map {
		return nil, errNotApplicable
	}
	if err := wantArgs("values", recv, args, 0, 0); err != nil {
		return nil, err
	}
	rv := reflect.ValueOf(recv)
	keys := sortedKeys(rv)
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = rv.MapIndex(k).Interface()
	}
	return out, nil
}

func countExt(recv any, args []any, block Func) (any, error) {
	elems, ok := asSeq(recv)
	if !ok {
		return nil, errNotApplicable
	}
	if err := wantArgs("count", recv, args, 0, 0); err != nil {
		return nil, err
	}
	if block == nil {
		return len(elems), nil
	}
	n := 0
	for _, e := range elems {
		keep, err := block(e)
		if err != nil {
			return nil, err
		}
		if Truthy(keep) {
			n++
		}
	}
	return n, nil
}

func mapExt(recv any, args []any, block Func) (any, error) {
	elems, ok := asSeq(recv)
	if !ok {
		return nil, errNotApplicable
	}
	if err := wantArgs("map", recv, args, 0, 0); err != nil {
		return nil, err
	}
	if block == nil {
		return nil, NewArgumentError("map", recv, "no block given")
	}
	out := make([]any, len(elems))
	for i, e := range elems {
		v, err := block(e)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func filterExt(name string, keep bool) Extension {
	return func(recv any, args []any, block Func) (any, error) {
		elems, ok := asSeq(recv)
		if !ok {
			return nil, errNotApplicable
		}
		if err := wantArgs(name, recv, args, 0, 0); err != nil {
			return nil, err
		}
		if block == nil {
			return nil, NewArgumentError(name, recv, "no block given")
		}
		out := []any{}
		for _, e := range elems {
			v, err := block(e)
			if err != nil {
				return nil, err
			}
			if Truthy(v) == keep {
				out = append(out, e)
			}
		}
		return out, nil
	}
}

func toS(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func toSExt(recv any, args []any, _ Func) (any, error) {
	if err := wantArgs("to_s", recv, args, 0, 0); err != nil {
		return nil, err
	}
	return toS(recv), nil
}

// toIExt converts to an integer: numbers truncate, strings parse their
// leading integer (0 if none). Unsigned values above math.MaxInt are
// returned unchanged.
func toIExt(recv any, args []any, _ Func) (any, error) {
	if err := wantArgs("to_i", recv, args, 0, 0); err != nil {
		return nil, err
	}
	if isNumber(recv) {
		rv := reflect.ValueOf(recv)
		switch {
		case isIntKind(rv.Kind()):
			return int(rv.Int()), nil
		case isUintKind(rv.Kind()):
			if rv.Uint() > math.MaxInt {
				return recv, nil
			}
			return int(rv.Uint()), nil
		}
		return int(rv.Float()), nil
	}
	s, ok := asString(recv)
	if !ok {
		return nil, errNotApplicable
	}
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := 0
	for i, r := range s {
		if (r == '-' || r == '+') && i == 0 {
			end = i + 1
			continue
		}
		if r < '0' || r > '9' {
			break
		}
		end = i + 1
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func nilExt(recv any, args []any, _ Func) (any, error) {
	if err := wantArgs("nil?", recv, args, 0, 0); err != nil {
		return nil, err
	}
	return recv == nil, nil
}

// operatorAlias binds a word name to a built-in operator so chains like
// add(1).multiply(10) work on plain numbers.
func operatorAlias(name, operator string) Extension {
	return func(recv any, args []any, block Func) (any, error) {
		out, err := applyOperator(recv, Operation{Name: operator, Args: args, Block: block})
		if dErr, ok := err.(*Error); ok {
			dErr.Op = name
		}
		return out, err
	}
}
