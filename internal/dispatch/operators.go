package dispatch

import (
	"cmp"
	"math"
	"reflect"
	"strings"
	"unicode/utf8"
)

// applyOperator performs a built-in operator on basic kinds.
// It returns errNotApplicable when recv's kind has no such operator.
func applyOperator(recv any, op Operation) (any, error) {
	switch op.Name {
	case "!":
		if err := arity(op, recv, 0); err != nil {
			return nil, err
		}
		return !Truthy(recv), nil
	case "-@":
		if err := arity(op, recv, 0); err != nil {
			return nil, err
		}
		if !isNumber(recv) {
			return nil, errNotApplicable
		}
		return arith("-", 0, recv, op)
	case "[]":
		return index(recv, op)
	}

	if err := arity(op, recv, 1); err != nil {
		return nil, err
	}
	arg := op.Args[0]

	switch op.Name {
	case "==":
		return Equal(recv, arg), nil
	case "!=":
		return !Equal(recv, arg), nil
	case "<", "<=", ">", ">=", "<=>":
		return compareOp(recv, arg, op)
	}

	if isNumber(recv) {
		if !isNumber(arg) {
			return nil, NewOperandError(op.Name, recv, arg)
		}
		return arith(op.Name, recv, arg, op)
	}

	rv := reflect.ValueOf(recv)
	switch {
	case rv.Kind() == reflect.String:
		return stringOp(rv, arg, op)
	case rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array:
		return sliceOp(rv, arg, op)
	}
	return nil, errNotApplicable
}

func arity(op Operation, recv any, n int) error {
	if len(op.Args) != n {
		return NewArgumentError(op.Name, recv, "wrong number of arguments (given %d, expected %d)", len(op.Args), n)
	}
	return nil
}

// Truthy reports whether v counts as true: everything except nil and false.
func Truthy(v any) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}

// Equal compares two values. Numbers compare by value across types;
// everything else uses reflect.DeepEqual.
func Equal(a, b any) bool {
	if isNumber(a) && isNumber(b) {
		c, _ := compareNumbers(a, b)
		return c == 0
	}
	return reflect.DeepEqual(a, b)
}

func isNumber(v any) bool {
	if v == nil {
		return false
	}
	return isNumberKind(reflect.ValueOf(v).Kind())
}

func isInteger(v reflect.Value) bool {
	return isIntKind(v.Kind()) || isUintKind(v.Kind())
}

func toFloat64(v reflect.Value) float64 {
	switch {
	case isFloatKind(v.Kind()):
		return v.Float()
	case isUintKind(v.Kind()):
		return float64(v.Uint())
	default:
		return float64(v.Int())
	}
}

// compareNumbers returns -1, 0 or 1. ok is false if either is NaN.
func compareNumbers(a, b any) (int, bool) {
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if isInteger(av) && isInteger(bv) {
		return compareIntegers(av, bv), true
	}
	x, y := toFloat64(av), toFloat64(bv)
	switch {
	case math.IsNaN(x) || math.IsNaN(y):
		return 0, false
	case x < y:
		return -1, true
	case x > y:
		return 1, true
	}
	return 0, true
}

// compareIntegers orders two integers of any kinds. A negative signed value
// is below every unsigned one.
func compareIntegers(a, b reflect.Value) int {
	aU, bU := isUintKind(a.Kind()), isUintKind(b.Kind())
	switch {
	case aU && bU:
		return cmp.Compare(a.Uint(), b.Uint())
	case !aU && !bU:
		return cmp.Compare(a.Int(), b.Int())
	case aU:
		if b.Int() < 0 {
			return 1
		}
		return cmp.Compare(a.Uint(), uint64(b.Int()))
	default:
		if a.Int() < 0 {
			return -1
		}
		return cmp.Compare(uint64(a.Int()), b.Uint())
	}
}

func compareOp(recv, arg any, op Operation) (any, error) {
	var c int
	switch {
	case isNumber(recv) && isNumber(arg):
		var ok bool
		c, ok = compareNumbers(recv, arg)
		if !ok {
			if op.Name == "<=>" {
				return nil, nil
			}
			return false, nil
		}
	case isString(recv) && isString(arg):
		c = strings.Compare(reflect.ValueOf(recv).String(), reflect.ValueOf(arg).String())
	case isNumber(recv) || isString(recv):
		if op.Name == "<=>" {
			return nil, nil
		}
		return nil, NewOperandError(op.Name, recv, arg)
	default:
		return nil, errNotApplicable
	}

	switch op.Name {
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	case ">=":
		return c >= 0, nil
	}
	return c, nil
}

func isString(v any) bool {
	return v != nil && reflect.ValueOf(v).Kind() == reflect.String
}

// arith applies a numeric operator. Integer operands stay integers, with
// floored division and modulo. If both operands share a type, the result
// has that type; mixed integer types widen to int64, or to uint64 when
// both are unsigned or an unsigned operand exceeds int64. Anything
// involving a float becomes float64. Integer results that do not fit are
// reported as OPERAND errors instead of wrapping.
func arith(name string, a, b any, op Operation) (any, error) {
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	sameType := av.Type() == bv.Type()

	if isInteger(av) && isInteger(bv) {
		r, err := intArith(name, av, bv, op, a)
		if err != nil {
			return nil, err
		}
		if !sameType {
			return r, nil
		}
		return fitInteger(r, av.Type(), op, a)
	}

	x, y := toFloat64(av), toFloat64(bv)
	var r float64
	switch name {
	case "+":
		r = x + y
	case "-":
		r = x - y
	case "*":
		r = x * y
	case "/":
		r = x / y
	case "%":
		r = math.Mod(x, y)
		if r != 0 && (r < 0) != (y < 0) {
			r += y
		}
	case "**":
		r = math.Pow(x, y)
	default:
		return nil, errNotApplicable
	}
	if sameType {
		return reflect.ValueOf(r).Convert(av.Type()).Interface(), nil
	}
	return r, nil
}

// intArith computes name in int64 for signed operands and uint64 for
// unsigned ones. A mixed pair uses int64 when the unsigned side fits and
// uint64 when the signed side is non-negative.
func intArith(name string, av, bv reflect.Value, op Operation, recv any) (any, error) {
	aU, bU := isUintKind(av.Kind()), isUintKind(bv.Kind())
	switch {
	case !aU && !bU:
		return int64Arith(name, av.Int(), bv.Int(), op, recv)
	case aU && bU:
		return uint64Arith(name, av.Uint(), bv.Uint(), op, recv)
	}
	if x, ok := asInt64(av); ok {
		if y, ok := asInt64(bv); ok {
			return int64Arith(name, x, y, op, recv)
		}
	}
	if x, ok := asUint64(av); ok {
		if y, ok := asUint64(bv); ok {
			return uint64Arith(name, x, y, op, recv)
		}
	}
	return nil, NewOverflowError(op.Name, recv)
}

func asInt64(v reflect.Value) (int64, bool) {
	if isUintKind(v.Kind()) {
		u := v.Uint()
		return int64(u), u <= math.MaxInt64
	}
	return v.Int(), true
}

func asUint64(v reflect.Value) (uint64, bool) {
	if isUintKind(v.Kind()) {
		return v.Uint(), true
	}
	i := v.Int()
	return uint64(i), i >= 0
}

func int64Arith(name string, x, y int64, op Operation, recv any) (any, error) {
	switch name {
	case "+":
		r := x + y
		if (y > 0 && r < x) || (y < 0 && r > x) {
			return nil, NewOverflowError(op.Name, recv)
		}
		return r, nil
	case "-":
		r := x - y
		if (y > 0 && r > x) || (y < 0 && r < x) {
			return nil, NewOverflowError(op.Name, recv)
		}
		return r, nil
	case "*":
		r, ok := mulInt64(x, y)
		if !ok {
			return nil, NewOverflowError(op.Name, recv)
		}
		return r, nil
	case "/":
		if y == 0 {
			return nil, NewZeroDivisionError(op.Name, recv)
		}
		if x == math.MinInt64 && y == -1 {
			return nil, NewOverflowError(op.Name, recv)
		}
		return floorDiv(x, y), nil
	case "%":
		if y == 0 {
			return nil, NewZeroDivisionError(op.Name, recv)
		}
		return floorMod(x, y), nil
	case "**":
		if y < 0 {
			return math.Pow(float64(x), float64(y)), nil
		}
		r, ok := powInt64(x, y)
		if !ok {
			return nil, NewOverflowError(op.Name, recv)
		}
		return r, nil
	}
	return nil, errNotApplicable
}

func uint64Arith(name string, x, y uint64, op Operation, recv any) (any, error) {
	switch name {
	case "+":
		r := x + y
		if r < x {
			return nil, NewOverflowError(op.Name, recv)
		}
		return r, nil
	case "-":
		if y > x {
			if y-x > 1<<63 {
				return nil, NewOverflowError(op.Name, recv)
			}
			// Two's complement of the wrapped difference is the negative result.
			return int64(x - y), nil
		}
		return x - y, nil
	case "*":
		r, ok := mulUint64(x, y)
		if !ok {
			return nil, NewOverflowError(op.Name, recv)
		}
		return r, nil
	case "/":
		if y == 0 {
			return nil, NewZeroDivisionError(op.Name, recv)
		}
		return x / y, nil
	case "%":
		if y == 0 {
			return nil, NewZeroDivisionError(op.Name, recv)
		}
		return x % y, nil
	case "**":
		r, ok := powUint64(x, y)
		if !ok {
			return nil, NewOverflowError(op.Name, recv)
		}
		return r, nil
	}
	return nil, errNotApplicable
}

// fitInteger converts r to t, the operands' shared type.
func fitInteger(r any, t reflect.Type, op Operation, recv any) (any, error) {
	z := reflect.Zero(t)
	switch v := r.(type) {
	case int64:
		if isUintKind(t.Kind()) {
			if v < 0 || z.OverflowUint(uint64(v)) {
				return nil, NewOverflowError(op.Name, recv)
			}
		} else if z.OverflowInt(v) {
			return nil, NewOverflowError(op.Name, recv)
		}
	case uint64:
		if isIntKind(t.Kind()) {
			if v > math.MaxInt64 || z.OverflowInt(int64(v)) {
				return nil, NewOverflowError(op.Name, recv)
			}
		} else if z.OverflowUint(v) {
			return nil, NewOverflowError(op.Name, recv)
		}
	default:
		// negative exponents produce floats
		return r, nil
	}
	return reflect.ValueOf(r).Convert(t).Interface(), nil
}

func mulInt64(x, y int64) (int64, bool) {
	if x == 0 || y == 0 {
		return 0, true
	}
	if (x == -1 && y == math.MinInt64) || (y == -1 && x == math.MinInt64) {
		return 0, false
	}
	r := x * y
	return r, r/y == x
}

func mulUint64(x, y uint64) (uint64, bool) {
	if x == 0 || y == 0 {
		return 0, true
	}
	r := x * y
	return r, r/y == x
}

// powInt64 computes x**y for y >= 0 by repeated squaring.
func powInt64(x, y int64) (int64, bool) {
	switch x {
	case 0:
		if y == 0 {
			return 1, true
		}
		return 0, true
	case 1:
		return 1, true
	case -1:
		if y%2 == 0 {
			return 1, true
		}
		return -1, true
	}

	r := int64(1)
	var ok bool
	for y > 0 {
		if y&1 == 1 {
			if r, ok = mulInt64(r, x); !ok {
				return 0, false
			}
		}
		y >>= 1
		if y > 0 {
			if x, ok = mulInt64(x, x); !ok {
				return 0, false
			}
		}
	}
	return r, true
}

func powUint64(x, y uint64) (uint64, bool) {
	switch x {
	case 0:
		if y == 0 {
			return 1, true
		}
		return 0, true
	case 1:
		return 1, true
	}

	r := uint64(1)
	var ok bool
	for y > 0 {
		if y&1 == 1 {
			if r, ok = mulUint64(r, x); !ok {
				return 0, false
			}
		}
		y >>= 1
		if y > 0 {
			if x, ok = mulUint64(x, x); !ok {
				return 0, false
			}
		}
	}
	return r, true
}

func floorDiv(x, y int64) int64 {
	q := x / y
	if (x%y != 0) && ((x < 0) != (y < 0)) {
		q--
	}
	return q
}

func floorMod(x, y int64) int64 {
	m := x % y
	if m != 0 && (m < 0) != (y < 0) {
		m += y
	}
	return m
}

func stringOp(rv reflect.Value, arg any, op Operation) (any, error) {
	s := rv.String()
	switch op.Name {
	case "+":
		if !isString(arg) {
			return nil, NewOperandError(op.Name, rv.Interface(), arg)
		}
		return reflect.ValueOf(s + reflect.ValueOf(arg).String()).Convert(rv.Type()).Interface(), nil
	case "*":
		n, ok := intArg(arg)
		if !ok || n < 0 {
			return nil, NewOperandError(op.Name, rv.Interface(), arg)
		}
		if err := checkRepeat(op, rv.Interface(), len(s), n); err != nil {
			return nil, err
		}
		if s == "" {
			return rv.Interface(), nil
		}
		return reflect.ValueOf(strings.Repeat(s, n)).Convert(rv.Type()).Interface(), nil
	}
	return nil, errNotApplicable
}

func sliceOp(rv reflect.Value, arg any, op Operation) (any, error) {
	switch op.Name {
	case "+":
		if arg == nil {
			return nil, NewOperandError(op.Name, rv.Interface(), arg)
		}
		bv := reflect.ValueOf(arg)
		if bv.Kind() != reflect.Slice && bv.Kind() != reflect.Array {
			return nil, NewOperandError(op.Name, rv.Interface(), arg)
		}
		if rv.Kind() == reflect.Slice && rv.Type() == bv.Type() {
			out := reflect.MakeSlice(rv.Type(), 0, rv.Len()+bv.Len())
			return reflect.AppendSlice(reflect.AppendSlice(out, rv), bv).Interface(), nil
		}
		return append(toAnySlice(rv), toAnySlice(bv)...), nil
	case "*":
		n, ok := intArg(arg)
		if !ok || n < 0 {
			return nil, NewOperandError(op.Name, rv.Interface(), arg)
		}
		if err := checkRepeat(op, rv.Interface(), rv.Len(), n); err != nil {
			return nil, err
		}
		elems := toAnySlice(rv)
		if len(elems) == 0 {
			return []any{}, nil
		}
		out := make([]any, 0, len(elems)*n)
		for i := 0; i < n; i++ {
			out = append(out, elems...)
		}
		return out, nil
	}
	return nil, errNotApplicable
}

// maxRepeat bounds the length of a string or slice built by "*".
const maxRepeat = 1 << 30

func checkRepeat(op Operation, recv any, size, n int) error {
	if n > 0 && size > maxRepeat/n {
		return NewArgumentError(op.Name, recv, "argument too big")
	}
	return nil
}

// intArg returns v as an int. Values outside the int range saturate.
func intArg(v any) (int, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch {
	case isUintKind(rv.Kind()):
		return int(min(rv.Uint(), math.MaxInt)), true
	case isIntKind(rv.Kind()):
		return int(max(min(rv.Int(), math.MaxInt), math.MinInt)), true
	}
	return 0, false
}

func toAnySlice(rv reflect.Value) []any {
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// index implements "[]": element or (start, length) slice of sequences,
// key lookup on maps, field read on structs. Out-of-range positions and
// missing keys yield nil.
func index(recv any, op Operation) (any, error) {
	if recv == nil {
		return nil, errNotApplicable
	}
	rv := reflect.ValueOf(recv)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, errNotApplicable
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if err := arity(op, recv, 1); err != nil {
			return nil, err
		}
		k, err := coerce(op.Args[0], rv.Type().Key())
		if err != nil {
			return nil, NewOperandError(op.Name, recv, op.Args[0])
		}
		mv := rv.MapIndex(k)
		if !mv.IsValid() {
			return nil, nil
		}
		return mv.Interface(), nil

	case reflect.Struct:
		if err := arity(op, recv, 1); err != nil {
			return nil, err
		}
		name, ok := op.Args[0].(string)
		if !ok {
			return nil, NewOperandError(op.Name, recv, op.Args[0])
		}
		v, found := readMember(rv, name)
		if !found {
			return nil, nil
		}
		return v, nil

	case reflect.String:
		runes := []rune(rv.String())
		elems := make([]any, len(runes))
		for i, r := range runes {
			elems[i] = string(r)
		}
		out, err := sequenceIndex(elems, recv, op)
		if err != nil || out == nil {
			return out, err
		}
		if part, ok := out.([]any); ok {
			var b strings.Builder
			b.Grow(utf8.UTFMax * len(part))
			for _, p := range part {
				b.WriteString(p.(string))
			}
			return b.String(), nil
		}
		return out, nil

	case reflect.Slice, reflect.Array:
		return sequenceIndex(toAnySlice(rv), recv, op)
	}
	return nil, errNotApplicable
}

func sequenceIndex(elems []any, recv any, op Operation) (any, error) {
	n := len(elems)
	switch len(op.Args) {
	case 1:
		i, ok := intArg(op.Args[0])
		if !ok {
			return nil, NewOperandError(op.Name, recv, op.Args[0])
		}
		if i < 0 {
			i += n
		}
		if i < 0 || i >= n {
			return nil, nil
		}
		return elems[i], nil
	case 2:
		start, ok := intArg(op.Args[0])
		if !ok {
			return nil, NewOperandError(op.Name, recv, op.Args[0])
		}
		length, ok := intArg(op.Args[1])
		if !ok {
			return nil, NewOperandError(op.Name, recv, op.Args[1])
		}
		if start < 0 {
			start += n
		}
		if start < 0 || start > n || length < 0 {
			return nil, nil
		}
		end := n
		if length < n-start {
			end = start + length
		}
		return append([]any{}, elems[start:end]...), nil
	}
	return nil, NewArgumentError(op.Name, recv, "wrong number of arguments (given %d, expected 1..2)", len(op.Args))
}
