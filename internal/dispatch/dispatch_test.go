package dispatch

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type word string

func (w word) Upper() word { return word(strings.ToUpper(string(w))) }

func (w word) Repeat(n int) word { return word(strings.Repeat(string(w), n)) }

func (w word) Join(sep string, rest ...string) string {
	return strings.Join(append([]string{string(w)}, rest...), sep)
}

func (w word) IsEmpty() bool { return w == "" }

func (w word) Split() (string, string) {
	s := string(w)
	return s[:len(s)/2], s[len(s)/2:]
}

type counter struct {
	N    int
	name string
}

func (c *counter) Incr(by int) int {
	c.N += by
	return c.N
}

func (c counter) ToLabel() string { return c.name }

var errBoom = errors.New("boom")

type failing struct{}

func (failing) Fail() error { return errBoom }

func (failing) Parse(s string) (int, error) {
	if s == "" {
		return 0, errBoom
	}
	return len(s), nil
}

func (failing) Nothing() {}

func (failing) Apply(f Func) (any, error) { return f("x") }

func (failing) Narrow(n int8) int8 { return n }

func (failing) Unsigned(n uint) uint { return n }

func TestInvoke_Method(t *testing.T) {
	out, err := Call(word("ab"), Operation{Name: "Upper"})
	require.NoError(t, err)
	assert.Equal(t, word("AB"), out)

	out, err = Call(word("ab"), Operation{Name: "upper"})
	require.NoError(t, err)
	assert.Equal(t, word("AB"), out, "lower-case name resolves to exported method")
}

func TestInvoke_MethodArguments(t *testing.T) {
	out, err := Call(word("ab"), Operation{Name: "repeat", Args: []any{3}})
	require.NoError(t, err)
	assert.Equal(t, word("ababab"), out)

	out, err = Call(word("ab"), Operation{Name: "repeat", Args: []any{int64(2)}})
	require.NoError(t, err)
	assert.Equal(t, word("abab"), out, "int64 converts to int")

	out, err = Call(word("ab"), Operation{Name: "repeat", Args: []any{2.0}})
	require.NoError(t, err)
	assert.Equal(t, word("abab"), out, "integral float converts to int")
}

func TestInvoke_VariadicMethod(t *testing.T) {
	out, err := Call(word("a"), Operation{Name: "join", Args: []any{"-", "b", "c"}})
	require.NoError(t, err)
	assert.Equal(t, "a-b-c", out)

	out, err = Call(word("a"), Operation{Name: "join", Args: []any{"-"}})
	require.NoError(t, err)
	assert.Equal(t, "a", out)
}

func TestInvoke_PredicateName(t *testing.T) {
	out, err := Call(word(""), Operation{Name: "empty?"})
	require.NoError(t, err)
	assert.Equal(t, true, out)
}

func TestInvoke_MultipleResults(t *testing.T) {
	out, err := Call(word("abcd"), Operation{Name: "split"})
	require.NoError(t, err)
	assert.Equal(t, []any{"ab", "cd"}, out, "method shadows the split extension")
}

func TestInvoke_PointerMethodOnValue(t *testing.T) {
	c := counter{N: 1}
	out, err := Call(c, Operation{Name: "incr", Args: []any{2}})
	require.NoError(t, err)
	assert.Equal(t, 3, out)
	assert.Equal(t, 1, c.N, "value receiver is copied, never mutated")

	p := &counter{N: 1}
	out, err = Call(p, Operation{Name: "incr", Args: []any{2}})
	require.NoError(t, err)
	assert.Equal(t, 3, out)
}

func TestInvoke_SnakeCaseMethod(t *testing.T) {
	out, err := Call(counter{name: "c"}, Operation{Name: "to_label"})
	require.NoError(t, err)
	assert.Equal(t, "c", out)
}

func TestInvoke_MethodErrorsPropagateUnchanged(t *testing.T) {
	_, err := Call(failing{}, Operation{Name: "fail"})
	assert.Same(t, errBoom, err)

	_, err = Call(failing{}, Operation{Name: "parse", Args: []any{""}})
	assert.Same(t, errBoom, err)

	out, err := Call(failing{}, Operation{Name: "parse", Args: []any{"abc"}})
	require.NoError(t, err)
	assert.Equal(t, 3, out)
}

func TestInvoke_NoResults(t *testing.T) {
	out, err := Call(failing{}, Operation{Name: "nothing"})
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestInvoke_BlockAppendedToMethod(t *testing.T) {
	block := Func(func(x any) (any, error) { return x.(string) + "!", nil })
	out, err := Call(failing{}, Operation{Name: "apply", Block: block})
	require.NoError(t, err)
	assert.Equal(t, "x!", out)
}

func TestInvoke_ArgumentErrors(t *testing.T) {
	_, err := Call(word("a"), Operation{Name: "repeat"})
	require.Error(t, err)
	assert.True(t, IsArgumentError(err))
	assert.Contains(t, err.Error(), "wrong number of arguments (given 0, expected 1)")

	_, err = Call(word("a"), Operation{Name: "repeat", Args: []any{"two"}})
	assert.True(t, IsArgumentError(err))

	_, err = Call(word("a"), Operation{Name: "repeat", Args: []any{1.5}})
	assert.True(t, IsArgumentError(err), "lossy float conversion is refused")

	_, err = Call(word("a"), Operation{Name: "repeat", Args: []any{nil}})
	assert.True(t, IsArgumentError(err))
}

func TestInvoke_NumericArgumentsMustFit(t *testing.T) {
	tests := []struct {
		name string
		op   Operation
	}{
		{"int too big for int8", Operation{Name: "narrow", Args: []any{300}}},
		{"int too small for int8", Operation{Name: "narrow", Args: []any{-129}}},
		{"float too big for int8", Operation{Name: "narrow", Args: []any{1e10}}},
		{"negative int for uint", Operation{Name: "unsigned", Args: []any{-1}}},
		{"negative float for uint", Operation{Name: "unsigned", Args: []any{-2.0}}},
		{"huge unsigned for int8", Operation{Name: "narrow", Args: []any{uint64(1) << 63}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Call(failing{}, tt.op)
			require.Error(t, err)
			assert.True(t, IsArgumentError(err))
		})
	}

	out, err := Call(failing{}, Operation{Name: "narrow", Args: []any{-128}})
	require.NoError(t, err)
	assert.Equal(t, int8(-128), out)

	out, err = Call(failing{}, Operation{Name: "unsigned", Args: []any{3.0}})
	require.NoError(t, err)
	assert.Equal(t, uint(3), out)

	_, err = Call(word("a"), Operation{Name: "repeat", Args: []any{uint64(math.MaxUint64)}})
	assert.True(t, IsArgumentError(err), "unsigned above the int range")
}

func TestInvoke_FieldAndMapKey(t *testing.T) {
	out, err := Call(counter{N: 7}, Operation{Name: "n"})
	require.NoError(t, err)
	assert.Equal(t, 7, out)

	out, err = Call(&counter{N: 8}, Operation{Name: "N"})
	require.NoError(t, err)
	assert.Equal(t, 8, out)

	out, err = Call(map[string]any{"name": "ada"}, Operation{Name: "name"})
	require.NoError(t, err)
	assert.Equal(t, "ada", out)

	_, err = Call(counter{name: "hidden"}, Operation{Name: "name"})
	assert.True(t, IsNoMethod(err), "unexported fields are not readable")
}

func TestInvoke_MapKeyShadowsExtension(t *testing.T) {
	out, err := Call(map[string]any{"size": "large", "a": 1}, Operation{Name: "size"})
	require.NoError(t, err)
	assert.Equal(t, "large", out)

	out, err = Call(map[string]any{"a": 1}, Operation{Name: "size"})
	require.NoError(t, err)
	assert.Equal(t, 1, out)
}

func TestInvoke_NoMethod(t *testing.T) {
	_, err := Call(42, Operation{Name: "upcase"})
	require.Error(t, err)
	assert.True(t, IsNoMethod(err))

	var de *Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "upcase", de.Op)
	assert.Equal(t, "int", de.Receiver)
	assert.Equal(t, `NO_METHOD: undefined operation "upcase" (op=upcase, receiver=int)`, err.Error())

	_, err = Call(nil, Operation{Name: "anything"})
	assert.True(t, IsNoMethod(err))
}

func TestInvoke_NilReceiver(t *testing.T) {
	out, err := Call(nil, Operation{Name: "nil?"})
	require.NoError(t, err)
	assert.Equal(t, true, out)

	out, err = Call(nil, Operation{Name: "=="})
	require.Error(t, err)
	assert.Nil(t, out)

	out, err = Call(nil, Operation{Name: "==", Args: []any{nil}})
	require.NoError(t, err)
	assert.Equal(t, true, out)

	out, err = Call(nil, Operation{Name: "!"})
	require.NoError(t, err)
	assert.Equal(t, true, out)
}

func TestDispatcher_CustomRegistry(t *testing.T) {
	reg := Builtins().With("shout", func(recv any, args []any, _ Func) (any, error) {
		s, ok := recv.(string)
		if !ok {
			return nil, NotApplicable()
		}
		return s + "!", nil
	})
	d := New(reg)
	assert.Same(t, reg, d.Registry())
	assert.Same(t, Builtins(), Default.Registry())

	out, err := d.Invoke("hi", Operation{Name: "shout"})
	require.NoError(t, err)
	assert.Equal(t, "hi!", out)

	_, err = d.Invoke(1, Operation{Name: "shout"})
	assert.True(t, IsNoMethod(err))

	_, err = Call("hi", Operation{Name: "shout"})
	assert.True(t, IsNoMethod(err), "default registry is unaffected")

	out, err = d.Invoke("hi", Operation{Name: "upcase"})
	require.NoError(t, err)
	assert.Equal(t, "HI", out, "builtins remain available")
}

func TestDispatcher_WithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	d := Default.WithLogger(logger)
	_, err := d.Invoke("a", Operation{Name: "upcase"})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "op=upcase")
	assert.Contains(t, buf.String(), "receiver=string")
	assert.Nil(t, Default.logger, "WithLogger copies")
}

func TestGoNames(t *testing.T) {
	tests := []struct {
		name string
		want []string
	}{
		{"upper", []string{"Upper"}},
		{"Upper", []string{"Upper"}},
		{"to_upper", []string{"ToUpper"}},
		{"empty?", []string{"Empty", "IsEmpty", "HasEmpty"}},
		{"sort!", []string{"Sort"}},
		{"+", nil},
		{"[]", nil},
		{"", nil},
		{"_", nil},
		{"1abc", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, goNames(tt.name))
		})
	}
}

func TestOperationString(t *testing.T) {
	tests := []struct {
		op   Operation
		want string
	}{
		{Operation{Name: "upcase"}, ".upcase"},
		{Operation{Name: "add", Args: []any{1}}, ".add(1)"},
		{Operation{Name: "join", Args: []any{"-"}}, `.join("-")`},
		{Operation{Name: "[]", Args: []any{"k"}}, `["k"]`},
		{Operation{Name: "[]", Args: []any{0, 2}}, `[0, 2]`},
		{Operation{Name: "f", Args: []any{nil, true}}, ".f(nil, true)"},
		{Operation{Name: "map", Block: identityFunc}, ".map(&fn)"},
		{Operation{Name: "map", Block: identityFunc, BlockLabel: "X.upcase"}, ".map(&X.upcase)"},
		{Operation{Name: "inject", Args: []any{0}, Block: identityFunc}, ".inject(0, &fn)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.op.String())
		})
	}
}

var identityFunc = Func(func(x any) (any, error) { return x, nil })

func TestFuncRealize(t *testing.T) {
	f := identityFunc.Realize()
	out, err := f(3)
	require.NoError(t, err)
	assert.Equal(t, 3, out)
}

func TestErrorHelpers(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), NewZeroDivisionError("/", 1))
	assert.Equal(t, ErrCodeZeroDivision, CodeOf(wrapped))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
	assert.False(t, IsNoMethod(nil))
}
