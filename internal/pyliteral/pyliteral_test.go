package pyliteral

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Scalars(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want any
	}{
		{"int", "42", int64(42)},
		{"negative int", "-7", int64(-7)},
		{"underscored int", "1_000", int64(1000)},
		{"hex", "0x1F", int64(31)},
		{"float", "0.01", 0.01},
		{"leading dot float", ".5", 0.5},
		{"scientific", "1.5e-3", 0.0015},
		{"negative scientific", "-2E+2", -200.0},
		{"true", "True", true},
		{"false", "False", false},
		{"none", "None", nil},
		{"single quoted", "'adam'", "adam"},
		{"double quoted", `"it's"`, "it's"},
		{"escapes", `'a\tb\n\'c\''`, "a\tb\n'c'"},
		{"unicode escape", `'\u00e9'`, "é"},
		{"raw string", `r'C:\new'`, `C:\new`},
		{"implicit concatenation", `'foo' "bar"`, "foobar"},
		{"parenthesised", "(3)", int64(3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Containers(t *testing.T) {
	t.Run("nested dict keeps order", func(t *testing.T) {
		v, err := Parse(`{'exp_name': 'run1', 'server': {'lr': 0.01, 'local_epochs': 5}, 'seed': 0}`)
		require.NoError(t, err)

		d, ok := v.(*Dict)
		require.True(t, ok, "expected *Dict, got %T", v)
		assert.Equal(t, []string{"exp_name", "server", "seed"}, d.Keys())

		lr, ok := d.Lookup("server.lr")
		require.True(t, ok)
		assert.Equal(t, 0.01, lr)

		_, ok = d.Lookup("server.missing")
		assert.False(t, ok)
		_, ok = d.Lookup("exp_name.deeper")
		assert.False(t, ok)
	})

	t.Run("lists tuples and sets", func(t *testing.T) {
		v, err := Parse(`{'dims': [1, 2, 3], 'shape': (4, 5,), 'tags': {'a', 'b'}, 'empty': (), 'one': (1,)}`)
		require.NoError(t, err)
		d := v.(*Dict)

		dims, _ := d.Get("dims")
		assert.Equal(t, []any{int64(1), int64(2), int64(3)}, dims)
		shape, _ := d.Get("shape")
		assert.Equal(t, []any{int64(4), int64(5)}, shape)
		tags, _ := d.Get("tags")
		assert.Equal(t, []any{"a", "b"}, tags)
		empty, _ := d.Get("empty")
		assert.Equal(t, []any{}, empty)
		one, _ := d.Get("one")
		assert.Equal(t, []any{int64(1)}, one)
	})

	t.Run("non-string keys are stringified", func(t *testing.T) {
		v, err := Parse(`{1: 'a', True: 'b'}`)
		require.NoError(t, err)
		d := v.(*Dict)
		assert.Equal(t, []string{"1", "True"}, d.Keys())
	})

	t.Run("trailing comma and multiline", func(t *testing.T) {
		v, err := Parse("{\n  'a': 1,\n  'b': [\n    2,\n  ],\n}")
		require.NoError(t, err)
		assert.Equal(t, 2, v.(*Dict).Len())
	})

	t.Run("empty set call", func(t *testing.T) {
		v, err := Parse(`{'s': set()}`)
		require.NoError(t, err)
		s, _ := v.(*Dict).Get("s")
		assert.Equal(t, []any{}, s)
	})
}

func TestParse_RejectsCode(t *testing.T) {
	inputs := []string{
		`__import__('os').system('rm -rf /')`,
		`{'a': open('x')}`,
		`{'a': 1 + 2}`,
		`{'a': lambda: 1}`,
		`{'a': os.path}`,
		`{'a': 1j}`,
		`{'a': 1`,
		`{'a' 1}`,
		`'unterminated`,
		`{[1]: 2}`,
		``,
	}
	for _, src := range inputs {
		_, err := Parse(src)
		var syntaxErr *SyntaxError
		assert.ErrorAs(t, err, &syntaxErr, "input %q", src)
	}
}

func TestParse_NestingLimit(t *testing.T) {
	nested := func(depth int) string {
		return strings.Repeat("[", depth) + strings.Repeat("]", depth)
	}

	_, err := Parse(nested(MaxDepth))
	require.NoError(t, err)

	var syntaxErr *SyntaxError
	_, err = Parse(nested(MaxDepth + 1))
	assert.ErrorAs(t, err, &syntaxErr)

	_, err = Parse("{'a': " + strings.Repeat("[", 8<<20) + "}")
	require.ErrorAs(t, err, &syntaxErr)
	assert.Contains(t, syntaxErr.Msg, "nesting")

	_, err = Parse(strings.Repeat("-", MaxDepth+1) + "1")
	assert.ErrorAs(t, err, &syntaxErr)
}

func TestRepr(t *testing.T) {
	v, err := Parse(`{'name': "it's", 'lr': 0.0001, 'big': 1e16, 'n': 3, 'w': 2.0, 'ok': True, 'x': None, 'l': [1, 'a']}`)
	require.NoError(t, err)
	assert.Equal(t,
		`{'name': "it's", 'lr': 0.0001, 'big': 1e+16, 'n': 3, 'w': 2.0, 'ok': True, 'x': None, 'l': [1, 'a']}`,
		Repr(v))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "adam", Format("adam"))
	assert.Equal(t, "0.0015", Format(0.0015))
	assert.Equal(t, "1e-05", Format(0.00001))
	assert.Equal(t, "1234567.0", Format(1234567.0))
	assert.Equal(t, "12", Format(int64(12)))
	assert.Equal(t, "None", Format(nil))
	assert.Equal(t, "['a', 'b']", Format([]any{"a", "b"}))
}
