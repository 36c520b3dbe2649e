package payload

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_PreservesOrderAndUnknownKeys(t *testing.T) {
	t.Parallel()

	in := `{"zeta":1,"alpha":{"b":true,"a":null},"list":[1,"two",{"y":2,"x":1}],"id":12345678901234567890}`

	m := New()
	require.NoError(t, json.Unmarshal([]byte(in), m))
	assert.Equal(t, []string{"zeta", "alpha", "list", "id"}, m.Keys())

	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, in, string(out))
}

func TestMap_RejectsNonObject(t *testing.T) {
	t.Parallel()

	for _, in := range []string{`[]`, `"text"`, `42`, `null`} {
		m := New()
		err := m.UnmarshalJSON([]byte(in))
		assert.ErrorIs(t, err, ErrNotObject, in)
	}

	_, err := Decode(strings.NewReader(`{"a":1} {"b":2}`))
	assert.Error(t, err)

	_, err = Decode(strings.NewReader(`{"a":`))
	assert.Error(t, err)
}

func TestMap_SetKeepsPosition(t *testing.T) {
	t.Parallel()

	m := FromPairs("a", 1, "b", 2)
	m.Set("a", 3)

	assert.Equal(t, []string{"a", "b"}, m.Keys())
	v, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestMap_Merge(t *testing.T) {
	t.Parallel()

	base := FromPairs("mtlsVerified", false, "clientCN", "unknown", "servedBy", "middleware")
	other := FromPairs("servedBy", "backend", "status", "SUCCESS")

	base.Merge(other)

	assert.Equal(t, []string{"mtlsVerified", "clientCN", "servedBy", "status"}, base.Keys())
	assert.Equal(t, "backend", base.String("servedBy", ""))
	assert.Equal(t, "SUCCESS", base.String("status", ""))
}

func TestMap_MergeNil(t *testing.T) {
	t.Parallel()

	m := FromPairs("a", 1)
	m.Merge(nil)
	assert.Equal(t, 1, m.Len())
}

func TestMap_Accessors(t *testing.T) {
	t.Parallel()

	m := New()
	require.NoError(t, json.Unmarshal([]byte(`{"s":"x","n":42,"b":true,"null":null,"o":{"k":"v"}}`), m))

	tests := []struct {
		key  string
		want string
	}{
		{"s", "x"},
		{"n", "42"},
		{"b", "true"},
		{"null", "def"},
		{"missing", "def"},
		{"o", `{"k":"v"}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, m.String(tt.key, "def"), tt.key)
	}

	assert.True(t, m.Bool("b", false))
	assert.False(t, m.Bool("s", false))
	assert.True(t, m.Bool("missing", true))
	assert.True(t, m.Has("null"))
	assert.False(t, m.Has("missing"))
}

func TestMap_Delete(t *testing.T) {
	t.Parallel()

	m := FromPairs("a", 1, "b", 2, "c", 3)
	m.Delete("b")
	m.Delete("nope")

	assert.Equal(t, []string{"a", "c"}, m.Keys())
	assert.False(t, m.Has("b"))
}

func TestMap_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	nested := FromPairs("k", "v")
	orig := FromPairs("n", nested)

	c := orig.Clone()
	c.Set("extra", true)
	cn, _ := c.Get("n")
	cn.(*Map).Set("k", "changed")

	assert.False(t, orig.Has("extra"))
	assert.Equal(t, "v", nested.String("k", ""))
}

func TestMap_NilSafe(t *testing.T) {
	t.Parallel()

	var m *Map
	assert.Equal(t, 0, m.Len())
	assert.False(t, m.Has("a"))
	assert.Equal(t, "d", m.String("a", "d"))

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))
}

func TestMap_EmptyObject(t *testing.T) {
	t.Parallel()

	m, err := Decode(strings.NewReader(`{}`))
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(b))
}

func TestFromPairs_Panics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { FromPairs("a") })
	assert.Panics(t, func() { FromPairs(1, 2) })
}
