package typeutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeMapStringAny(t *testing.T) {
	m, ok := SafeMapStringAny(map[string]any{"a": 1})
	require.True(t, ok)
	assert.Equal(t, 1, m["a"])

	_, ok = SafeMapStringAny(nil)
	assert.False(t, ok)
	_, ok = SafeMapStringAny("not a map")
	assert.False(t, ok)
}

func TestSafeString(t *testing.T) {
	s, ok := SafeString("hello")
	require.True(t, ok)
	assert.Equal(t, "hello", s)

	_, ok = SafeString(42)
	assert.False(t, ok)

	assert.Equal(t, "fallback", SafeStringDefault(nil, "fallback"))
	assert.Equal(t, "value", SafeStringDefault("value", "fallback"))
}

func TestSafeFloat64(t *testing.T) {
	for _, v := range []any{float64(1.5), float32(1.5), int(1), int32(1), int64(1)} {
		_, ok := SafeFloat64(v)
		assert.True(t, ok, "%T", v)
	}

	f, _ := SafeFloat64(2.5)
	assert.Equal(t, 2.5, f)

	_, ok := SafeFloat64("2.5")
	assert.False(t, ok)
	_, ok = SafeFloat64(nil)
	assert.False(t, ok)
}

func TestSafeStringSlice(t *testing.T) {
	s, ok := SafeStringSlice([]string{"a", "b"})
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, s)

	s, ok = SafeStringSlice([]any{"a", "b"})
	require.True(t, ok, "JSON-decoded slices arrive as []any")
	assert.Equal(t, []string{"a", "b"}, s)

	_, ok = SafeStringSlice([]any{"a", 1})
	assert.False(t, ok)
	_, ok = SafeStringSlice(nil)
	assert.False(t, ok)
}

func TestSafeFloat64Map(t *testing.T) {
	m, ok := SafeFloat64Map(map[string]any{"size": 50.0, "count": 12, "label": "skipped"})
	require.True(t, ok)
	assert.Equal(t, 50.0, m["size"])
	assert.Equal(t, 12.0, m["count"])
	_, present := m["label"]
	assert.False(t, present, "non-numeric values are skipped, not fatal")

	_, ok = SafeFloat64Map("nope")
	assert.False(t, ok)
}
