package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeys(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{
		"session_id": "s1",
		"right":      "B",
		"left":       "A",
		"lo":         0,
		"hi":         1,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"hi":1,"left":"A","lo":0,"right":"B","session_id":"s1"}`, string(got))
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	got, err := MarshalCanonical("<Ticket & Ride>")
	require.NoError(t, err)
	assert.Equal(t, `"<Ticket & Ride>"`, string(got))
}

func TestMarshalCanonical_LineSeparatorsLiteral(t *testing.T) {
	got, err := MarshalCanonical("a\u2028b\u2029c")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(got))
}

func TestMarshalCanonical_ControlCharacters(t *testing.T) {
	got, err := MarshalCanonical("tab\there\nnul\x00")
	require.NoError(t, err)
	assert.Equal(t, `"tab\there\nnul\u0000"`, string(got))
}

func TestMarshalCanonical_NFCNormalization(t *testing.T) {
	// e + combining acute must serialize identically to precomposed U+00E9
	decomposed, err := MarshalCanonical("Cafe\u0301")
	require.NoError(t, err)
	precomposed, err := MarshalCanonical("Caf\u00e9")
	require.NoError(t, err)
	assert.Equal(t, precomposed, decomposed)
}

func TestMarshalCanonical_UTF16KeyOrder(t *testing.T) {
	// U+1F600 sorts after U+FF61 in UTF-8 byte order but before it in UTF-16
	// code units (the emoji encodes as surrogate 0xD83D).
	got, err := MarshalCanonical(map[string]any{
		"\uff61":     1,
		"\U0001F600": 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"\uff61\":1}", string(got))
}

func TestMarshalCanonical_Nested(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{
		"ids":   []string{"b", "a"},
		"mixed": []any{int64(3), true, "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ids":["b","a"],"mixed":[3,true,"x"]}`, string(got))
}

func TestMarshalCanonical_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"nil", nil},
		{"float", 1.5},
		{"nested float", map[string]any{"x": []any{2.5}}},
		{"unsupported", struct{}{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MarshalCanonical(tt.value)
			assert.Error(t, err)
		})
	}
}
