package jsonx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractObject_PlainJSON(t *testing.T) {
	m := ExtractObject(`{"root_cause": "timeout", "confidence": 0.9}`)
	assert.Equal(t, "timeout", m["root_cause"])
	assert.Equal(t, 0.9, m["confidence"])
}

func TestExtractObject_Recovery(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string // expected value under "k"
	}{
		{
			name: "wrapped in prose",
			in:   "Here is the analysis you asked for:\n{\"k\": \"v\"}\nLet me know if you need more.",
			want: "v",
		},
		{
			name: "json fence",
			in:   "```json\n{\"k\": \"v\"}\n```",
			want: "v",
		},
		{
			name: "plain fence",
			in:   "```\n{\"k\": \"v\"}\n```",
			want: "v",
		},
		{
			name: "fence with prose around it",
			in:   "Sure!\n```json\n{\"k\": \"v\"}\n```\nDone.",
			want: "v",
		},
		{
			name: "trailing stray brace",
			in:   `{"k": "v"}}`,
			want: "v",
		},
		{
			name: "braces inside string values",
			in:   `noise {"k": "v", "note": "uses {placeholders} internally"} noise`,
			want: "v",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ExtractObject(tt.in)
			require.NotEmpty(t, m)
			assert.Equal(t, tt.want, m["k"])
		})
	}
}

func TestExtractObject_NonJSON(t *testing.T) {
	for _, in := range []string{"", "   ", "no json here", "{truncated", "[]"} {
		m := ExtractObject(in)
		require.NotNil(t, m)
		assert.Empty(t, m)
	}
}

func TestStr(t *testing.T) {
	m := map[string]any{"a": "x", "b": 3.0}
	assert.Equal(t, "x", Str(m, "a"))
	assert.Equal(t, "", Str(m, "b"))
	assert.Equal(t, "", Str(m, "missing"))
}

func TestFirstStr(t *testing.T) {
	m := map[string]any{"post_mortem": "", "incident_report": "report"}
	assert.Equal(t, "report", FirstStr(m, "post_mortem", "incident_report"))
	assert.Equal(t, "", FirstStr(m, "pr_diff", "remedy_patch"))
}

func TestNum(t *testing.T) {
	m := map[string]any{"a": 0.75, "b": "high"}
	assert.Equal(t, 0.75, Num(m, "a"))
	assert.Equal(t, 0.0, Num(m, "b"))
	assert.Equal(t, 0.0, Num(m, "missing"))
}

func TestStrList(t *testing.T) {
	m := map[string]any{
		"good":  []any{"a", "b"},
		"mixed": []any{"a", 1.0, "b"},
		"bad":   "not a list",
	}
	assert.Equal(t, []string{"a", "b"}, StrList(m, "good"))
	assert.Equal(t, []string{"a", "b"}, StrList(m, "mixed"))
	assert.Empty(t, StrList(m, "bad"))
	assert.Empty(t, StrList(m, "missing"))
}
