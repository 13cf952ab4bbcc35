package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]any
	}{
		{
			name: "clean object passes through",
			raw:  `{"title": "Dal"}`,
			want: map[string]any{"title": "Dal"},
		},
		{
			name: "json code fence",
			raw:  "```json\n{\"title\": \"Dal\"}\n```",
			want: map[string]any{"title": "Dal"},
		},
		{
			name: "bare code fence",
			raw:  "```\n{\"title\": \"Dal\"}\n```",
			want: map[string]any{"title": "Dal"},
		},
		{
			name: "leading and trailing prose",
			raw:  "Here is the recipe you asked for:\n{\"title\": \"Dal\"}\nHope that helps!",
			want: map[string]any{"title": "Dal"},
		},
		{
			name: "trailing commas in object and array",
			raw:  `{"title": "Dal", "tags": ["Vegan", "Gluten-Free",],}`,
			want: map[string]any{"title": "Dal", "tags": []any{"Vegan", "Gluten-Free"}},
		},
		{
			name: "line comments removed on second attempt",
			raw:  "{\"score\": 7.5, // out of ten\n\"title\": \"Dal\"}",
			want: map[string]any{"score": 7.5, "title": "Dal"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repaired, err := RepairJSON(tt.raw)
			require.NoError(t, err)

			var got map[string]any
			require.NoError(t, json.Unmarshal(repaired, &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

// Repair must be idempotent: repairing already-repaired output with trailing
// commas re-injected still parses.
func TestRepairJSON_Idempotent(t *testing.T) {
	first, err := RepairJSON("```json\n{\"a\": [1, 2,],}\n```")
	require.NoError(t, err)

	reinjected := string(first[:len(first)-1]) + ",}"
	second, err := RepairJSON(reinjected)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(second, &got))
	assert.Equal(t, map[string]any{"a": []any{1.0, 2.0}}, got)
}

func TestRepairJSON_Unrepairable(t *testing.T) {
	_, err := RepairJSON("the model refused to answer")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid JSON")
}
