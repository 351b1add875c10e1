package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplate(t *testing.T) {
	tests := []struct {
		name string
		text string
		data map[string]any
		want string
	}{
		{"no markers", "plain text", nil, "plain text"},
		{"simple substitution", "hello {{.name}}", map[string]any{"name": "world"}, "hello world"},
		{"upper", "{{upper .s}}", map[string]any{"s": "loud"}, "LOUD"},
		{"lower", "{{lower .s}}", map[string]any{"s": "QUIET"}, "quiet"},
		{"title", "{{title .s}}", map[string]any{"s": "gOPHER"}, "Gopher"},
		{"default used", `{{default "n/a" .missing}}`, map[string]any{}, "n/a"},
		{"default skipped", `{{default "n/a" .v}}`, map[string]any{"v": "set"}, "set"},
		{"join", `{{join ", " .items}}`, map[string]any{"items": []any{"a", "b", 3}}, "a, b, 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderTemplate(tt.text, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderTemplate_ParseError(t *testing.T) {
	_, err := RenderTemplate("{{.bad", nil)
	assert.Error(t, err)
}
