package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("Today is {{.today}}.", map[string]any{"today": "2025-01-02"})
	require.NoError(t, err)
	assert.Equal(t, "Today is 2025-01-02.", out)

	out, err = RenderTemplate("no markers", nil)
	require.NoError(t, err)
	assert.Equal(t, "no markers", out)

	out, err = RenderTemplate("[{{.missing}}]", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "[]", out)

	out, err = RenderTemplate("<b>{{.x}}</b>", map[string]any{"x": "a & b"})
	require.NoError(t, err)
	assert.Equal(t, "<b>a & b</b>", out, "prompt text must not be HTML escaped")

	_, err = RenderTemplate("{{.broken", nil)
	assert.Error(t, err)
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
