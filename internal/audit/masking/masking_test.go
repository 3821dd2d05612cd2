package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret("  "))
	assert.Equal(t, "****", MaskSecret("081"))
	assert.Equal(t, "****3344", MaskSecret("081122333344"))
}

func TestMaskJSON(t *testing.T) {
	out := MaskJSON(map[string]any{
		"phone":  "081122333344",
		"status": "CANCELLED",
		"nested": map[string]any{"delivery_address": "Jl. Merdeka 10"},
		"":       "dropped",
	})

	assert.Equal(t, "****3344", out["phone"])
	assert.Equal(t, "CANCELLED", out["status"])
	assert.Equal(t, map[string]any{"delivery_address": "****a 10"}, out["nested"])
	assert.NotContains(t, out, "")
	assert.Nil(t, MaskJSON(nil))
}
