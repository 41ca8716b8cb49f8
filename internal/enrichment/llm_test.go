package enrichment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSONFindsArrayWithinProse(t *testing.T) {
	raw := "Sure, here you go:\n```json\n[{\"text\":\"Kyiv\",\"type\":\"location\"}]\n```\nLet me know if you need more."
	assert.Equal(t, `[{"text":"Kyiv","type":"location"}]`, extractJSON(raw))
}

func TestExtractJSONReturnsEmptyArrayWhenNoBrackets(t *testing.T) {
	assert.Equal(t, "[]", extractJSON("no structured data here"))
}

func TestExtractJSONReturnsEmptyArrayWhenBracketsReversed(t *testing.T) {
	assert.Equal(t, "[]", extractJSON("] malformed [ text"))
}

func TestExtractJSONPassesThroughBareArray(t *testing.T) {
	assert.Equal(t, "[]", extractJSON("[]"))
}
