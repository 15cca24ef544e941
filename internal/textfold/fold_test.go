package textfold

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"ascii lower", "manual", "manual"},
		{"ascii upper", "MANUAL", "manual"},
		{"umlaut", "Käffeemaschine", "kaffeemaschine"},
		{"acute", "Café Crème", "cafe creme"},
		{"sharp s", "STRAßE", "strasse"},
		{"precomposed vs decomposed", "é", "e"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fold(tt.input))
		})
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "kuche gerate", Key("  Küche   Geräte "))
	assert.Equal(t, Key("Garten"), Key("GARTEN"))
}

func TestContains(t *testing.T) {
	assert.True(t, Contains("Handbuch Fernseher", "fern"))
	assert.True(t, Contains("Bedienungsanleitung Kühlschrank", "KUHL"))
	assert.True(t, Contains("kuehl.pdf", ""))
	assert.False(t, Contains("Handbuch", "radio"))
}
