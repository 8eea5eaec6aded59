package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "spaced", input: "linea Captura", want: "lineacaptura"},
		{name: "pascal", input: "LineaCaptura", want: "lineacaptura"},
		{name: "snake", input: "linea_captura", want: "lineacaptura"},
		{name: "tabs and newlines", input: "Fecha\tVigencia\n", want: "fechavigencia"},
		{name: "empty", input: "", want: ""},
		{name: "accents kept", input: "Línea_Captura", want: "líneacaptura"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeKey(tt.input))
		})
	}
}

func TestCollapseSpaces(t *testing.T) {
	assert.Equal(t, "María del Carmen", CollapseSpaces("  María   del  Carmen "))
	assert.Equal(t, "", CollapseSpaces("   "))
}
