package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSensitiveString(t *testing.T) {
	assert.Equal(t, "", MaskSensitiveString("", 2, 2))
	assert.Equal(t, "*****", MaskSensitiveString("short", 2, 2))
	assert.Equal(t, "20...03", MaskSensitiveString("20100066603", 2, 2))
}

func TestMaskTaxID(t *testing.T) {
	assert.Equal(t, "", MaskTaxID(""))
	assert.Equal(t, "*****", MaskTaxID("12345"))
	assert.Equal(t, "20...03", MaskTaxID("20100066603"))
}
