package ordersync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want OrderKey
	}{
		{"persian digits", "۰۱۲۳۴۵۶۷۸۹", "0123456789"},
		{"trailing float suffix", "123456.0", "123456"},
		{"persian digits with float suffix", "۵۵۵.0", "555"},
		{"surrounding whitespace", "  987654 ", "987654"},
		{"already canonical", "123456", "123456"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"mixed digits", "۱2۳4", "1234"},
		{"non numeric passthrough", "DKC-۱۲۳", "DKC-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeKey(tt.raw))
		})
	}
}

func TestNormalizeKey_Idempotent(t *testing.T) {
	inputs := []string{"۰۱۲۳۴۵۶۷۸۹", "123456.0", "", "  ۷۷.0 ", "abc", "۹۹۹"}
	for _, raw := range inputs {
		once := NormalizeKey(raw)
		twice := NormalizeKey(once.String())
		assert.Equal(t, once, twice, "normalize must be idempotent for %q", raw)
	}
}

func TestOrderKey_IsEmpty(t *testing.T) {
	assert.True(t, NormalizeKey("").IsEmpty())
	assert.True(t, NormalizeKey("  ").IsEmpty())
	assert.False(t, NormalizeKey("1").IsEmpty())
}
