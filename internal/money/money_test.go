package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBRL(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"R$ 47,58", 47.58},
		{"R$ -10.690,39", -10690.39},
		{"R$ 1.234.567,89", 1234567.89},
		{"47,58", 47.58},
		{"  R$   0,99  ", 0.99},
		{"R$ 10", 10},
		{"-R$ 5,00", -5},
		{"R$ 5,00-", -5},
		{"R$ 12,5abc", 12.5},
		{"", 0},
		{"R$", 0},
		{"garbage", 0},
		{"R$ -", 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, ParseBRL(tt.input), 1e-9, "ParseBRL(%q)", tt.input)
	}
}

func TestFormatBRL(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{47.58, "R$ 47,58"},
		{-10690.39, "R$ -10.690,39"},
		{1234567.891, "R$ 1.234.567,89"},
		{0, "R$ 0,00"},
		{100, "R$ 100,00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBRL(tt.input), "FormatBRL(%v)", tt.input)
	}
}
