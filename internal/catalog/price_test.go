package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		cents    int64
		currency string
		want     string
	}{
		{420000, "ZAR", "R4200.00"},
		{1220000, "", "R12200.00"},
		{1999, "USD", "$19.99"},
		{5, "EUR", "€0.05"},
		{-20000, "ZAR", "-R200.00"},
		{100, "JPY", "JPY 1.00"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatPrice(tt.cents, tt.currency))
		})
	}
}
