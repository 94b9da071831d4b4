package decimal_test

import (
	"testing"

	dec "github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/ubl-pdf/internal/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		currency string
		expected string
	}{
		{"plain dot decimal", "1234.50", "", "1234.50"},
		{"integer", "1000", "EUR", "1000"},
		{"comma grouping dot decimal", "1,234.50", "EUR", "1234.50"},
		{"dot grouping comma decimal", "1.234,50", "EUR", "1234.50"},
		{"space grouping", "1 234,50", "", "1234.50"},
		{"nbsp grouping", "1\u00a0234,50", "", "1234.50"},
		{"apostrophe grouping", "1'234.50", "CHF", "1234.50"},
		{"comma decimal two places", "12,5", "", "12.5"},
		{"repeated dot grouping", "1.234.567", "", "1234567"},
		{"repeated comma grouping", "1,234,567", "", "1234567"},
		{"usd comma thousands", "1,000", "USD", "1000"},
		{"sek comma decimal", "1,000", "SEK", "1.000"},
		{"usd dot decimal three places", "1.000", "USD", "1.000"},
		{"eur canonical three places", "12.500", "EUR", "12.500"},
		{"unknown currency canonical", "12.345", "XYZ", "12.345"},
		{"no hint canonical", "1.000", "", "1.000"},
		{"vnd dot thousands", "12.500", "VND", "12500"},
		{"lowercase currency", "1,000", "usd", "1000"},
		{"leading zero is decimal", "0.125", "", "0.125"},
		{"four leading digits is decimal", "1234.567", "", "1234.567"},
		{"negative", "-5.00", "", "-5.00"},
		{"explicit plus", "+5.00", "", "5.00"},
		{"leading separator", ".5", "", "0.5"},
		{"surrounding whitespace", "  42.00\n", "", "42.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := decimal.ParseAmount(tt.text, tt.currency)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, decimal.FormatFixed(d))
		})
	}
}

func TestParseAmount_Errors(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		currency string
		expected error
	}{
		{"empty", "", "", decimal.ErrEmptyAmount},
		{"blank", "   ", "", decimal.ErrEmptyAmount},
		{"letters", "abc", "", decimal.ErrInvalidAmount},
		{"sign only", "-", "", decimal.ErrInvalidAmount},
		{"trailing separator", "12.", "", decimal.ErrInvalidAmount},
		{"bad grouping", "1,23.45", "", decimal.ErrInvalidAmount},
		{"bad repeated grouping", "1.2.3", "", decimal.ErrInvalidAmount},
		{"two decimal separators", "1,234.5.6", "", decimal.ErrInvalidAmount},
		{"eur ambiguous comma", "1,000", "EUR", decimal.ErrAmbiguousAmount},
		{"no hint ambiguous", "1,000", "", decimal.ErrAmbiguousAmount},
		{"unknown currency ambiguous", "12,345", "XYZ", decimal.ErrAmbiguousAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decimal.ParseAmount(tt.text, tt.currency)
			require.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		text     string
		expected string
	}{
		{"10", "10"},
		{"2.5", "2.5"},
		{"1.000", "1.000"},
		{"1,5", "1.5"},
		{".5", "0.5"},
		{"3.", "3"},
		{" 7 ", "7"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			d, err := decimal.ParseQuantity(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, decimal.FormatFixed(d))
		})
	}

	_, err := decimal.ParseQuantity("ten")
	require.ErrorIs(t, err, decimal.ErrInvalidAmount)

	_, err = decimal.ParseQuantity("")
	require.ErrorIs(t, err, decimal.ErrEmptyAmount)
}

func TestParseNull(t *testing.T) {
	nd := decimal.ParseNull(decimal.ParseAmount("9.99", ""))
	require.True(t, nd.Valid)
	assert.True(t, nd.Decimal.Equal(dec.RequireFromString("9.99")))

	nd = decimal.ParseNull(decimal.ParseAmount("1.000", "EUR"))
	assert.False(t, nd.Valid)
}

func TestDecimalSeparator(t *testing.T) {
	sep, ok := decimal.DecimalSeparator("GBP")
	require.True(t, ok)
	assert.Equal(t, byte('.'), sep)

	sep, ok = decimal.DecimalSeparator(" brl ")
	require.True(t, ok)
	assert.Equal(t, byte(','), sep)

	_, ok = decimal.DecimalSeparator("EUR")
	assert.False(t, ok)
}

func TestFormatFixed_PreservesPrecision(t *testing.T) {
	assert.Equal(t, "10.00", decimal.FormatFixed(dec.RequireFromString("10.00")))
	assert.Equal(t, "0.1", decimal.FormatFixed(dec.RequireFromString("0.1")))
	assert.Equal(t, "1000000", decimal.FormatFixed(dec.NewFromInt(1000000)))
	assert.NotContains(t, decimal.FormatFixed(dec.RequireFromString("0.00000001")), "e")
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "not available", decimal.FormatAmount(dec.NullDecimal{}, "EUR"))
	assert.Equal(t, "1234.50 EUR",
		decimal.FormatAmount(dec.NewNullDecimal(dec.RequireFromString("1234.50")), "EUR"))
	assert.Equal(t, "12.5",
		decimal.FormatAmount(dec.NewNullDecimal(dec.RequireFromString("12.5")), ""))
}

func TestFormatQuantity(t *testing.T) {
	assert.Equal(t, "not available", decimal.FormatQuantity(dec.NullDecimal{}))
	assert.Equal(t, "3", decimal.FormatQuantity(dec.NewNullDecimal(dec.NewFromInt(3))))
}

func TestSum(t *testing.T) {
	values := []dec.Decimal{
		dec.RequireFromString("100.50"),
		dec.NewFromInt(200),
		dec.RequireFromString("0.25"),
	}
	result := decimal.Sum(values)
	assert.True(t, result.Equal(dec.RequireFromString("300.75")))
}

func TestSum_Empty(t *testing.T) {
	result := decimal.Sum([]dec.Decimal{})
	assert.True(t, result.IsZero())
}
