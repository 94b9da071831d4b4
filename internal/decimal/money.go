package decimal

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rezonia/ubl-pdf/internal/model"
)

// Zero is decimal zero
var Zero = decimal.Zero

var (
	// ErrEmptyAmount is returned for blank amount text
	ErrEmptyAmount = errors.New("empty amount")
	// ErrInvalidAmount is returned when the text is not a number in any recognized convention
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrAmbiguousAmount is returned when the decimal separator cannot be determined
	ErrAmbiguousAmount = errors.New("ambiguous decimal separator")
)

// canonical xsd:decimal lexical form
var xsdDecimal = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// decimalSeparators maps ISO 4217 codes to the decimal separator their
// dominant locale uses. Currencies shared by locales with different
// conventions (EUR) are deliberately absent.
var decimalSeparators = map[string]byte{
	"USD": '.', "GBP": '.', "JPY": '.', "CNY": '.', "AUD": '.', "CAD": '.',
	"NZD": '.', "INR": '.', "SGD": '.', "HKD": '.', "MXN": '.', "KRW": '.',
	"ILS": '.', "THB": '.', "PHP": '.', "MYR": '.', "CHF": '.', "TWD": '.',

	"BRL": ',', "ARS": ',', "CLP": ',', "COP": ',', "IDR": ',', "VND": ',',
	"TRY": ',', "RUB": ',', "UAH": ',', "PLN": ',', "CZK": ',', "DKK": ',',
	"NOK": ',', "SEK": ',', "HUF": ',', "RON": ',', "BGN": ',', "ISK": ',',
	"RSD": ',',
}

// DecimalSeparator returns the known decimal separator for a currency code
func DecimalSeparator(currency string) (byte, bool) {
	sep, ok := decimalSeparators[strings.ToUpper(strings.TrimSpace(currency))]
	return sep, ok
}

// ParseAmount parses a monetary amount, tolerating thousands separators and
// both '.' and ',' decimal conventions. A single separator followed by exactly
// three digits is resolved through the currency's known convention. Without
// one, a dot reads as the xsd:decimal point and a comma yields
// ErrAmbiguousAmount; the caller must then leave the value absent.
func ParseAmount(text, currency string) (decimal.Decimal, error) {
	s := stripGrouping(text)
	if s == "" {
		return Zero, ErrEmptyAmount
	}

	sign := ""
	if s[0] == '-' || s[0] == '+' {
		if s[0] == '-' {
			sign = "-"
		}
		s = s[1:]
	}
	if s == "" {
		return Zero, ErrInvalidAmount
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && c != '.' && c != ',' {
			return Zero, ErrInvalidAmount
		}
	}

	intPart, frac, err := splitSeparators(s, currency)
	if err != nil {
		return Zero, err
	}
	if intPart == "" {
		intPart = "0"
	}

	normalized := sign + intPart
	if frac != "" {
		normalized += "." + frac
	}

	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseQuantity parses an invoiced quantity. The canonical xsd:decimal form is
// accepted as-is; anything else falls back to ParseAmount without a currency hint.
func ParseQuantity(text string) (decimal.Decimal, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return Zero, ErrEmptyAmount
	}
	if xsdDecimal.MatchString(s) {
		s = strings.TrimSuffix(s, ".")
		if strings.HasPrefix(s, ".") || strings.HasPrefix(s, "-.") || strings.HasPrefix(s, "+.") {
			s = strings.Replace(s, ".", "0.", 1)
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return Zero, ErrInvalidAmount
		}
		return d, nil
	}
	return ParseAmount(s, "")
}

// ParseNull wraps a parse result as a NullDecimal, Valid only on success
func ParseNull(d decimal.Decimal, err error) decimal.NullDecimal {
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func splitSeparators(s, currency string) (string, string, error) {
	dots := strings.Count(s, ".")
	commas := strings.Count(s, ",")

	switch {
	case dots == 0 && commas == 0:
		return s, "", nil

	case dots > 0 && commas > 0:
		// the separator occurring last is the decimal one
		decSep, grpSep := byte('.'), ","
		if strings.LastIndexByte(s, ',') > strings.LastIndexByte(s, '.') {
			decSep, grpSep = ',', "."
		}
		if strings.Count(s, string(decSep)) != 1 {
			return "", "", ErrInvalidAmount
		}
		idx := strings.LastIndexByte(s, decSep)
		frac := s[idx+1:]
		if frac == "" {
			return "", "", ErrInvalidAmount
		}
		intPart, err := ungroup(s[:idx], grpSep)
		if err != nil {
			return "", "", err
		}
		return intPart, frac, nil
	}

	sep := byte('.')
	count := dots
	if commas > 0 {
		sep, count = ',', commas
	}

	if count > 1 {
		intPart, err := ungroup(s, string(sep))
		return intPart, "", err
	}

	idx := strings.IndexByte(s, sep)
	intPart, frac := s[:idx], s[idx+1:]
	if frac == "" {
		return "", "", ErrInvalidAmount
	}
	// only 1-3 leading digits without a leading zero can be a thousands group
	if len(frac) != 3 || intPart == "" || len(intPart) > 3 || intPart[0] == '0' {
		return intPart, frac, nil
	}

	known, ok := DecimalSeparator(currency)
	switch {
	case !ok && sep == '.':
		// xsd:decimal, the lexical space of UBL amounts, has only the dot
		return intPart, frac, nil
	case !ok:
		return "", "", ErrAmbiguousAmount
	case known == sep:
		return intPart, frac, nil
	default:
		grouped, err := ungroup(s, string(sep))
		return grouped, "", err
	}
}

// ungroup removes thousands separators, requiring 1-3 leading digits and
// groups of exactly three after each separator
func ungroup(s, sep string) (string, error) {
	groups := strings.Split(s, sep)
	for i, g := range groups {
		if g == "" {
			return "", ErrInvalidAmount
		}
		if i == 0 && len(g) > 3 && len(groups) > 1 {
			return "", ErrInvalidAmount
		}
		if i > 0 && len(g) != 3 {
			return "", ErrInvalidAmount
		}
	}
	return strings.Join(groups, ""), nil
}

func stripGrouping(text string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '\u00a0', '\u202f', '\u2009', '\'', '\u2019':
			return -1
		}
		return r
	}, text)
}

// FormatFixed renders d in fixed-point notation with exactly the number of
// decimal places it was parsed with
func FormatFixed(d decimal.Decimal) string {
	places := -d.Exponent()
	if places < 0 {
		places = 0
	}
	return d.StringFixed(places)
}

// FormatAmount renders an optional amount with its currency code, or the
// not-available marker when absent
func FormatAmount(d decimal.NullDecimal, currency string) string {
	if !d.Valid {
		return model.NotAvailable
	}
	s := FormatFixed(d.Decimal)
	if currency != "" {
		s += " " + currency
	}
	return s
}

// FormatQuantity renders an optional quantity, or the not-available marker
func FormatQuantity(d decimal.NullDecimal) string {
	if !d.Valid {
		return model.NotAvailable
	}
	return FormatFixed(d.Decimal)
}

// Sum sums a slice of decimals
func Sum(values []decimal.Decimal) decimal.Decimal {
	result := Zero
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}
