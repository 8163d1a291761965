package masks

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// maxCurrencyDigits keeps the cents value inside int64 and float64 precision.
const maxCurrencyDigits = 15

// CurrencyFormatter renders integer cents with locale grouping and decimal
// separators.
type CurrencyFormatter struct {
	printer *message.Printer
	symbol  string
	unit    currency.Unit
}

// NewCurrencyFormatter builds a formatter for a BCP 47 locale. The ISO code
// is derived from the locale's region; symbol is printed before the amount.
func NewCurrencyFormatter(locale, symbol string) (*CurrencyFormatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("masks: invalid locale %q: %w", locale, err)
	}
	unit, conf := currency.FromTag(tag)
	if conf == language.No {
		unit = currency.BRL
	}
	if strings.TrimSpace(symbol) == "" {
		symbol = unit.String()
	}
	return &CurrencyFormatter{
		printer: message.NewPrinter(tag),
		symbol:  symbol,
		unit:    unit,
	}, nil
}

// DefaultCurrency formats Brazilian reais.
func DefaultCurrency() *CurrencyFormatter {
	f, _ := NewCurrencyFormatter("pt-BR", "R$")
	return f
}

// Code returns the ISO 4217 code.
func (f *CurrencyFormatter) Code() string {
	return f.unit.String()
}

// FormatCents renders cents/100 in the formatter's locale.
func (f *CurrencyFormatter) FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	amount := f.printer.Sprint(number.Decimal(float64(cents)/100, number.Scale(2)))
	return sign + f.symbol + " " + amount
}

// Input re-derives the amount from every digit typed so far, so the field
// fills from the right: "1" -> 0,01, "10" -> 0,10, "100" -> 1,00.
func (f *CurrencyFormatter) Input(typed string) Value {
	raw := strings.TrimLeft(Digits(typed), "0")
	if len(raw) > maxCurrencyDigits {
		raw = raw[:maxCurrencyDigits]
	}
	return Value{Raw: raw, Display: f.FormatCents(ParseCents(raw))}
}

// ParseCents converts a raw digit string to cents. Empty or invalid input is 0.
func ParseCents(raw string) int64 {
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return v
}
