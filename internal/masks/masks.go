// Package masks formats and unformats the masked fields used by public forms.
// Raw values are always plain digit strings; display values are never sent
// to collaborators.
package masks

import "strings"

// Value pairs what the visitor sees with what the rest of the system uses.
type Value struct {
	Raw     string `json:"raw"`
	Display string `json:"display"`
}

const (
	phoneMaxDigits    = 11
	identityMaxDigits = 11
)

// Digits strips every non-digit character.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func capDigits(s string, max int) string {
	d := Digits(s)
	if len(d) > max {
		d = d[:max]
	}
	return d
}

// UnmaskPhone returns the phone digits, ignoring anything past 11 digits.
func UnmaskPhone(s string) string {
	return capDigits(s, phoneMaxDigits)
}

// MaskPhone renders area code plus two blocks. Up to ten digits use a four
// digit first block, eleven digits use five: (DD) DDDD-DDDD or (DD) DDDDD-DDDD.
// Partial input is masked progressively.
func MaskPhone(s string) string {
	d := UnmaskPhone(s)
	switch n := len(d); {
	case n == 0:
		return ""
	case n <= 2:
		return "(" + d
	case n <= 6:
		return "(" + d[:2] + ") " + d[2:]
	case n <= 10:
		return "(" + d[:2] + ") " + d[2:6] + "-" + d[6:]
	default:
		return "(" + d[:2] + ") " + d[2:7] + "-" + d[7:]
	}
}

// Phone processes a typed phone value.
func Phone(typed string) Value {
	raw := UnmaskPhone(typed)
	return Value{Raw: raw, Display: MaskPhone(raw)}
}

// UnmaskIdentity returns the identity-number digits, capped at 11.
func UnmaskIdentity(s string) string {
	return capDigits(s, identityMaxDigits)
}

// MaskIdentity groups the digits as DDD.DDD.DDD-DD, progressively.
func MaskIdentity(s string) string {
	d := UnmaskIdentity(s)
	var b strings.Builder
	for i, r := range d {
		switch i {
		case 3, 6:
			b.WriteByte('.')
		case 9:
			b.WriteByte('-')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Identity processes a typed identity number.
func Identity(typed string) Value {
	raw := UnmaskIdentity(typed)
	return Value{Raw: raw, Display: MaskIdentity(raw)}
}
