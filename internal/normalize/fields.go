package normalize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// NotAvailable is OMDb's marker for a missing value.
const NotAvailable = "N/A"

// ReleasedLayout is the OMDb "Released" format, e.g. "14 Oct 1994".
const ReleasedLayout = "2 Jan 2006"

var (
	reLeadingYear = regexp.MustCompile(`^[0-9]{4}`)
	reFirstDigits = regexp.MustCompile(`[0-9]+`)
)

// Present returns v, or nil for blank-like values: nil, empty or
// whitespace-only strings and "N/A".
func Present(v any) any {
	if v == nil {
		return nil
	}
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" || s == NotAvailable {
			return nil
		}
	}
	return v
}

// Text returns the value as a string, or nil when blank-like. The text is
// kept as received.
func Text(v any) *string {
	v = Present(v)
	if v == nil {
		return nil
	}
	s := stringOf(v)
	return &s
}

// Year accepts a leading 4-digit run ("2014–2019" -> 2014) or a native
// integer. Floats, even integral ones, yield nil.
func Year(v any) *int {
	switch t := Present(v).(type) {
	case string:
		m := reLeadingYear.FindString(strings.TrimSpace(t))
		if m == "" {
			return nil
		}
		y, _ := strconv.Atoi(m)
		return &y
	case int:
		return &t
	case int64:
		y := int(t)
		return &y
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return nil
		}
		y := int(n)
		return &y
	}
	return nil
}

// RuntimeMinutes takes the first run of digits ("142 min" -> 142).
func RuntimeMinutes(v any) *int {
	v = Present(v)
	if v == nil {
		return nil
	}
	m := reFirstDigits.FindString(stringOf(v))
	if m == "" {
		return nil
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return nil
	}
	return &n
}

// IntWithCommas drops thousands separators ("2,500,000" -> 2500000) and
// accepts the rest only if it is all digits.
func IntWithCommas(v any) *int64 {
	v = Present(v)
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(strings.ReplaceAll(stringOf(v), ",", ""))
	return allDigits(s)
}

// BoxOffice strips a leading "$" and thousands separators
// ("$28,699,976" -> 28699976).
func BoxOffice(v any) *int64 {
	v = Present(v)
	if v == nil {
		return nil
	}
	s := strings.TrimPrefix(strings.TrimSpace(stringOf(v)), "$")
	return allDigits(strings.ReplaceAll(s, ",", ""))
}

// Float parses the trimmed text as a float64; non-numeric text yields nil.
func Float(v any) *float64 {
	v = Present(v)
	if v == nil {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(stringOf(v)), 64)
	if err != nil {
		return nil
	}
	return &f
}

// ReleasedDate parses ReleasedLayout; anything else yields nil.
func ReleasedDate(v any) *datatypes.Date {
	v = Present(v)
	if v == nil {
		return nil
	}
	t, err := time.Parse(ReleasedLayout, strings.TrimSpace(stringOf(v)))
	if err != nil {
		return nil
	}
	d := datatypes.Date(t)
	return &d
}

func allDigits(s string) *int64 {
	if s == "" {
		return nil
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return nil
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func stringOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
