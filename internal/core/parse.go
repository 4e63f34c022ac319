package core

// parse.go provides the value interpreters behind schema inference and the
// coercions applied when rows are loaded into an engine-managed table.
//
// Inference and loading deliberately use different strictness:
//
//   - Inference checkers (fitsInteger, fitsFloat, fitsBoolean, fitsDatetime)
//     are strict, so widening stays predictable. BOOLEAN accepts only
//     true/false; a column of "1"/"0" infers INTEGER, and a mix like
//     ["1","true"] widens all the way to STRING.
//   - Load coercions (CoerceValue) handle the messy reality of user data:
//     currency symbols, thousands separators, accounting negatives, y/n
//     booleans.

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// numericRegex validates a numeric string after cleanup. Matches integers,
// decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// datetimeLayouts is the fixed, ordered layout list used both to detect
// DATETIME values during inference and to coerce them at load time. Order
// matters for determinism; first match wins.
var datetimeLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"Jan 2, 2006",
	"2 Jan 2006",
	"20060102",
}

// CleanCell removes common artifacts from a cell value:
//   - surrounding whitespace
//   - Excel formula prefix (="...")
//   - surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)

	return s
}

// fitsInteger reports whether s is a base-10 64-bit integer literal.
func fitsInteger(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

// fitsFloat reports whether s is a 64-bit float literal.
func fitsFloat(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// fitsBoolean reports whether s is exactly true or false, case-insensitive.
// Deliberately narrower than the load-time boolean coercion.
func fitsBoolean(s string) bool {
	return strings.EqualFold(s, "true") || strings.EqualFold(s, "false")
}

// fitsDatetime reports whether s matches one of the known datetime layouts.
func fitsDatetime(s string) bool {
	_, ok := ParseDatetime(s)
	return ok
}

// ParseDatetime parses s against the fixed layout list.
func ParseDatetime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseBool coerces the boolean spellings that show up in real files.
// Accepts true/false, t/f, yes/no, y/n, 1/0.
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1":
		return true, true
	case "false", "f", "no", "n", "0":
		return false, true
	}
	return false, false
}

// ParseNumeric coerces a numeric string, tolerating currency symbols,
// thousands separators, and the accounting negative format "(123.45)".
func ParseNumeric(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if negative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return 0, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// CoerceValue converts a raw cell to the Go value loaded for the given
// column type. Empty cells coerce to nil (SQL NULL). Custom column types
// pass the raw string through untouched.
func CoerceValue(columnType string, raw string) (any, error) {
	cleaned := CleanCell(raw)
	if cleaned == "" {
		return nil, nil
	}

	if IsCustomType(columnType) {
		return cleaned, nil
	}

	switch ColumnType(columnType) {
	case TypeBoolean:
		b, ok := ParseBool(cleaned)
		if !ok {
			return nil, fmt.Errorf("invalid boolean %q", raw)
		}
		return b, nil
	case TypeDatetime:
		t, ok := ParseDatetime(cleaned)
		if !ok {
			return nil, fmt.Errorf("invalid datetime %q", raw)
		}
		return t, nil
	case TypeFloat:
		f, ok := ParseNumeric(cleaned)
		if !ok {
			return nil, fmt.Errorf("invalid float %q", raw)
		}
		return f, nil
	case TypeInteger:
		n, err := strconv.ParseInt(strings.ReplaceAll(cleaned, ",", ""), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", raw)
		}
		return n, nil
	case TypeString:
		return cleaned, nil
	}

	return cleaned, nil
}
