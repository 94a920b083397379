// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package modeling

import (
	"errors"
	"strings"
	"time"
)

// PropertyDataType identifies the declared format of a property value.
type PropertyDataType string

// Property data types.
const (
	DataTypeText   PropertyDataType = "text"
	DataTypeNumber PropertyDataType = "number"
	DataTypeDate   PropertyDataType = "date"
)

// ErrInvalidDataType indicates an unrecognized property data type.
var ErrInvalidDataType = errors.New("invalid property data type")

// String returns the string representation of the data type.
func (t PropertyDataType) String() string {
	return string(t)
}

// Validate checks that the data type is known.
func (t PropertyDataType) Validate() error {
	switch t {
	case DataTypeText, DataTypeNumber, DataTypeDate:
		return nil
	default:
		return ErrInvalidDataType
	}
}

// ValidDataTypes returns all valid property data types.
func ValidDataTypes() []PropertyDataType {
	return []PropertyDataType{DataTypeText, DataTypeNumber, DataTypeDate}
}

// dateLayouts are the accepted date value formats.
var dateLayouts = []string{"2006-01-02", "02.01.2006"}

// CheckValue verifies that value conforms to the data type's format. The
// empty string is always accepted: it represents an unset property, which
// every newly fanned-out property row starts as.
func (t PropertyDataType) CheckValue(value string) Status {
	if value == "" {
		return Ok()
	}
	switch t {
	case DataTypeText:
		return Ok()
	case DataTypeNumber:
		if !isNumeric(value) {
			return Errorf("value %q is not a valid number", value)
		}
		return Ok()
	case DataTypeDate:
		for _, layout := range dateLayouts {
			if _, err := time.Parse(layout, value); err == nil {
				return Ok()
			}
		}
		return Errorf("value %q is not a valid date", value)
	default:
		return Errorf("unknown data type %q", t)
	}
}

// isNumeric implements the locale-tolerant numeric grammar: optional sign,
// digit groups separated by ',' or '.', at most one decimal separator which
// must differ from the grouping separator, optional exponent with mandatory
// digits. Both "12,000,000.0" and "12.000.000,0" are valid.
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '+' || s[0] == '-' {
		s = s[1:]
	}

	// Split off exponent. The mantissa and the exponent digits are both
	// mandatory when an exponent marker is present.
	mantissa := s
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		mantissa = s[:i]
		exp := s[i+1:]
		if len(exp) > 0 && (exp[0] == '+' || exp[0] == '-') {
			exp = exp[1:]
		}
		if !allDigits(exp) || exp == "" {
			return false
		}
	}
	if mantissa == "" {
		return false
	}

	// The mantissa may contain only digits and the two separator characters,
	// must not begin or end with a separator, and must not contain adjacent
	// separators.
	groups, seps, ok := splitGroups(mantissa)
	if !ok {
		return false
	}
	if len(seps) == 0 {
		return true
	}

	commas := strings.Count(string(seps), ",")
	dots := strings.Count(string(seps), ".")

	if commas > 0 && dots > 0 {
		// Mixed separators: the final separator is the decimal point and must
		// be the only occurrence of its character; the rest are grouping.
		last := seps[len(seps)-1]
		if strings.Count(string(seps), string(last)) != 1 {
			return false
		}
		return validGrouping(groups[:len(groups)-1])
	}

	// A single separator character. One occurrence is ambiguous (decimal or
	// grouping) and accepted. Repeated occurrences must form valid grouping.
	if len(seps) == 1 {
		return true
	}
	return validGrouping(groups)
}

// splitGroups splits a mantissa into digit groups and the separators between
// them. Returns ok=false on illegal characters, empty groups (leading,
// trailing, or adjacent separators), or no digits at all.
func splitGroups(s string) (groups []string, seps []byte, ok bool) {
	current := strings.Builder{}
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] >= '0' && s[i] <= '9':
			current.WriteByte(s[i])
		case s[i] == ',' || s[i] == '.':
			if current.Len() == 0 {
				return nil, nil, false
			}
			groups = append(groups, current.String())
			seps = append(seps, s[i])
			current.Reset()
		default:
			return nil, nil, false
		}
	}
	if current.Len() == 0 {
		return nil, nil, false
	}
	groups = append(groups, current.String())
	return groups, seps, true
}

// validGrouping checks thousands grouping: the leading group has 1-3 digits
// and every following group exactly 3.
func validGrouping(groups []string) bool {
	if len(groups) == 0 {
		return false
	}
	if len(groups[0]) < 1 || len(groups[0]) > 3 {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
	}
	return true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
