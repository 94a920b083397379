// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package modeling

import "errors"

// ErrNotFound is returned when a referenced row does not exist, or exists but
// the caller's groups grant no access. The two cases are deliberately
// indistinguishable so existence is never leaked.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller's role tier is insufficient.
// Distinct from ErrNotFound; checked before any data is touched.
var ErrForbidden = errors.New("forbidden")

// ValidationError is an expected, user-facing rule violation. Its message is
// propagated to the caller unchanged and is never logged as a system fault.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
