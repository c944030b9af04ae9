package errors

import "errors"

// CodeOf extracts the ErrorCode from any error in the chain, returning
// Unknown for foreign errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code()
	}
	return Unknown
}

// IsCode reports whether any error in the chain carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
