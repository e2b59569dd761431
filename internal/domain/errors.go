package domain

import "errors"

var (
	// ErrInputUnreadable is returned when the protected script cannot be loaded.
	ErrInputUnreadable = errors.New("input unreadable")
	// ErrDecode marks a value whose byte sequence could not be decoded.
	ErrDecode = errors.New("decode failure")
)
