// Copyright 2025 The Digipin Authors
// SPDX-License-Identifier: Apache-2.0

package digipin

import (
	"errors"
	"fmt"
)

// Validation errors. They are never retried.
var (
	ErrOutOfBounds      = errors.New("coordinate out of bounds")
	ErrInvalidLength    = errors.New("invalid code length")
	ErrInvalidCharacter = errors.New("invalid code character")
)

// CoordinateError reports a coordinate outside the grid bounding box.
type CoordinateError struct {
	Lat float64
	Lon float64
	Box BoundingBox
}

func (e *CoordinateError) Error() string {
	return fmt.Sprintf(
		"%s: (%f, %f) not in lat [%g, %g] lon [%g, %g]",
		ErrOutOfBounds, e.Lat, e.Lon, e.Box.MinLat, e.Box.MaxLat, e.Box.MinLon, e.Box.MaxLon,
	)
}

func (e *CoordinateError) Unwrap() error {
	return ErrOutOfBounds
}

// CodeError reports a malformed code.
type CodeError struct {
	// Input as received.
	Code string

	// Length of the input once separators are removed.
	Length int

	// Char is the offending character, only for ErrInvalidCharacter.
	Char rune

	// Position of Char in the normalized code, zero based.
	Position int

	Err error
}

func (e *CodeError) Error() string {
	if errors.Is(e.Err, ErrInvalidCharacter) {
		return fmt.Sprintf("%s %q at position %d in %q", e.Err, e.Char, e.Position+1, e.Code)
	}

	return fmt.Sprintf("%s: %q has %d symbols, want %d", e.Err, e.Code, e.Length, Levels)
}

func (e *CodeError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err is one of the codec validation errors.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrOutOfBounds) ||
		errors.Is(err, ErrInvalidLength) ||
		errors.Is(err, ErrInvalidCharacter)
}
