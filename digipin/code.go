// Copyright 2025 The Digipin Authors
// SPDX-License-Identifier: Apache-2.0

package digipin

import (
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Separator is inserted after the 3rd and 6th symbols of a formatted code.
const Separator = '-'

// folding maps compatibility and full width forms (e.g. "３９Ｊ") to ASCII.
var folding = transform.Chain(norm.NFKC, width.Fold)

// stripCode removes separators and white space, folds the width and case of
// every symbol and returns the remaining runes.
func stripCode(s string) []rune {
	folded, _, err := transform.String(folding, s)
	if err != nil {
		folded = s
	}

	out := make([]rune, 0, Levels)

	for _, r := range folded {
		if r == Separator || unicode.IsSpace(r) {
			continue
		}

		out = append(out, unicode.ToUpper(r))
	}

	return out
}

// Normalize validates code against the grid alphabet and returns its 10
// symbols, uppercase and without separators.
func (g Grid) Normalize(code string) (string, error) {
	symbols := stripCode(code)
	if len(symbols) != Levels {
		return "", &CodeError{Code: code, Length: len(symbols), Err: ErrInvalidLength}
	}

	b := make([]byte, Levels)

	for i, r := range symbols {
		if r > unicode.MaxASCII {
			return "", &CodeError{Code: code, Length: Levels, Char: r, Position: i, Err: ErrInvalidCharacter}
		}

		if _, _, ok := g.Alphabet.Lookup(byte(r)); !ok {
			return "", &CodeError{Code: code, Length: Levels, Char: r, Position: i, Err: ErrInvalidCharacter}
		}

		b[i] = byte(r)
	}

	return string(b), nil
}

// Format validates code and returns its canonical XXX-XXX-XXXX form.
func (g Grid) Format(code string) (string, error) {
	n, err := g.Normalize(code)
	if err != nil {
		return "", err
	}

	return group(n), nil
}

// Valid reports whether code is a well formed code of the grid.
func (g Grid) Valid(code string) bool {
	_, err := g.Normalize(code)

	return err == nil
}

// group inserts separators in a 10 symbol code.
func group(symbols string) string {
	var sb strings.Builder

	sb.Grow(Levels + 2)

	for i := 0; i < len(symbols); i++ {
		if i == 3 || i == 6 {
			sb.WriteByte(Separator)
		}

		sb.WriteByte(symbols[i])
	}

	return sb.String()
}

// Normalize validates code against the reference grid.
func Normalize(code string) (string, error) {
	return Reference().Normalize(code)
}

// Format returns the canonical form of code using the reference grid.
func Format(code string) (string, error) {
	return Reference().Format(code)
}

// Valid reports whether code is well formed for the reference grid.
func Valid(code string) bool {
	return Reference().Valid(code)
}
