// Copyright 2025 The Digipin Authors
// SPDX-License-Identifier: Apache-2.0

// Package digipin implements the DIGIPIN grid geocode: a 10 level, 4x4
// subdivision of a fixed bounding box where every level is labelled with one
// of 16 symbols.
package digipin

import "fmt"

// Levels is the number of subdivisions, and symbols, in a code.
const Levels = 10

// Precision is the number of decimal places decoded coordinates are rounded to.
const Precision = 6

// Alphabet labels the 4x4 sub cells of every level. Row 0 is the northernmost
// band and columns grow eastward.
type Alphabet [4][4]byte

// Lookup returns the row and column of symbol c.
func (a *Alphabet) Lookup(c byte) (row, col int, ok bool) {
	for r := range a {
		for k := range a[r] {
			if a[r][k] == c {
				return r, k, true
			}
		}
	}

	return 0, 0, false
}

// Symbols returns the 16 symbols in row major order.
func (a *Alphabet) Symbols() string {
	b := make([]byte, 0, 16)
	for r := range a {
		b = append(b, a[r][:]...)
	}

	return string(b)
}

func (a *Alphabet) validate() error {
	seen := make(map[byte]bool, 16)

	for r := range a {
		for _, c := range a[r] {
			if seen[c] {
				return fmt.Errorf("digipin: duplicated alphabet symbol %q", c)
			}

			if c == '-' {
				return fmt.Errorf("digipin: alphabet can't contain the separator %q", c)
			}

			seen[c] = true
		}
	}

	return nil
}

// BoundingBox is an axis aligned latitude/longitude rectangle.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether the point lies inside the box, edges included.
func (b BoundingBox) Contains(lat, lon float64) bool {
	// NaN fails every comparison, so it is never contained.
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Center returns the middle point of the box.
func (b BoundingBox) Center() (lat, lon float64) {
	return (b.MinLat + b.MaxLat) / 2, (b.MinLon + b.MaxLon) / 2
}

// Height is the latitude span of the box.
func (b BoundingBox) Height() float64 { return b.MaxLat - b.MinLat }

// Width is the longitude span of the box.
func (b BoundingBox) Width() float64 { return b.MaxLon - b.MinLon }

// quadrant narrows the box to the sub cell at row, col. Both bands are taken
// from the receiver, never from a partially updated cell.
func (b BoundingBox) quadrant(row, col int) BoundingBox {
	latDiv := b.Height() / 4
	lonDiv := b.Width() / 4

	return BoundingBox{
		MinLat: b.MinLat + latDiv*float64(3-row),
		MaxLat: b.MinLat + latDiv*float64(4-row),
		MinLon: b.MinLon + lonDiv*float64(col),
		MaxLon: b.MinLon + lonDiv*float64(col+1),
	}
}

// Grid is the immutable configuration of a codec.
type Grid struct {
	Alphabet Alphabet
	Box      BoundingBox
}

// Reference returns the grid used by the India Post DIGIPIN deployment.
func Reference() Grid {
	return Grid{
		Alphabet: Alphabet{
			{'F', 'C', '9', '8'},
			{'J', '3', '2', '7'},
			{'K', '4', '5', '6'},
			{'L', 'M', 'P', 'T'},
		},
		Box: BoundingBox{
			MinLat: 2.5,
			MaxLat: 38.5,
			MinLon: 63.5,
			MaxLon: 99.5,
		},
	}
}

// Validate checks the grid invariants: a bijective alphabet and a non empty box.
func (g Grid) Validate() error {
	if err := g.Alphabet.validate(); err != nil {
		return err
	}

	if !(g.Box.MinLat < g.Box.MaxLat) || !(g.Box.MinLon < g.Box.MaxLon) {
		return fmt.Errorf("digipin: empty bounding box %+v", g.Box)
	}

	return nil
}
