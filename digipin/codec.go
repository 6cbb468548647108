// Copyright 2025 The Digipin Authors
// SPDX-License-Identifier: Apache-2.0

package digipin

import (
	"math"

	"github.com/digipin-go/digipin/spatial"
)

// Codec encodes and decodes codes of a grid. The zero value is not usable,
// build it with NewCodec. A Codec holds no mutable state and is safe for
// concurrent use.
type Codec struct {
	grid Grid
}

// NewCodec returns a codec for grid.
func NewCodec(grid Grid) (*Codec, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}

	return &Codec{grid: grid}, nil
}

var reference = &Codec{grid: Reference()}

// Default returns the codec of the reference grid.
func Default() *Codec {
	return reference
}

// Grid returns a copy of the codec configuration.
func (c *Codec) Grid() Grid {
	return c.grid
}

// Encode returns the formatted code of the level 10 cell containing lat, lon.
func (c *Codec) Encode(lat, lon float64) (string, error) {
	if !c.grid.Box.Contains(lat, lon) {
		return "", &CoordinateError{Lat: lat, Lon: lon, Box: c.grid.Box}
	}

	cell := c.grid.Box
	symbols := make([]byte, Levels)

	for level := 0; level < Levels; level++ {
		latDiv := cell.Height() / 4
		lonDiv := cell.Width() / 4

		// Points on the upper edges of the box land on row -1 or column 4.
		row := clamp(3-int(math.Floor((lat-cell.MinLat)/latDiv)), 0, 3)
		col := clamp(int(math.Floor((lon-cell.MinLon)/lonDiv)), 0, 3)

		symbols[level] = c.grid.Alphabet[row][col]
		cell = cell.quadrant(row, col)
	}

	return group(string(symbols)), nil
}

// Cell returns the level 10 rectangle identified by code.
func (c *Codec) Cell(code string) (BoundingBox, error) {
	cells, err := c.Cells(code)
	if err != nil {
		return BoundingBox{}, err
	}

	return cells[Levels-1], nil
}

// Cells returns the rectangle selected at each level of code, outermost first.
func (c *Codec) Cells(code string) ([]BoundingBox, error) {
	n, err := c.grid.Normalize(code)
	if err != nil {
		return nil, err
	}

	cells := make([]BoundingBox, 0, Levels)
	cell := c.grid.Box

	for i := 0; i < len(n); i++ {
		row, col, _ := c.grid.Alphabet.Lookup(n[i])
		cell = cell.quadrant(row, col)
		cells = append(cells, cell)
	}

	return cells, nil
}

// Decode returns the center of the cell identified by code, rounded to
// Precision decimals.
func (c *Codec) Decode(code string) (lat, lon float64, err error) {
	cell, err := c.Cell(code)
	if err != nil {
		return 0, 0, err
	}

	lat, lon = cell.Center()

	return Round(lat), Round(lon), nil
}

// Point decodes code as a spatial.Point.
func (c *Codec) Point(code string) (spatial.Point, error) {
	lat, lon, err := c.Decode(code)
	if err != nil {
		return spatial.Point{}, err
	}

	return spatial.Point{Lat: lat, Lng: lon}, nil
}

// Distance returns the haversine distance in meters between the centers of
// two codes.
func (c *Codec) Distance(a, b string) (float64, error) {
	pa, err := c.Point(a)
	if err != nil {
		return 0, err
	}

	pb, err := c.Point(b)
	if err != nil {
		return 0, err
	}

	return pa.HaversineDistance(&pb), nil
}

// Round rounds v to Precision decimals.
func Round(v float64) float64 {
	const scale = 1e6

	return math.Round(v*scale) / scale
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// Encode encodes lat, lon with the reference grid.
func Encode(lat, lon float64) (string, error) {
	return reference.Encode(lat, lon)
}

// Decode decodes code with the reference grid.
func Decode(code string) (lat, lon float64, err error) {
	return reference.Decode(code)
}
