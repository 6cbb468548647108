// Copyright 2025 The Digipin Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversineDistance(t *testing.T) {
	delhi := Point{Lat: 28.613901, Lng: 77.208998}
	bengaluru := Point{Lat: 12.971601, Lng: 77.594584}

	assert.InDelta(t, 1739802, delhi.HaversineDistance(&bengaluru), 1)
	assert.InDelta(t, 0, delhi.HaversineDistance(&delhi), 1e-9)
}

func TestH3Cell(t *testing.T) {
	p := Point{Lat: 28.613901, Lng: 77.208998}

	coarse, err := p.H3Cell(4)
	require.NoError(t, err)

	fine, err := p.H3Cell(9)
	require.NoError(t, err)

	assert.NotZero(t, coarse)
	assert.NotEqual(t, coarse, fine)

	// A point a few meters away shares the coarse cell.
	q := Point{Lat: 28.6139, Lng: 77.2090}
	other, err := q.H3Cell(4)
	require.NoError(t, err)
	assert.Equal(t, coarse, other)

	_, err = p.H3Cell(16)
	assert.Error(t, err)
}

func TestPointString(t *testing.T) {
	assert.Equal(t, "(28.613901, 77.208998)", Point{Lat: 28.613901, Lng: 77.208998}.String())
}
