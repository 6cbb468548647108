// Copyright 2025 The Digipin Authors
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"context"

	"github.com/digipin-go/digipin/digipin"
)

// Provenance tells which strategy produced a result.
type Provenance string

// Provenance values.
const (
	ProvenanceRemote Provenance = "remote"
	ProvenanceLocal  Provenance = "local"
)

// Strategy computes codes and coordinates. Implementations must agree on
// every valid input.
type Strategy interface {
	// Encode returns the formatted code of lat, lon.
	Encode(ctx context.Context, lat, lon float64) (string, error)

	// Decode returns the center of the cell of a normalized code.
	Decode(ctx context.Context, code string) (lat, lon float64, err error)
}

// Local computes results in process with a digipin.Codec.
type Local struct {
	codec *digipin.Codec
}

// NewLocal returns a strategy backed by codec.
func NewLocal(codec *digipin.Codec) *Local {
	return &Local{codec: codec}
}

func (l *Local) Encode(_ context.Context, lat, lon float64) (string, error) {
	return l.codec.Encode(lat, lon)
}

func (l *Local) Decode(_ context.Context, code string) (float64, float64, error) {
	return l.codec.Decode(code)
}
