// Copyright 2025 The Digipin Authors
// SPDX-License-Identifier: Apache-2.0

package digipin

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// PayloadFormat selects how a code is rendered for sharing (QR contents,
// clipboard, etc).
type PayloadFormat string

// Supported payload formats.
const (
	PayloadJSON  PayloadFormat = "json"
	PayloadVCard PayloadFormat = "vcard"
	PayloadText  PayloadFormat = "text"
)

// ParsePayloadFormat maps s to a format. Unknown values are rendered as text.
func ParsePayloadFormat(s string) PayloadFormat {
	switch PayloadFormat(strings.ToLower(strings.TrimSpace(s))) {
	case PayloadJSON:
		return PayloadJSON
	case PayloadVCard:
		return PayloadVCard
	default:
		return PayloadText
	}
}

// ContentType is the MIME type of the payload.
func (f PayloadFormat) ContentType() string {
	switch f {
	case PayloadJSON:
		return "application/json; charset=utf-8"
	case PayloadVCard:
		return "text/vcard; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

type payloadLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type jsonPayload struct {
	Digipin  string          `json:"digipin"`
	Location payloadLocation `json:"location"`
	MapsURL  string          `json:"maps_url"`
}

// MapsURL returns a Google Maps link for the point.
func MapsURL(lat, lon float64) string {
	return fmt.Sprintf("https://www.google.com/maps?q=%s,%s", formatDegrees(lat), formatDegrees(lon))
}

func formatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Payload renders code, and the center of its cell, in the given format.
func (c *Codec) Payload(code string, format PayloadFormat) (string, error) {
	formatted, err := c.grid.Format(code)
	if err != nil {
		return "", err
	}

	lat, lon, err := c.Decode(formatted)
	if err != nil {
		return "", err
	}

	mapsURL := MapsURL(lat, lon)

	switch format {
	case PayloadJSON:
		b, err := json.MarshalIndent(jsonPayload{
			Digipin:  formatted,
			Location: payloadLocation{Lat: lat, Lng: lon},
			MapsURL:  mapsURL,
		}, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshaling payload: %w", err)
		}

		return string(b), nil
	case PayloadVCard:
		return strings.Join([]string{
			"BEGIN:VCARD",
			"VERSION:4.0",
			"LABEL;TYPE=home:" + formatted,
			fmt.Sprintf("GEO:geo:%s,%s", formatDegrees(lat), formatDegrees(lon)),
			"URL:" + mapsURL,
			"END:VCARD",
		}, "\n"), nil
	default:
		return fmt.Sprintf("DIGIPIN: %s\nGoogle Maps: %s", formatted, mapsURL), nil
	}
}
