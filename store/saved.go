// Copyright 2025 The Digipin Authors
// SPDX-License-Identifier: Apache-2.0

// Package store persists saved locations and service areas in DuckDB.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/digipin-go/digipin/digipin"
	"github.com/digipin-go/digipin/spatial"
)

// Repository errors.
var (
	// ErrNotFound is returned when a row does not exist or belongs to another owner.
	ErrNotFound = errors.New("not found")

	ErrEmptyOwner = errors.New("owner can't be empty")
)

// H3 resolutions indexed for every saved location.
const (
	MinH3Resolution = 4
	MaxH3Resolution = 9
)

// SavedLocation is a code bookmarked by an owner.
type SavedLocation struct {
	ID        int64     `json:"id"`
	Owner     string    `json:"owner"`
	Code      string    `json:"digipin"`
	Label     string    `json:"label"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`

	// H3 cells indexed by resolution - MinH3Resolution.
	H3 [MaxH3Resolution - MinH3Resolution + 1]int64 `json:"-"`
}

// Point returns the decoded center of the saved code.
func (s *SavedLocation) Point() spatial.Point {
	return spatial.Point{Lat: s.Latitude, Lng: s.Longitude}
}

func (s *SavedLocation) computeH3() error {
	p := s.Point()
	for res := MinH3Resolution; res <= MaxH3Resolution; res++ {
		cell, err := p.H3Cell(res)
		if err != nil {
			return err
		}

		s.H3[res-MinH3Resolution] = cell
	}

	return nil
}

// SavedRepository handles persistence of saved locations.
type SavedRepository interface {
	// CreateSchema creates the saved_locations table
	CreateSchema() error

	// Save validates, decodes and stores a code for owner
	Save(owner, code, label string) (*SavedLocation, error)

	// List returns the owner's locations, newest first
	List(owner string) ([]*SavedLocation, error)

	// Delete removes one of the owner's locations
	Delete(owner string, id int64) error

	// Near returns the owner's locations sharing the H3 cell of code at res
	Near(owner, code string, res int) ([]*SavedLocation, error)
}

type sqlSavedRepository struct {
	db    *sql.DB
	codec *digipin.Codec
}

// NewSavedRepository creates a new saved location repository.
func NewSavedRepository(db *sql.DB, codec *digipin.Codec) SavedRepository {
	if codec == nil {
		codec = digipin.Default()
	}

	return &sqlSavedRepository{db: db, codec: codec}
}

func h3Column(res int) string {
	return fmt.Sprintf("h3_res%d", res)
}

func h3Columns() []string {
	cols := make([]string, 0, MaxH3Resolution-MinH3Resolution+1)
	for res := MinH3Resolution; res <= MaxH3Resolution; res++ {
		cols = append(cols, h3Column(res))
	}

	return cols
}

func (r *sqlSavedRepository) CreateSchema() error {
	var h3Defs strings.Builder
	for _, col := range h3Columns() {
		fmt.Fprintf(&h3Defs, "\t\t\t%s BIGINT NOT NULL,\n", col)
	}

	_, err := r.db.Exec(`
		CREATE SEQUENCE IF NOT EXISTS saved_locations_seq START 1;

		CREATE TABLE IF NOT EXISTS saved_locations (
			id BIGINT PRIMARY KEY DEFAULT nextval('saved_locations_seq'),
			owner VARCHAR NOT NULL,
			digipin VARCHAR NOT NULL,
			label VARCHAR NOT NULL,
			latitude DOUBLE NOT NULL,
			longitude DOUBLE NOT NULL,
` + h3Defs.String() + `
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS saved_locations_owner_idx ON saved_locations (owner);
	`)

	return err
}

func (r *sqlSavedRepository) Save(owner, code, label string) (*SavedLocation, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, ErrEmptyOwner
	}

	normalized, err := r.codec.Grid().Normalize(code)
	if err != nil {
		return nil, err
	}

	lat, lon, err := r.codec.Decode(normalized)
	if err != nil {
		return nil, err
	}

	loc := &SavedLocation{
		Owner:     owner,
		Code:      normalized,
		Label:     strings.TrimSpace(label),
		Latitude:  lat,
		Longitude: lon,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	if err := loc.computeH3(); err != nil {
		return nil, err
	}

	cols := append([]string{"owner", "digipin", "label", "latitude", "longitude", "created_at"}, h3Columns()...)
	args := []any{loc.Owner, loc.Code, loc.Label, loc.Latitude, loc.Longitude, loc.CreatedAt}

	for _, cell := range loc.H3 {
		args = append(args, cell)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf(
		"INSERT INTO saved_locations (%s) VALUES (%s) RETURNING id",
		strings.Join(cols, ", "),
		placeholders,
	)

	if err := r.db.QueryRow(query, args...).Scan(&loc.ID); err != nil {
		return nil, fmt.Errorf("inserting saved location: %w", err)
	}

	return loc, nil
}

const selectSaved = `SELECT id, owner, digipin, label, latitude, longitude, created_at FROM saved_locations`

func (r *sqlSavedRepository) List(owner string) ([]*SavedLocation, error) {
	return r.query(selectSaved+" WHERE owner = ? ORDER BY created_at DESC, id DESC", owner)
}

func (r *sqlSavedRepository) Near(owner, code string, res int) ([]*SavedLocation, error) {
	if res < MinH3Resolution || res > MaxH3Resolution {
		return nil, fmt.Errorf("h3 resolution must be between %d and %d, got %d", MinH3Resolution, MaxH3Resolution, res)
	}

	p, err := r.codec.Point(code)
	if err != nil {
		return nil, err
	}

	cell, err := p.H3Cell(res)
	if err != nil {
		return nil, err
	}

	// The column name comes from a validated resolution.
	query := fmt.Sprintf("%s WHERE owner = ? AND %s = ? ORDER BY created_at DESC, id DESC", selectSaved, h3Column(res))

	return r.query(query, owner, cell)
}

func (r *sqlSavedRepository) query(query string, args ...any) ([]*SavedLocation, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying saved locations: %w", err)
	}
	defer rows.Close()

	var locations []*SavedLocation

	for rows.Next() {
		var loc SavedLocation
		if err := rows.Scan(&loc.ID, &loc.Owner, &loc.Code, &loc.Label, &loc.Latitude, &loc.Longitude, &loc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning saved location: %w", err)
		}

		if err := loc.computeH3(); err != nil {
			return nil, err
		}

		locations = append(locations, &loc)
	}

	return locations, rows.Err()
}

func (r *sqlSavedRepository) Delete(owner string, id int64) error {
	result, err := r.db.Exec(`DELETE FROM saved_locations WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("deleting saved location: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting saved location: %w", err)
	}

	if n == 0 {
		return ErrNotFound
	}

	return nil
}
