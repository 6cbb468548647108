// Copyright 2025 The Digipin Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/digipin-go/digipin/digipin"
)

// ServiceArea is a named rectangle where deliveries/services are offered.
type ServiceArea struct {
	ID   int64               `json:"id"`
	Name string              `json:"name"`
	Box  digipin.BoundingBox `json:"box"`
}

// ServiceAreaRepository handles persistence of service areas.
type ServiceAreaRepository interface {
	// CreateSchema creates the service_areas table
	CreateSchema() error

	// Add stores a new area
	Add(area *ServiceArea) error

	// List returns every area ordered by name
	List() ([]*ServiceArea, error)

	// Matching returns the areas containing the point, edges included
	Matching(lat, lon float64) ([]*ServiceArea, error)
}

type sqlServiceAreaRepository struct {
	db *sql.DB
}

// NewServiceAreaRepository creates a new service area repository.
func NewServiceAreaRepository(db *sql.DB) ServiceAreaRepository {
	return &sqlServiceAreaRepository{db: db}
}

func (r *sqlServiceAreaRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE SEQUENCE IF NOT EXISTS service_areas_seq START 1;

		CREATE TABLE IF NOT EXISTS service_areas (
			id BIGINT PRIMARY KEY DEFAULT nextval('service_areas_seq'),
			name VARCHAR NOT NULL UNIQUE,
			min_lat DOUBLE NOT NULL,
			max_lat DOUBLE NOT NULL,
			min_lon DOUBLE NOT NULL,
			max_lon DOUBLE NOT NULL
		);
	`)

	return err
}

func validateArea(area *ServiceArea) error {
	if area == nil {
		return errors.New("area can't be nil")
	}

	if strings.TrimSpace(area.Name) == "" {
		return errors.New("area name can't be empty")
	}

	b := area.Box
	if !(b.MinLat < b.MaxLat) || !(b.MinLon < b.MaxLon) {
		return fmt.Errorf("area %q has an empty box", area.Name)
	}

	if b.MinLat < -90 || b.MaxLat > 90 || b.MinLon < -180 || b.MaxLon > 180 {
		return fmt.Errorf("area %q exceeds the world bounds", area.Name)
	}

	return nil
}

func (r *sqlServiceAreaRepository) Add(area *ServiceArea) error {
	if err := validateArea(area); err != nil {
		return err
	}

	area.Name = strings.TrimSpace(area.Name)

	err := r.db.QueryRow(`
		INSERT INTO service_areas (name, min_lat, max_lat, min_lon, max_lon)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`, area.Name, area.Box.MinLat, area.Box.MaxLat, area.Box.MinLon, area.Box.MaxLon).Scan(&area.ID)
	if err != nil {
		return fmt.Errorf("inserting service area %q: %w", area.Name, err)
	}

	return nil
}

const selectAreas = `SELECT id, name, min_lat, max_lat, min_lon, max_lon FROM service_areas`

func (r *sqlServiceAreaRepository) List() ([]*ServiceArea, error) {
	return r.query(selectAreas + " ORDER BY name")
}

func (r *sqlServiceAreaRepository) Matching(lat, lon float64) ([]*ServiceArea, error) {
	return r.query(selectAreas+`
		WHERE ? BETWEEN min_lat AND max_lat
		  AND ? BETWEEN min_lon AND max_lon
		ORDER BY name`, lat, lon)
}

func (r *sqlServiceAreaRepository) query(query string, args ...any) ([]*ServiceArea, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying service areas: %w", err)
	}
	defer rows.Close()

	var areas []*ServiceArea

	for rows.Next() {
		var a ServiceArea
		if err := rows.Scan(&a.ID, &a.Name, &a.Box.MinLat, &a.Box.MaxLat, &a.Box.MinLon, &a.Box.MaxLon); err != nil {
			return nil, fmt.Errorf("scanning service area: %w", err)
		}

		areas = append(areas, &a)
	}

	return areas, rows.Err()
}
