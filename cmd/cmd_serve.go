// Copyright 2025 The Digipin Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/digipin-go/digipin/digipin"
	"github.com/digipin-go/digipin/metrics"
	"github.com/digipin-go/digipin/server"
	"github.com/digipin-go/digipin/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

// openDB opens (creating it if needed) the local database and its schemas.
func openDB(path string) (*sql.DB, store.SavedRepository, store.ServiceAreaRepository, error) {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return nil, nil, nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sql.Open("duckdb", filepath.Join(path, "digipin.duckdb"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening database: %w", err)
	}

	saved := store.NewSavedRepository(db, digipin.Default())
	if err := saved.CreateSchema(); err != nil {
		db.Close()

		return nil, nil, nil, fmt.Errorf("creating saved locations schema: %w", err)
	}

	areas := store.NewServiceAreaRepository(db)
	if err := areas.CreateSchema(); err != nil {
		db.Close()

		return nil, nil, nil, fmt.Errorf("creating service areas schema: %w", err)
	}

	return db, saved, areas, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the codec, saved locations and service areas over HTTP",
	Long: `
Starts the HTTP API. It is also the remote codec service other instances can
point --remote at:

  GET /encode?lat=&lon=         {"digipin": "..."}
  GET /decode?code=             {"latitude": ..., "longitude": ...}
`,
	RunE: func(_ *cobra.Command, _ []string) error {
		db, saved, areas, err := openDB(config.DB.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		srv := server.NewServer(digipin.Default(), &server.Options{
			Saved:               saved,
			Areas:               areas,
			Metrics:             metrics.New(reg),
			DefaultH3Resolution: config.Server.H3Resolution,
		})

		log.Printf("Listening on http://%s", config.Server.Addr)

		return srv.Run(config.Server.Addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "localhost:8080", "address to listen on")
	serveCmd.Flags().Int("h3-res", 7, "default H3 resolution of /api/saved/near")
}
