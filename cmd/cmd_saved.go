// Copyright 2025 The Digipin Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/digipin-go/digipin/digipin"
	"github.com/digipin-go/digipin/store"
	"github.com/spf13/cobra"
)

var savedOwner string

var savedCmd = &cobra.Command{
	Use:   "saved",
	Short: "Manages saved locations",
}

func printSaved(locations []*store.SavedLocation) {
	a, b, c, d := strings.Repeat("─", 6), strings.Repeat("─", 12), strings.Repeat("─", 24), strings.Repeat("─", 24)
	fmt.Printf("╭─%6s─┬─%-12s─┬─%-24s─┬─%-24s─╮\n", a, b, c, d)
	fmt.Printf("│ %6s │ %-12s │ %-24s │ %-24s │\n", "Id", "DIGIPIN", "Label", "Location")
	fmt.Printf("├─%6s─┼─%-12s─┼─%-24s─┼─%-24s─┤\n", a, b, c, d)

	for _, loc := range locations {
		code, _ := digipin.Format(loc.Code)
		fmt.Printf("│ %6d │ %-12s │ %-24.24s │ %-24s │\n", loc.ID, code, loc.Label, loc.Point())
	}

	fmt.Printf("╰─%6s─┴─%-12s─┴─%-24s─┴─%-24s─╯\n", a, b, c, d)
}

var savedAddCmd = &cobra.Command{
	Use:   "add <code> [label]",
	Short: "Saves a code",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(_ *cobra.Command, args []string) error {
		db, saved, _, err := openDB(config.DB.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		label := ""
		if len(args) == 2 {
			label = args[1]
		}

		loc, err := saved.Save(savedOwner, args[0], label)
		if err != nil {
			return err
		}

		printSaved([]*store.SavedLocation{loc})

		return nil
	},
}

var savedListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists saved codes, newest first",
	RunE: func(_ *cobra.Command, _ []string) error {
		db, saved, _, err := openDB(config.DB.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		locations, err := saved.List(savedOwner)
		if err != nil {
			return err
		}

		printSaved(locations)

		return nil
	},
}

var savedDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Deletes a saved code",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("id must be an integer, got %q", args[0])
		}

		db, saved, _, err := openDB(config.DB.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		return saved.Delete(savedOwner, id)
	},
}

var nearRes int

var savedNearCmd = &cobra.Command{
	Use:   "near <code>",
	Short: "Lists saved codes in the same H3 cell as code",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		db, saved, _, err := openDB(config.DB.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		locations, err := saved.Near(savedOwner, args[0], nearRes)
		if err != nil {
			return err
		}

		printSaved(locations)

		return nil
	},
}

var areaCmd = &cobra.Command{
	Use:   "area",
	Short: "Manages service areas",
}

func printAreas(areas []*store.ServiceArea) {
	a, b, c := strings.Repeat("─", 4), strings.Repeat("─", 20), strings.Repeat("─", 44)
	fmt.Printf("╭─%4s─┬─%-20s─┬─%-44s─╮\n", a, b, c)
	fmt.Printf("│ %4s │ %-20s │ %-44s │\n", "Id", "Name", "Box (lat, lon)")
	fmt.Printf("├─%4s─┼─%-20s─┼─%-44s─┤\n", a, b, c)

	for _, area := range areas {
		box := fmt.Sprintf("%.4f..%.4f, %.4f..%.4f", area.Box.MinLat, area.Box.MaxLat, area.Box.MinLon, area.Box.MaxLon)
		fmt.Printf("│ %4d │ %-20.20s │ %-44s │\n", area.ID, area.Name, box)
	}

	fmt.Printf("╰─%4s─┴─%-20s─┴─%-44s─╯\n", a, b, c)
}

var areaAddCmd = &cobra.Command{
	Use:   "add <name> <min-lat> <max-lat> <min-lon> <max-lon>",
	Short: "Adds a rectangular service area",
	Args:  cobra.ExactArgs(5),
	RunE: func(_ *cobra.Command, args []string) error {
		var bounds [4]float64

		for i, name := range []string{"min-lat", "max-lat", "min-lon", "max-lon"} {
			v, err := parseDegrees(name, args[i+1])
			if err != nil {
				return err
			}

			bounds[i] = v
		}

		db, _, areas, err := openDB(config.DB.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		area := &store.ServiceArea{
			Name: args[0],
			Box: digipin.BoundingBox{
				MinLat: bounds[0],
				MaxLat: bounds[1],
				MinLon: bounds[2],
				MaxLon: bounds[3],
			},
		}
		if err := areas.Add(area); err != nil {
			return err
		}

		printAreas([]*store.ServiceArea{area})

		return nil
	},
}

var areaListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists service areas",
	RunE: func(_ *cobra.Command, _ []string) error {
		db, _, areas, err := openDB(config.DB.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		list, err := areas.List()
		if err != nil {
			return err
		}

		printAreas(list)

		return nil
	},
}

var areaCheckCmd = &cobra.Command{
	Use:   "check <code>",
	Short: "Lists the service areas containing a code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newResolver(config, nil)
		if err != nil {
			return err
		}

		result, err := r.ResolveDecode(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		printNotice(result.Notice)

		db, _, areas, err := openDB(config.DB.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		matching, err := areas.Matching(result.Latitude, result.Longitude)
		if err != nil {
			return err
		}

		if len(matching) == 0 {
			fmt.Printf("%s is outside every service area\n", result.Code)

			return nil
		}

		printAreas(matching)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(savedCmd)
	savedCmd.AddCommand(savedAddCmd)
	savedCmd.AddCommand(savedListCmd)
	savedCmd.AddCommand(savedDeleteCmd)
	savedCmd.AddCommand(savedNearCmd)
	savedCmd.PersistentFlags().StringVar(&savedOwner, "owner", "default", "owner of the saved codes")
	savedNearCmd.Flags().IntVar(&nearRes, "res", 7, "H3 resolution")

	rootCmd.AddCommand(areaCmd)
	areaCmd.AddCommand(areaAddCmd)
	areaCmd.AddCommand(areaListCmd)
	areaCmd.AddCommand(areaCheckCmd)
}
