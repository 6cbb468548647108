// Copyright 2025 The Digipin Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/digipin-go/digipin/digipin"
	"github.com/spf13/cobra"
)

// we say that it isn't.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}

	return (info.Mode() & os.ModeCharDevice) != 0
}

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dev tools",
}

var debugCellsCmd = &cobra.Command{
	Use:   "cells",
	Short: "Prints the cell of every level of a code",
	Long: `Reads one code per line, and prints the nested cells the code selects,
from the first level down to the final cell.

$ echo 39J-438-TJC7 | digipin debug cells
39J-438-TJC7
   1 3	lat [20.500000, 29.500000] lon [72.500000, 81.500000]
   …
`,
	Run: func(_ *cobra.Command, _ []string) {
		input := os.Stdin
		if isTerminal(input) {
			fmt.Fprintln(os.Stderr, "Enter codes to inspect, one per line…")
		}

		codec := digipin.Default()

		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			code := scanner.Text()

			cells, err := codec.Cells(code)
			if err != nil {
				fmt.Printf("%s\t%q\n", code, err)

				continue
			}

			normalized, _ := codec.Grid().Normalize(code)

			fmt.Println(code)

			for i, cell := range cells {
				fmt.Printf("  %2d %c\tlat [%.6f, %.6f] lon [%.6f, %.6f]\n",
					i+1, normalized[i], cell.MinLat, cell.MaxLat, cell.MinLon, cell.MaxLon)
			}
		}

		if err := scanner.Err(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading input: %s\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugCellsCmd)
}
