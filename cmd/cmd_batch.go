// Copyright 2025 The Digipin Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/digipin-go/digipin/metrics"
	"github.com/digipin-go/digipin/resolver"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// parseCoordinate parses "lat,lon", "lat lon" or "lat\tlon".
func parseCoordinate(line string) (lat, lon float64, ok bool) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == ';'
	})
	if len(fields) != 2 {
		return 0, 0, false
	}

	lat, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, 0, false
	}

	lon, err = strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, 0, false
	}

	return lat, lon, true
}

type batchResult struct {
	Input      string              `json:"input"`
	Code       string              `json:"digipin,omitempty"`
	Latitude   *float64            `json:"latitude,omitempty"`
	Longitude  *float64            `json:"longitude,omitempty"`
	Provenance resolver.Provenance `json:"source,omitempty"`
	Err        error               `json:"-"`
	Error      string              `json:"error,omitempty"`
}

func (b *batchResult) String() string {
	switch {
	case b.Err != nil:
		return fmt.Sprintf("%s\tERROR\t%v", b.Input, b.Err)
	case b.Latitude != nil:
		return fmt.Sprintf("%s\t%s\t%s\t%s", b.Input,
			strconv.FormatFloat(*b.Latitude, 'f', -1, 64),
			strconv.FormatFloat(*b.Longitude, 'f', -1, 64),
			b.Provenance)
	default:
		return fmt.Sprintf("%s\t%s\t%s", b.Input, b.Code, b.Provenance)
	}
}

// resolveLine encodes coordinates and decodes anything else.
func resolveLine(ctx context.Context, r *resolver.Resolver, line string) *batchResult {
	res := &batchResult{Input: line}

	if lat, lon, ok := parseCoordinate(line); ok {
		out, err := r.ResolveEncode(ctx, lat, lon)
		if err != nil {
			res.Err = err
		} else {
			res.Code, res.Provenance = out.Code, out.Provenance
		}
	} else {
		out, err := r.ResolveDecode(ctx, line)
		if err != nil {
			res.Err = err
		} else {
			res.Code, res.Provenance = out.Code, out.Provenance
			res.Latitude, res.Longitude = &out.Latitude, &out.Longitude
		}
	}

	if res.Err != nil {
		res.Error = res.Err.Error()
	}

	return res
}

// resolveBatch resolves every line with at most maxProcs concurrent calls.
// Results keep the order of lines.
func resolveBatch(ctx context.Context, r *resolver.Resolver, lines []string, maxProcs int, bar *progressbar.ProgressBar) []*batchResult {
	if maxProcs <= 0 {
		maxProcs = runtime.NumCPU()
	}

	results := make([]*batchResult, len(lines))

	var wg sync.WaitGroup

	semaphore := make(chan struct{}, maxProcs)

	for i, line := range lines {
		wg.Add(1)

		go func(i int, line string) {
			defer wg.Done()
			semaphore <- struct{}{}

			defer func() { <-semaphore }()

			results[i] = resolveLine(ctx, r, line)

			if bar != nil {
				if err := bar.Add(1); err != nil {
					log.Printf("updating progress bar: %v", err)
				}
			}
		}(i, line)
	}

	wg.Wait()

	return results
}

func readLines(in io.Reader) ([]string, error) {
	var lines []string

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		lines = append(lines, line)
	}

	return lines, scanner.Err()
}

var metricsFile string

var errBatchFailures = errors.New("some lines could not be resolved")

var batchCmd = &cobra.Command{
	Use:   "batch [file]",
	Short: "Resolves one coordinate or code per line",
	Long: `
Reads one entry per line from a file or stdin. Lines holding two numbers
("lat,lon" or "lat lon") are encoded, anything else is decoded. Results are
printed in input order, tab separated, followed by the source of the answer.
`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := os.Stdin

		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			input = f
		} else if isTerminal(input) {
			fmt.Fprintln(os.Stderr, "Enter coordinates or codes, one per line…")
		}

		lines, err := readLines(input)
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		m := metrics.New(nil)

		r, err := newResolver(config, m)
		if err != nil {
			return err
		}

		var bar *progressbar.ProgressBar
		if isatty.IsTerminal(os.Stderr.Fd()) && len(lines) > 1 {
			bar = progressbar.NewOptions(len(lines),
				progressbar.OptionSetDescription("Resolving"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}

		results := resolveBatch(cmd.Context(), r, lines, config.Batch.MaxProcs, bar)

		var errs []error

		for _, res := range results {
			if res.Err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", res.Input, res.Err))
			}

			if jsonOutput {
				if err := printJSON(res); err != nil {
					return err
				}
			} else {
				fmt.Println(res.String())
			}
		}

		if metricsFile != "" {
			if err := m.WriteToTextfile(metricsFile); err != nil {
				return fmt.Errorf("writing metrics: %w", err)
			}
		}

		if len(errs) > 0 {
			return fmt.Errorf("%w (%d of %d):\n%w", errBatchFailures, len(errs), len(results), errors.Join(errs...))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().Int("max-procs", 0, "concurrent resolutions (default: number of CPUs)")
	batchCmd.Flags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
	batchCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write resolver metrics in the Prometheus text format")
}
