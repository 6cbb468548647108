// Copyright 2025 The Digipin Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/digipin-go/digipin/digipin"
	"github.com/digipin-go/digipin/resolver"
	"github.com/spf13/cobra"
)

// newResolver builds the resolver described by cfg. The remote is only wired
// when a URL is configured.
func newResolver(cfg *Config, recorder resolver.Recorder) (*resolver.Resolver, error) {
	options := &resolver.Options{
		Timeout:  cfg.Remote.Timeout,
		Recorder: recorder,
	}

	if cfg.Remote.URL != "" {
		remote, err := resolver.NewRemote(&resolver.RemoteOptions{
			BaseURL:             cfg.Remote.URL,
			UserAgent:           cfg.Remote.UserAgent,
			EnableHTTPTrace:     cfg.HTTP.Trace,
			EnableHTTPBodyTrace: cfg.HTTP.TraceBody,
		})
		if err != nil {
			return nil, err
		}

		connectivity := &resolver.Connectivity{}
		connectivity.SetOffline(cfg.Offline)

		options.Remote = remote
		options.Availability = connectivity
	}

	return resolver.New(digipin.Default(), options), nil
}

var jsonOutput bool

func printNotice(n *resolver.Notice) {
	if n != nil {
		fmt.Fprintln(os.Stderr, n.Message())
	}
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(out))

	return nil
}

func parseDegrees(name, raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", name, raw)
	}

	return v, nil
}

var encodeCmd = &cobra.Command{
	Use:   "encode <lat> <lon>",
	Short: "Prints the code of a coordinate",
	Example: `  $ digipin encode 28.6139 77.2090
  39J-438-TJC7`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lat, err := parseDegrees("latitude", args[0])
		if err != nil {
			return err
		}

		lon, err := parseDegrees("longitude", args[1])
		if err != nil {
			return err
		}

		r, err := newResolver(config, nil)
		if err != nil {
			return err
		}

		result, err := r.ResolveEncode(cmd.Context(), lat, lon)
		if err != nil {
			return err
		}

		printNotice(result.Notice)

		if jsonOutput {
			return printJSON(result)
		}

		fmt.Println(result.Code)

		return nil
	},
}

var decodeCmd = &cobra.Command{
	Use:   "decode <code>",
	Short: "Prints the center of a code's cell",
	Example: `  $ digipin decode 39J-438-TJC7
  28.613901	77.208998`,
	Args: cobra.ExactArgs(1),
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

		if jsonOutput {
			return printJSON(result)
		}

		fmt.Printf("%s\t%s\n",
			strconv.FormatFloat(result.Latitude, 'f', -1, 64),
			strconv.FormatFloat(result.Longitude, 'f', -1, 64))

		return nil
	},
}

var qrFormat string

var qrCmd = &cobra.Command{
	Use:   "qr <code>",
	Short: "Prints the shareable payload of a code (json, vcard or text)",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		payload, err := digipin.Default().Payload(args[0], digipin.ParsePayloadFormat(qrFormat))
		if err != nil {
			return err
		}

		fmt.Println(payload)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(qrCmd)

	for _, c := range []*cobra.Command{encodeCmd, decodeCmd} {
		c.Flags().BoolVar(&jsonOutput, "json", false, "print the result as JSON")
	}

	qrCmd.Flags().StringVar(&qrFormat, "format", string(digipin.PayloadJSON), "payload format: json, vcard or text")
}
