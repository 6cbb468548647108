// Copyright 2025 The Digipin Authors
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/digipin-go/digipin/utils/httputils"
)

// RemoteOptions configures the HTTP codec client.
type RemoteOptions struct {
	// BaseURL of the codec service; encode and decode are resolved against it.
	BaseURL string

	// UserAgent is the User-Agent header to use in HTTP requests
	UserAgent string

	// Enables light tracing of HTTP requests and responses
	EnableHTTPTrace bool

	// Enables full HTTP body tracing
	EnableHTTPBodyTrace bool

	// Transport overrides the network transport, mostly for tests.
	Transport http.RoundTripper
}

// Remote calls a codec service over HTTP:
//
//	GET encode?lat=<float>&lon=<float> -> {"digipin": "<code>"}
//	GET decode?code=<string>           -> {"latitude": <float>, "longitude": <float>}
type Remote struct {
	base   *url.URL
	client *http.Client
}

// maxErrorBody caps how much of an error response is kept for diagnostics.
const maxErrorBody = 512

// NewRemote builds a remote strategy. Deadlines come from the request context.
func NewRemote(options *RemoteOptions) (*Remote, error) {
	if options == nil || options.BaseURL == "" {
		return nil, errors.New("remote codec base URL is required")
	}

	base, err := url.Parse(options.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing remote codec URL: %w", err)
	}

	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported remote codec URL scheme %q", base.Scheme)
	}

	// Relative references must resolve below the base path.
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	var httpLogWriter io.Writer
	if options.EnableHTTPTrace {
		httpLogWriter = os.Stderr
	}

	transport := options.Transport
	if transport == nil {
		transport = &http.Transport{
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   4,
			IdleConnTimeout:       30 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
		}
	}

	loggingTransport := &httputils.LoggingRoundTripper{
		Writer:    httpLogWriter,
		DumpBody:  options.EnableHTTPBodyTrace,
		Transport: transport,
	}

	userAgent := "digipin/unknown"
	if options.UserAgent != "" {
		userAgent = options.UserAgent
	}

	headerTransport := &httputils.AppendRequestHeadersRoundTripper{
		Headers: map[string]string{
			"User-Agent": userAgent,
			"Accept":     "application/json",
		},
		Transport: loggingTransport,
	}

	return &Remote{
		base: base,
		client: &http.Client{
			CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
				return http.ErrUseLastResponse
			},
			Transport: headerTransport,
		},
	}, nil
}

// BaseURL returns the service root.
func (r *Remote) BaseURL() string {
	return r.base.String()
}

type encodeResponse struct {
	Digipin *string `json:"digipin"`
}

type decodeResponse struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Encode asks the service for the code of lat, lon.
func (r *Remote) Encode(ctx context.Context, lat, lon float64) (string, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))

	var resp encodeResponse
	if err := r.get(ctx, "encode", params, &resp); err != nil {
		return "", err
	}

	if resp.Digipin == nil || *resp.Digipin == "" {
		return "", malformed("encode response without digipin")
	}

	return *resp.Digipin, nil
}

// Decode asks the service for the center of code.
func (r *Remote) Decode(ctx context.Context, code string) (float64, float64, error) {
	params := url.Values{}
	params.Set("code", code)

	var resp decodeResponse
	if err := r.get(ctx, "decode", params, &resp); err != nil {
		return 0, 0, err
	}

	if resp.Latitude == nil || resp.Longitude == nil {
		return 0, 0, malformed("decode response without latitude/longitude")
	}

	if !isFinite(*resp.Latitude) || !isFinite(*resp.Longitude) {
		return 0, 0, malformed("decode response with non finite coordinates")
	}

	return *resp.Latitude, *resp.Longitude, nil
}

func (r *Remote) get(ctx context.Context, path string, params url.Values, out any) error {
	u := r.base.ResolveReference(&url.URL{Path: path, RawQuery: params.Encode()})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return &RemoteError{Type: ErrorTypeInvalidRequest, Message: "building request", Err: err}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return ClassifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		return ClassifyHTTPError(resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		// A deadline can expire while the body is being read.
		if ctx.Err() != nil {
			return ClassifyTransportError(ctx.Err())
		}

		return &RemoteError{Type: ErrorTypeMalformedPayload, Message: "decoding response", Err: err}
	}

	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
