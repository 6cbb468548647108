// Copyright 2025 The Digipin Authors
// SPDX-License-Identifier: Apache-2.0

// Package resolver resolves codes and coordinates preferring a remote codec
// service and falling back to the in process codec whenever the remote can't
// be used. Validation happens before any remote call, so callers only see
// validation errors; remote failures are reported as a Notice.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/digipin-go/digipin/digipin"
)

// DefaultTimeout bounds a remote call when no timeout is configured.
const DefaultTimeout = 3 * time.Second

// Operation names, as reported to a Recorder.
const (
	OpEncode = "encode"
	OpDecode = "decode"
)

// Notice tells the caller that the result was computed locally because the
// remote codec could not be used. It is informational, never a failure.
type Notice struct {
	// Err is a *RemoteError, it always matches ErrRemoteUnavailable.
	Err error
}

func (n *Notice) Error() string { return n.Err.Error() }

func (n *Notice) Unwrap() error { return n.Err }

// Message is a short text suitable for end users.
func (n *Notice) Message() string {
	if t, _ := errorTypeOf(n.Err); t == ErrorTypeOffline {
		return "Offline: using local DIGIPIN computation."
	}

	return "Remote DIGIPIN service unavailable, falling back to local computation."
}

// EncodeResult is the outcome of ResolveEncode.
type EncodeResult struct {
	Code       string     `json:"digipin"`
	Provenance Provenance `json:"source"`
	Notice     *Notice    `json:"-"`
}

// DecodeResult is the outcome of ResolveDecode.
type DecodeResult struct {
	Code       string     `json:"digipin"`
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
	Provenance Provenance `json:"source"`
	Notice     *Notice    `json:"-"`
}

// Availability reports up front whether the remote can be reached.
type Availability interface {
	Available(ctx context.Context) bool
}

// Connectivity is an Availability switched by the application, e.g. from OS
// network notifications or a --offline flag. The zero value is online.
type Connectivity struct {
	offline atomic.Bool
}

// SetOffline flips the connectivity state.
func (c *Connectivity) SetOffline(offline bool) {
	c.offline.Store(offline)
}

// Available implements Availability.
func (c *Connectivity) Available(_ context.Context) bool {
	return !c.offline.Load()
}

// Recorder observes every resolution. Cause is empty when the preferred
// strategy answered.
type Recorder interface {
	ObserveResolution(op string, provenance string, cause string, elapsed time.Duration)
}

// Options configures a Resolver.
type Options struct {
	// Remote strategy; nil resolves everything locally.
	Remote Strategy

	// Timeout for a single remote call. Zero means DefaultTimeout.
	Timeout time.Duration

	// Availability is consulted before every remote call. Nil means always available.
	Availability Availability

	// Recorder, optional.
	Recorder Recorder

	// Quiet disables fallback logging.
	Quiet bool
}

// Resolver chooses between the remote strategy and the local codec per call.
// It holds no per call state and is safe for concurrent use.
type Resolver struct {
	codec   *digipin.Codec
	local   Strategy
	remote  Strategy
	timeout time.Duration
	avail   Availability
	rec     Recorder
	quiet   bool
}

// New returns a resolver validating with codec and falling back to it.
func New(codec *digipin.Codec, options *Options) *Resolver {
	if options == nil {
		options = &Options{}
	}

	if codec == nil {
		codec = digipin.Default()
	}

	timeout := options.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Resolver{
		codec:   codec,
		local:   NewLocal(codec),
		remote:  options.Remote,
		timeout: timeout,
		avail:   options.Availability,
		rec:     options.Recorder,
		quiet:   options.Quiet,
	}
}

// Codec returns the local codec.
func (r *Resolver) Codec() *digipin.Codec {
	return r.codec
}

// remoteUsable returns nil when the remote should be tried, or the reason it
// is skipped.
func (r *Resolver) remoteUsable(ctx context.Context) *RemoteError {
	if r.remote == nil {
		return nil
	}

	if r.avail != nil && !r.avail.Available(ctx) {
		return &RemoteError{Type: ErrorTypeOffline, Message: "remote codec offline"}
	}

	return nil
}

// ResolveEncode returns the code of lat, lon. The only errors returned are
// digipin validation errors.
func (r *Resolver) ResolveEncode(ctx context.Context, lat, lon float64) (*EncodeResult, error) {
	if !r.codec.Grid().Box.Contains(lat, lon) {
		return nil, &digipin.CoordinateError{Lat: lat, Lon: lon, Box: r.codec.Grid().Box}
	}

	start := time.Now()

	var notice *Notice

	if r.remote != nil {
		rerr := r.remoteUsable(ctx)
		if rerr == nil {
			code, err := r.remoteEncode(ctx, lat, lon)
			if err == nil {
				r.observe(OpEncode, ProvenanceRemote, "", start)

				return &EncodeResult{Code: code, Provenance: ProvenanceRemote}, nil
			}

			rerr = asRemoteError(err)
		}

		notice = r.fallback(OpEncode, rerr)
	}

	code, err := r.local.Encode(ctx, lat, lon)
	if err != nil {
		return nil, fmt.Errorf("local encode: %w", err)
	}

	r.observe(OpEncode, ProvenanceLocal, causeOf(notice), start)

	return &EncodeResult{Code: code, Provenance: ProvenanceLocal, Notice: notice}, nil
}

// ResolveDecode returns the center of code. The only errors returned are
// digipin validation errors.
func (r *Resolver) ResolveDecode(ctx context.Context, code string) (*DecodeResult, error) {
	formatted, err := r.codec.Grid().Format(code)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	var notice *Notice

	if r.remote != nil {
		rerr := r.remoteUsable(ctx)
		if rerr == nil {
			lat, lon, err := r.remoteDecode(ctx, formatted)
			if err == nil {
				r.observe(OpDecode, ProvenanceRemote, "", start)

				return &DecodeResult{
					Code:       formatted,
					Latitude:   lat,
					Longitude:  lon,
					Provenance: ProvenanceRemote,
				}, nil
			}

			rerr = asRemoteError(err)
		}

		notice = r.fallback(OpDecode, rerr)
	}

	lat, lon, err := r.local.Decode(ctx, formatted)
	if err != nil {
		return nil, fmt.Errorf("local decode: %w", err)
	}

	r.observe(OpDecode, ProvenanceLocal, causeOf(notice), start)

	return &DecodeResult{
		Code:       formatted,
		Latitude:   lat,
		Longitude:  lon,
		Provenance: ProvenanceLocal,
		Notice:     notice,
	}, nil
}

// remoteEncode calls the remote under the resolver timeout and checks the
// answer is a code of this grid.
func (r *Resolver) remoteEncode(ctx context.Context, lat, lon float64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	code, err := r.remote.Encode(ctx, lat, lon)
	if err != nil {
		return "", err
	}

	formatted, err := r.codec.Grid().Format(code)
	if err != nil {
		return "", &RemoteError{Type: ErrorTypeMalformedPayload, Message: "remote returned an invalid code", Err: err}
	}

	return formatted, nil
}

func (r *Resolver) remoteDecode(ctx context.Context, code string) (float64, float64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	lat, lon, err := r.remote.Decode(ctx, code)
	if err != nil {
		return 0, 0, err
	}

	if !r.codec.Grid().Box.Contains(lat, lon) {
		return 0, 0, malformed("remote returned coordinate (%f, %f) outside the grid", lat, lon)
	}

	return lat, lon, nil
}

func (r *Resolver) fallback(op string, rerr *RemoteError) *Notice {
	if !r.quiet && rerr.Type != ErrorTypeOffline {
		log.Printf("⚠️  remote %s failed (%s), using local codec: %v", op, rerr.Type, rerr)
	}

	return &Notice{Err: rerr}
}

func (r *Resolver) observe(op string, p Provenance, cause string, start time.Time) {
	if r.rec != nil {
		r.rec.ObserveResolution(op, string(p), cause, time.Since(start))
	}
}

func causeOf(n *Notice) string {
	if n == nil {
		return ""
	}

	t, _ := errorTypeOf(n.Err)

	return t.String()
}

func asRemoteError(err error) *RemoteError {
	var rerr *RemoteError
	if errors.As(err, &rerr) {
		return rerr
	}

	// Strategies other than Remote may return plain errors.
	return ClassifyTransportError(err)
}
