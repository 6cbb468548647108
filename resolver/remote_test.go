// Copyright 2025 The Digipin Authors
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRemote(t *testing.T, handler http.HandlerFunc) *Remote {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	remote, err := NewRemote(&RemoteOptions{BaseURL: ts.URL + "/v1", UserAgent: "digipin/test"})
	require.NoError(t, err)

	return remote
}

func TestNewRemoteValidatesURL(t *testing.T) {
	_, err := NewRemote(nil)
	assert.Error(t, err)

	_, err = NewRemote(&RemoteOptions{BaseURL: "ftp://example.com"})
	assert.ErrorContains(t, err, "unsupported remote codec URL scheme")

	r, err := NewRemote(&RemoteOptions{BaseURL: "https://example.com/digipin"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/digipin/", r.BaseURL())
}

func TestRemoteEncode(t *testing.T) {
	remote := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/encode", r.URL.Path)
		assert.Equal(t, "28.6139", r.URL.Query().Get("lat"))
		assert.Equal(t, "77.209", r.URL.Query().Get("lon"))
		assert.Equal(t, "digipin/test", r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"digipin": "39J-438-TJC7"}`))
	})

	code, err := remote.Encode(context.Background(), 28.6139, 77.2090)
	require.NoError(t, err)
	assert.Equal(t, "39J-438-TJC7", code)
}

func TestRemoteDecode(t *testing.T) {
	remote := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/decode", r.URL.Path)
		assert.Equal(t, "39J-438-TJC7", r.URL.Query().Get("code"))

		_, _ = w.Write([]byte(`{"latitude": 28.613901, "longitude": 77.208998}`))
	})

	lat, lon, err := remote.Decode(context.Background(), "39J-438-TJC7")
	require.NoError(t, err)
	assert.Equal(t, 28.613901, lat)
	assert.Equal(t, 77.208998, lon)
}

func TestRemoteFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    ErrorType
		decoder bool
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"error":"slow down"}`, want: ErrorTypeRateLimit},
		{name: "unavailable", status: http.StatusServiceUnavailable, want: ErrorTypeNetworkError},
		{name: "server error", status: http.StatusInternalServerError, want: ErrorTypeUnknown},
		{name: "not json", status: http.StatusOK, body: `<html>`, want: ErrorTypeMalformedPayload},
		{name: "missing code", status: http.StatusOK, body: `{}`, want: ErrorTypeMalformedPayload},
		{name: "empty code", status: http.StatusOK, body: `{"digipin": ""}`, want: ErrorTypeMalformedPayload},
		{name: "missing longitude", status: http.StatusOK, body: `{"latitude": 20}`, want: ErrorTypeMalformedPayload, decoder: true},
		{name: "string latitude", status: http.StatusOK, body: `{"latitude": "20", "longitude": 80}`, want: ErrorTypeMalformedPayload, decoder: true},
		{name: "redirect", status: http.StatusFound, want: ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := newTestRemote(t, func(w http.ResponseWriter, _ *http.Request) {
				if tt.status == http.StatusFound {
					w.Header().Set("Location", "http://example.com/")
				}

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			var err error
			if tt.decoder {
				_, _, err = remote.Decode(context.Background(), "39J-438-TJC7")
			} else {
				_, err = remote.Encode(context.Background(), 28.6139, 77.2090)
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrRemoteUnavailable)

			var rerr *RemoteError
			require.ErrorAs(t, err, &rerr)
			assert.Equal(t, tt.want, rerr.Type, "got %v", err)
		})
	}
}

func TestRemoteTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	remote := newTestRemote(t, func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := remote.Encode(ctx, 28.6139, 77.2090)
	require.Error(t, err)
	assert.True(t, IsTimeoutError(err), "got %v", err)
}

func TestRemoteConnectionRefused(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	remote, err := NewRemote(&RemoteOptions{BaseURL: url})
	require.NoError(t, err)

	_, err = remote.Encode(context.Background(), 28.6139, 77.2090)
	require.Error(t, err)

	var rerr *RemoteError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, ErrorTypeNetworkError, rerr.Type)
}
