// Copyright 2025 The Digipin Authors
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/digipin-go/digipin/digipin"
	"github.com/digipin-go/digipin/server"
	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStrategy answers with the configured functions and counts calls.
type fakeStrategy struct {
	encode func(ctx context.Context, lat, lon float64) (string, error)
	decode func(ctx context.Context, code string) (float64, float64, error)
	calls  atomic.Int32
}

func (f *fakeStrategy) Encode(ctx context.Context, lat, lon float64) (string, error) {
	f.calls.Add(1)

	return f.encode(ctx, lat, lon)
}

func (f *fakeStrategy) Decode(ctx context.Context, code string) (float64, float64, error) {
	f.calls.Add(1)

	return f.decode(ctx, code)
}

// answering returns a strategy that always answers with the given values.
func answering(code string, lat, lon float64) *fakeStrategy {
	return &fakeStrategy{
		encode: func(context.Context, float64, float64) (string, error) { return code, nil },
		decode: func(context.Context, string) (float64, float64, error) { return lat, lon, nil },
	}
}

func failing(err error) *fakeStrategy {
	return &fakeStrategy{
		encode: func(context.Context, float64, float64) (string, error) { return "", err },
		decode: func(context.Context, string) (float64, float64, error) { return 0, 0, err },
	}
}

// blocking never answers before its context is done.
func blocking() *fakeStrategy {
	return &fakeStrategy{
		encode: func(ctx context.Context, _, _ float64) (string, error) {
			<-ctx.Done()

			return "", ctx.Err()
		},
		decode: func(ctx context.Context, _ string) (float64, float64, error) {
			<-ctx.Done()

			return 0, 0, ctx.Err()
		},
	}
}

type observation struct {
	op, provenance, cause string
}

type fakeRecorder struct {
	mu           sync.Mutex
	observations []observation
}

func (f *fakeRecorder) ObserveResolution(op, provenance, cause string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.observations = append(f.observations, observation{op, provenance, cause})
}

func TestLocalOnly(t *testing.T) {
	r := New(nil, nil)

	enc, err := r.ResolveEncode(context.Background(), 28.6139, 77.2090)
	require.NoError(t, err)
	assert.Equal(t, &EncodeResult{Code: "39J-438-TJC7", Provenance: ProvenanceLocal}, enc)

	dec, err := r.ResolveDecode(context.Background(), "39j438tjc7")
	require.NoError(t, err)
	assert.Equal(t, &DecodeResult{
		Code:       "39J-438-TJC7",
		Latitude:   28.613901,
		Longitude:  77.208998,
		Provenance: ProvenanceLocal,
	}, dec)
}

func TestRemotePreferred(t *testing.T) {
	remote := answering("39j438tjc7", 28.613901, 77.208998)
	rec := &fakeRecorder{}
	r := New(nil, &Options{Remote: remote, Recorder: rec})

	enc, err := r.ResolveEncode(context.Background(), 28.6139, 77.2090)
	require.NoError(t, err)
	assert.Equal(t, "39J-438-TJC7", enc.Code, "remote codes are returned formatted")
	assert.Equal(t, ProvenanceRemote, enc.Provenance)
	assert.Nil(t, enc.Notice)

	dec, err := r.ResolveDecode(context.Background(), "39J-438-TJC7")
	require.NoError(t, err)
	assert.Equal(t, ProvenanceRemote, dec.Provenance)
	assert.Nil(t, dec.Notice)

	assert.Equal(t, int32(2), remote.calls.Load())

	want := []observation{{OpEncode, "remote", ""}, {OpDecode, "remote", ""}}
	if diff := cmp.Diff(want, rec.observations, cmp.AllowUnexported(observation{})); diff != "" {
		t.Errorf("observations mismatch (-want +got):\n%s", diff)
	}
}

func TestFallback(t *testing.T) {
	tests := []struct {
		name   string
		remote *fakeStrategy
		want   ErrorType
	}{
		{
			name:   "rate limited",
			remote: failing(ClassifyHTTPError(http.StatusTooManyRequests, "")),
			want:   ErrorTypeRateLimit,
		},
		{
			name:   "plain error",
			remote: failing(errors.New("connection reset by peer")),
			want:   ErrorTypeNetworkError,
		},
		{
			name:   "invalid code",
			remote: answering("39J-438-TJC0", 28.613901, 77.208998),
			want:   ErrorTypeMalformedPayload,
		},
		{
			name:   "coordinate outside the grid",
			remote: answering("ABC", 51.5, -0.12),
			want:   ErrorTypeMalformedPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecorder{}
			r := New(nil, &Options{Remote: tt.remote, Recorder: rec, Quiet: true})

			// The stub answers to one operation only, the other still falls back.
			if tt.name != "coordinate outside the grid" {
				enc, err := r.ResolveEncode(context.Background(), 28.6139, 77.2090)
				require.NoError(t, err)
				assert.Equal(t, "39J-438-TJC7", enc.Code)
				assert.Equal(t, ProvenanceLocal, enc.Provenance)
				require.NotNil(t, enc.Notice)
				assert.ErrorIs(t, enc.Notice, ErrRemoteUnavailable)
				assert.Equal(t, tt.want, mustType(t, enc.Notice))
			}

			if tt.name != "invalid code" {
				dec, err := r.ResolveDecode(context.Background(), "39J-438-TJC7")
				require.NoError(t, err)
				assert.Equal(t, 28.613901, dec.Latitude)
				assert.Equal(t, 77.208998, dec.Longitude)
				assert.Equal(t, ProvenanceLocal, dec.Provenance)
				require.NotNil(t, dec.Notice)
				assert.Equal(t, tt.want, mustType(t, dec.Notice))
				assert.Equal(t, "Remote DIGIPIN service unavailable, falling back to local computation.", dec.Notice.Message())
			}

			for _, o := range rec.observations {
				assert.Equal(t, "local", o.provenance)
				assert.Equal(t, tt.want.String(), o.cause)
			}
		})
	}
}

func mustType(t *testing.T, err error) ErrorType {
	t.Helper()

	var rerr *RemoteError
	require.ErrorAs(t, err, &rerr)

	return rerr.Type
}

func TestFallbackOnTimeout(t *testing.T) {
	r := New(nil, &Options{Remote: blocking(), Timeout: 20 * time.Millisecond, Quiet: true})

	start := time.Now()
	enc, err := r.ResolveEncode(context.Background(), 28.6139, 77.2090)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, "39J-438-TJC7", enc.Code)
	assert.Equal(t, ProvenanceLocal, enc.Provenance)
	require.NotNil(t, enc.Notice)
	assert.True(t, IsTimeoutError(enc.Notice))

	dec, err := r.ResolveDecode(context.Background(), "39J-438-TJC7")
	require.NoError(t, err)
	assert.True(t, IsTimeoutError(dec.Notice))
}

func TestOffline(t *testing.T) {
	remote := answering("39J-438-TJC7", 28.613901, 77.208998)
	conn := &Connectivity{}
	conn.SetOffline(true)

	r := New(nil, &Options{Remote: remote, Availability: conn})

	enc, err := r.ResolveEncode(context.Background(), 28.6139, 77.2090)
	require.NoError(t, err)
	assert.Equal(t, ProvenanceLocal, enc.Provenance)
	require.NotNil(t, enc.Notice)
	assert.Equal(t, ErrorTypeOffline, mustType(t, enc.Notice))
	assert.Equal(t, "Offline: using local DIGIPIN computation.", enc.Notice.Message())
	assert.Equal(t, int32(0), remote.calls.Load(), "remote must not be called while offline")

	conn.SetOffline(false)

	enc, err = r.ResolveEncode(context.Background(), 28.6139, 77.2090)
	require.NoError(t, err)
	assert.Equal(t, ProvenanceRemote, enc.Provenance)
	assert.Equal(t, int32(1), remote.calls.Load())
}

func TestValidationNeverCallsRemote(t *testing.T) {
	remote := answering("39J-438-TJC7", 28.613901, 77.208998)
	r := New(nil, &Options{Remote: remote})

	_, err := r.ResolveEncode(context.Background(), 51.5074, -0.1278)
	assert.ErrorIs(t, err, digipin.ErrOutOfBounds)

	_, err = r.ResolveDecode(context.Background(), "39J-438")
	assert.ErrorIs(t, err, digipin.ErrInvalidLength)

	_, err = r.ResolveDecode(context.Background(), "39J-438-TJCX")
	assert.ErrorIs(t, err, digipin.ErrInvalidCharacter)

	assert.Equal(t, int32(0), remote.calls.Load())
}

func TestNoticeIsNotAnError(t *testing.T) {
	r := New(nil, &Options{Remote: failing(errors.New("boom")), Quiet: true})

	enc, err := r.ResolveEncode(context.Background(), 12.9716, 77.5946)
	require.NoError(t, err)
	assert.Equal(t, "4P3-JK8-52C9", enc.Code)
	assert.NotNil(t, enc.Notice)

	// Notices are not part of the serialized result.
	b, err := json.Marshal(enc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"digipin": "4P3-JK8-52C9", "source": "local"}`, string(b))
}

func TestConcurrentResolutions(t *testing.T) {
	var n atomic.Int32

	// Every other remote call fails.
	remote := &fakeStrategy{
		encode: func(_ context.Context, lat, lon float64) (string, error) {
			if n.Add(1)%2 == 0 {
				return "", errors.New("flaky")
			}

			return digipin.Encode(lat, lon)
		},
	}
	r := New(nil, &Options{Remote: remote, Quiet: true})

	var wg sync.WaitGroup

	for i := 0; i < 64; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			enc, err := r.ResolveEncode(context.Background(), 28.6139, 77.2090)
			assert.NoError(t, err)
			assert.Equal(t, "39J-438-TJC7", enc.Code)
		}()
	}

	wg.Wait()
}

type crossFixture struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Digipin   string  `json:"digipin"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func loadFixtures(t *testing.T) []crossFixture {
	t.Helper()

	b, err := os.ReadFile("testdata/fixtures.json")
	require.NoError(t, err)

	var fixtures []crossFixture
	require.NoError(t, json.Unmarshal(b, &fixtures))
	require.NotEmpty(t, fixtures)

	return fixtures
}

// TestRemoteAgreesWithLocal runs the resolver against the HTTP codec service
// and checks both providers answer the same for every fixture.
func TestRemoteAgreesWithLocal(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ts := httptest.NewServer(server.NewServer(nil, nil).Handler())
	defer ts.Close()

	remote, err := NewRemote(&RemoteOptions{BaseURL: ts.URL})
	require.NoError(t, err)

	withRemote := New(nil, &Options{Remote: remote})
	local := New(nil, nil)

	for _, f := range loadFixtures(t) {
		t.Run(f.Digipin, func(t *testing.T) {
			ctx := context.Background()

			remoteEnc, err := withRemote.ResolveEncode(ctx, f.Lat, f.Lon)
			require.NoError(t, err)
			assert.Equal(t, ProvenanceRemote, remoteEnc.Provenance)
			assert.Nil(t, remoteEnc.Notice)

			localEnc, err := local.ResolveEncode(ctx, f.Lat, f.Lon)
			require.NoError(t, err)

			assert.Equal(t, f.Digipin, remoteEnc.Code)
			assert.Equal(t, f.Digipin, localEnc.Code)

			remoteDec, err := withRemote.ResolveDecode(ctx, f.Digipin)
			require.NoError(t, err)
			assert.Equal(t, ProvenanceRemote, remoteDec.Provenance)

			localDec, err := local.ResolveDecode(ctx, f.Digipin)
			require.NoError(t, err)

			assert.InDelta(t, f.Latitude, remoteDec.Latitude, 1e-9)
			assert.InDelta(t, f.Longitude, remoteDec.Longitude, 1e-9)
			assert.Equal(t, localDec.Latitude, remoteDec.Latitude)
			assert.Equal(t, localDec.Longitude, remoteDec.Longitude)
		})
	}
}

func TestFallbackWhenServiceIsDown(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	remote, err := NewRemote(&RemoteOptions{BaseURL: ts.URL})
	require.NoError(t, err)

	r := New(nil, &Options{Remote: remote, Quiet: true})

	for _, f := range loadFixtures(t) {
		dec, err := r.ResolveDecode(context.Background(), f.Digipin)
		require.NoError(t, err)
		assert.Equal(t, ProvenanceLocal, dec.Provenance)
		assert.InDelta(t, f.Latitude, dec.Latitude, 1e-9)
		assert.InDelta(t, f.Longitude, dec.Longitude, 1e-9)
		assert.Equal(t, http.StatusServiceUnavailable, noticeStatus(t, dec.Notice))
	}
}

func noticeStatus(t *testing.T, n *Notice) int {
	t.Helper()

	var rerr *RemoteError
	require.ErrorAs(t, n, &rerr)

	return rerr.StatusCode
}
