// Copyright 2025 The Digipin Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes the codec over HTTP. It is the remote service the
// resolver talks to, and also serves saved locations, service area checks
// and shareable payloads.
package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/digipin-go/digipin/digipin"
	"github.com/digipin-go/digipin/metrics"
	"github.com/digipin-go/digipin/store"
	"github.com/gin-gonic/gin"
)

// Options wires the optional collaborators of a Server.
type Options struct {
	Saved   store.SavedRepository
	Areas   store.ServiceAreaRepository
	Metrics *metrics.Metrics

	// DefaultH3Resolution is used by the near endpoint when res is absent.
	DefaultH3Resolution int
}

type Server struct {
	codec   *digipin.Codec
	saved   store.SavedRepository
	areas   store.ServiceAreaRepository
	metrics *metrics.Metrics
	nearRes int
}

// NewServer creates a server computing with codec.
func NewServer(codec *digipin.Codec, options *Options) *Server {
	if options == nil {
		options = &Options{}
	}

	if codec == nil {
		codec = digipin.Default()
	}

	nearRes := options.DefaultH3Resolution
	if nearRes == 0 {
		nearRes = 7
	}

	return &Server{
		codec:   codec,
		saved:   options.Saved,
		areas:   options.Areas,
		metrics: options.Metrics,
		nearRes: nearRes,
	}
}

// Handler builds the gin engine with every route registered.
func (s *Server) Handler() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	if s.metrics != nil {
		r.Use(s.metrics.Middleware())
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	r.GET("/healthz", s.health)

	r.GET("/encode", s.encode("lon"))
	r.GET("/decode", s.decode("code"))

	// Paths of the original HTTP API.
	r.GET("/api/digipin", s.encode("lng"))
	r.GET("/api/latlng", s.decode("digipin"))
	r.GET("/api/qr", s.payload)

	if s.areas != nil {
		r.GET("/api/digipin/validate", s.validateServiceArea)
	}

	if s.saved != nil {
		r.POST("/api/saved", s.saveLocation)
		r.GET("/api/saved", s.listSaved)
		r.GET("/api/saved/near", s.nearSaved)
		r.DELETE("/api/saved/:id", s.deleteSaved)
	}

	return r
}

// Run serves on addr until the listener fails.
func (s *Server) Run(addr string) error {
	return s.Handler().Run(addr)
}

func (s *Server) health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// codecError writes validation errors as 400 and anything else as 500.
func codecError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, digipin.ErrOutOfBounds):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "out_of_bounds"})
	case errors.Is(err, digipin.ErrInvalidLength):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "invalid_length"})
	case errors.Is(err, digipin.ErrInvalidCharacter):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "invalid_character"})
	default:
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func queryFloat(ctx *gin.Context, name string) (float64, bool) {
	raw := strings.TrimSpace(ctx.Query(name))
	if raw == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": name + " query parameter is required"})

		return 0, false
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": name + " must be a number"})

		return 0, false
	}

	return v, true
}

func (s *Server) encode(lonParam string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		lat, ok := queryFloat(ctx, "lat")
		if !ok {
			return
		}

		lon, ok := queryFloat(ctx, lonParam)
		if !ok {
			return
		}

		code, err := s.codec.Encode(lat, lon)
		if err != nil {
			codecError(ctx, err)

			return
		}

		ctx.JSON(http.StatusOK, gin.H{"digipin": code})
	}
}

type decodeResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (s *Server) decode(codeParam string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		code := ctx.Query(codeParam)
		if code == "" {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": codeParam + " query parameter is required"})

			return
		}

		lat, lon, err := s.codec.Decode(code)
		if err != nil {
			codecError(ctx, err)

			return
		}

		ctx.JSON(http.StatusOK, decodeResponse{Latitude: lat, Longitude: lon})
	}
}

func (s *Server) payload(ctx *gin.Context) {
	code := ctx.Query("digipin")
	if code == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "digipin query parameter is required"})

		return
	}

	format := digipin.ParsePayloadFormat(ctx.DefaultQuery("format", string(digipin.PayloadJSON)))

	content, err := s.codec.Payload(code, format)
	if err != nil {
		codecError(ctx, err)

		return
	}

	ctx.Data(http.StatusOK, format.ContentType(), []byte(content))
}

type serviceAreaResponse struct {
	Digipin             string   `json:"digipin"`
	Latitude            float64  `json:"latitude"`
	Longitude           float64  `json:"longitude"`
	IsWithinServiceArea bool     `json:"is_within_service_area"`
	Areas               []string `json:"areas"`
}

func (s *Server) validateServiceArea(ctx *gin.Context) {
	code := ctx.Query("digipin")

	normalized, err := s.codec.Grid().Normalize(code)
	if err != nil {
		codecError(ctx, err)

		return
	}

	lat, lon, err := s.codec.Decode(normalized)
	if err != nil {
		codecError(ctx, err)

		return
	}

	areas, err := s.areas.Matching(lat, lon)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query service areas"})

		return
	}

	names := make([]string, 0, len(areas))
	for _, a := range areas {
		names = append(names, a.Name)
	}

	ctx.JSON(http.StatusOK, serviceAreaResponse{
		Digipin:             normalized,
		Latitude:            lat,
		Longitude:           lon,
		IsWithinServiceArea: len(areas) > 0,
		Areas:               names,
	})
}
