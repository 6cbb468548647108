// Copyright 2025 The Digipin Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/digipin-go/digipin/digipin"
	"github.com/digipin-go/digipin/store"
	"github.com/gin-gonic/gin"
)

type saveRequest struct {
	Owner   string `json:"owner" binding:"required"`
	Digipin string `json:"digipin" binding:"required"`
	Label   string `json:"label"`
}

func (s *Server) saveLocation(ctx *gin.Context) {
	var req saveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	loc, err := s.saved.Save(req.Owner, req.Digipin, req.Label)
	if err != nil {
		if errors.Is(err, store.ErrEmptyOwner) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else {
			codecError(ctx, err)
		}

		return
	}

	ctx.JSON(http.StatusCreated, loc)
}

func requireOwner(ctx *gin.Context) (string, bool) {
	owner := ctx.Query("owner")
	if owner == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "owner query parameter is required"})

		return "", false
	}

	return owner, true
}

func (s *Server) listSaved(ctx *gin.Context) {
	owner, ok := requireOwner(ctx)
	if !ok {
		return
	}

	locations, err := s.saved.List(owner)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list saved locations"})

		return
	}

	if locations == nil {
		locations = []*store.SavedLocation{}
	}

	ctx.JSON(http.StatusOK, locations)
}

func (s *Server) nearSaved(ctx *gin.Context) {
	owner, ok := requireOwner(ctx)
	if !ok {
		return
	}

	res := s.nearRes

	if raw := ctx.Query("res"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "res must be an integer"})

			return
		}

		res = v
	}

	locations, err := s.saved.Near(owner, ctx.Query("digipin"), res)
	if err != nil {
		if digipin.IsValidationError(err) {
			codecError(ctx, err)
		} else {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}

		return
	}

	if locations == nil {
		locations = []*store.SavedLocation{}
	}

	ctx.JSON(http.StatusOK, locations)
}

func (s *Server) deleteSaved(ctx *gin.Context) {
	owner, ok := requireOwner(ctx)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "id must be an integer"})

		return
	}

	if err := s.saved.Delete(owner, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "saved location not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete saved location"})
		}

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"detail": "Deleted"})
}
