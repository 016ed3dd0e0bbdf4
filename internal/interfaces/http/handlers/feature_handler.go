package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/BlackCockder/IBEX-Mapper/internal/domain/features"
)

// FeatureHandler exposes the feature catalog drawn over rendered maps.
type FeatureHandler struct {
	svc features.Service
}

// NewFeatureHandler creates a FeatureHandler over svc.
func NewFeatureHandler(svc features.Service) *FeatureHandler {
	return &FeatureHandler{svc: svc}
}

type createdResponse struct {
	Kind features.Kind `json:"kind"`
	Name string        `json:"name"`
}

type paletteRequest struct {
	Palette string `json:"palette" binding:"required"`
}

// Catalog handles GET /api/v1/features.
func (h *FeatureHandler) Catalog(c *gin.Context) {
	catalog, err := h.svc.Catalog(c.Request.Context())
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, catalog)
}

// AddPoint handles POST /api/v1/features/points.
func (h *FeatureHandler) AddPoint(c *gin.Context) {
	var p features.Point
	if !bindJSON(c, &p) {
		return
	}
	if err := h.svc.AddPoint(c.Request.Context(), p); err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, createdResponse{Kind: features.KindPoint, Name: p.Name})
}

// AddCircle handles POST /api/v1/features/circles.
func (h *FeatureHandler) AddCircle(c *gin.Context) {
	var ci features.Circle
	if !bindJSON(c, &ci) {
		return
	}
	if err := h.svc.AddCircle(c.Request.Context(), ci); err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, createdResponse{Kind: features.KindCircle, Name: ci.Name})
}

// AddText handles POST /api/v1/features/texts.
func (h *FeatureHandler) AddText(c *gin.Context) {
	var t features.Text
	if !bindJSON(c, &t) {
		return
	}
	if err := h.svc.AddText(c.Request.Context(), t); err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, createdResponse{Kind: features.KindText, Name: t.Name})
}

// Remove handles DELETE /api/v1/features/:kind/:name.
func (h *FeatureHandler) Remove(c *gin.Context) {
	if err := h.svc.Remove(c.Request.Context(), kindParam(c), c.Param("name")); err != nil {
		writeAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Clear handles DELETE /api/v1/features/:kind.
func (h *FeatureHandler) Clear(c *gin.Context) {
	if err := h.svc.Clear(c.Request.Context(), kindParam(c)); err != nil {
		writeAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Reset handles DELETE /api/v1/features.
func (h *FeatureHandler) Reset(c *gin.Context) {
	if err := h.svc.Reset(c.Request.Context()); err != nil {
		writeAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetPalette handles PUT /api/v1/features/palette.
func (h *FeatureHandler) SetPalette(c *gin.Context) {
	var req paletteRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.SetPalette(c.Request.Context(), req.Palette); err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"palette": req.Palette})
}

// SetScale handles PUT /api/v1/features/scale. {"min":0,"max":0} returns to
// automatic scaling.
func (h *FeatureHandler) SetScale(c *gin.Context) {
	var s features.HeatmapScale
	if !bindJSON(c, &s) {
		return
	}
	if err := h.svc.SetHeatmapScale(c.Request.Context(), s); err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// kindParam accepts both "point" and "points".
func kindParam(c *gin.Context) features.Kind {
	return features.Kind(strings.TrimSuffix(strings.ToLower(c.Param("kind")), "s"))
}
