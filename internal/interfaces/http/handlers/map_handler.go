package handlers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"github.com/BlackCockder/IBEX-Mapper/internal/application/mapping"
	"github.com/BlackCockder/IBEX-Mapper/internal/config"
	"github.com/BlackCockder/IBEX-Mapper/internal/domain/features"
	"github.com/BlackCockder/IBEX-Mapper/internal/domain/harmonics"
	"github.com/BlackCockder/IBEX-Mapper/internal/domain/sphere"
	"github.com/BlackCockder/IBEX-Mapper/internal/infrastructure/monitoring/logging"
	"github.com/BlackCockder/IBEX-Mapper/internal/interfaces/http/middleware"
	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

// MapHandler renders coefficient tables posted as request bodies.
type MapHandler struct {
	engine  *mapping.Engine
	maxBody int64
	logger  logging.Logger

	mu   sync.RWMutex
	base config.MapConfig
}

// NewMapHandler renders with base unless a request overrides it. maxBody ≤ 0
// leaves the body unbounded.
func NewMapHandler(engine *mapping.Engine, base config.MapConfig, maxBody int64, log logging.Logger) *MapHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &MapHandler{engine: engine, base: base, maxBody: maxBody, logger: log.Named("map_handler")}
}

// SetBase replaces the default map configuration, e.g. after a config reload.
func (h *MapHandler) SetBase(mc config.MapConfig) {
	h.mu.Lock()
	h.base = mc
	h.mu.Unlock()
}

// Base returns the default map configuration.
func (h *MapHandler) Base() config.MapConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.base
}

// Config handles GET /api/v1/maps/config.
func (h *MapHandler) Config(c *gin.Context) {
	c.JSON(http.StatusOK, h.Base().Section())
}

// Render handles POST /api/v1/maps. The body is the coefficient table text;
// query parameters dpi, max_l, rotate, central, meridian, allow_negative,
// palette, scale and name override the defaults for this request.
func (h *MapHandler) Render(c *gin.Context) {
	mc, err := h.requestConfig(c)
	if err != nil {
		writeAppError(c, err)
		return
	}
	var scale *features.HeatmapScale
	if raw := c.Query("scale"); raw != "" {
		s, err := features.ParseHeatmapScale(raw)
		if err != nil {
			writeAppError(c, err)
			return
		}
		scale = &s
	}

	body := c.Request.Body
	if h.maxBody > 0 {
		body = http.MaxBytesReader(c.Writer, body, h.maxBody)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResponse{
				Code:      string(errors.CodeInvalidParam),
				Message:   "coefficient table too large",
				Detail:    fmt.Sprintf("limit=%d bytes", tooLarge.Limit),
				RequestID: middleware.GetRequestID(c),
			})
			return
		}
		writeAppError(c, errors.Wrap(err, errors.CodeInvalidParam, "failed to read request body"))
		return
	}
	table, err := harmonics.ParseTable(bytes.NewReader(raw))
	if err != nil {
		writeAppError(c, err)
		return
	}

	scene, err := h.engine.Generate(c.Request.Context(), mapping.Request{
		Name:    c.DefaultQuery("name", "map"),
		Table:   table,
		Map:     mc,
		Palette: c.Query("palette"),
		Scale:   scale,
	})
	if err != nil {
		writeAppError(c, err)
		return
	}
	data, err := scene.Marshal()
	if err != nil {
		writeAppError(c, errors.Wrap(err, errors.CodeSerialization, "failed to encode scene"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", mapping.OutputName(scene.Name, scene.DPI)))
	c.Header("X-Render-ID", scene.ID)
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func (h *MapHandler) requestConfig(c *gin.Context) (config.MapConfig, error) {
	b := h.Base().Builder()
	if v, ok := c.GetQuery("dpi"); ok {
		n, err := cast.ToIntE(v)
		if err != nil {
			return config.MapConfig{}, errors.Wrap(err, errors.CodeInvalidParam, "dpi is not an integer").WithDetail(v)
		}
		b.MapAccuracy(n)
	}
	if v, ok := c.GetQuery("max_l"); ok {
		n, err := cast.ToIntE(v)
		if err != nil {
			return config.MapConfig{}, errors.Wrap(err, errors.CodeInvalidParam, "max_l is not an integer").WithDetail(v)
		}
		b.MaxLToCache(n)
	}
	if v, ok := c.GetQuery("rotate"); ok {
		on, err := cast.ToBoolE(v)
		if err != nil {
			return config.MapConfig{}, errors.Wrap(err, errors.CodeInvalidParam, "rotate is not a boolean").WithDetail(v)
		}
		b.Rotate(on)
	}
	if v, ok := c.GetQuery("allow_negative"); ok {
		on, err := cast.ToBoolE(v)
		if err != nil {
			return config.MapConfig{}, errors.Wrap(err, errors.CodeInvalidParam, "allow_negative is not a boolean").WithDetail(v)
		}
		b.AllowNegativeValues(on)
	}
	if v, ok := c.GetQuery("central"); ok {
		p, err := sphere.ParseGeoPoint(v)
		if err != nil {
			return config.MapConfig{}, err
		}
		b.CentralPoint(p.Lon, p.Lat)
	}
	if v, ok := c.GetQuery("meridian"); ok {
		p, err := sphere.ParseGeoPoint(v)
		if err != nil {
			return config.MapConfig{}, err
		}
		b.MeridianPoint(p.Lon, p.Lat)
	}
	return b.Build()
}
