// Package mapping runs the render pipeline: parse and check a coefficient
// table, fetch the cached basis, contract it into a heatmap, optionally
// re-orient the map around two anchor points and assemble the overlays into
// a Scene.
package mapping

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/BlackCockder/IBEX-Mapper/internal/config"
	"github.com/BlackCockder/IBEX-Mapper/internal/domain/features"
	"github.com/BlackCockder/IBEX-Mapper/internal/domain/harmonics"
	"github.com/BlackCockder/IBEX-Mapper/internal/domain/resample"
	"github.com/BlackCockder/IBEX-Mapper/internal/domain/sphere"
	"github.com/BlackCockder/IBEX-Mapper/internal/infrastructure/monitoring/logging"
	"github.com/BlackCockder/IBEX-Mapper/internal/infrastructure/monitoring/prometheus"
	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

// BasisProvider returns the basis set for a (dpi, max_l) pair.
type BasisProvider interface {
	Get(ctx context.Context, dpi, maxL int) (*harmonics.BasisSet, error)
}

// SceneSink stores an exported scene under a key.
type SceneSink interface {
	Put(ctx context.Context, key string, data []byte) error
}

// Request is one render.
type Request struct {
	// Name labels the scene and its output file.
	Name  string
	Table *harmonics.CoefficientTable
	Map   config.MapConfig

	// Palette and Scale override the catalog when set.
	Palette string
	Scale   *features.HeatmapScale
}

// Engine renders scenes. It is safe for concurrent use.
type Engine struct {
	basis         BasisProvider
	features      features.Service
	logger        logging.Logger
	metrics       *prometheus.MapperMetrics
	graticuleStep float64
	palette       features.Palette
	scale         features.HeatmapScale
	now           func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithFeatures supplies the catalog of points, circles, texts, palette and
// scale. Without it scenes carry no overlays besides the graticule.
func WithFeatures(s features.Service) Option {
	return func(e *Engine) { e.features = s }
}

func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithMetrics(m *prometheus.MapperMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithRenderSection applies graticule spacing and the fallback palette and
// scale used when no catalog is configured.
func WithRenderSection(r config.RenderSection) Option {
	return func(e *Engine) {
		if r.GraticuleStep > 0 {
			e.graticuleStep = r.GraticuleStep
		}
		if p, err := features.ParsePalette(r.Palette); err == nil {
			e.palette = p
		}
		e.scale = r.HeatmapScale
	}
}

// NewEngine creates an Engine over basis.
func NewEngine(basis BasisProvider, opts ...Option) *Engine {
	e := &Engine{
		basis:         basis,
		logger:        logging.NewNopLogger(),
		metrics:       prometheus.NewNoopMetrics(),
		graticuleStep: resample.DefaultGraticuleStep,
		palette:       features.DefaultPalette,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("mapping")
	return e
}

// GenerateFromReader parses a coefficient table from r and renders it.
func (e *Engine) GenerateFromReader(ctx context.Context, name string, r io.Reader, mc config.MapConfig) (*Scene, error) {
	table, err := harmonics.ParseTable(r)
	if err != nil {
		return nil, err
	}
	return e.Generate(ctx, Request{Name: name, Table: table, Map: mc})
}

// Generate renders one scene. Validation failures are returned before any
// basis evaluation starts.
func (e *Engine) Generate(ctx context.Context, req Request) (scene *Scene, err error) {
	start := time.Now()
	mc := req.Map
	gaps := 0
	defer func() {
		prometheus.RecordRender(e.metrics, mc.Rotate(), time.Since(start), gaps, err)
		if err != nil {
			prometheus.RecordError(e.metrics, "mapping", string(errors.GetCode(err)))
		}
	}()

	if req.Table == nil {
		return nil, errors.New(errors.CodeEmptyTable, "coefficient table is required")
	}
	if mc.MapAccuracy() <= 0 {
		return nil, errors.NonPositiveDimension("map_accuracy", mc.MapAccuracy())
	}
	if err := req.Table.CheckAgainstCache(mc.MaxLToCache()); err != nil {
		return nil, err
	}
	catalog, err := e.catalog(ctx)
	if err != nil {
		return nil, err
	}
	palette, scale, err := e.style(req, catalog)
	if err != nil {
		return nil, err
	}

	dpi := mc.MapAccuracy()
	log := e.logger.With(logging.String("name", req.Name), logging.Int("dpi", dpi))

	basis, err := e.basis.Get(ctx, dpi, mc.MaxLToCache())
	if err != nil {
		return nil, err
	}
	coefficients := req.Table.Vector()
	grid, err := harmonics.Contract(coefficients, basis.Truncate(len(coefficients)), dpi)
	if err != nil {
		return nil, err
	}
	if !mc.AllowNegativeValues() {
		grid.ClampMin(0)
	}
	if scale.IsSet() {
		grid.ClampRange(scale.Min, scale.Max)
	}

	scene = &Scene{
		ID:        uuid.NewString(),
		Name:      req.Name,
		CreatedAt: e.now().UTC(),
		DPI:       dpi,
		MaxL:      req.Table.MaxL(),
		Palette:   palette,
		Scale:     scale,
		Heatmap: Heatmap{
			LonAxis: resample.LongitudeAxis(dpi),
			LatAxis: resample.LatitudeAxis(dpi),
		},
	}

	r := sphere.Identity()
	values := grid.Values
	if mc.Rotate() {
		pair, err := sphere.BuildRotationPair(mc.CentralPoint(), mc.MeridianPoint())
		if err != nil {
			return nil, err
		}
		r = pair.Full

		mesh, err := resample.CanonicalMesh(dpi)
		if err != nil {
			return nil, err
		}
		// Columns run π..-π in every scene.
		mesh.Lon = mirrorColumns(mesh.Lon)
		sampled := resample.RotateGrid(mesh, r.Transpose())
		values, err = resample.Interpolate(grid.Values, sampled.Lat, sampled.Lon)
		if err != nil {
			return nil, err
		}
		gaps = resample.CountMissing(values)
		if gaps > 0 {
			log.Warn("rotated heatmap has cells without interpolation neighbours", logging.Int("missing", gaps))
		}

		scene.Heatmap.LonAxis = mat.Row(nil, 0, mesh.Lon)
		scene.Rotation = &RotationInfo{
			CentralPoint:  mc.CentralPoint(),
			MeridianPoint: mc.MeridianPoint(),
			Coincident:    pair.Coincident,
			Matrix:        r.Rows(),
			SampleLon:     rowsOf(sampled.Lon),
			SampleLat:     rowsOf(sampled.Lat),
		}
	}
	scene.Heatmap.Values = rowsOf(values)
	scene.Heatmap.MissingCells = gaps
	lo, hi := (&harmonics.HeatmapGrid{DPI: dpi, Values: values}).Range()
	scene.Range = Floats{lo, hi}

	scene.Graticule = graticule(e.graticuleStep, r)
	scene.Labels = resample.CoordinateLabels(e.graticuleStep, r)
	scene.Circles, scene.Points, scene.Texts = overlays(catalog, r)

	log.Info("map rendered",
		logging.String("render_id", scene.ID),
		logging.Bool("rotated", mc.Rotate()),
		logging.Int("max_l", scene.MaxL),
		logging.Duration("elapsed", time.Since(start)),
	)
	return scene, nil
}

// Export writes scene to sink under OutputName and returns the key.
func (e *Engine) Export(ctx context.Context, scene *Scene, sink SceneSink) (string, error) {
	data, err := scene.Marshal()
	if err != nil {
		return "", errors.Wrap(err, errors.CodeSerialization, "failed to encode scene")
	}
	key := OutputName(scene.Name, scene.DPI)
	if err := sink.Put(ctx, key, data); err != nil {
		return "", err
	}
	e.logger.Info("scene exported", logging.String("render_id", scene.ID), logging.String("key", key))
	return key, nil
}

func (e *Engine) catalog(ctx context.Context) (*features.Catalog, error) {
	if e.features == nil {
		c := features.NewCatalog()
		c.Palette = e.palette
		c.HeatmapScale = e.scale
		return c, nil
	}
	return e.features.Catalog(ctx)
}

func (e *Engine) style(req Request, c *features.Catalog) (features.Palette, features.HeatmapScale, error) {
	palette, scale := c.Palette, c.HeatmapScale
	if req.Palette != "" {
		p, err := features.ParsePalette(req.Palette)
		if err != nil {
			return "", features.HeatmapScale{}, err
		}
		palette = p
	}
	if req.Scale != nil {
		if err := req.Scale.Validate(); err != nil {
			return "", features.HeatmapScale{}, err
		}
		scale = *req.Scale
	}
	return palette, scale, nil
}

func graticule(step float64, r sphere.Rotation) []Line {
	lines := resample.Graticule(step, resample.GraticuleSamples, r)
	out := make([]Line, len(lines))
	for i, l := range lines {
		out[i] = Line{Kind: l.Kind, Degrees: l.Degrees, Lon: l.Lon, Lat: l.Lat}
	}
	return out
}

func overlays(c *features.Catalog, r sphere.Rotation) ([]CircleShape, []PointMark, []TextMark) {
	circles := make([]CircleShape, 0, len(c.Circles))
	for _, ci := range c.Circles {
		lon, lat := sphere.SmallCircle(ci.Coordinates, ci.Alpha, sphere.CircleSamples)
		line := resample.RotateAndSplit(lon, lat, r)
		circles = append(circles, CircleShape{
			Name:      ci.Name,
			Color:     ci.Color,
			LineStyle: ci.LineStyle,
			AlphaDeg:  ci.Alpha,
			Lon:       line.Lon,
			Lat:       line.Lat,
		})
	}

	points := make([]PointMark, 0, len(c.Points))
	for _, p := range c.Points {
		lon, lat := p.Coordinates.Radians()
		lon, lat = sphere.RotatePoint(r, lon, lat)
		points = append(points, PointMark{
			Name:     p.Name,
			Color:    p.Color,
			Marker:   p.PointType,
			ShowText: p.ShowText,
			Lon:      lon,
			Lat:      lat,
		})
	}

	texts := make([]TextMark, 0, len(c.Texts))
	for _, t := range c.Texts {
		lon, lat := t.Coordinates.Radians()
		texts = append(texts, TextMark{
			Text:      t.Name,
			Color:     t.Color,
			FontSize:  t.FontSize,
			TiltAngle: t.TiltAngle,
			Lon:       lon,
			Lat:       lat,
		})
	}
	return circles, points, texts
}
