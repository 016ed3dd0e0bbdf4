// Package features holds the map feature catalog: named points, small circles
// and text annotations drawn over the heatmap, plus the heatmap scale and
// color palette.
package features

import (
	"math"
	"strings"

	"github.com/spf13/cast"

	"github.com/BlackCockder/IBEX-Mapper/internal/domain/sphere"
	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

// Palette names a heatmap colormap.
type Palette string

const (
	PaletteViridis Palette = "viridis"
	PaletteMagma   Palette = "magma"
	PalettePlasma  Palette = "plasma"
	PaletteInferno Palette = "inferno"
	PaletteCividis Palette = "cividis"
	PaletteBatlow  Palette = "batlow"
	PaletteBatlowK Palette = "batlowK"
	PaletteBatlowW Palette = "batlowW"

	DefaultPalette = PaletteMagma
)

// Palettes lists every supported palette.
var Palettes = []Palette{
	PaletteViridis, PaletteMagma, PalettePlasma, PaletteInferno,
	PaletteCividis, PaletteBatlow, PaletteBatlowK, PaletteBatlowW,
}

// ParsePalette matches name against Palettes.
func ParsePalette(name string) (Palette, error) {
	for _, p := range Palettes {
		if string(p) == name {
			return p, nil
		}
	}
	return "", invalid("unknown palette").WithDetail(name)
}

// HeatmapScale clips heatmap values to [Min, Max]. The zero value disables
// clipping.
type HeatmapScale struct {
	Min float64 `json:"min" mapstructure:"min"`
	Max float64 `json:"max" mapstructure:"max"`
}

// ParseHeatmapScale accepts "min,max" and validates the result.
func ParseHeatmapScale(txt string) (HeatmapScale, error) {
	parts := strings.Split(strings.TrimSpace(txt), ",")
	if len(parts) != 2 {
		return HeatmapScale{}, invalid("expected min,max").WithDetail(txt)
	}
	lo, err := cast.ToFloat64E(strings.TrimSpace(parts[0]))
	if err != nil {
		return HeatmapScale{}, invalid("scale minimum is not a number").WithDetail(txt).WithCause(err)
	}
	hi, err := cast.ToFloat64E(strings.TrimSpace(parts[1]))
	if err != nil {
		return HeatmapScale{}, invalid("scale maximum is not a number").WithDetail(txt).WithCause(err)
	}
	s := HeatmapScale{Min: lo, Max: hi}
	if err := s.Validate(); err != nil {
		return HeatmapScale{}, err
	}
	return s, nil
}

// IsSet reports whether clipping is enabled.
func (s HeatmapScale) IsSet() bool {
	return s.Min != 0 || s.Max != 0
}

func (s HeatmapScale) Validate() error {
	if math.IsNaN(s.Min) || math.IsNaN(s.Max) || math.IsInf(s.Min, 0) || math.IsInf(s.Max, 0) {
		return invalid("heatmap scale must be finite")
	}
	if s.IsSet() && s.Min >= s.Max {
		return invalid("heatmap scale minimum must be below maximum").WithDetailf("min=%g max=%g", s.Min, s.Max)
	}
	return nil
}

// Point marks a location with a marker and optional label.
type Point struct {
	Name        string          `json:"name"`
	Coordinates sphere.GeoPoint `json:"coordinates"`
	Color       string          `json:"color"`
	ShowText    bool            `json:"show_text"`
	PointType   string          `json:"point_type"`
}

func (p *Point) Validate() error {
	if err := validateName(p.Name); err != nil {
		return err
	}
	if err := p.Coordinates.Validate(); err != nil {
		return err
	}
	if p.Color == "" {
		p.Color = "white"
	}
	if p.PointType == "" {
		p.PointType = "o"
	}
	return nil
}

// Circle is a small circle of angular radius Alpha degrees around Coordinates.
type Circle struct {
	Name        string          `json:"name"`
	Coordinates sphere.GeoPoint `json:"coordinates"`
	Alpha       float64         `json:"alpha"`
	Color       string          `json:"color"`
	LineStyle   string          `json:"linestyle"`
}

func (c *Circle) Validate() error {
	if err := validateName(c.Name); err != nil {
		return err
	}
	if err := c.Coordinates.Validate(); err != nil {
		return err
	}
	if math.IsNaN(c.Alpha) || c.Alpha <= 0 || c.Alpha >= 180 {
		return invalid("circle radius must be within (0, 180) degrees").WithDetailf("alpha=%g", c.Alpha)
	}
	if c.Color == "" {
		c.Color = "white"
	}
	if c.LineStyle == "" {
		c.LineStyle = "solid"
	}
	return nil
}

// Text is a free annotation; Name is also the displayed string.
type Text struct {
	Name        string          `json:"name"`
	Coordinates sphere.GeoPoint `json:"coordinates"`
	Color       string          `json:"color"`
	FontSize    int             `json:"font_size"`
	TiltAngle   float64         `json:"tilt_angle"`
}

func (t *Text) Validate() error {
	if err := validateName(t.Name); err != nil {
		return err
	}
	if err := t.Coordinates.Validate(); err != nil {
		return err
	}
	if t.FontSize < 0 {
		return invalid("font size must not be negative").WithDetailf("font_size=%d", t.FontSize)
	}
	if t.FontSize == 0 {
		t.FontSize = 10
	}
	if t.Color == "" {
		t.Color = "white"
	}
	return nil
}

// Catalog is the persisted feature document.
type Catalog struct {
	Points       []Point      `json:"points"`
	Circles      []Circle     `json:"circles"`
	Texts        []Text       `json:"texts"`
	HeatmapScale HeatmapScale `json:"heatmap_scale"`
	Palette      Palette      `json:"heatmap_color_palette"`
}

// NewCatalog returns an empty catalog with the default palette.
func NewCatalog() *Catalog {
	return &Catalog{
		Points:  []Point{},
		Circles: []Circle{},
		Texts:   []Text{},
		Palette: DefaultPalette,
	}
}

// Normalize replaces nil slices and an empty palette after decoding.
func (c *Catalog) Normalize() {
	if c.Points == nil {
		c.Points = []Point{}
	}
	if c.Circles == nil {
		c.Circles = []Circle{}
	}
	if c.Texts == nil {
		c.Texts = []Text{}
	}
	if c.Palette == "" {
		c.Palette = DefaultPalette
	}
}

// Clone returns a deep copy.
func (c *Catalog) Clone() *Catalog {
	out := *c
	out.Points = append([]Point{}, c.Points...)
	out.Circles = append([]Circle{}, c.Circles...)
	out.Texts = append([]Text{}, c.Texts...)
	return &out
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return invalid("feature name is required")
	}
	return nil
}

func invalid(msg string) *errors.AppError {
	return errors.New(errors.CodeFeatureInvalid, msg)
}
