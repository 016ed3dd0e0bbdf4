package mapping

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/BlackCockder/IBEX-Mapper/internal/domain/features"
	"github.com/BlackCockder/IBEX-Mapper/internal/domain/resample"
	"github.com/BlackCockder/IBEX-Mapper/internal/domain/sphere"
)

// Scene is everything a Mollweide renderer needs to draw one map. Angles are
// radians unless a field name says otherwise. NaN values (missing heatmap
// cells and seam markers inside polylines) are serialized as null.
type Scene struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	CreatedAt time.Time             `json:"created_at"`
	DPI       int                   `json:"dpi"`
	MaxL      int                   `json:"max_l"`
	Palette   features.Palette      `json:"palette"`
	Scale     features.HeatmapScale `json:"heatmap_scale"`
	Range     Floats                `json:"range"`
	Heatmap   Heatmap               `json:"heatmap"`
	Rotation  *RotationInfo         `json:"rotation,omitempty"`
	Graticule []Line                `json:"graticule"`
	Labels    []resample.Label      `json:"labels"`
	Circles   []CircleShape         `json:"circles"`
	Points    []PointMark           `json:"points"`
	Texts     []TextMark            `json:"texts"`
}

// Heatmap is the value matrix with the axes its rows and columns sit on.
// Columns run from longitude π down to -π and rows from latitude π/2 down to
// -π/2, with or without rotation.
type Heatmap struct {
	LonAxis      Floats   `json:"lon_axis"`
	LatAxis      Floats   `json:"lat_axis"`
	Values       []Floats `json:"values"`
	MissingCells int      `json:"missing_cells"`
}

// RotationInfo describes the re-orientation applied to the map.
type RotationInfo struct {
	CentralPoint  sphere.GeoPoint `json:"central_point"`
	MeridianPoint sphere.GeoPoint `json:"meridian_point"`
	Coincident    bool            `json:"coincident"`
	Matrix        [3][3]float64   `json:"matrix"`
	// SampleLon and SampleLat are where each displayed cell was sampled on
	// the unrotated sphere.
	SampleLon []Floats `json:"sample_lon"`
	SampleLat []Floats `json:"sample_lat"`
}

// Line is one graticule line.
type Line struct {
	Kind    resample.GraticuleKind `json:"kind"`
	Degrees float64                `json:"degrees"`
	Lon     Floats                 `json:"lon"`
	Lat     Floats                 `json:"lat"`
}

// CircleShape is a rotated, seam-split small circle.
type CircleShape struct {
	Name      string  `json:"name"`
	Color     string  `json:"color"`
	LineStyle string  `json:"linestyle"`
	AlphaDeg  float64 `json:"alpha_deg"`
	Lon       Floats  `json:"lon"`
	Lat       Floats  `json:"lat"`
}

// PointMark is a rotated point marker.
type PointMark struct {
	Name     string  `json:"name"`
	Color    string  `json:"color"`
	Marker   string  `json:"marker"`
	ShowText bool    `json:"show_text"`
	Lon      float64 `json:"lon"`
	Lat      float64 `json:"lat"`
}

// TextMark is a free annotation. Texts stay where they were placed and are
// not rotated with the map.
type TextMark struct {
	Text      string  `json:"text"`
	Color     string  `json:"color"`
	FontSize  int     `json:"font_size"`
	TiltAngle float64 `json:"tilt_angle"`
	Lon       float64 `json:"lon"`
	Lat       float64 `json:"lat"`
}

// OutputName returns the file name a scene is exported under.
func OutputName(name string, dpi int) string {
	return fmt.Sprintf("file_%s__res%d.json", name, dpi)
}

// Marshal encodes s as indented JSON.
func (s *Scene) Marshal() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// Floats is a float slice whose NaN and infinite entries encode as null.
type Floats []float64

func (f Floats) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("null"), nil
	}
	buf := make([]byte, 0, 2+len(f)*12)
	buf = append(buf, '[')
	for i, v := range f {
		if i > 0 {
			buf = append(buf, ',')
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf = append(buf, "null"...)
			continue
		}
		buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
	}
	return append(buf, ']'), nil
}

func (f *Floats) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = nil
		return nil
	}
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Floats, len(raw))
	for i, v := range raw {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	*f = out
	return nil
}

// mirrorColumns returns a copy of m with its columns in reverse order.
func mirrorColumns(m *mat.Dense) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	for j := 0; j < c; j++ {
		out.SetCol(c-1-j, mat.Col(nil, j, m))
	}
	return out
}

func rowsOf(m *mat.Dense) []Floats {
	r, _ := m.Dims()
	out := make([]Floats, r)
	for i := 0; i < r; i++ {
		out[i] = mat.Row(nil, i, m)
	}
	return out
}
