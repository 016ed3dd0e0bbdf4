package client

import (
	"context"
	"net/http"
	"net/url"
)

// Feature kinds accepted by Remove and Clear.
const (
	KindPoint  = "point"
	KindCircle = "circle"
	KindText   = "text"
)

// Point is a marker drawn at Coordinates.
type Point struct {
	Name        string   `json:"name"`
	Coordinates GeoPoint `json:"coordinates"`
	Color       string   `json:"color,omitempty"`
	ShowText    bool     `json:"show_text"`
	PointType   string   `json:"point_type,omitempty"`
}

// Circle is a small circle of angular radius Alpha degrees.
type Circle struct {
	Name        string   `json:"name"`
	Coordinates GeoPoint `json:"coordinates"`
	Alpha       float64  `json:"alpha"`
	Color       string   `json:"color,omitempty"`
	LineStyle   string   `json:"linestyle,omitempty"`
}

// Text is a free-standing label.
type Text struct {
	Name        string   `json:"name"`
	Coordinates GeoPoint `json:"coordinates"`
	Color       string   `json:"color,omitempty"`
	FontSize    int      `json:"font_size,omitempty"`
	TiltAngle   float64  `json:"tilt_angle"`
}

// Catalog is the server's feature document.
type Catalog struct {
	Points       []Point      `json:"points"`
	Circles      []Circle     `json:"circles"`
	Texts        []Text       `json:"texts"`
	HeatmapScale HeatmapScale `json:"heatmap_scale"`
	Palette      string       `json:"heatmap_color_palette"`
}

// FeaturesClient manages the overlay catalog.
type FeaturesClient struct {
	client *Client
}

func (f *FeaturesClient) Catalog(ctx context.Context) (*Catalog, error) {
	var out Catalog
	if err := f.client.doJSON(ctx, http.MethodGet, "/api/v1/features", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (f *FeaturesClient) AddPoint(ctx context.Context, p Point) error {
	return f.client.doJSON(ctx, http.MethodPost, "/api/v1/features/points", p, nil)
}

func (f *FeaturesClient) AddCircle(ctx context.Context, c Circle) error {
	return f.client.doJSON(ctx, http.MethodPost, "/api/v1/features/circles", c, nil)
}

func (f *FeaturesClient) AddText(ctx context.Context, t Text) error {
	return f.client.doJSON(ctx, http.MethodPost, "/api/v1/features/texts", t, nil)
}

// Remove deletes the named feature of kind.
func (f *FeaturesClient) Remove(ctx context.Context, kind, name string) error {
	return f.client.doJSON(ctx, http.MethodDelete, "/api/v1/features/"+url.PathEscape(kind)+"/"+url.PathEscape(name), nil, nil)
}

// Clear deletes every feature of kind.
func (f *FeaturesClient) Clear(ctx context.Context, kind string) error {
	return f.client.doJSON(ctx, http.MethodDelete, "/api/v1/features/"+url.PathEscape(kind), nil, nil)
}

// Reset empties the catalog and restores the default style.
func (f *FeaturesClient) Reset(ctx context.Context) error {
	return f.client.doJSON(ctx, http.MethodDelete, "/api/v1/features", nil, nil)
}

func (f *FeaturesClient) SetPalette(ctx context.Context, palette string) error {
	return f.client.doJSON(ctx, http.MethodPut, "/api/v1/features/palette", map[string]string{"palette": palette}, nil)
}

// SetScale sets the default clipping range; the zero scale disables it.
func (f *FeaturesClient) SetScale(ctx context.Context, s HeatmapScale) error {
	return f.client.doJSON(ctx, http.MethodPut, "/api/v1/features/scale", s, nil)
}
