package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// GeoPoint is a longitude/latitude pair in degrees.
type GeoPoint struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

func (p GeoPoint) String() string {
	return strconv.FormatFloat(p.Lon, 'g', -1, 64) + "," + strconv.FormatFloat(p.Lat, 'g', -1, 64)
}

// HeatmapScale clips heatmap values to [Min, Max]; zero disables clipping.
type HeatmapScale struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// MapSettings mirrors the server's default map section.
type MapSettings struct {
	MapAccuracy         int      `json:"map_accuracy"`
	MaxLToCache         int      `json:"max_l_to_cache"`
	Rotate              bool     `json:"rotate"`
	CentralPoint        GeoPoint `json:"central_point"`
	MeridianPoint       GeoPoint `json:"meridian_point"`
	AllowNegativeValues bool     `json:"allow_negative_values"`
}

// RenderOptions override the server defaults for one render. Zero values
// and nil pointers keep the default.
type RenderOptions struct {
	Name          string
	DPI           int
	MaxL          int
	Rotate        *bool
	CentralPoint  *GeoPoint
	MeridianPoint *GeoPoint
	AllowNegative *bool
	Palette       string
	Scale         *HeatmapScale
}

func (o RenderOptions) query() url.Values {
	q := url.Values{}
	if o.Name != "" {
		q.Set("name", o.Name)
	}
	if o.DPI != 0 {
		q.Set("dpi", strconv.Itoa(o.DPI))
	}
	if o.MaxL != 0 {
		q.Set("max_l", strconv.Itoa(o.MaxL))
	}
	if o.Rotate != nil {
		q.Set("rotate", strconv.FormatBool(*o.Rotate))
	}
	if o.CentralPoint != nil {
		q.Set("central", o.CentralPoint.String())
	}
	if o.MeridianPoint != nil {
		q.Set("meridian", o.MeridianPoint.String())
	}
	if o.AllowNegative != nil {
		q.Set("allow_negative", strconv.FormatBool(*o.AllowNegative))
	}
	if o.Palette != "" {
		q.Set("palette", o.Palette)
	}
	if o.Scale != nil {
		q.Set("scale", fmt.Sprintf("%g,%g", o.Scale.Min, o.Scale.Max))
	}
	return q
}

// SceneSummary holds the scene header fields.
type SceneSummary struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	CreatedAt time.Time    `json:"created_at"`
	DPI       int          `json:"dpi"`
	MaxL      int          `json:"max_l"`
	Palette   string       `json:"palette"`
	Scale     HeatmapScale `json:"heatmap_scale"`
}

// RenderResult is a rendered scene. Scene keeps the server's bytes so they
// can be written to disk unchanged.
type RenderResult struct {
	Summary  SceneSummary
	Filename string
	Scene    json.RawMessage
}

// MapsClient renders coefficient tables.
type MapsClient struct {
	client *Client
}

// Render posts a coefficient table and returns the scene.
func (m *MapsClient) Render(ctx context.Context, table io.Reader, opts RenderOptions) (*RenderResult, error) {
	data, err := io.ReadAll(table)
	if err != nil {
		return nil, fmt.Errorf("failed to read coefficient table: %w", err)
	}
	resp, err := m.client.send(ctx, request{
		method:      http.MethodPost,
		path:        "/api/v1/maps",
		query:       opts.query(),
		contentType: "text/plain",
		body:        data,
	})
	if err != nil {
		return nil, err
	}

	res := &RenderResult{Scene: resp.body}
	if err := json.Unmarshal(resp.body, &res.Summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scene: %w", err)
	}
	if _, params, err := mime.ParseMediaType(resp.header.Get("Content-Disposition")); err == nil {
		res.Filename = params["filename"]
	}
	return res, nil
}

// Settings returns the server's default map settings.
func (m *MapsClient) Settings(ctx context.Context) (*MapSettings, error) {
	var out MapSettings
	if err := m.client.doJSON(ctx, http.MethodGet, "/api/v1/maps/config", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
