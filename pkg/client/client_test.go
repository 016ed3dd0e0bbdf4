package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]Option{WithRetryWait(time.Millisecond, 2*time.Millisecond)}, opts...)
	c, err := NewClient(server.URL+"/", opts...)
	require.NoError(t, err)
	return c
}

type testLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *testLogger) Debugf(format string, args ...interface{}) { l.log(format, args...) }
func (l *testLogger) Infof(format string, args ...interface{})  { l.log(format, args...) }
func (l *testLogger) Errorf(format string, args ...interface{}) { l.log(format, args...) }
func (l *testLogger) log(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("http://maps.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "http://maps.example.com", c.baseURL)
	assert.Equal(t, 3, c.retryMax)
	assert.Contains(t, c.userAgent, "ibex-go-sdk/")
	assert.Same(t, c.Maps(), c.Maps())
	assert.Same(t, c.Features(), c.Features())

	for _, bad := range []string{"", "ftp://maps.example.com", "not a url", "://"} {
		_, err := NewClient(bad)
		assert.True(t, errors.IsCode(err, errors.CodeConfigInvalid), bad)
	}
}

func TestClient_SetsHeaders(t *testing.T) {
	var got http.Header
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}, WithUserAgent("ibex-test/1"))

	require.NoError(t, c.Ready(context.Background()))
	assert.Equal(t, "ibex-test/1", got.Get("User-Agent"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Len(t, got.Get("X-Request-ID"), 36)
}

func TestClient_DecodesAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"code": "MAP_001", "message": "coefficient table degree exceeds cached basis", "detail": "file_max_l=3 max_l_to_cache=2",
		})
	})
	_, err := c.Maps().Render(context.Background(), strings.NewReader("0 0 1 0\n"), RenderOptions{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsValidation())
	assert.False(t, apiErr.IsServerError())
	assert.Equal(t, "MAP_001", apiErr.Code)
	assert.Contains(t, apiErr.Error(), "file_max_l=3")
	assert.NotEmpty(t, apiErr.RequestID)
}

func TestClient_NonJSONError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream proxy failure", http.StatusNotFound)
	})
	err := c.Ready(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())
	assert.Contains(t, apiErr.Message, "upstream proxy failure")
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	log := &testLogger{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"code": "COMMON_001"})
			return
		}
		writeJSON(w, http.StatusOK, Catalog{Palette: "magma"})
	}, WithLogger(log))

	cat, err := c.Features().Catalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "magma", cat.Palette)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
	assert.NotEmpty(t, log.lines)
}

func TestClient_GivesUpAfterRetryMax(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}, WithRetryMax(2))

	err := c.Ready(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsServerError())
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusConflict, map[string]string{"code": "FEATURE_002"})
	})
	err := c.Features().AddPoint(context.Background(), Point{Name: "nose"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsConflict())
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestClient_RateLimitRetryAfter(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"code": "RATE_LIMITED"})
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	require.NoError(t, c.Ready(context.Background()))
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestClient_ContextCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}, WithRetryWait(time.Hour, time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := c.Ready(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_CalculateBackoff(t *testing.T) {
	c := &Client{retryWaitMin: 100 * time.Millisecond, retryWaitMax: 300 * time.Millisecond}
	b1 := c.calculateBackoff(1)
	assert.GreaterOrEqual(t, b1, 100*time.Millisecond)
	assert.Less(t, b1, 125*time.Millisecond)
	b5 := c.calculateBackoff(5)
	assert.GreaterOrEqual(t, b5, 300*time.Millisecond)
	assert.Less(t, b5, 375*time.Millisecond)
}

func TestMaps_Render(t *testing.T) {
	var gotQuery string
	var gotBody string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/maps", r.URL.Path)
		assert.Equal(t, "text/plain", r.Header.Get("Content-Type"))
		gotQuery = r.URL.RawQuery
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Disposition", `inline; filename="file_t2010__res6.json"`)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"id": "r-1", "name": "t2010", "dpi": 6, "max_l": 2, "palette": "viridis",
			"range": []interface{}{nil, 1.5},
		})
	})

	rotate := true
	res, err := c.Maps().Render(context.Background(), strings.NewReader("0 0 1 0.1\n"), RenderOptions{
		Name:         "t2010",
		DPI:          6,
		Rotate:       &rotate,
		CentralPoint: &GeoPoint{Lon: -70, Lat: 0.5},
		Palette:      "viridis",
		Scale:        &HeatmapScale{Min: 0, Max: 1.5},
	})
	require.NoError(t, err)
	assert.Equal(t, "0 0 1 0.1\n", gotBody)
	assert.Contains(t, gotQuery, "dpi=6")
	assert.Contains(t, gotQuery, "rotate=true")
	assert.Contains(t, gotQuery, "central=-70%2C0.5")
	assert.Contains(t, gotQuery, "scale=0%2C1.5")
	assert.NotContains(t, gotQuery, "max_l")
	assert.NotContains(t, gotQuery, "meridian")

	assert.Equal(t, "file_t2010__res6.json", res.Filename)
	assert.Equal(t, "r-1", res.Summary.ID)
	assert.Equal(t, 6, res.Summary.DPI)
	assert.Equal(t, "viridis", res.Summary.Palette)
	assert.Contains(t, string(res.Scene), `"range":[null,1.5]`)
}

func TestMaps_Settings(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/maps/config", r.URL.Path)
		writeJSON(w, http.StatusOK, MapSettings{MapAccuracy: 400, MaxLToCache: 10, CentralPoint: GeoPoint{Lon: -105}})
	})
	s, err := c.Maps().Settings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 400, s.MapAccuracy)
	assert.Equal(t, -105.0, s.CentralPoint.Lon)
}

func TestFeatures_Routes(t *testing.T) {
	type call struct{ method, path, body string }
	var mu sync.Mutex
	var calls []call
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, call{r.Method, r.URL.EscapedPath(), strings.TrimSpace(string(b))})
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	ctx := context.Background()
	f := c.Features()

	require.NoError(t, f.AddPoint(ctx, Point{Name: "nose", Coordinates: GeoPoint{Lon: -105, Lat: 5}}))
	require.NoError(t, f.AddCircle(ctx, Circle{Name: "ribbon", Alpha: 75}))
	require.NoError(t, f.AddText(ctx, Text{Name: "IBEX"}))
	require.NoError(t, f.SetPalette(ctx, "batlow"))
	require.NoError(t, f.SetScale(ctx, HeatmapScale{Min: -1, Max: 1}))
	require.NoError(t, f.Remove(ctx, KindCircle, "big ribbon"))
	require.NoError(t, f.Clear(ctx, KindText))
	require.NoError(t, f.Reset(ctx))

	require.Len(t, calls, 8)
	assert.Equal(t, call{"POST", "/api/v1/features/points", `{"name":"nose","coordinates":{"lon":-105,"lat":5},"show_text":false}`}, calls[0])
	assert.Equal(t, "/api/v1/features/circles", calls[1].path)
	assert.Equal(t, "/api/v1/features/texts", calls[2].path)
	assert.Equal(t, call{"PUT", "/api/v1/features/palette", `{"palette":"batlow"}`}, calls[3])
	assert.Equal(t, call{"PUT", "/api/v1/features/scale", `{"min":-1,"max":1}`}, calls[4])
	assert.Equal(t, call{"DELETE", "/api/v1/features/circle/big%20ribbon", ""}, calls[5])
	assert.Equal(t, call{"DELETE", "/api/v1/features/text", ""}, calls[6])
	assert.Equal(t, call{"DELETE", "/api/v1/features", ""}, calls[7])
}
