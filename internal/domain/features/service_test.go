package features

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/BlackCockder/IBEX-Mapper/internal/domain/sphere"
	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Load(ctx context.Context) (*Catalog, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Catalog), args.Error(1)
}

func (m *MockRepository) Save(ctx context.Context, catalog *Catalog) error {
	args := m.Called(ctx, catalog)
	return args.Error(0)
}

func newService() (Service, *MemoryRepository) {
	repo := NewMemoryRepository()
	return NewService(repo, nil), repo
}

func TestAddPoint_Success(t *testing.T) {
	svc, repo := newService()
	ctx := context.Background()

	err := svc.AddPoint(ctx, Point{Name: "ribbon", Coordinates: sphere.GeoPoint{Lon: 221, Lat: 39}})
	assert.True(t, errors.IsCode(err, errors.CodeMalformedGeoPoint))

	require.NoError(t, svc.AddPoint(ctx, Point{Name: "ribbon", Coordinates: sphere.GeoPoint{Lon: -139, Lat: 39}, ShowText: true}))

	c, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, c.Points, 1)
	assert.Equal(t, "white", c.Points[0].Color)
	assert.Equal(t, "o", c.Points[0].PointType)
	assert.True(t, c.Points[0].ShowText)
}

func TestAddPoint_Duplicate(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	p := Point{Name: "nose", Coordinates: sphere.GeoPoint{Lon: -105, Lat: 5}}

	require.NoError(t, svc.AddPoint(ctx, p))
	err := svc.AddPoint(ctx, p)
	assert.True(t, errors.IsCode(err, errors.CodeFeatureDuplicate))
}

func TestAddCircle_Validation(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	center := sphere.GeoPoint{Lon: 40, Lat: 10}

	for _, alpha := range []float64{0, -3, 180, 200} {
		err := svc.AddCircle(ctx, Circle{Name: "c", Coordinates: center, Alpha: alpha})
		assert.True(t, errors.IsCode(err, errors.CodeFeatureInvalid), "alpha %g", alpha)
	}
	require.NoError(t, svc.AddCircle(ctx, Circle{Name: "c", Coordinates: center, Alpha: 30}))

	c, err := svc.Catalog(ctx)
	require.NoError(t, err)
	require.Len(t, c.Circles, 1)
	assert.Equal(t, "solid", c.Circles[0].LineStyle)
}

func TestAddText(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	err := svc.AddText(ctx, Text{Name: "  ", Coordinates: sphere.GeoPoint{}})
	assert.True(t, errors.IsValidation(err))
	err = svc.AddText(ctx, Text{Name: "Voyager 1", FontSize: -1})
	assert.True(t, errors.IsCode(err, errors.CodeFeatureInvalid))

	require.NoError(t, svc.AddText(ctx, Text{Name: "Voyager 1", Coordinates: sphere.GeoPoint{Lon: -105, Lat: 35}, TiltAngle: 15}))
	c, err := svc.Catalog(ctx)
	require.NoError(t, err)
	require.Len(t, c.Texts, 1)
	assert.Equal(t, 10, c.Texts[0].FontSize)
}

func TestRemoveAndClear(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, svc.AddPoint(ctx, Point{Name: name, Coordinates: sphere.GeoPoint{Lon: 10, Lat: 10}}))
	}
	require.NoError(t, svc.AddText(ctx, Text{Name: "t", Coordinates: sphere.GeoPoint{Lon: 1, Lat: 1}}))

	require.NoError(t, svc.Remove(ctx, KindPoint, "b"))
	err := svc.Remove(ctx, KindPoint, "b")
	assert.True(t, errors.IsNotFound(err))
	err = svc.Remove(ctx, Kind("polygon"), "b")
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))

	c, err := svc.Catalog(ctx)
	require.NoError(t, err)
	require.Len(t, c.Points, 2)
	assert.Equal(t, "a", c.Points[0].Name)
	assert.Equal(t, "c", c.Points[1].Name)

	require.NoError(t, svc.Clear(ctx, KindPoint))
	c, err = svc.Catalog(ctx)
	require.NoError(t, err)
	assert.Empty(t, c.Points)
	assert.Len(t, c.Texts, 1)
}

func TestScaleAndPalette(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	assert.True(t, errors.IsValidation(svc.SetHeatmapScale(ctx, HeatmapScale{Min: 5, Max: 1})))
	require.NoError(t, svc.SetHeatmapScale(ctx, HeatmapScale{Min: 0, Max: 1.5}))
	assert.True(t, errors.IsValidation(svc.SetPalette(ctx, "rainbow")))
	require.NoError(t, svc.SetPalette(ctx, "batlowK"))

	c, err := svc.Catalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, HeatmapScale{Max: 1.5}, c.HeatmapScale)
	assert.True(t, c.HeatmapScale.IsSet())
	assert.Equal(t, PaletteBatlowK, c.Palette)

	require.NoError(t, svc.Reset(ctx))
	c, err = svc.Catalog(ctx)
	require.NoError(t, err)
	assert.False(t, c.HeatmapScale.IsSet())
	assert.Equal(t, DefaultPalette, c.Palette)
}

func TestService_RepositoryErrors(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, nil)
	ctx := context.Background()

	repo.On("Load", mock.Anything).Return(nil, errors.New(errors.CodeStorageFailure, "disk")).Once()
	err := svc.AddPoint(ctx, Point{Name: "p", Coordinates: sphere.GeoPoint{Lon: 1, Lat: 1}})
	assert.True(t, errors.IsCode(err, errors.CodeStorageFailure))

	repo.On("Load", mock.Anything).Return(NewCatalog(), nil).Once()
	repo.On("Save", mock.Anything, mock.AnythingOfType("*features.Catalog")).Return(errors.New(errors.CodeStorageFailure, "disk full")).Once()
	err = svc.SetPalette(ctx, "viridis")
	assert.True(t, errors.IsCode(err, errors.CodeStorageFailure))

	repo.AssertExpectations(t)
}

func TestCatalog_NormalizeAndClone(t *testing.T) {
	c := &Catalog{}
	c.Normalize()
	assert.NotNil(t, c.Points)
	assert.Equal(t, DefaultPalette, c.Palette)

	c.Points = append(c.Points, Point{Name: "x"})
	clone := c.Clone()
	clone.Points[0].Name = "y"
	assert.Equal(t, "x", c.Points[0].Name)
}

func TestParseHeatmapScale(t *testing.T) {
	s, err := ParseHeatmapScale(" -0.5 , 2 ")
	require.NoError(t, err)
	assert.Equal(t, HeatmapScale{Min: -0.5, Max: 2}, s)

	for _, bad := range []string{"1", "a,2", "1,b", "3,1", "1,2,3"} {
		_, err := ParseHeatmapScale(bad)
		assert.True(t, errors.IsCode(err, errors.CodeFeatureInvalid), bad)
	}
}
