package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diningguide/internal/testutils"
	"diningguide/pkg/diningtypes"
)

// switchCatalog serves items until fail is set.
type switchCatalog struct {
	items []diningtypes.FoodItem
	fail  error
}

func (s *switchCatalog) Fetch(context.Context) ([]diningtypes.FoodItem, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	return s.items, nil
}
func (s *switchCatalog) Source() string { return "switch" }

func TestCSVCatalog_Fetch(t *testing.T) {
	dir := t.TempDir()
	path := testutils.WriteCatalog(t, dir)

	items, err := NewCSVCatalog(path, filepath.Join(dir, "images")).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 4)

	assert.Equal(t, "Pizza_North", items[0].ID)
	assert.Equal(t, "Pizza", items[0].Name)
	assert.Equal(t, "North", items[0].DiningHall)
	assert.Equal(t, 300, items[0].Calories)
	assert.Equal(t, "Tofu Stir Fry_Rheta's Market", items[3].ID)
	assert.Equal(t, "https://source.unsplash.com/400x400/?Tofu+Stir+Fry,food", items[3].ImageURL)
	assert.Empty(t, items[3].Filename)
}

func TestCSVCatalog_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := testutils.WriteCatalog(t, dir,
		"\ufeffname,diningHall,calories,image_path",
		",North,abc,",
		"Soup,,-5,",
		"Toast,East,120.9,",
	)

	items, err := NewCSVCatalog(path, dir).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "Item 0", items[0].Name)
	assert.Equal(t, 0, items[0].Calories)
	assert.Equal(t, "Unknown Hall", items[1].DiningHall)
	assert.Equal(t, 0, items[1].Calories)
	assert.Equal(t, 120, items[2].Calories)
}

func TestCSVCatalog_DuplicateIDsKeepFirstPosition(t *testing.T) {
	dir := t.TempDir()
	path := testutils.WriteCatalog(t, dir,
		"name,diningHall,calories,image_path",
		"Pizza,North,300,",
		"Salad,North,150,",
		"Pizza,North,350,",
	)

	items, err := NewCSVCatalog(path, dir).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Pizza", items[0].Name)
	assert.Equal(t, 350, items[0].Calories)
}

func TestCSVCatalog_ImagePriority(t *testing.T) {
	dir := t.TempDir()
	imagesDir := filepath.Join(dir, "images")
	testutils.WriteFile(t, imagesDir, "pizza_north.png", "png")
	existing := testutils.WriteFile(t, dir, "photos/salad.jpg", "jpg")

	path := testutils.WriteCatalog(t, dir,
		"name,diningHall,calories,image_path",
		"Pizza,North,300,"+filepath.Join(dir, "photos", "salad.jpg"),
		"Salad,North,150,"+existing,
		"Burger,South,500,"+filepath.Join(dir, "missing.jpg"),
	)

	items, err := NewCSVCatalog(path, imagesDir).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "pizza_north.png", items[0].Filename)
	assert.Equal(t, "/images/pizza_north.png", items[0].ImageURL)
	assert.Equal(t, "salad.jpg", items[1].Filename)
	assert.Equal(t, PlaceholderImageURL("Burger"), items[2].ImageURL)
}

func TestCSVCatalog_MissingFile(t *testing.T) {
	_, err := NewCSVCatalog(filepath.Join(t.TempDir(), "nope.csv"), "").Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, diningtypes.IsCatalogUnavailable(err))
}

func TestCSVCatalog_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := testutils.WriteFile(t, dir, "empty.csv", "")

	items, err := NewCSVCatalog(path, dir).Fetch(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestCSVCatalog_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := testutils.WriteFile(t, dir, "bad.csv", "name,diningHall\n\"unterminated,North\n")

	_, err := NewCSVCatalog(path, dir).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, diningtypes.IsCatalogUnavailable(err))
}

func TestHTTPCatalog_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/foods", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(testutils.SampleSelection())
	}))
	defer server.Close()

	catalog := NewHTTPCatalog(server.URL+"/", fastHTTPOptions)
	assert.Equal(t, server.URL, catalog.Source())

	items, err := catalog.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Pizza_North", items[0].ID)
	assert.Equal(t, "North", items[0].DiningHall)
}

func TestHTTPCatalog_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "null body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte("null"))
			},
		},
		{
			name: "not a list",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"message":"Dining Hall API"}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, err := NewHTTPCatalog(server.URL, fastHTTPOptions).Fetch(context.Background())
			require.Error(t, err)
			assert.True(t, diningtypes.IsCatalogUnavailable(err))
		})
	}
}

func TestNewCatalogProvider(t *testing.T) {
	_, isHTTP := NewCatalogProvider("http://localhost:8000", "images").(*HTTPCatalog)
	assert.True(t, isHTTP)
	_, isCSV := NewCatalogProvider("dataset/nov19.csv", "images").(*CSVCatalog)
	assert.True(t, isCSV)
}

func TestCatalogService_InitializeFromConfiguration(t *testing.T) {
	ctx, _, _ := setupConfigurationTest(t)
	dir := t.TempDir()
	path := testutils.WriteCatalog(t, dir)
	ctx.Configuration().SetTestEnvOverride("DINING_CATALOG", path)

	catalog := NewCatalogService()
	registry := setupTestRegistry(t, NewConfigurationService(), catalog)
	require.NoError(t, registry.InitializeAll())

	assert.Equal(t, path, catalog.Source())
	items, err := catalog.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 4)
	assert.Equal(t, 4, catalog.Count())

	item, ok := catalog.Lookup("Burger_South")
	require.True(t, ok)
	assert.Equal(t, 500, item.Calories)
	_, ok = catalog.Lookup("missing")
	assert.False(t, ok)
}

func TestCatalogService_LoadCaches(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(testutils.SampleSelection())
	}))
	defer server.Close()

	setupTestRegistry(t)
	catalog := NewCatalogService()
	catalog.SetProvider(NewHTTPCatalog(server.URL, fastHTTPOptions))
	require.NoError(t, catalog.Initialize())

	_, err := catalog.Load(context.Background())
	require.NoError(t, err)
	_, err = catalog.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	_, err = catalog.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestCatalogService_ReloadFailureClearsCache(t *testing.T) {
	setupTestRegistry(t)
	provider := &switchCatalog{items: testutils.SampleSelection()}
	catalog := NewCatalogService()
	catalog.SetProvider(provider)
	require.NoError(t, catalog.Initialize())

	_, err := catalog.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, catalog.Count())

	provider.fail = errors.New("disk on fire")
	_, err = catalog.Reload(context.Background())
	require.Error(t, err)
	assert.True(t, diningtypes.IsCatalogUnavailable(err))
	assert.Nil(t, catalog.Items())
	assert.Equal(t, 0, catalog.Count())
	assert.Error(t, catalog.LastError())
}

func TestCatalogService_NotInitialized(t *testing.T) {
	_, err := NewCatalogService().Load(context.Background())
	assert.Error(t, err)
}

func TestParseCalories(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{raw: "", want: 0},
		{raw: "300", want: 300},
		{raw: "12.7", want: 12},
		{raw: "-5", want: 0},
		{raw: "NaN", want: 0},
		{raw: "abc", want: 0},
		{raw: "1e300", want: 0},
		{raw: "+Inf", want: 0},
		{raw: "2147483647", want: 2147483647},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, parseCalories(tt.raw))
		})
	}
}
