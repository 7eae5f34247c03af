package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"

	"diningguide/internal/logger"
	"diningguide/pkg/diningtypes"
)

// CSVCatalog reads food items from a CSV file with the columns
// name, diningHall, calories and image_path, in any order.
type CSVCatalog struct {
	path      string
	imagesDir string
}

// NewCSVCatalog creates a catalog backed by the CSV file at path.
// Generated images are looked up in imagesDir.
func NewCSVCatalog(path, imagesDir string) *CSVCatalog {
	return &CSVCatalog{path: path, imagesDir: imagesDir}
}

// Source returns the CSV path.
func (c *CSVCatalog) Source() string {
	return c.path
}

// Fetch parses the CSV file. A missing or malformed file is a CatalogUnavailableError.
func (c *CSVCatalog) Fetch(_ context.Context) ([]diningtypes.FoodItem, error) {
	file, err := os.Open(c.path)
	if err != nil {
		return nil, diningtypes.NewCatalogUnavailable(c.path, err)
	}
	defer func() { _ = file.Close() }()

	items, err := c.parse(file)
	if err != nil {
		return nil, diningtypes.NewCatalogUnavailable(c.path, err)
	}
	logger.Debug("Catalog loaded from CSV", "path", c.path, "items", len(items))
	return items, nil
}

func (c *CSVCatalog) parse(r io.Reader) ([]diningtypes.FoodItem, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []diningtypes.FoodItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	field := func(record []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var items []diningtypes.FoodItem
	positions := make(map[string]int)
	for idx := 0; ; idx++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", idx+1, err)
		}

		name := field(record, "name")
		if name == "" {
			name = fmt.Sprintf("Item %d", idx)
		}
		hall := field(record, "diningHall")
		if hall == "" {
			hall = "Unknown Hall"
		}

		item := diningtypes.FoodItem{
			ID:         name + "_" + hall,
			Name:       name,
			DiningHall: hall,
			Calories:   parseCalories(field(record, "calories")),
		}
		item.Filename, item.ImageURL = c.resolveImage(name, hall, field(record, "image_path"))

		if pos, seen := positions[item.ID]; seen {
			items[pos] = item
			continue
		}
		positions[item.ID] = len(items)
		items = append(items, item)
	}

	if items == nil {
		items = []diningtypes.FoodItem{}
	}
	return items, nil
}

// resolveImage picks the generated image, then a provided image file, then a placeholder.
func (c *CSVCatalog) resolveImage(name, hall, imagePath string) (filename, url string) {
	generated := ImageFilename(name, hall)
	if fileExists(filepath.Join(c.imagesDir, generated)) {
		return generated, "/images/" + generated
	}

	if imagePath != "" && !strings.EqualFold(imagePath, "na") && fileExists(imagePath) {
		base := filepath.Base(imagePath)
		return base, "/images/" + base
	}

	return "", PlaceholderImageURL(name)
}

// PlaceholderImageURL returns the stock photo URL used when no image file exists.
func PlaceholderImageURL(name string) string {
	return fmt.Sprintf("https://source.unsplash.com/400x400/?%s,food", strings.ReplaceAll(name, " ", "+"))
}

func parseCalories(raw string) int {
	if raw == "" {
		return 0
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || value < 0 || value > math.MaxInt32 {
		return 0
	}
	return int(value)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// HTTPCatalog fetches food items from a catalog server's /api/foods endpoint.
type HTTPCatalog struct {
	baseURL string
	http    *resty.Client
}

// NewHTTPCatalog creates a catalog client for the server at baseURL.
func NewHTTPCatalog(baseURL string, opts HTTPClientOptions) *HTTPCatalog {
	baseURL = strings.TrimRight(baseURL, "/")
	return &HTTPCatalog{baseURL: baseURL, http: NewHTTPClient(baseURL, opts)}
}

// Source returns the server base URL.
func (c *HTTPCatalog) Source() string {
	return c.baseURL
}

// Fetch requests the food list. Transport errors, non-2xx replies and bad JSON are CatalogUnavailableErrors.
func (c *HTTPCatalog) Fetch(ctx context.Context) ([]diningtypes.FoodItem, error) {
	var items []diningtypes.FoodItem
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetResult(&items).
		Get("/api/foods")
	if err != nil {
		return nil, diningtypes.NewCatalogUnavailable(c.baseURL, err)
	}
	if resp.IsError() {
		return nil, diningtypes.NewCatalogUnavailable(c.baseURL, fmt.Errorf("server returned %s", resp.Status()))
	}
	if items == nil {
		return nil, diningtypes.NewCatalogUnavailable(c.baseURL, fmt.Errorf("response is not a food list"))
	}
	return items, nil
}

// CatalogService loads the food catalog once per browsing view and caches it.
type CatalogService struct {
	initialized bool

	mu       sync.RWMutex
	provider diningtypes.FoodCatalogProvider
	items    []diningtypes.FoodItem
	byID     map[string]int
	loaded   bool
	lastErr  error
}

// NewCatalogService creates a new CatalogService instance.
func NewCatalogService() *CatalogService {
	return &CatalogService{byID: make(map[string]int)}
}

// Name returns the service name "catalog" for registration.
func (c *CatalogService) Name() string {
	return "catalog"
}

// Initialize picks the catalog provider from DINING_CATALOG unless one was set.
// A value starting with http:// or https:// selects the HTTP catalog.
func (c *CatalogService) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}

	if c.provider == nil {
		source, imagesDir := "dataset/nov19.csv", "images"
		if config, err := LookupService[*ConfigurationService]("configuration"); err == nil {
			source = config.GetString("DINING_CATALOG", source)
			imagesDir = config.GetString("DINING_IMAGES_DIR", imagesDir)
		}
		c.provider = NewCatalogProvider(source, imagesDir)
	}

	logger.ServiceOperation("catalog", "initialize", "source", c.provider.Source())
	c.initialized = true
	return nil
}

// NewCatalogProvider returns an HTTP catalog for URLs and a CSV catalog otherwise.
func NewCatalogProvider(source, imagesDir string) diningtypes.FoodCatalogProvider {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return NewHTTPCatalog(source, DefaultHTTPClientOptions)
	}
	return NewCSVCatalog(source, imagesDir)
}

// SetProvider replaces the catalog provider and forgets cached items.
func (c *CatalogService) SetProvider(provider diningtypes.FoodCatalogProvider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.provider = provider
	c.items = nil
	c.byID = make(map[string]int)
	c.loaded = false
	c.lastErr = nil
}

// Load fetches the catalog on first use and returns the cached items afterwards.
func (c *CatalogService) Load(ctx context.Context) ([]diningtypes.FoodItem, error) {
	c.mu.RLock()
	if c.loaded {
		items := c.copyItemsLocked()
		c.mu.RUnlock()
		return items, nil
	}
	c.mu.RUnlock()
	return c.Reload(ctx)
}

// Reload clears the cache and fetches the catalog again.
func (c *CatalogService) Reload(ctx context.Context) ([]diningtypes.FoodItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized || c.provider == nil {
		return nil, fmt.Errorf("catalog service not initialized")
	}

	c.items = nil
	c.byID = make(map[string]int)
	c.loaded = false

	items, err := c.provider.Fetch(ctx)
	if err != nil {
		c.lastErr = err
		logger.Warn("Catalog unavailable", "source", c.provider.Source(), "error", err)
		if !diningtypes.IsCatalogUnavailable(err) {
			err = diningtypes.NewCatalogUnavailable(c.provider.Source(), err)
		}
		return nil, err
	}

	c.items = items
	for i, item := range items {
		c.byID[item.ID] = i
	}
	c.loaded = true
	c.lastErr = nil
	logger.Debug("Catalog cached", "items", len(items))
	return c.copyItemsLocked(), nil
}

// Items returns the cached items, or nil before a successful load.
func (c *CatalogService) Items() []diningtypes.FoodItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded {
		return nil
	}
	return c.copyItemsLocked()
}

// Lookup returns the cached item with the given id.
func (c *CatalogService) Lookup(id string) (diningtypes.FoodItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byID[id]
	if !ok {
		return diningtypes.FoodItem{}, false
	}
	return c.items[i], true
}

// Count returns the number of cached items.
func (c *CatalogService) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// LastError returns the error of the most recent failed load, if any.
func (c *CatalogService) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Source describes where the catalog comes from.
func (c *CatalogService) Source() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.provider == nil {
		return ""
	}
	return c.provider.Source()
}

func (c *CatalogService) copyItemsLocked() []diningtypes.FoodItem {
	out := make([]diningtypes.FoodItem, len(c.items))
	copy(out, c.items)
	return out
}
