package testutils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"diningguide/pkg/diningtypes"
)

// Food builds a FoodItem with the catalog's id convention.
func Food(name, hall string, calories int) diningtypes.FoodItem {
	return diningtypes.FoodItem{
		ID:         name + "_" + hall,
		Name:       name,
		DiningHall: hall,
		Calories:   calories,
	}
}

// SampleSelection returns the Pizza/Salad/Burger selection that recommends North.
func SampleSelection() []diningtypes.FoodItem {
	return []diningtypes.FoodItem{
		Food("Pizza", "North", 300),
		Food("Salad", "North", 150),
		Food("Burger", "South", 500),
	}
}

// SampleCatalogCSV is a small catalog in the nov19.csv column layout.
const SampleCatalogCSV = `name,diningHall,calories,image_path
Pizza,North,300,na
Salad,North,150,
Burger,South,500,
Tofu Stir Fry,Rheta's Market,420,na
`

// WriteFile writes content to name under dir and returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// WriteCatalog writes a catalog CSV into dir and returns its path.
func WriteCatalog(t *testing.T, dir string, rows ...string) string {
	t.Helper()
	content := SampleCatalogCSV
	if len(rows) > 0 {
		content = strings.Join(rows, "\n") + "\n"
	}
	return WriteFile(t, dir, "nov19.csv", content)
}
