// Package diningtypes defines the shared types and interfaces for the dining hall guide.
// This file contains the food catalog types and the catalog provider boundary.
package diningtypes

import (
	"context"
	"errors"
	"fmt"
)

// FoodItem is a single dish served by one dining hall.
// Items are owned by the catalog and are never mutated after loading.
type FoodItem struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	DiningHall string `json:"diningHall" yaml:"dining_hall"`
	Calories   int    `json:"calories" yaml:"calories"`
	ImageURL   string `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	Filename   string `json:"filename,omitempty" yaml:"filename,omitempty"`
}

// FoodCatalogProvider returns the list of food records for the browsing view.
// Implementations report transport and parse failures as *CatalogUnavailableError.
type FoodCatalogProvider interface {
	Fetch(ctx context.Context) ([]FoodItem, error)
	Source() string
}

// CatalogUnavailableError reports that the catalog could not be fetched or parsed.
type CatalogUnavailableError struct {
	Source string
	Err    error
}

func (e *CatalogUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("catalog unavailable (%s)", e.Source)
	}
	return fmt.Sprintf("catalog unavailable (%s): %v", e.Source, e.Err)
}

func (e *CatalogUnavailableError) Unwrap() error {
	return e.Err
}

// NewCatalogUnavailable wraps err as a CatalogUnavailableError for the given source.
func NewCatalogUnavailable(source string, err error) *CatalogUnavailableError {
	return &CatalogUnavailableError{Source: source, Err: err}
}

// IsCatalogUnavailable reports whether err is, or wraps, a CatalogUnavailableError.
func IsCatalogUnavailable(err error) bool {
	var target *CatalogUnavailableError
	return errors.As(err, &target)
}
