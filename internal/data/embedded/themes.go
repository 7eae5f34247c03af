// Package embedded holds data files compiled into the dining guide binary.
package embedded

import (
	"embed"
	"path"
	"strings"
)

//go:embed themes/*.yaml
var themeFiles embed.FS

// Themes returns the embedded theme definitions keyed by theme name
// (the file name without its .yaml extension).
func Themes() (map[string][]byte, error) {
	entries, err := themeFiles.ReadDir("themes")
	if err != nil {
		return nil, err
	}

	themes := make(map[string][]byte, len(entries))
	for _, entry := range entries {
		data, err := themeFiles.ReadFile(path.Join("themes", entry.Name()))
		if err != nil {
			return nil, err
		}
		themes[strings.TrimSuffix(entry.Name(), ".yaml")] = data
	}
	return themes, nil
}
