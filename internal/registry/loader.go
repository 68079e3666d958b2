package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"beautyd/pkg/types"
)

// LoadDir scans a directory for *.tflite files and builds a registry from
// filenames. The id is derived from the dataset token embedded in the
// filename (e.g., beauty_model_scut_resnet50.tflite -> scut); files without
// a recognized token use the bare filename as id.
func LoadDir(dir string) ([]types.Model, error) {
	base, err := expandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".tflite") {
			continue
		}
		id, dataset := identify(name)
		models = append(models, types.Model{
			ID:      id,
			Name:    name,
			Path:    filepath.Join(abs, name),
			Dataset: dataset,
		})
	}
	return models, nil
}

// identify maps a model filename to a stable id and dataset label.
func identify(filename string) (id, dataset string) {
	lower := strings.ToLower(filename)
	switch {
	case strings.Contains(lower, "scut"):
		return "scut", "scut-fbp5500"
	case strings.Contains(lower, "mebeauty"):
		return "mebeauty", "mebeauty"
	default:
		return strings.TrimSuffix(lower, filepath.Ext(lower)), ""
	}
}

// expandHome expands a leading '~' to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	// handle cases like ~/models/beauty
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
