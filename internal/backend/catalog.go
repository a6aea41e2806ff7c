package backend

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedCatalogFormat is returned for catalog files that are neither
// JSON nor YAML.
var ErrUnsupportedCatalogFormat = errors.New("unsupported catalog format")

// LoadCatalog reads a catalog seed from fs. YAML documents use the same
// field names as JSON ones.
func LoadCatalog(fs afero.Fs, path string) (Catalog, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
	case ".yaml", ".yml":
		var doc any
		if err = yaml.Unmarshal(data, &doc); err != nil {
			return Catalog{}, fmt.Errorf("decode catalog %s: %w", filepath.Base(path), err)
		}
		if data, err = json.Marshal(doc); err != nil {
			return Catalog{}, fmt.Errorf("convert catalog %s: %w", filepath.Base(path), err)
		}
	default:
		return Catalog{}, fmt.Errorf("%w: %q", ErrUnsupportedCatalogFormat, ext)
	}

	var c Catalog
	if err = json.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("decode catalog %s: %w", filepath.Base(path), err)
	}
	return c, nil
}
