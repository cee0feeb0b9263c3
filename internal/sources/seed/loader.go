package seed

import (
	_ "embed"
	"fmt"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/tote-app/tote/internal/domain"
)

//go:embed default_categories.yaml
var defaultSeed []byte

// Loader resolves the categories a fresh catalog starts with. With no
// file path configured it falls back to the embedded defaults.
type Loader struct {
	fs       afero.Fs
	filePath string
}

// NewLoader creates a category seed loader. filePath may be empty.
func NewLoader(fs afero.Fs, filePath string) *Loader {
	return &Loader{
		fs:       fs,
		filePath: filePath,
	}
}

// Load reads and parses the seed file, or the embedded defaults.
func (l *Loader) Load() ([]domain.Category, error) {
	data := defaultSeed
	if l.filePath != "" {
		b, err := afero.ReadFile(l.fs, l.filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read seed file: %w", err)
		}
		data = b
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed yaml: %w", err)
	}

	seen := make(map[string]bool, len(f.Categories))
	out := make([]domain.Category, 0, len(f.Categories))
	for _, e := range f.Categories {
		if e.ID == "" || e.Name == "" {
			return nil, fmt.Errorf("seed category needs id and name: %+v", e)
		}
		if e.ID == domain.CategoryAll {
			return nil, fmt.Errorf("seed category id %q is reserved", domain.CategoryAll)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("duplicate seed category id %q", e.ID)
		}
		seen[e.ID] = true
		out = append(out, domain.Category{
			ID:    e.ID,
			Name:  e.Name,
			Icon:  e.Icon,
			Color: e.Color,
		})
	}
	return out, nil
}
