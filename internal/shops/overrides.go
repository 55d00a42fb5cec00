package shops

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Override adjusts one shop without a code change.
type Override struct {
	Disabled   *bool    `yaml:"disabled"`
	Categories []string `yaml:"categories"`
}

type Overrides struct {
	Shops map[string]Override `yaml:"shops"`
}

// LoadOverrides reads a YAML overrides file. A missing file yields no
// overrides.
func LoadOverrides(path string) (*Overrides, error) {
	if path == "" {
		return &Overrides{}, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Overrides{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read overrides: %w", err)
	}

	var o Overrides
	if err := yaml.UnmarshalStrict(data, &o); err != nil {
		return nil, fmt.Errorf("failed to parse overrides %s: %w", path, err)
	}
	return &o, nil
}

// Apply folds overrides into the registry. Naming an unregistered shop is a
// configuration error.
func (r *Registry) Apply(o *Overrides) error {
	if o == nil {
		return nil
	}
	for name, ov := range o.Shops {
		c, err := r.Get(name)
		if err != nil {
			return err
		}
		if ov.Disabled != nil {
			c.Disabled = *ov.Disabled
		}
		if len(ov.Categories) > 0 {
			c.Shop.Categories = append([]string(nil), ov.Categories...)
		}
	}
	return nil
}
