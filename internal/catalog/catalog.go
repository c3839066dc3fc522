// internal/catalog/catalog.go
//
// Static test catalog: YAML loader and read-only lookup API.
//
// Context
//   The quote form on the marketing site is driven entirely by reference
//   data: analytical categories, the sample types accepted under each
//   category, and the test parameters available per sample type (with
//   search aliases), plus the phone country-code list.  That data is
//   declared in `conf/catalog.yaml`, parsed once at application start, and
//   held immutably for the process lifetime.  Handlers serve it verbatim on
//   GET /api/catalog; nothing in the codebase mutates it after Load.
//
// Workflow
//   •  Structs mirror the YAML schema: Catalog → Category → SampleType →
//      Parameter, plus CountryCode.
//   •  Load parses a single YAML file and validates structural rules
//      (non-empty unique names, at least one sample type per category, at
//      least one parameter per sample type).
//   •  Lookup helpers answer category → sample types and
//      (category, sample type) → parameters without exposing mutability.
//
//------------------------------------------------------------------------------

package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------
// Data structures
// -----------------------------------------------------------------------------

// Parameter is one orderable test.  Aliases is a comma-separated list of
// alternate names used by the client-side search box.
type Parameter struct {
	Name    string `yaml:"name"    json:"name"`
	Aliases string `yaml:"aliases" json:"aliases"`
}

// SampleType groups the parameters available for one kind of sample.
type SampleType struct {
	Name       string      `yaml:"name"       json:"name"`
	Parameters []Parameter `yaml:"parameters" json:"parameters"`
}

// Category is one analytical service line (e.g. Agricultural).
type Category struct {
	Name        string       `yaml:"name"         json:"name"`
	SampleTypes []SampleType `yaml:"sample_types" json:"sampleTypes"`
}

// CountryCode is one entry in the phone-prefix dropdown.
type CountryCode struct {
	Code    string `yaml:"code"    json:"code"`
	Country string `yaml:"country" json:"country"`
}

// Catalog is the immutable aggregate.  The index maps are built once by
// Load and are never written afterwards, so concurrent reads need no lock.
type Catalog struct {
	Categories   []Category    `yaml:"categories"    json:"categories"`
	CountryCodes []CountryCode `yaml:"country_codes" json:"countryCodes"`

	byCategory map[string]map[string][]Parameter `yaml:"-" json:"-"`
}

// -----------------------------------------------------------------------------
// Loader
// -----------------------------------------------------------------------------

// Load parses and validates one catalog YAML file.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	if err := c.validate(path); err != nil {
		return nil, err
	}
	c.buildIndex()
	return &c, nil
}

// validate enforces structural rules that cannot be expressed in YAML
// alone.  Errors reference the offending file so operators can fix data
// without reading code.
func (c *Catalog) validate(path string) error {
	if len(c.Categories) == 0 {
		return fmt.Errorf("catalog %s: no categories defined", path)
	}
	if len(c.CountryCodes) == 0 {
		return fmt.Errorf("catalog %s: no country codes defined", path)
	}

	seenCat := make(map[string]struct{}, len(c.Categories))
	for _, cat := range c.Categories {
		if cat.Name == "" {
			return fmt.Errorf("catalog %s: category with empty name", path)
		}
		if _, dup := seenCat[cat.Name]; dup {
			return fmt.Errorf("catalog %s: duplicate category %q", path, cat.Name)
		}
		seenCat[cat.Name] = struct{}{}

		if len(cat.SampleTypes) == 0 {
			return fmt.Errorf("catalog %s: category %q has no sample types", path, cat.Name)
		}
		seenST := make(map[string]struct{}, len(cat.SampleTypes))
		for _, st := range cat.SampleTypes {
			if st.Name == "" {
				return fmt.Errorf("catalog %s: category %q has a sample type with empty name", path, cat.Name)
			}
			if _, dup := seenST[st.Name]; dup {
				return fmt.Errorf("catalog %s: duplicate sample type %q under %q", path, st.Name, cat.Name)
			}
			seenST[st.Name] = struct{}{}

			if len(st.Parameters) == 0 {
				return fmt.Errorf("catalog %s: sample type %q under %q has no parameters", path, st.Name, cat.Name)
			}
			seenP := make(map[string]struct{}, len(st.Parameters))
			for _, p := range st.Parameters {
				if p.Name == "" {
					return fmt.Errorf("catalog %s: empty parameter name under %s/%s", path, cat.Name, st.Name)
				}
				if _, dup := seenP[p.Name]; dup {
					return fmt.Errorf("catalog %s: duplicate parameter %q under %s/%s", path, p.Name, cat.Name, st.Name)
				}
				seenP[p.Name] = struct{}{}
			}
		}
	}

	for _, cc := range c.CountryCodes {
		if cc.Code == "" || !strings.HasPrefix(cc.Code, "+") {
			return fmt.Errorf("catalog %s: country code %q must start with '+'", path, cc.Code)
		}
	}
	return nil
}

func (c *Catalog) buildIndex() {
	c.byCategory = make(map[string]map[string][]Parameter, len(c.Categories))
	for _, cat := range c.Categories {
		types := make(map[string][]Parameter, len(cat.SampleTypes))
		for _, st := range cat.SampleTypes {
			types[st.Name] = st.Parameters
		}
		c.byCategory[cat.Name] = types
	}
}

// -----------------------------------------------------------------------------
// Lookup API
// -----------------------------------------------------------------------------

// CategoryNames returns category names in declaration order.
func (c *Catalog) CategoryNames() []string {
	out := make([]string, len(c.Categories))
	for i, cat := range c.Categories {
		out[i] = cat.Name
	}
	return out
}

// SampleTypeNames returns the sample types under category, in declaration
// order.  ok is false for unknown categories.
func (c *Catalog) SampleTypeNames(category string) ([]string, bool) {
	for _, cat := range c.Categories {
		if cat.Name != category {
			continue
		}
		names := make([]string, len(cat.SampleTypes))
		for i, st := range cat.SampleTypes {
			names[i] = st.Name
		}
		return names, true
	}
	return nil, false
}

// ParametersFor returns the parameter list for (category, sampleType).
// ok is false when either level is unknown.
func (c *Catalog) ParametersFor(category, sampleType string) ([]Parameter, bool) {
	types, ok := c.byCategory[category]
	if !ok {
		return nil, false
	}
	params, ok := types[sampleType]
	return params, ok
}
