package registry

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ManifestEntry is one row of the built-in provider manifest (spec §4.7
// step 2: "a table of built-in providers tagged with the product variants
// in which each is enabled").
type ManifestEntry struct {
	ProviderType string   `yaml:"providerType"`
	AccessMethod string   `yaml:"accessMethod"`
	Variants     []string `yaml:"variants"`
	Enabled      bool     `yaml:"enabled"`
}

// Manifest is the parsed shape of the built-in provider table.
type Manifest struct {
	Providers []ManifestEntry `yaml:"providers"`
}

// DefaultManifest is compiled in so Registry has something to boot with
// even when no external manifest file is configured.
func DefaultManifest() Manifest {
	return Manifest{
		Providers: []ManifestEntry{
			{ProviderType: "filesystem", AccessMethod: "bb", Variants: []string{"default", "enterprise"}, Enabled: true},
			{ProviderType: "notion", AccessMethod: "bb", Variants: []string{"default", "enterprise"}, Enabled: true},
			{ProviderType: "googledocs", AccessMethod: "bb", Variants: []string{"default", "enterprise"}, Enabled: true},
		},
	}
}

// ParseManifest decodes a manifest document (spec §4.7 step 2: the
// manifest itself is configuration data, parsed the way the rest of this
// platform parses YAML configuration).
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("registry: parse manifest: %w", err)
	}
	return m, nil
}

// enabledFor returns the manifest entries tagged with variant and marked
// enabled.
func (m Manifest) enabledFor(variant string) []ManifestEntry {
	var out []ManifestEntry
	for _, e := range m.Providers {
		if !e.Enabled {
			continue
		}
		for _, v := range e.Variants {
			if v == variant {
				out = append(out, e)
				break
			}
		}
	}
	return out
}
