package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PluginInfo is the info.json descriptor inside a "*.datasource" plug-in
// directory (spec §4.7 step 4).
type PluginInfo struct {
	ProviderType string `json:"providerType"`
	AccessMethod string `json:"accessMethod"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ImportPath   string `json:"importPath"`
}

// discoverPlugins scans dirs for entries ending in ".datasource", each
// containing an info.json. Missing or unreadable directories are skipped
// (plug-in discovery is best-effort and must not block Registry init).
func discoverPlugins(dirs []string) []PluginInfo {
	var out []PluginInfo
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() || !strings.HasSuffix(e.Name(), ".datasource") {
				continue
			}
			infoPath := filepath.Join(dir, e.Name(), "info.json")
			data, err := os.ReadFile(infoPath)
			if err != nil {
				continue
			}
			var info PluginInfo
			if err := json.Unmarshal(data, &info); err != nil {
				continue
			}
			out = append(out, info)
		}
	}
	return out
}

// isOverride reports whether a plug-in's importPath lies outside the
// built-in tree, per spec §4.7 step 4: "user-supplied entries override
// built-ins when the importPath is outside the built-in tree".
func isOverride(builtinTreePrefix string, info PluginInfo) bool {
	return !strings.HasPrefix(info.ImportPath, builtinTreePrefix)
}

func pluginKey(providerType, accessMethod string) string {
	return fmt.Sprintf("%s/%s", accessMethod, providerType)
}
