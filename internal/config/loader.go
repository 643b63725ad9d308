package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/talkie-assistant/talkie-core-sub000/internal/env"
)

// rootConfigEnvVar names the environment variable that can redirect the
// root config path, matching original_source/config.py's TALKIE_CONFIG.
const rootConfigEnvVar = "TALKIE_CONFIG"

// Load builds a Snapshot starting from Default(), deep-merging a root YAML
// file (path from TALKIE_CONFIG or "config.yaml") and, if present, a sibling
// "config.user.yaml" override. Missing files are not errors — only a
// missing root file when TALKIE_CONFIG explicitly names one is reported, by
// returning the default snapshot with err set the same way load_config()
// raises FileNotFoundError only for an explicitly-named missing root.
func Load() (Snapshot, error) {
	rootPath := env.Str(rootConfigEnvVar, "config.yaml")

	merged := map[string]any{}

	rootData, rootErr := loadYAMLFile(rootPath)
	if rootErr != nil {
		if os.IsNotExist(rootErr) && env.Str(rootConfigEnvVar, "") == "" {
			// No explicit TALKIE_CONFIG and no default file on disk: fall
			// back to built-in defaults, same as the original treating an
			// absent default path as "use defaults" rather than an error.
			return Default(), nil
		}
		if os.IsNotExist(rootErr) {
			return Default(), fmt.Errorf("config not found: %s", rootPath)
		}
		return Default(), fmt.Errorf("load root config %s: %w", rootPath, rootErr)
	}
	merged = deepMerge(merged, rootData)

	userPath := filepath.Join(filepath.Dir(rootPath), "config.user.yaml")
	if userData, err := loadYAMLFile(userPath); err == nil {
		merged = deepMerge(merged, userData)
	}

	snap := Default()
	if err := remarshal(merged, &snap); err != nil {
		return Default(), fmt.Errorf("decode merged config: %w", err)
	}
	snap.normalize()
	return snap, nil
}

// loadYAMLFile reads and parses a YAML file into a generic map, returning
// the underlying os error (including fs.ErrNotExist) unwrapped so callers
// can distinguish "absent" from "malformed".
func loadYAMLFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err = yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse yaml %s: %w", path, err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// deepMerge recursively merges override into base, override winning on
// conflicts, matching original_source/config.py's _deep_merge.
func deepMerge(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		if existing, ok := out[k]; ok {
			existingMap, existingIsMap := existing.(map[string]any)
			overrideMap, overrideIsMap := v.(map[string]any)
			if existingIsMap && overrideIsMap {
				out[k] = deepMerge(existingMap, overrideMap)
				continue
			}
		}
		out[k] = v
	}
	return out
}

// remarshal round-trips merged through YAML encode/decode into dst, the
// simplest way to apply a generic map onto a typed struct using the same
// yaml tags Snapshot already declares.
func remarshal(merged map[string]any, dst *Snapshot) error {
	data, err := yaml.Marshal(merged)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, dst)
}
