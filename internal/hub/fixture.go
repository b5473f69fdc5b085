package hub

import (
	"fmt"
	"os"

	"lightwave/internal/model"

	"gopkg.in/yaml.v3"
)

// hierarchyFile is the YAML layout of a hierarchy fixture.
type hierarchyFile struct {
	FeatureSets []fixtureSet `yaml:"featuresets"`
}

type fixtureSet struct {
	model.FeatureSet `yaml:",inline"`
	Features         []model.Feature `yaml:"features"`
}

// ParseHierarchy reads feature sets from YAML.
func ParseHierarchy(data []byte) ([]model.FeatureSet, error) {
	var file hierarchyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse hierarchy: %w", err)
	}

	seenSets := make(map[string]bool)
	seenFeatures := make(map[string]bool)
	sets := make([]model.FeatureSet, 0, len(file.FeatureSets))
	for _, fx := range file.FeatureSets {
		fs := fx.FeatureSet
		if fs.ID == "" {
			return nil, fmt.Errorf("feature set %q has no id", fs.Name)
		}
		if seenSets[fs.ID] {
			return nil, fmt.Errorf("duplicate feature set id %s", fs.ID)
		}
		seenSets[fs.ID] = true

		fs.Features = make(map[string]model.Feature, len(fx.Features))
		for _, f := range fx.Features {
			if f.ID == "" || f.Key == "" {
				return nil, fmt.Errorf("feature set %s: feature needs id and key", fs.ID)
			}
			if seenFeatures[f.ID] {
				return nil, fmt.Errorf("duplicate feature id %s", f.ID)
			}
			seenFeatures[f.ID] = true
			fs.Features[f.Key] = f
		}
		sets = append(sets, fs)
	}
	return sets, nil
}

// LoadHierarchy reads a hierarchy fixture file.
func LoadHierarchy(path string) ([]model.FeatureSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read hierarchy: %w", err)
	}
	return ParseHierarchy(data)
}
