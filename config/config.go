// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package config loads the tier configuration entitytainer.NeededSize
// and entitytainer.Create need from a YAML file, and resolves a default
// config path relative to the enclosing Go module (adapted from the
// teacher's modroot package).
package config

import (
	"os"

	"gopkg.in/yaml.v2"

	"github.com/srekel/entitytainer/entitytainer"
	"github.com/srekel/entitytainer/modroot"
)

// TierConfig is the parsed, validated shape of a tier configuration: the
// entity capacity and the parallel bucket-size/bucket-count slices ready
// to hand to entitytainer.NeededSize/Create once converted via Tiers.
type TierConfig struct {
	MaxEntities  int
	BucketSizes  []int
	BucketCounts []int
}

// wireTier and wireFile are the on-disk YAML shape:
//
//	max_entities: 1024
//	tiers:
//	  - bucket_size: 4
//	    bucket_count: 4
type wireTier struct {
	BucketSize  int `yaml:"bucket_size"`
	BucketCount int `yaml:"bucket_count"`
}

type wireFile struct {
	MaxEntities int        `yaml:"max_entities"`
	Tiers       []wireTier `yaml:"tiers"`
}

// DefaultFileName is the conventional name commands look for relative to
// the module root when no explicit -config flag is given.
const DefaultFileName = "entitytainer.yaml"

// DefaultPath resolves DefaultFileName relative to the nearest ancestor
// directory holding a go.mod, i.e. the module root.
func DefaultPath() string {
	return modroot.Path() + string(os.PathSeparator) + DefaultFileName
}

// Tiers converts tc's parallel slices into entitytainer.NeededSize/Create's
// []entitytainer.TierConfig shape.
func (tc TierConfig) Tiers() []entitytainer.TierConfig {
	out := make([]entitytainer.TierConfig, len(tc.BucketSizes))
	for i := range tc.BucketSizes {
		out[i] = entitytainer.TierConfig{BucketSize: tc.BucketSizes[i], BucketCount: tc.BucketCounts[i]}
	}
	return out
}

// Validate enforces the same constraints entitytainer.NeededSize/Create
// assert on tiers -- count in [1,4], strictly increasing bucket sizes,
// bucket_size*sizeof(Entity) >= sizeof(int) -- by delegating to
// NeededSize itself, so this never drifts out of sync with the package
// it validates for.
func (tc TierConfig) Validate() error {
	if len(tc.BucketSizes) != len(tc.BucketCounts) {
		return entitytainer.NewError(entitytainer.InvalidConfig,
			"bucket_sizes and bucket_counts must have the same length, got %d and %d",
			len(tc.BucketSizes), len(tc.BucketCounts))
	}
	_, err := entitytainer.NeededSize(tc.MaxEntities, tc.Tiers())
	return err
}

// Load reads and parses path, validating the result before returning it.
func Load(path string) (TierConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TierConfig{}, err
	}
	var w wireFile
	if err := yaml.Unmarshal(data, &w); err != nil {
		return TierConfig{}, err
	}

	tc := TierConfig{
		MaxEntities:  w.MaxEntities,
		BucketSizes:  make([]int, len(w.Tiers)),
		BucketCounts: make([]int, len(w.Tiers)),
	}
	for i, t := range w.Tiers {
		tc.BucketSizes[i] = t.BucketSize
		tc.BucketCounts[i] = t.BucketCount
	}
	if err := tc.Validate(); err != nil {
		return TierConfig{}, err
	}
	return tc, nil
}
