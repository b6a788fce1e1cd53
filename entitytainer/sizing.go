// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package entitytainer

const (
	entitySize     = 2  // sizeof(Entity): int16
	entrySize      = 2  // sizeof(entry): uint16
	tierRecordSize = 16 // on-buffer footprint of one tier's metadata block
	headerSize     = 8  // on-buffer footprint of the container header

	// minBucketFootprint mirrors the C ancestor's assertion that a
	// bucket must be at least as wide as a machine int, since its
	// freelist aliases a bucket's first slot with a next-free index.
	// This implementation stores that index as a plain Entity value
	// (see tier.go) and so isn't strictly bound by it, but the
	// constraint is kept to preserve compatibility with tier configs
	// written against the original sizing rules.
	minBucketFootprint = 8
)

// TierConfig describes one tier: the number of Entity slots per bucket
// and how many buckets the tier holds.
type TierConfig struct {
	BucketSize  int
	BucketCount int
}

func validateTiers(maxEntities int, tiers []TierConfig) error {
	if maxEntities <= 0 {
		return newError(InvalidConfig, 0, "max_entities must be positive, got %d", maxEntities)
	}
	if len(tiers) == 0 || len(tiers) > maxTiers {
		return newError(InvalidConfig, 0, "num_tiers must be in [1,%d], got %d", maxTiers, len(tiers))
	}
	prev := 0
	for i, t := range tiers {
		if t.BucketSize <= prev {
			return newError(InvalidConfig, 0,
				"tier %d bucket_size (%d) must be strictly greater than the previous tier's (%d)",
				i, t.BucketSize, prev)
		}
		if t.BucketSize >= maxBucketsPerTier {
			return newError(InvalidConfig, 0,
				"tier %d bucket_size (%d) exceeds the %d-bucket-index encoding limit",
				i, t.BucketSize, maxBucketsPerTier)
		}
		if t.BucketCount <= 0 {
			return newError(InvalidConfig, 0, "tier %d bucket_count must be positive, got %d", i, t.BucketCount)
		}
		if t.BucketCount > maxBucketsPerTier {
			return newError(InvalidConfig, 0,
				"tier %d bucket_count (%d) exceeds the %d-bucket-index encoding limit",
				i, t.BucketCount, maxBucketsPerTier)
		}
		if t.BucketSize*entitySize < minBucketFootprint {
			return newError(InvalidConfig, 0,
				"tier %d bucket_size*sizeof(Entity) (%d) must be >= %d",
				i, t.BucketSize*entitySize, minBucketFootprint)
		}
		prev = t.BucketSize
	}
	return nil
}

// NeededSize returns the number of bytes a buffer must have for Create
// to construct a Container over it, given max_entities and the tier
// configuration. It is pure: no allocation, no side effects.
func NeededSize(maxEntities int, tiers []TierConfig) (int, error) {
	if err := validateTiers(maxEntities, tiers); err != nil {
		return 0, err
	}
	size := headerSize
	size += maxEntities * entrySize  // forward lookup
	size += maxEntities * entitySize // reverse lookup
	size += len(tiers) * tierRecordSize
	for _, t := range tiers {
		size += t.BucketCount * t.BucketSize * entitySize
	}
	return size, nil
}
