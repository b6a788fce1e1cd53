// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package entitytainer

// tier is the Go name for what the spec calls a BucketList: a
// homogeneous slab of fixed-size buckets, plus the freelist/bump
// bookkeeping needed to hand one out or take one back.
//
// Unlike the C ancestor, which aliases a freed bucket's first slot with
// the next-free index and conflates that index with a bump-allocation
// high-water mark, this implementation keeps the live-bucket count and
// the bump cursor separate. That is what lets migration push its source
// bucket onto the freelist (see Container.AddChild/RemoveChild) without
// corrupting the bump cursor -- the open "leak" noted against the
// original design is closed by this split, not merely patched over.
type tier struct {
	buckets         []Entity // flat slab, len == totalBuckets*bucketSize
	bucketSize      int
	totalBuckets    int
	liveBuckets     int
	bumpCursor      int
	firstFreeBucket int
}

func newTier(slab []Entity, bucketSize, totalBuckets int) tier {
	return tier{
		buckets:         slab,
		bucketSize:      bucketSize,
		totalBuckets:    totalBuckets,
		firstFreeBucket: noFreeBucket,
	}
}

// bucket returns the i-th bucket's entity slots. Slot 0 holds the live
// child count while the bucket is live, or the freelist-next index while
// it is free.
func (t *tier) bucket(i int) []Entity {
	off := i * t.bucketSize
	return t.buckets[off : off+t.bucketSize]
}

// freeBuckets reports the tier's remaining headroom: buckets already on
// the freelist plus buckets never bump-allocated.
func (t *tier) freeBuckets() int {
	return t.totalBuckets - t.liveBuckets
}

// alloc draws a bucket index, preferring the freelist (LIFO reuse) over
// bump allocation, and reports TierExhausted when neither is available.
func (t *tier) alloc() (int, error) {
	if t.firstFreeBucket != noFreeBucket {
		i := t.firstFreeBucket
		t.firstFreeBucket = int(t.bucket(i)[0])
		t.liveBuckets++
		t.bucket(i)[0] = 0
		return i, nil
	}
	if t.bumpCursor >= t.totalBuckets {
		return 0, newError(TierExhausted, 0,
			"tier exhausted: bucket_size=%d total_buckets=%d", t.bucketSize, t.totalBuckets)
	}
	i := t.bumpCursor
	t.bumpCursor++
	t.liveBuckets++
	t.bucket(i)[0] = 0
	return i, nil
}

// free pushes bucket i onto the freelist, reinterpreting its first slot
// as the next-free link.
func (t *tier) free(i int) {
	b := t.bucket(i)
	b[0] = Entity(t.firstFreeBucket)
	t.firstFreeBucket = i
	t.liveBuckets--
}

// freelistDepth walks the freelist chain, used only for introspection
// (TierStats) and the freelist-integrity property test.
func (t *tier) freelistDepth() int {
	depth := 0
	for i := t.firstFreeBucket; i != noFreeBucket; {
		depth++
		i = int(t.bucket(i)[0])
		if depth > t.totalBuckets {
			panic("entitytainer: freelist cycle detected")
		}
	}
	return depth
}
