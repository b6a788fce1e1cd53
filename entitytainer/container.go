// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package entitytainer

import (
	"unsafe"

	"github.com/srekel/entitytainer/logger"
)

// Container owns a forward lookup array (entity -> bucket entry), a
// reverse lookup array (child entity -> parent entity), and a small
// number of tiers of fixed-size buckets, all carved out of a single
// buffer supplied by the caller at Create time. It never allocates after
// construction and it is not safe for concurrent use.
type Container struct {
	buf         []byte
	maxEntities int
	forward     []entry
	reverse     []Entity
	tiers       []tier

	// Logger, if set, receives diagnostics for migrations and
	// near-exhaustion conditions. A nil Logger is never called.
	Logger logger.Logger
}

// TierStat is a read-only snapshot of one tier's occupancy, for
// introspection (see the monitor package).
type TierStat struct {
	BucketSize    int
	TotalBuckets  int
	UsedBuckets   int
	FreeListDepth int
}

// Create constructs a Container in place over buf, which must be at
// least as large as NeededSize(maxEntities, tiers) reports. buf is
// zeroed in full before use; the caller must not touch buf directly
// after this call, since the returned Container aliases it.
func Create(buf []byte, maxEntities int, tiers []TierConfig) (*Container, error) {
	needed, err := NeededSize(maxEntities, tiers)
	if err != nil {
		return nil, err
	}
	if len(buf) < needed {
		return nil, newError(InvalidConfig, 0,
			"buffer too small: need %d bytes, got %d", needed, len(buf))
	}
	for i := range buf {
		buf[i] = 0
	}

	off := headerSize
	forward := unsafe.Slice((*entry)(unsafe.Pointer(&buf[off])), maxEntities)
	off += maxEntities * entrySize
	reverse := unsafe.Slice((*Entity)(unsafe.Pointer(&buf[off])), maxEntities)
	off += maxEntities * entitySize
	off += len(tiers) * tierRecordSize

	ts := make([]tier, len(tiers))
	for i, cfg := range tiers {
		slabLen := cfg.BucketCount * cfg.BucketSize
		slab := unsafe.Slice((*Entity)(unsafe.Pointer(&buf[off])), slabLen)
		off += slabLen * entitySize
		ts[i] = newTier(slab, cfg.BucketSize, cfg.BucketCount)
	}

	c := &Container{
		buf:         buf,
		maxEntities: maxEntities,
		forward:     forward,
		reverse:     reverse,
		tiers:       ts,
	}

	// Reserve tier 0's bucket 0 so the zero entry always means
	// "no bucket", never a live one.
	if _, err := c.tiers[0].alloc(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) checkEntity(e Entity) error {
	if e <= 0 || int(e) >= c.maxEntities {
		return newError(InvalidEntity, e, "entity %d out of range [1,%d)", e, c.maxEntities)
	}
	return nil
}

// NeedsRealloc reports whether any tier has at most the required number
// of free buckets remaining. Pass percentFree in [0,1] for a fractional
// threshold, or a negative percentFree to use absFree as an absolute
// bucket count instead.
func (c *Container) NeedsRealloc(percentFree float64, absFree int) bool {
	for i := range c.tiers {
		t := &c.tiers[i]
		threshold := absFree
		if percentFree >= 0 {
			threshold = int(float64(t.totalBuckets) * percentFree)
		}
		if t.freeBuckets() <= threshold {
			return true
		}
	}
	return false
}

// TierStats returns a read-only snapshot of every tier's occupancy.
func (c *Container) TierStats() []TierStat {
	stats := make([]TierStat, len(c.tiers))
	for i := range c.tiers {
		t := &c.tiers[i]
		stats[i] = TierStat{
			BucketSize:    t.bucketSize,
			TotalBuckets:  t.totalBuckets,
			UsedBuckets:   t.liveBuckets,
			FreeListDepth: t.freelistDepth(),
		}
	}
	return stats
}

// AddEntity registers e as an entity that may hold children, drawing a
// tier-0 bucket for it. e must not already have a bucket.
func (c *Container) AddEntity(e Entity) error {
	if err := c.checkEntity(e); err != nil {
		return err
	}
	if !c.forward[e].isZero() {
		return newError(DuplicateAdd, e, "entity %d already has a bucket", e)
	}
	i, err := c.tiers[0].alloc()
	if err != nil {
		c.logError("AddEntity(%d): %v", e, err)
		return err
	}
	c.forward[e] = makeEntry(0, i)
	return nil
}

// RemoveEntity releases e's bucket, if any, and clears the reverse
// lookup of any live children of e (so no child is left pointing at a
// parent id that may be reused). Children themselves are not removed;
// only their "has a parent" bit is cleared -- this is option (a) from
// the design notes: eager detachment, never a dangling R[c].
func (c *Container) RemoveEntity(e Entity) error {
	if err := c.checkEntity(e); err != nil {
		return err
	}
	if parent := c.reverse[e]; parent != 0 {
		if err := c.RemoveChild(parent, e); err != nil {
			return err
		}
	}

	lookup := c.forward[e]
	if lookup.isZero() {
		return nil
	}

	t, i := lookup.tier(), lookup.bucket()
	children := c.tiers[t].bucket(i)
	n := int(children[0])
	for k := 1; k <= n; k++ {
		c.reverse[children[k]] = 0
	}
	c.tiers[t].free(i)
	c.forward[e] = 0
	return nil
}

// AddChild appends c2 to p's child list, migrating p to a larger tier
// first if the list would otherwise become indistinguishable from full.
func (c *Container) AddChild(p, c2 Entity) error {
	if err := c.checkEntity(p); err != nil {
		return err
	}
	if err := c.checkEntity(c2); err != nil {
		return err
	}
	lookup := c.forward[p]
	if lookup.isZero() {
		return newError(NoSuchParent, p, "parent %d has no bucket", p)
	}
	t := lookup.tier()
	i := lookup.bucket()
	bucket := c.tiers[t].bucket(i)
	n := int(bucket[0])
	bucketSize := c.tiers[t].bucketSize

	if n+1 == bucketSize-1 {
		// This add would make the bucket indistinguishable from full;
		// migrate up a tier before inserting.
		if t+1 >= len(c.tiers) {
			return newError(CapacityExceeded, p,
				"parent %d has no larger tier to migrate into (tier %d is the top tier)", p, t)
		}
		newT, newI, err := c.migrate(t, i, t+1)
		if err != nil {
			c.logError("AddChild(%d,%d): %v", p, c2, err)
			return err
		}
		c.forward[p] = makeEntry(newT, newI)
		t, i = newT, newI
		bucket = c.tiers[t].bucket(i)
		n = int(bucket[0])
		c.log("AddChild(%d,%d): migrated up to tier %d bucket %d", p, c2, newT, newI)
	}

	n++
	bucket[0] = Entity(n)
	bucket[n] = c2
	c.reverse[c2] = p
	return nil
}

// RemoveChild removes c2 from p's child list, shifting the surviving
// children down to keep them contiguous and in their original order,
// then migrating p to a smaller tier if the shrunk list now fits in the
// previous tier's bucket.
func (c *Container) RemoveChild(p, c2 Entity) error {
	if err := c.checkEntity(p); err != nil {
		return err
	}
	lookup := c.forward[p]
	if lookup.isZero() {
		return newError(NoSuchParent, p, "parent %d has no bucket", p)
	}
	t := lookup.tier()
	i := lookup.bucket()
	bucket := c.tiers[t].bucket(i)
	n := int(bucket[0])

	pos := -1
	for k := 1; k <= n; k++ {
		if bucket[k] == c2 {
			pos = k
			break
		}
	}
	if pos == -1 {
		return newErrorPair(ChildNotPresent, p, c2, "entity %d is not a child of %d", c2, p)
	}

	copy(bucket[pos:n], bucket[pos+1:n+1])
	n--
	bucket[0] = Entity(n)

	// Mirrors the up-migration trigger at n+1 == bucketSize-1 (AddChild):
	// both are keyed on the smaller tier's bucket size, so a remove lands
	// back in the same tier an add would have left, at the same n.
	if t > 0 && n+2 == c.tiers[t-1].bucketSize {
		newT, newI, err := c.migrate(t, i, t-1)
		if err != nil {
			c.logError("RemoveChild(%d,%d): %v", p, c2, err)
			return err
		}
		c.forward[p] = makeEntry(newT, newI)
		c.log("RemoveChild(%d,%d): migrated down to tier %d bucket %d", p, c2, newT, newI)
	}

	c.reverse[c2] = 0
	return nil
}

// migrate copies the live contents of tier srcT's bucket srcI into a
// freshly allocated bucket in tier dstT, frees the source bucket back
// onto its own tier's freelist (closing the leak the original design
// left open), and returns the destination (tier, bucket) pair.
func (c *Container) migrate(srcT, srcI, dstT int) (int, int, error) {
	dstI, err := c.tiers[dstT].alloc()
	if err != nil {
		return 0, 0, err
	}
	src := c.tiers[srcT].bucket(srcI)
	dst := c.tiers[dstT].bucket(dstI)
	copy(dst, src)
	c.tiers[srcT].free(srcI)
	return dstT, dstI, nil
}

// GetChildren returns a view over p's children, in insertion order, and
// their count. The returned slice is invalidated by any subsequent
// mutation on p (a migration may move or resize its backing bucket).
func (c *Container) GetChildren(p Entity) ([]Entity, int, error) {
	if err := c.checkEntity(p); err != nil {
		return nil, 0, err
	}
	lookup := c.forward[p]
	if lookup.isZero() {
		return nil, 0, newError(NoSuchParent, p, "parent %d has no bucket", p)
	}
	bucket := c.tiers[lookup.tier()].bucket(lookup.bucket())
	n := int(bucket[0])
	return bucket[1 : n+1], n, nil
}

// NumChildren returns the number of children currently in p's bucket.
func (c *Container) NumChildren(p Entity) (int, error) {
	if err := c.checkEntity(p); err != nil {
		return 0, err
	}
	lookup := c.forward[p]
	if lookup.isZero() {
		return 0, newError(NoSuchParent, p, "parent %d has no bucket", p)
	}
	bucket := c.tiers[lookup.tier()].bucket(lookup.bucket())
	return int(bucket[0]), nil
}

// GetChildIndex returns the 0-based position of c2 within p's child
// list, or -1 if c2 is not a child of p.
func (c *Container) GetChildIndex(p, c2 Entity) (int, error) {
	children, n, err := c.GetChildren(p)
	if err != nil {
		return -1, err
	}
	for k := 0; k < n; k++ {
		if children[k] == c2 {
			return k, nil
		}
	}
	return -1, nil
}

// GetParent returns c2's current parent, or 0 if c2 has none.
func (c *Container) GetParent(c2 Entity) (Entity, error) {
	if err := c.checkEntity(c2); err != nil {
		return 0, err
	}
	return c.reverse[c2], nil
}

func (c *Container) log(format string, args ...interface{}) {
	if c.Logger != nil {
		c.Logger.Infof(format, args...)
	}
}

func (c *Container) logError(format string, args ...interface{}) {
	if c.Logger != nil {
		c.Logger.Errorf(format, args...)
	}
}
