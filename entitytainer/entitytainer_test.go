// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package entitytainer

import (
	"errors"
	"testing"

	"github.com/srekel/entitytainer/test"
)

func defaultTiers() []TierConfig {
	return []TierConfig{
		{BucketSize: 4, BucketCount: 4},
		{BucketSize: 16, BucketCount: 2},
		{BucketSize: 256, BucketCount: 2},
	}
}

func mustCreate(t *testing.T, maxEntities int, tiers []TierConfig) *Container {
	t.Helper()
	n, err := NeededSize(maxEntities, tiers)
	if err != nil {
		t.Fatalf("NeededSize: %v", err)
	}
	buf := make([]byte, n)
	c, err := Create(buf, maxEntities, tiers)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return c
}

func assertChildren(t *testing.T, c *Container, p Entity, want []Entity) {
	t.Helper()
	got, n, err := c.GetChildren(p)
	if err != nil {
		t.Fatalf("GetChildren(%d): %v", p, err)
	}
	if n != len(want) {
		t.Fatalf("GetChildren(%d): got %d children, want %d", p, n, len(want))
	}
	if d := test.Diff(want, got[:n]); d != "" {
		t.Fatalf("GetChildren(%d): %s", p, d)
	}
}

// S1 -- basic add/get.
func TestBasicAddGet(t *testing.T) {
	c := mustCreate(t, 1024, defaultTiers())
	if err := c.AddEntity(3); err != nil {
		t.Fatal(err)
	}
	if err := c.AddChild(3, 10); err != nil {
		t.Fatal(err)
	}
	n, err := c.NumChildren(3)
	if err != nil || n != 1 {
		t.Fatalf("NumChildren(3) = %d, %v; want 1, nil", n, err)
	}
	assertChildren(t, c, 3, []Entity{10})
	parent, err := c.GetParent(10)
	if err != nil || parent != 3 {
		t.Fatalf("GetParent(10) = %d, %v; want 3, nil", parent, err)
	}
}

// S2 -- up-migration: adding the 3rd child to a bucket_size=4 tier
// migrates to tier 1 (n+1 == 4-1 at n=2->3).
func TestUpMigration(t *testing.T) {
	c := mustCreate(t, 1024, defaultTiers())
	if err := c.AddEntity(5); err != nil {
		t.Fatal(err)
	}
	for _, child := range []Entity{100, 101, 102} {
		if err := c.AddChild(5, child); err != nil {
			t.Fatalf("AddChild(5,%d): %v", child, err)
		}
	}
	lookup := c.forward[5]
	if lookup.tier() != 1 {
		t.Fatalf("after 3rd child, tier = %d, want 1", lookup.tier())
	}
	n, _ := c.NumChildren(5)
	if n != 3 {
		t.Fatalf("NumChildren(5) = %d, want 3", n)
	}
	assertChildren(t, c, 5, []Entity{100, 101, 102})
}

// S3 -- down-migration, continuing S2.
func TestDownMigration(t *testing.T) {
	c := mustCreate(t, 1024, defaultTiers())
	if err := c.AddEntity(5); err != nil {
		t.Fatal(err)
	}
	for _, child := range []Entity{100, 101, 102} {
		if err := c.AddChild(5, child); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.RemoveChild(5, 102); err != nil {
		t.Fatal(err)
	}
	if err := c.RemoveChild(5, 101); err != nil {
		t.Fatal(err)
	}
	lookup := c.forward[5]
	if lookup.tier() != 0 {
		t.Fatalf("after shrinking to 1 child, tier = %d, want 0", lookup.tier())
	}
	assertChildren(t, c, 5, []Entity{100})
}

// S4 -- freelist reuse is LIFO.
func TestFreelistReuse(t *testing.T) {
	c := mustCreate(t, 1024, defaultTiers())
	if err := c.AddEntity(1); err != nil {
		t.Fatal(err)
	}
	if err := c.AddEntity(2); err != nil {
		t.Fatal(err)
	}
	bucket1 := c.forward[1].bucket()
	if err := c.RemoveEntity(1); err != nil {
		t.Fatal(err)
	}
	if err := c.AddEntity(7); err != nil {
		t.Fatal(err)
	}
	if got := c.forward[7].bucket(); got != bucket1 {
		t.Fatalf("entity 7 got bucket %d, want reused bucket %d", got, bucket1)
	}
}

// S5 -- remove preserves order of surviving children.
func TestRemovePreservesOrder(t *testing.T) {
	c := mustCreate(t, 1024, defaultTiers())
	if err := c.AddEntity(9); err != nil {
		t.Fatal(err)
	}
	for _, child := range []Entity{20, 21, 22} {
		if err := c.AddChild(9, child); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.RemoveChild(9, 21); err != nil {
		t.Fatal(err)
	}
	assertChildren(t, c, 9, []Entity{20, 22})
}

// S6 -- reverse lookup survives migration.
func TestReverseLookupSurvivesMigration(t *testing.T) {
	c := mustCreate(t, 1024, defaultTiers())
	if err := c.AddEntity(5); err != nil {
		t.Fatal(err)
	}
	for _, child := range []Entity{100, 101, 102} {
		if err := c.AddChild(5, child); err != nil {
			t.Fatal(err)
		}
	}
	for _, child := range []Entity{100, 101, 102} {
		p, err := c.GetParent(child)
		if err != nil || p != 5 {
			t.Fatalf("GetParent(%d) = %d, %v; want 5, nil", child, p, err)
		}
	}
	if err := c.RemoveChild(5, 102); err != nil {
		t.Fatal(err)
	}
	if err := c.RemoveChild(5, 101); err != nil {
		t.Fatal(err)
	}
	p, err := c.GetParent(100)
	if err != nil || p != 5 {
		t.Fatalf("GetParent(100) after down-migration = %d, %v; want 5, nil", p, err)
	}
}

func TestRoundTrip(t *testing.T) {
	c := mustCreate(t, 1024, defaultTiers())
	if err := c.AddEntity(5); err != nil {
		t.Fatal(err)
	}
	if err := c.AddChild(5, 42); err != nil {
		t.Fatal(err)
	}
	if err := c.RemoveChild(5, 42); err != nil {
		t.Fatal(err)
	}
	n, _ := c.NumChildren(5)
	if n != 0 {
		t.Fatalf("NumChildren(5) after round-trip = %d, want 0", n)
	}
	p, _ := c.GetParent(42)
	if p != 0 {
		t.Fatalf("GetParent(42) after round-trip = %d, want 0", p)
	}
}

func TestCapacityExceeded(t *testing.T) {
	tiers := []TierConfig{{BucketSize: 4, BucketCount: 2}}
	c := mustCreate(t, 16, tiers)
	if err := c.AddEntity(1); err != nil {
		t.Fatal(err)
	}
	// With bucket_size=4, the 3rd child is the one that would need a
	// migration (n+1 == 4-1 at n=2->3), and there is no tier above.
	for _, child := range []Entity{2, 3} {
		if err := c.AddChild(1, child); err != nil {
			t.Fatal(err)
		}
	}
	err := c.AddChild(1, 4)
	if !errors.Is(err, CapacityExceeded) {
		t.Fatalf("AddChild past the top tier: got %v, want CapacityExceeded", err)
	}
}

func TestChildNotPresent(t *testing.T) {
	c := mustCreate(t, 1024, defaultTiers())
	if err := c.AddEntity(1); err != nil {
		t.Fatal(err)
	}
	if err := c.AddChild(1, 2); err != nil {
		t.Fatal(err)
	}
	err := c.RemoveChild(1, 99)
	if !errors.Is(err, ChildNotPresent) {
		t.Fatalf("RemoveChild with absent child: got %v, want ChildNotPresent", err)
	}
}

func TestDuplicateAdd(t *testing.T) {
	c := mustCreate(t, 1024, defaultTiers())
	if err := c.AddEntity(1); err != nil {
		t.Fatal(err)
	}
	err := c.AddEntity(1)
	if !errors.Is(err, DuplicateAdd) {
		t.Fatalf("AddEntity twice: got %v, want DuplicateAdd", err)
	}
}

func TestRemoveEntityDetachesChildren(t *testing.T) {
	c := mustCreate(t, 1024, defaultTiers())
	if err := c.AddEntity(1); err != nil {
		t.Fatal(err)
	}
	if err := c.AddChild(1, 2); err != nil {
		t.Fatal(err)
	}
	if err := c.RemoveEntity(1); err != nil {
		t.Fatal(err)
	}
	p, err := c.GetParent(2)
	if err != nil || p != 0 {
		t.Fatalf("GetParent(2) after parent removed = %d, %v; want 0, nil", p, err)
	}
}

func TestNoSuchParent(t *testing.T) {
	c := mustCreate(t, 1024, defaultTiers())
	if _, _, err := c.GetChildren(4); !errors.Is(err, NoSuchParent) {
		t.Fatalf("GetChildren on unadded entity: got %v, want NoSuchParent", err)
	}
}

func TestNeedsRealloc(t *testing.T) {
	tiers := []TierConfig{{BucketSize: 4, BucketCount: 4}}
	c := mustCreate(t, 16, tiers)
	if c.NeedsRealloc(-1, 0) {
		t.Fatal("fresh container should not need realloc with absFree=0")
	}
	for e := Entity(1); e <= 3; e++ {
		if err := c.AddEntity(e); err != nil {
			t.Fatal(err)
		}
	}
	// tier 0 reserves bucket 0; 3 entities now occupy buckets 1-3 of 4.
	if !c.NeedsRealloc(-1, 0) {
		t.Fatal("should need realloc once the tier is full")
	}
	if !c.NeedsRealloc(0.5, 0) {
		t.Fatal("should need realloc at 50% free threshold when fully used")
	}
}

// Bijection + reverse-consistency + freelist-integrity property check
// across a scripted sequence of adds, child mutations, and removals.
func TestInvariantsAcrossWorkload(t *testing.T) {
	// 20 parents need 21 tier-0 buckets (bucket 0 is reserved), each
	// migrates to tier 1 at its 3rd child, and child ids run up to 120.
	c := mustCreate(t, 128, []TierConfig{
		{BucketSize: 4, BucketCount: 32},
		{BucketSize: 16, BucketCount: 32},
		{BucketSize: 256, BucketCount: 2},
	})
	parents := []Entity{}
	for e := Entity(1); e <= 20; e++ {
		if err := c.AddEntity(e); err != nil {
			t.Fatal(err)
		}
		parents = append(parents, e)
	}
	next := Entity(21)
	for _, p := range parents {
		for i := 0; i < 5; i++ {
			if err := c.AddChild(p, next); err != nil {
				t.Fatalf("AddChild(%d,%d): %v", p, next, err)
			}
			next++
		}
	}
	for _, p := range parents[:10] {
		children, n, err := c.GetChildren(p)
		if err != nil {
			t.Fatal(err)
		}
		if n == 0 {
			continue
		}
		victim := children[0]
		if err := c.RemoveChild(p, victim); err != nil {
			t.Fatal(err)
		}
	}

	for _, p := range parents {
		children, n, err := c.GetChildren(p)
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i < n; i++ {
			if got, err := c.GetParent(children[i]); err != nil || got != p {
				t.Fatalf("GetParent(%d) = %d, %v; want %d, nil", children[i], got, err, p)
			}
		}
	}

	for i := range c.tiers {
		depth := c.tiers[i].freelistDepth()
		if depth < 0 || depth > c.tiers[i].totalBuckets {
			t.Fatalf("tier %d freelist depth %d out of range", i, depth)
		}
	}
}
