// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package stats provides offline introspection helpers for an
// entitytainer.Container. Nothing here is on the mutation hot path: it
// exists for operators and tests to understand bucket occupancy.
package stats

import (
	"github.com/srekel/entitytainer/entitytainer"
	"github.com/srekel/entitytainer/hashmap"
)

type intKey int

func (k intKey) Hash() uint64 {
	// Child counts are small and dense; the identity function spreads
	// them across the table as well as any real hash would.
	return uint64(k)
}

func (k intKey) Equal(other interface{}) bool {
	o, ok := other.(intKey)
	return ok && k == o
}

// ChildCountHistogram walks parents, reading each one's current child
// count via NumChildren, and returns a histogram of "N children" ->
// "number of parents with exactly N children". Parents with no bucket
// (entitytainer.NoSuchParent) are silently skipped, since the caller may
// pass a superset of entities that were never added.
func ChildCountHistogram(c *entitytainer.Container, parents []entitytainer.Entity) map[int]int {
	counts := hashmap.New[hashmap.Hashable, int](uint(len(parents)),
		func(h hashmap.Hashable) uint64 { return h.Hash() },
		func(x, y hashmap.Hashable) bool { return x.Equal(y) })

	var distinct []int
	for _, p := range parents {
		n, err := c.NumChildren(p)
		if err != nil {
			continue
		}
		key := intKey(n)
		existing, found := counts.Get(key)
		if !found {
			distinct = append(distinct, n)
		}
		counts.Set(key, existing+1)
	}

	out := make(map[int]int, len(distinct))
	for _, n := range distinct {
		v, _ := counts.Get(intKey(n))
		out[n] = v
	}
	return out
}
