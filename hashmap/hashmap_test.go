// Copyright (c) 2019 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package hashmap

import (
	"fmt"
	"strings"
	"testing"
)

type dumbHashable struct {
	dumb interface{}
}

func (d dumbHashable) Equal(other interface{}) bool {
	if o, ok := other.(dumbHashable); ok {
		return d.dumb == o.dumb
	}
	return false
}

func (d dumbHashable) Hash() uint64 {
	return 1234567890
}

func TestMapSetGet(t *testing.T) {
	m := New[Hashable, any](0,
		func(h Hashable) uint64 { return h.Hash() },
		func(x, y Hashable) bool { return x.Equal(y) })
	tests := []struct {
		setkey interface{}
		getkey interface{}
		val    interface{}
		found  bool
	}{{
		setkey: dumbHashable{dumb: "hashable1"},
		getkey: dumbHashable{dumb: "hashable1"},
		val:    1,
		found:  true,
	}, {
		getkey: dumbHashable{dumb: "hashable2"},
		val:    nil,
		found:  false,
	}, {
		setkey: dumbHashable{dumb: "hashable2"},
		getkey: dumbHashable{dumb: "hashable2"},
		val:    2,
		found:  true,
	}, {
		getkey: dumbHashable{dumb: "hashable42"},
		val:    nil,
		found:  false,
	}}
	for _, tcase := range tests {
		if tcase.setkey != nil {
			m.Set(tcase.setkey.(Hashable), tcase.val)
		}
		val, found := m.Get(tcase.getkey.(Hashable))
		if found != tcase.found {
			t.Errorf("found is %t, but expected found %t", found, tcase.found)
		}
		if val != tcase.val {
			t.Errorf("val is %v for key %v, but expected val %v", val, tcase.getkey, tcase.val)
		}
	}
	t.Log(m.debug())
}

func TestMapGrowAndDelete(t *testing.T) {
	const n = 150
	m := New[int, string](0, identityHash, func(x, y int) bool { return x == y })
	for i := 0; i < n; i++ {
		m.Set(i, fmt.Sprintf("v%d", i))
	}
	if m.Len() != n {
		t.Fatalf("Len() = %d, want %d", m.Len(), n)
	}
	for i := 0; i < n; i += 2 {
		m.Delete(i)
	}
	if m.Len() != n/2 {
		t.Fatalf("Len() after deletes = %d, want %d", m.Len(), n/2)
	}
	for i := 1; i < n; i += 2 {
		if _, ok := m.Get(i); !ok {
			t.Fatalf("Get(%d) missing after deleting only even keys", i)
		}
	}
}

func identityHash(k int) uint64 {
	return uint64(k)
}

func (m *Hashmap[K, V]) debug() string {
	var buf strings.Builder

	for i, ent := range m.entries {
		var (
			k        string
			distance int
		)
		if !ent.occupied {
			k = "<empty>"
		} else {
			if ent.tombstone {
				k = "<tombstone>"
			} else {
				k = fmt.Sprint(ent.key)
			}
			distance = i - m.position(ent.hash)
			if distance < 0 {
				distance += len(m.entries)
			}
		}
		fmt.Fprintf(&buf, "%d %d %s\n", i, distance, k)
	}

	return buf.String()
}
