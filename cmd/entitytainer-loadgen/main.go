// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Command entitytainer-loadgen exercises entitytainer's concurrency
// model: every entitytainer.Container is independently owned by a
// single goroutine for its whole lifetime, and many such containers
// run side by side bounded by a weighted semaphore. It reports
// aggregate throughput across all containers and the final tier
// occupancy of the last container to complete.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/srekel/entitytainer/entitytainer"
	"github.com/srekel/entitytainer/sync/semaphore"
)

func main() {
	numContainers := flag.Int("containers", 8, "number of independent containers to run")
	numOps := flag.Int("ops", 1000, "number of add/remove operations per container")
	concurrency := flag.Int64("concurrency", 4, "maximum number of containers running at once")
	flag.Parse()

	tiers := []entitytainer.TierConfig{
		{BucketSize: 4, BucketCount: 256},
		{BucketSize: 16, BucketCount: 64},
		{BucketSize: 64, BucketCount: 16},
	}
	const maxEntities = 4096

	sem := semaphore.NewWeighted(*concurrency)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		totalOps  int
		tierStats []entitytainer.TierStat
	)

	start := time.Now()
	for i := 0; i < *numContainers; i++ {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()

			if err := sem.Acquire(context.Background(), 1); err != nil {
				fmt.Printf("loadgen: container %d: acquire: %v\n", seed, err)
				return
			}
			defer sem.Release(1)

			ops, stats, err := runContainer(seed, *numOps, maxEntities, tiers)
			if err != nil {
				fmt.Printf("loadgen: container %d: %v\n", seed, err)
				return
			}

			mu.Lock()
			totalOps += ops
			tierStats = stats
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(start)

	fmt.Printf("ran %d containers, %d total operations in %s (%.0f ops/sec)\n",
		*numContainers, totalOps, elapsed, float64(totalOps)/elapsed.Seconds())
	fmt.Println("tier occupancy of last completed container:")
	for i, s := range tierStats {
		fmt.Printf("  tier %d: bucket_size=%d total=%d used=%d freelist_depth=%d\n",
			i, s.BucketSize, s.TotalBuckets, s.UsedBuckets, s.FreeListDepth)
	}
}

// runContainer constructs a single container and drives a pseudo-random
// workload of entity and child add/remove operations against it. It
// owns the container exclusively for its whole lifetime, the baseline
// concurrency unit for this command.
func runContainer(seed, numOps, maxEntities int, tiers []entitytainer.TierConfig) (int, []entitytainer.TierStat, error) {
	needed, err := entitytainer.NeededSize(maxEntities, tiers)
	if err != nil {
		return 0, nil, err
	}
	c, err := entitytainer.Create(make([]byte, needed), maxEntities, tiers)
	if err != nil {
		return 0, nil, err
	}

	rng := rand.New(rand.NewSource(int64(seed) + 1))
	var live []entitytainer.Entity
	ops := 0

	for i := 0; i < numOps; i++ {
		switch {
		case len(live) == 0 || rng.Intn(4) == 0:
			e := entitytainer.Entity(rng.Intn(maxEntities))
			if err := c.AddEntity(e); err == nil {
				live = append(live, e)
				ops++
			}
		case rng.Intn(3) == 0 && len(live) > 0:
			idx := rng.Intn(len(live))
			parent := live[idx]
			if err := c.RemoveEntity(parent); err == nil {
				live = append(live[:idx], live[idx+1:]...)
				ops++
			}
		default:
			parent := live[rng.Intn(len(live))]
			child := entitytainer.Entity(rng.Intn(maxEntities))
			if err := c.AddChild(parent, child); err == nil {
				ops++
			}
		}
	}

	return ops, c.TierStats(), nil
}
