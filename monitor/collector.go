// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package monitor

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/srekel/entitytainer/entitytainer"
)

// tierCollector is a prometheus.Collector exposing one container's
// TierStats as a set of per-tier gauges, labeled by tier index.
type tierCollector struct {
	container *entitytainer.Container

	totalBuckets  *prometheus.Desc
	usedBuckets   *prometheus.Desc
	freelistDepth *prometheus.Desc
}

func newTierCollector(c *entitytainer.Container) *tierCollector {
	labels := []string{"tier", "bucket_size"}
	return &tierCollector{
		container: c,
		totalBuckets: prometheus.NewDesc(
			"entitytainer_tier_buckets_total",
			"Total number of buckets in a tier.",
			labels, nil),
		usedBuckets: prometheus.NewDesc(
			"entitytainer_tier_buckets_used",
			"Number of live buckets currently allocated in a tier.",
			labels, nil),
		freelistDepth: prometheus.NewDesc(
			"entitytainer_tier_freelist_depth",
			"Number of freed buckets currently sitting on a tier's freelist.",
			labels, nil),
	}
}

// Describe implements prometheus.Collector.
func (tc *tierCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- tc.totalBuckets
	ch <- tc.usedBuckets
	ch <- tc.freelistDepth
}

// Collect implements prometheus.Collector. It is called on every scrape,
// so it always reflects the container's current occupancy.
func (tc *tierCollector) Collect(ch chan<- prometheus.Metric) {
	for i, s := range tc.container.TierStats() {
		tier := strconv.Itoa(i)
		bucketSize := strconv.Itoa(s.BucketSize)
		ch <- prometheus.MustNewConstMetric(tc.totalBuckets, prometheus.GaugeValue,
			float64(s.TotalBuckets), tier, bucketSize)
		ch <- prometheus.MustNewConstMetric(tc.usedBuckets, prometheus.GaugeValue,
			float64(s.UsedBuckets), tier, bucketSize)
		ch <- prometheus.MustNewConstMetric(tc.freelistDepth, prometheus.GaugeValue,
			float64(s.FreeListDepth), tier, bucketSize)
	}
}
