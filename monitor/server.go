// Copyright (C) 2015  Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package monitor provides an embedded HTTP server exposing an
// entitytainer.Container's tier occupancy for monitoring, via the
// standard expvar/pprof debug surface.
package monitor

import (
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // Go documentation recommended usage

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/srekel/entitytainer/entitytainer"
)

// Server represents a monitoring server
type Server interface {
	Run()
}

// server contains information for the monitoring server
type server struct {
	// Server name e.g. host[:port]
	serverName string
	container   *entitytainer.Container
}

// varName is the expvar key entitytainer's tier occupancy is published
// under. expvar.Publish panics on a duplicate name, so NewServer guards
// against registering it twice in the same process.
const varName = "entitytainer_tier_stats"

// NewServer creates a monitoring server for the given address that also
// publishes c's tier occupancy (see entitytainer.Container.TierStats)
// under /debug/vars and, as Prometheus gauges, under /metrics,
// recomputed on every scrape.
func NewServer(serverName string, c *entitytainer.Container) Server {
	s := &server{serverName: serverName, container: c}
	if expvar.Get(varName) == nil {
		expvar.Publish(varName, expvar.Func(func() interface{} {
			return s.container.TierStats()
		}))
	}
	// Register, rather than MustRegister: constructing more than one
	// Server in the same process (as the tests do) must not panic on a
	// collector whose descriptors were already registered.
	if err := prometheus.Register(newTierCollector(c)); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			panic(err)
		}
	}
	return s
}

func debugHandler(w http.ResponseWriter, r *http.Request) {
	indexTmpl := `<html>
	<head>
	<title>/debug</title>
	</head>
	<body>
	<p>/debug</p>
	<div><a href="/debug/vars">vars</a></div>
	<div><a href="/debug/pprof">pprof</a></div>
	<div><a href="/metrics">metrics</a></div>
	</body>
	</html>
	`
	fmt.Fprintf(w, indexTmpl)
}

// Run sets up the HTTP server and any handlers
func (s *server) Run() {
	http.HandleFunc("/debug", debugHandler)
	http.Handle("/metrics", promhttp.Handler())

	// monitoring server
	err := http.ListenAndServe(s.serverName, nil)
	if err != nil {
		log.Printf("Could not start monitor server: %s", err)
	}
}
