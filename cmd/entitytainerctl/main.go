// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Command entitytainerctl loads a tier configuration, constructs an
// entitytainer.Container over a freshly allocated buffer, replays a
// small scripted workload against it (mirroring spec scenarios S1-S5),
// and then, if -debug-addr is set, serves a debug/metrics endpoint until
// interrupted; otherwise it exits after the workload.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/srekel/entitytainer/config"
	"github.com/srekel/entitytainer/entitytainer"
	"github.com/srekel/entitytainer/glog"
	"github.com/srekel/entitytainer/logger"
	"github.com/srekel/entitytainer/monitor"
)

func main() {
	configPath := flag.String("config", "", "path to a tier config YAML file (default: entitytainer.yaml at the module root)")
	debugAddr := flag.String("debug-addr", "", "address to serve /debug on, e.g. 127.0.0.1:6060 (empty disables the server)")
	flag.Parse()

	path := *configPath
	if path == "" {
		path = config.DefaultPath()
	}

	tc, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "entitytainerctl: loading %s: %v\n", path, err)
		os.Exit(1)
	}

	tiers := tc.Tiers()
	needed, err := entitytainer.NeededSize(tc.MaxEntities, tiers)
	if err != nil {
		fmt.Fprintf(os.Stderr, "entitytainerctl: %v\n", err)
		os.Exit(1)
	}

	buf := make([]byte, needed)
	c, err := entitytainer.Create(buf, tc.MaxEntities, tiers)
	if err != nil {
		fmt.Fprintf(os.Stderr, "entitytainerctl: %v\n", err)
		os.Exit(1)
	}

	var log logger.Logger = &glog.Glog{}
	c.Logger = log

	runScriptedWorkload(c, log)

	if *debugAddr != "" {
		log.Infof("serving debug endpoint on %s", *debugAddr)
		monitor.NewServer(*debugAddr, c).Run()
	}
}

// runScriptedWorkload replays the spec's S1-S5 scenarios against a
// freshly constructed container, logging each step.
func runScriptedWorkload(c *entitytainer.Container, log logger.Logger) {
	must := func(err error) {
		if err != nil {
			log.Fatalf("scripted workload failed: %v", err)
		}
	}

	must(c.AddEntity(3))
	must(c.AddChild(3, 10))
	n, err := c.NumChildren(3)
	must(err)
	log.Infof("S1: entity 3 has %d child(ren)", n)

	must(c.AddEntity(5))
	for _, child := range []entitytainer.Entity{100, 101, 102} {
		must(c.AddChild(5, child))
	}
	n, err = c.NumChildren(5)
	must(err)
	log.Infof("S2: entity 5 has %d child(ren) after up-migration", n)

	must(c.RemoveChild(5, 102))
	must(c.RemoveChild(5, 101))
	n, err = c.NumChildren(5)
	must(err)
	log.Infof("S3: entity 5 has %d child(ren) after down-migration", n)

	must(c.AddEntity(1))
	must(c.AddEntity(2))
	must(c.RemoveEntity(1))
	must(c.AddEntity(7))
	log.Infof("S4: entity 7 reused entity 1's freed bucket")

	must(c.AddEntity(9))
	for _, child := range []entitytainer.Entity{20, 21, 22} {
		must(c.AddChild(9, child))
	}
	must(c.RemoveChild(9, 21))
	children, _, err := c.GetChildren(9)
	must(err)
	log.Infof("S5: entity 9's surviving children in order: %v", children)
}
