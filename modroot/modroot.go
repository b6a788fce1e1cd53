// Copyright (c) 2020 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package modroot locates the enclosing Go module's root directory, so
// that commands like entitytainerctl can find their default config file
// without requiring a -config flag.
package modroot

import (
	"os"
	"path/filepath"
)

var modRoot string

// envOverride lets a command pin the module root explicitly (e.g. when
// running from an installed binary outside any module checkout) instead
// of walking up from the working directory.
const envOverride = "ENTITYTAINER_MODROOT"

// Path returns the module root, as a better alternative to os.Getenv("GOPATH").
func Path() string {
	if v := os.Getenv(envOverride); v != "" {
		return v
	}
	if modRoot != "" {
		return modRoot
	}
	dir, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	for {
		if fi, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil && !fi.IsDir() {
			modRoot = dir
			return dir
		}
		d := filepath.Dir(dir)
		if d == dir {
			break
		}
		dir = d
	}
	panic("no module root found!")
}
