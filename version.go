/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package deliverystore

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/suparena/deliverystore/registry"
)

// Build metadata, overridable with -ldflags "-X".
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// VersionInfo describes the running build and the tables it serves.
type VersionInfo struct {
	Version   string   `json:"version"`
	GitCommit string   `json:"gitCommit"`
	BuildDate string   `json:"buildDate"`
	GoVersion string   `json:"goVersion"`
	Tables    []string `json:"tables"`
}

// GetVersionInfo returns the version information
func GetVersionInfo() VersionInfo {
	defs := registry.Tables()
	tables := make([]string, 0, len(defs))
	for _, def := range defs {
		tables = append(tables, def.Name)
	}
	return VersionInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Tables:    tables,
	}
}

func (v VersionInfo) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "deliverystore %s (commit %s, built %s, %s)\n", v.Version, v.GitCommit, v.BuildDate, v.GoVersion)
	fmt.Fprintf(&b, "tables: %s\n", strings.Join(v.Tables, ", "))
	return b.String()
}
