// resources/resources.go
// Copyright(c) 2025-2026 airlimit contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package resources holds the data files that are compiled into the
// binaries: the default airport registry.
package resources

import "embed"

//go:embed airports.json
var FS embed.FS
