// util/resources_embed.go
// Copyright(c) 2025-2026 airlimit contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Regular builds use the resources that are compiled into the binary.
//go:build !localresources

package util

import (
	"io/fs"

	"github.com/skyshow/airlimit/resources"
)

func initResourcesFS() fs.FS {
	return resources.FS
}
