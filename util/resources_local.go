// util/resources_local.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// Copyright(c) 2025-2026 airlimit contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// This file is included for development builds where the registry is
// being edited and we want to grab it from resources/ without rebuilding.
//go:build localresources

package util

import (
	"io/fs"
	"os"
	"path/filepath"
)

func initResourcesFS() fs.FS {
	return os.DirFS(GetResourcesFolderPath())
}

func GetResourcesFolderPath() string {
	dir, err := os.Getwd()
	if err != nil {
		panic(err)
	}

	// Try CWD as well the two directories above it.
	for range 3 {
		resourcesPath := filepath.Join(dir, "resources")
		if _, err := os.Stat(filepath.Join(resourcesPath, "airports.json")); err == nil {
			return resourcesPath
		}
		dir = filepath.Join(dir, "..")
	}
	panic("unable to find resources directory with airports.json")
}
