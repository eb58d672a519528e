// util/cache.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// Copyright(c) 2025-2026 airlimit contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/vmihailenco/msgpack/v5"
)

// CacheDir is the directory under the user's cache directory where
// objects are stored. Tests point it elsewhere.
var CacheDir = "airlimit"

func fullCachePath(path string) (string, error) {
	if filepath.IsAbs(CacheDir) {
		return filepath.Join(CacheDir, path), nil
	}
	cd, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cd, CacheDir, path), nil
}

// CacheStoreObject msgpack-encodes obj and writes it, deflated, to the
// given path in the cache.
func CacheStoreObject(path string, obj any) error {
	path, err := fullCachePath(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fw, err := flate.NewWriter(f, flate.BestSpeed)
	if err != nil {
		return err
	}

	if err := msgpack.NewEncoder(fw).Encode(obj); err != nil {
		return err
	}
	return fw.Close()
}

// CacheRetrieveObject decodes the object at the given path in the cache
// into obj and returns the time it was stored.
func CacheRetrieveObject(path string, obj any) (time.Time, error) {
	path, err := fullCachePath(path)
	if err != nil {
		return time.Time{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return time.Time{}, err
	}

	fr := flate.NewReader(f)
	defer fr.Close()

	return fi.ModTime(), msgpack.NewDecoder(fr).Decode(obj)
}

// CacheCullObjects deletes cached objects, least recently stored first,
// until what remains in the cache takes at most maxBytes.
func CacheCullObjects(maxBytes int64) error {
	dir, err := fullCachePath("")
	if err != nil {
		return err
	}

	type cached struct {
		path string
		size int64
		mod  time.Time
	}
	var objs []cached
	var total int64

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if fi, err := d.Info(); err == nil {
			objs = append(objs, cached{path: path, size: fi.Size(), mod: fi.ModTime()})
			total += fi.Size()
		}
		return nil
	})
	if err != nil {
		return err
	}

	slices.SortFunc(objs, func(a, b cached) int { return a.mod.Compare(b.mod) })

	for _, o := range objs {
		if total <= maxBytes {
			break
		}
		if err := os.Remove(o.path); err == nil {
			total -= o.size
		}
	}
	return nil
}
