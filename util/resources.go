// util/resources.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// Copyright(c) 2025-2026 airlimit contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"bytes"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

var resourcesFS fs.FS

func init() {
	resourcesFS = initResourcesFS()
}

func GetResourcesFS() fs.FS {
	return resourcesFS
}

// Unfortunately, unlike io.ReadCloser, the zstd Decoder's Close() method
// doesn't return an error, so we need to make our own custom ReadCloser
// interface.
type ResourceReadCloser interface {
	io.Reader
	Close()
}

type bytesReadCloser struct {
	*bytes.Reader
}

func (bytesReadCloser) Close() {}

type readerCloser struct {
	io.Reader
	close func()
}

func (r readerCloser) Close() { r.close() }

// IsZstd reports whether the file name has the zstd extension.
func IsZstd(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".zst")
}

// StripZstd returns name without a trailing .zst, so that the underlying
// format (.json, .msgpack) can be determined.
func StripZstd(name string) string {
	if IsZstd(name) {
		return name[:len(name)-len(filepath.Ext(name))]
	}
	return name
}

// NewDecompressingReader returns a reader for r that transparently
// decompresses it if name has the zstd extension.
func NewDecompressingReader(r io.Reader, name string) (ResourceReadCloser, error) {
	if !IsZstd(name) {
		return readerCloser{Reader: r, close: func() {}}, nil
	}
	zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, err
	}
	return zr, nil
}

// LoadResource provides a ResourceReadCloser to access the specified file
// from the resources; if it's zstd compressed, the Reader will handle
// decompression transparently. It panics if the file is not found since
// missing resources are pretty much impossible to recover from.
func LoadResource(path string) ResourceReadCloser {
	f, err := fs.ReadFile(resourcesFS, path)
	if err != nil {
		panic(err)
	}

	r, err := NewDecompressingReader(bytesReadCloser{bytes.NewReader(f)}, path)
	if err != nil {
		panic(err)
	}
	return r
}

func LoadResourceBytes(path string) []byte {
	r := LoadResource(path)
	defer r.Close()

	b, err := io.ReadAll(r)
	if err != nil {
		panic(err)
	}
	return b
}

// ResourceExists returns true if the specified resource file exists.
func ResourceExists(path string) bool {
	_, err := fs.Stat(resourcesFS, path)
	return err == nil
}
