// aviation/source.go
// Copyright(c) 2025-2026 airlimit contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"context"
	"log/slog"
	"strings"

	"github.com/skyshow/airlimit/log"
	"github.com/skyshow/airlimit/util"
)

// IsRegistryName reports whether name has one of the extensions that
// LoadRegistry understands.
func IsRegistryName(name string) bool {
	base := strings.ToLower(util.StripZstd(name))
	return strings.HasSuffix(base, ".json") || strings.HasSuffix(base, ".msgpack")
}

// RegistryCacheMaxBytes bounds the size of the local cache that remote
// registries are kept in.
var RegistryCacheMaxBytes int64 = 64 << 20

// OpenRegistry loads the registry at uri, which may be a local path, a
// gs:// or s3:// object, or a directory of either, in which case the
// latest registry file in it is used. An empty uri gives the embedded
// registry.
//
// Registries fetched from cloud storage are cached locally; if a later
// fetch fails, the cached copy is returned instead. The cache is culled
// to RegistryCacheMaxBytes after each store.
func OpenRegistry(ctx context.Context, uri string, cfg util.RemoteConfig, lg *log.Logger) (*Registry, error) {
	if uri == "" {
		return DefaultRegistry(), nil
	}

	o, err := util.ParseObjectURI(uri)
	if err != nil {
		return nil, err
	}
	remote := o.Scheme != "file"
	cachePath := registryCachePath(o)

	reg, err := fetchRegistry(ctx, uri, cfg, lg)
	if err != nil {
		if !remote {
			return nil, err
		}

		var cr compiledRegistry
		if t, cerr := util.CacheRetrieveObject(cachePath, &cr); cerr == nil {
			lg.Warn("using cached registry", slog.String("uri", uri), slog.Any("error", err),
				slog.Time("cached", t))
			return NewRegistry(cr.Version, cr.Airports)
		}
		return nil, err
	}

	if remote {
		cr := compiledRegistry{Version: reg.Version, Airports: reg.Profiles()}
		if err := util.CacheStoreObject(cachePath, cr); err != nil {
			lg.Warn("unable to cache registry", slog.String("uri", uri), slog.Any("error", err))
		} else if err := util.CacheCullObjects(RegistryCacheMaxBytes); err != nil {
			lg.Warn("unable to cull cache", slog.Any("error", err))
		}
	}

	return reg, nil
}

func fetchRegistry(ctx context.Context, uri string, cfg util.RemoteConfig, lg *log.Logger) (*Registry, error) {
	resolved, err := util.ResolveLatestURI(ctx, uri, cfg, IsRegistryName)
	if err != nil {
		return nil, err
	}
	if resolved != uri {
		lg.Info("resolved registry", slog.String("uri", uri), slog.String("object", resolved))
	}

	r, err := util.OpenURI(ctx, resolved, cfg)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return LoadRegistry(r, resolved)
}

func registryCachePath(o util.ObjectURI) string {
	key := strings.NewReplacer("/", "_", ":", "_").Replace(o.Bucket + "/" + o.Key)
	return "registry/" + o.Scheme + "-" + key + ".msgpack"
}
