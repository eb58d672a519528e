// server/config.go
// Copyright(c) 2025-2026 airlimit contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	"os"
	"time"

	"github.com/skyshow/airlimit/geodesy"
	"github.com/skyshow/airlimit/log"
	"github.com/skyshow/airlimit/util"

	"gopkg.in/yaml.v2"
)

const DefaultListenAddress = ":8470"

// Config holds the query service's settings. It is read from an optional
// YAML file; command-line flags override individual fields.
type Config struct {
	Listen   string `yaml:"listen"`
	Registry string `yaml:"registry"` // path or gs:// / s3:// URI; empty for the embedded registry
	Provider string `yaml:"provider"`

	CacheSize      int           `yaml:"cache_size"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	MaxBatch         int `yaml:"max_batch"`
	BatchConcurrency int `yaml:"batch_concurrency"`

	LogLevel string `yaml:"log_level"`
	LogDir   string `yaml:"log_dir"`

	GCSCredentialsFile string            `yaml:"gcs_credentials_file"`
	Remote             util.RemoteConfig `yaml:",inline"`
}

func DefaultConfig() Config {
	return Config{
		Listen:         DefaultListenAddress,
		Provider:       "spherical",
		CacheSize:      65536,
		CacheTTL:       time.Hour,
		RequestTimeout: 30 * time.Second,
		MaxBatch:       1000,
		LogLevel:       "info",
	}
}

// LoadConfig returns the default configuration overridden by the YAML
// file at path, if one is given.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	if path == "" {
		return c, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.UnmarshalStrict(b, &c); err != nil {
		return c, err
	}
	return c, nil
}

// Check reports all of the problems with the configuration.
func (c *Config) Check() error {
	var e util.ErrorLogger
	e.Push("Service configuration")
	defer e.Pop()

	if c.Listen == "" {
		e.ErrorString(`"listen" must be given`)
	}
	if _, err := geodesy.Lookup(c.Provider); err != nil {
		e.Error(err)
	}
	if c.CacheSize < 0 {
		e.ErrorString(`"cache_size" %d must be non-negative`, c.CacheSize)
	}
	if c.CacheTTL < 0 {
		e.ErrorString(`"cache_ttl" %s must be non-negative`, c.CacheTTL)
	}
	if c.MaxBatch <= 0 {
		e.ErrorString(`"max_batch" %d must be positive`, c.MaxBatch)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		e.Error(err)
	}
	if c.GCSCredentialsFile != "" {
		if _, err := os.Stat(c.GCSCredentialsFile); err != nil {
			e.Error(err)
		}
	}

	return e.Err()
}

// RemoteConfig returns the settings for fetching the registry from
// cloud storage, loading the GCS credentials file if one was given.
func (c *Config) RemoteConfig() (util.RemoteConfig, error) {
	rc := c.Remote
	if c.GCSCredentialsFile != "" {
		b, err := os.ReadFile(c.GCSCredentialsFile)
		if err != nil {
			return rc, err
		}
		rc.GCSCredentialsJSON = b
	}
	return rc, nil
}
