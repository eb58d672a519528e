// util/remote.go
// Copyright(c) 2025-2026 airlimit contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

var ErrUnsupportedURI = errors.New("unsupported URI")

// RemoteConfig holds what's needed to read registry files from cloud
// storage. Everything is optional: without GCS credentials, buckets are
// accessed unauthenticated, and without S3 keys the default AWS
// credential chain is used.
type RemoteConfig struct {
	GCSCredentialsJSON []byte `yaml:"-"`
	S3Region           string `yaml:"s3_region"`
	S3Endpoint         string `yaml:"s3_endpoint"`
	S3AccessKeyID      string `yaml:"s3_access_key_id"`
	S3SecretAccessKey  string `yaml:"s3_secret_access_key"`
}

// RemoteConfigFromEnv initializes a RemoteConfig from the environment.
func RemoteConfigFromEnv() RemoteConfig {
	c := RemoteConfig{
		S3Region:          os.Getenv("AWS_REGION"),
		S3Endpoint:        os.Getenv("AIRLIMIT_S3_ENDPOINT"),
		S3AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		S3SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
	}
	if creds := os.Getenv("AIRLIMIT_GCS_CREDENTIALS"); creds != "" {
		c.GCSCredentialsJSON = []byte(creds)
	}
	return c
}

// ObjectURI is a parsed registry location: a local path, gs://bucket/key
// or s3://bucket/key.
type ObjectURI struct {
	Scheme string // "file", "gs" or "s3"
	Bucket string
	Key    string // path for "file"
}

func ParseObjectURI(uri string) (ObjectURI, error) {
	if uri == "" {
		return ObjectURI{}, fmt.Errorf("empty URI: %w", ErrUnsupportedURI)
	}

	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return ObjectURI{Scheme: "file", Key: uri}, nil
	}

	switch scheme {
	case "file":
		return ObjectURI{Scheme: "file", Key: rest}, nil
	case "gs", "s3":
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return ObjectURI{}, fmt.Errorf("%s: no bucket given", uri)
		}
		return ObjectURI{Scheme: scheme, Bucket: bucket, Key: key}, nil
	default:
		return ObjectURI{}, fmt.Errorf("%s: %w", uri, ErrUnsupportedURI)
	}
}

func (o ObjectURI) String() string {
	if o.Scheme == "file" {
		return o.Key
	}
	return o.Scheme + "://" + o.Bucket + "/" + o.Key
}

// IsDirectory reports whether the URI names a prefix of objects rather
// than a single one.
func (o ObjectURI) IsDirectory() bool {
	if o.Scheme == "file" {
		fi, err := os.Stat(o.Key)
		return err == nil && fi.IsDir()
	}
	return o.Key == "" || strings.HasSuffix(o.Key, "/")
}

// child returns the URI of the named object under a directory URI.
func (o ObjectURI) child(name string) ObjectURI {
	if o.Scheme == "file" {
		return ObjectURI{Scheme: "file", Key: filepath.Join(o.Key, name)}
	}
	return ObjectURI{Scheme: o.Scheme, Bucket: o.Bucket, Key: o.Key + name}
}

// OpenURI returns a reader for the object at uri. The caller must close it.
func OpenURI(ctx context.Context, uri string, cfg RemoteConfig) (io.ReadCloser, error) {
	o, err := ParseObjectURI(uri)
	if err != nil {
		return nil, err
	}

	switch o.Scheme {
	case "file":
		return os.Open(o.Key)
	case "gs":
		return openGCS(ctx, o, cfg)
	case "s3":
		return openS3(ctx, o, cfg)
	default:
		return nil, fmt.Errorf("%s: %w", uri, ErrUnsupportedURI)
	}
}

// ListURI returns the names of the objects directly under the directory
// URI, sorted.
func ListURI(ctx context.Context, uri string, cfg RemoteConfig) ([]string, error) {
	o, err := ParseObjectURI(uri)
	if err != nil {
		return nil, err
	}

	var names []string
	switch o.Scheme {
	case "file":
		entries, err := os.ReadDir(o.Key)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if !e.IsDir() {
				names = append(names, e.Name())
			}
		}
	case "gs":
		if names, err = listGCS(ctx, o, cfg); err != nil {
			return nil, err
		}
	case "s3":
		if names, err = listS3(ctx, o, cfg); err != nil {
			return nil, err
		}
	}

	slices.Sort(names)
	return names, nil
}

// ResolveLatestURI returns uri unchanged if it names a single object. If
// it names a directory, the URI of the last (in sorted order) object in it
// accepted by match is returned; registries are published with versioned
// names so that this is the newest one.
func ResolveLatestURI(ctx context.Context, uri string, cfg RemoteConfig, match func(name string) bool) (string, error) {
	o, err := ParseObjectURI(uri)
	if err != nil {
		return "", err
	}
	if !o.IsDirectory() {
		return uri, nil
	}

	names, err := ListURI(ctx, uri, cfg)
	if err != nil {
		return "", err
	}
	names = FilterSlice(names, match)
	if len(names) == 0 {
		return "", fmt.Errorf("%s: no matching objects found", uri)
	}
	return o.child(names[len(names)-1]).String(), nil
}

///////////////////////////////////////////////////////////////////////////
// Google Cloud Storage

func newGCSClient(ctx context.Context, cfg RemoteConfig) (*storage.Client, error) {
	opt := option.WithoutAuthentication()
	if len(cfg.GCSCredentialsJSON) > 0 {
		opt = option.WithCredentialsJSON(cfg.GCSCredentialsJSON)
	}
	return storage.NewClient(ctx, opt)
}

// gcsReader closes the client along with the object reader.
type gcsReader struct {
	*storage.Reader
	client *storage.Client
}

func (g gcsReader) Close() error {
	err := g.Reader.Close()
	g.client.Close()
	return err
}

func openGCS(ctx context.Context, o ObjectURI, cfg RemoteConfig) (io.ReadCloser, error) {
	client, err := newGCSClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	r, err := client.Bucket(o.Bucket).Object(o.Key).NewReader(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%s: %w", o, err)
	}
	return gcsReader{Reader: r, client: client}, nil
}

func listGCS(ctx context.Context, o ObjectURI, cfg RemoteConfig) ([]string, error) {
	client, err := newGCSClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	query := storage.Query{
		Projection: storage.ProjectionNoACL,
		Prefix:     o.Key,
		Delimiter:  "/",
	}

	var names []string
	it := client.Bucket(o.Bucket).Objects(ctx, &query)
	for {
		if obj, err := it.Next(); err == iterator.Done {
			break
		} else if err != nil {
			return nil, err
		} else if obj.Name != "" && obj.Name != o.Key { // skip prefixes and the ~folder itself
			names = append(names, strings.TrimPrefix(obj.Name, o.Key))
		}
	}
	return names, nil
}

///////////////////////////////////////////////////////////////////////////
// S3

func newS3Client(ctx context.Context, cfg RemoteConfig) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, "")))
	}

	awscfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awscfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			// S3-compatible stores generally want path-style addressing.
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func openS3(ctx context.Context, o ObjectURI, cfg RemoteConfig) (io.ReadCloser, error) {
	client, err := newS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.Bucket),
		Key:    aws.String(o.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", o, err)
	}
	return out.Body, nil
}

func listS3(ctx context.Context, o ObjectURI, cfg RemoteConfig) ([]string, error) {
	client, err := newS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var names []string
	p := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(o.Bucket),
		Prefix:    aws.String(o.Key),
		Delimiter: aws.String("/"),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", o, err)
		}
		for _, obj := range page.Contents {
			if name := strings.TrimPrefix(aws.ToString(obj.Key), o.Key); name != "" {
				names = append(names, name)
			}
		}
	}
	return names, nil
}
