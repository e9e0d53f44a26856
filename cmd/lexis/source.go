package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/config"
	s3sdk "github.com/aws/aws-sdk-go-v2/service/s3"
	miniosdk "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/lexis/blobstore"
	"github.com/hupe1980/lexis/blobstore/minio"
	"github.com/hupe1980/lexis/blobstore/s3"
)

// remoteCacheBytes bounds the block cache in front of every remote store.
const remoteCacheBytes = 32 << 20

var (
	storesMu sync.Mutex
	stores   = map[string]blobstore.Store{}
)

// isRemote reports whether uri names an object in a remote store.
func isRemote(uri string) bool {
	return strings.Contains(uri, "://")
}

// openSource resolves a file argument to a store and a blob name:
//
//	path/to/corpus.toml
//	s3://bucket/key
//	minio://host:port/bucket/key[?insecure=true]
//
// S3 uses the default AWS credential chain, MinIO reads MINIO_ACCESS_KEY
// and MINIO_SECRET_KEY. Remote stores are shared across calls.
func openSource(ctx context.Context, uri string) (blobstore.Store, string, error) {
	if !isRemote(uri) {
		return blobstore.NewLocalStore(filepath.Dir(uri)), filepath.Base(uri), nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return nil, "", fmt.Errorf("invalid source %q: %w", uri, err)
	}

	var bucket, key string
	switch u.Scheme {
	case "s3":
		bucket, key = u.Host, strings.TrimPrefix(u.Path, "/")
	case "minio":
		bucket, key, _ = strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	default:
		return nil, "", fmt.Errorf("unsupported source scheme %q", u.Scheme)
	}
	if bucket == "" || key == "" {
		return nil, "", fmt.Errorf("source %q needs a bucket and a key", uri)
	}

	id := u.Scheme + "://" + u.Host + "/" + bucket
	storesMu.Lock()
	defer storesMu.Unlock()
	if s, ok := stores[id]; ok {
		return s, key, nil
	}

	var s blobstore.Store
	switch u.Scheme {
	case "s3":
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("load aws config: %w", err)
		}
		s = s3.NewStore(s3sdk.NewFromConfig(cfg), bucket, "")
	case "minio":
		client, err := miniosdk.New(u.Host, &miniosdk.Options{
			Creds:  credentials.NewEnvMinio(),
			Secure: u.Query().Get("insecure") != "true",
		})
		if err != nil {
			return nil, "", fmt.Errorf("minio client: %w", err)
		}
		s = minio.NewStore(client, bucket, "")
	}
	s = blobstore.NewCachingStore(s, remoteCacheBytes, 0)
	stores[id] = s
	return s, key, nil
}

// readSource returns the content of a local or remote file.
func readSource(ctx context.Context, uri string) ([]byte, error) {
	s, name, err := openSource(ctx, uri)
	if err != nil {
		return nil, err
	}
	return blobstore.ReadAll(ctx, s, name)
}

// sourceExists reports whether uri names a readable file. Remote sources
// are assumed to exist; reading them reports the error.
func sourceExists(uri string) bool {
	if isRemote(uri) {
		return true
	}
	fi, err := os.Stat(uri)
	return err == nil && !fi.IsDir()
}
