// Package minio implements blobstore.Store for MinIO and other
// S3-compatible object stores.
//
//	client, _ := minio.New("localhost:9000", &minio.Options{
//	    Creds: credentials.NewEnvMinio(),
//	})
//	store := lminio.NewStore(client, "lexis", "corpora/")
package minio
