// Package s3 implements blobstore.Store on Amazon S3.
//
// Reads are ranged GetObject calls, writes go through the SDK upload
// manager so large corpora are uploaded in parallel parts.
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	store := s3.NewStore(s3sdk.NewFromConfig(cfg), "my-bucket", "corpora/")
package s3
