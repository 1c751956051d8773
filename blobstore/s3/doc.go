// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("sketches/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	err = sk.Export(ctx, store, "daily/2024-06-01.cmsa")
//
// # Features
//
//   - Range reads for efficient partial fetches
//   - Multipart uploads (feature/s3/manager) for large archives
//   - CRC32C integrity checks on uploads
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
