// Package s3 pages data frames into Amazon S3.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "frames/")
//
//	frame, err := dframe.NewDiskFrame("", 10, 1_000_000, 10_000, dframe.WithStore(store))
//
// # Features
//
//   - Range reads, so a page header can be checked before its payload is fetched
//   - Multipart uploads for large pages, CRC32C-checked single puts otherwise
//   - Automatic pagination for listing
//   - A key prefix for sharing a bucket
package s3
