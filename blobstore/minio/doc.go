// Package minio pages data frames into MinIO or any S3-compatible server
// (Ceph, Garage, SeaweedFS) through the MinIO client.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "frames", "jobs/42/")
//	frame, err := dframe.NewDiskFrame("", 10, rows, 10_000, dframe.WithStore(store))
package minio
