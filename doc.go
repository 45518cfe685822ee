// Package dframe provides an out-of-core, row-sliced data frame for Go.
//
// A DataFrame holds rows of float32 values plus one int32 document hash per
// row. Rows are grouped into fixed-capacity slices which live either in
// memory or as pages in a blobstore.Store (a local directory by default, S3
// or MinIO if configured). Each row starts at an aligned address so numeric
// code can overlay vector types on the row directly.
//
// # Quick Start
//
//	executor.StartDefault(0)
//	defer executor.StopDefault()
//
//	ctx := context.Background()
//	frame, _ := dframe.NewDiskFrame(os.TempDir(), 10, 1_000_000, 10_000,
//	    dframe.WithIOMode(dframe.IOAsync))
//	defer frame.Close(ctx)
//
//	for _, rec := range records {
//	    _ = frame.AppendRow(rec.Values, rec.ID)
//	}
//	_ = frame.FinishWritingRows(ctx)
//
// # Scanning
//
// ReadRows splits a row range into contiguous, slice-aligned groups and
// visits each group on its own worker, returning one accumulator per group:
//
//	sums, err := dframe.ReadRows(ctx, frame,
//	    func() float64 { return 0 },
//	    func(sum *float64, rows dframe.Rows) {
//	        for row := range rows.All() {
//	            *sum += row.At(0)
//	        }
//	    },
//	    dframe.WithThreads(4), dframe.WithMask(trainingRows))
//
// WriteColumns visits single rows for in-place mutation; mutated disk pages
// are written back before it returns.
//
// # Structure
//
// ResizeColumns, ResizeColumnsAligned, ResizeRows and Reserve change the
// layout without moving rows: row i always lives in slice i/capacity.
package dframe
