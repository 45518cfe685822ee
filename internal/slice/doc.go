// Package slice stores fixed-capacity pages of data frame rows.
//
// A slice holds up to Capacity rows. Each row is Stride float32 values
// followed, in a parallel array, by one int32 document hash. Row buffers
// start at an address aligned to the frame alignment and Stride is a
// multiple of the alignment, so every row is aligned too.
//
// Two implementations share the [Slice] interface:
//
//   - [Memory] keeps its buffer resident for its whole life.
//   - [Disk] keeps its buffer only while rows are appended. Sealing encodes
//     the rows as one page in a blobstore.Store, synchronously or as a
//     write-behind task on the executor, and Load decodes the page into a
//     fresh buffer owned by the caller.
//
// Page layout:
//
//	[0:64)   header, see [Header]
//	[64:)    compress block of values || docHashes
package slice
