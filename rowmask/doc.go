// Package rowmask provides a compact boolean sequence over row indices.
//
// A [Mask] selects the rows of a data frame that take part in a scan, for
// example the training rows of a train/test split. Storage is a roaring
// bitmap with run containers, so long runs of equal bits cost a few bytes
// regardless of their length, and iteration skips false runs without
// touching each row.
//
// A mask has an explicit logical [Mask.Size]. Indices at or beyond Size read
// as false. Masks address at most [MaxSize] rows.
//
//	m := rowmask.NewFilled(1, true) // {true}
//	m.Extend(true, 100)
//	m.Extend(false, 3898)
//	for row := range m.OneBits() {
//		...
//	}
package rowmask
