// Package mem provides memory allocation utilities.
//
// # Aligned Allocation
//
// Row buffers are allocated so that their first element sits on a caller
// chosen boundary (8, 16, 32 or 64 bytes). Combined with a row stride that is
// a multiple of the same boundary, every row start is aligned and numeric
// code can overlay vector types on row memory without copying.
package mem
