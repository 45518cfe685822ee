package dframe

import (
	"errors"

	"github.com/hupe1980/dframe/internal/slice"
	"github.com/hupe1980/dframe/resource"
)

var (
	// ErrNotFinished is returned by scans and resizes while rows are still
	// being written. Call FinishWritingRows first.
	ErrNotFinished = errors.New("dframe: rows are still being written")

	// ErrClosed is returned by every operation on a closed frame.
	ErrClosed = errors.New("dframe: frame closed")

	// ErrMaskTooLong is returned when a scan mask covers more rows than the frame.
	ErrMaskTooLong = errors.New("dframe: mask longer than frame")

	// ErrInvalidAlignment is returned for unsupported alignments and for
	// column groups aligned wider than the frame.
	ErrInvalidAlignment = errors.New("dframe: invalid alignment")

	// ErrInvalidArgument is returned for negative sizes and oversized rows.
	ErrInvalidArgument = errors.New("dframe: invalid argument")

	// ErrInsufficientDiskSpace is returned by NewDiskFrame when the target
	// directory cannot hold the expected rows.
	ErrInsufficientDiskSpace = errors.New("dframe: insufficient disk space")
)

// Errors produced by slices and the resource controller.
var (
	ErrSealed              = slice.ErrSealed
	ErrSliceFull           = slice.ErrSliceFull
	ErrCorrupted           = slice.ErrCorrupted
	ErrInvalidMagic        = slice.ErrInvalidMagic
	ErrInvalidVersion      = slice.ErrInvalidVersion
	ErrMemoryLimitExceeded = resource.ErrMemoryLimitExceeded
)

// SliceError records a failed page operation on one slice.
//
// The underlying error can be accessed via errors.Unwrap.
type SliceError = slice.Error
