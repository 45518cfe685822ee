// Package compress encodes slice pages with optional LZ4 or ZSTD block compression.
package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type defines the compression algorithm used for a page payload.
type Type uint8

const (
	// None stores the payload verbatim.
	None Type = 0
	// LZ4 is fast block compression, the right choice for hot spill pages.
	LZ4 Type = 1
	// ZSTD trades encode time for a better ratio.
	ZSTD Type = 2
)

// String implements fmt.Stringer.
func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(t))
	}
}

// Parse maps a configuration string to a Type.
func Parse(s string) (Type, error) {
	switch s {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return ZSTD, nil
	}
	return None, fmt.Errorf("unknown compression %q", s)
}

// HeaderSize is the size of the block header.
// Format: [RawSize uint32][StoredSize uint32][Data...]
// StoredSize == 0 means the data is stored uncompressed.
const HeaderSize = 8

var (
	// ErrShortBlock is returned when a block is smaller than its header claims.
	ErrShortBlock = errors.New("compress: block too small")
	// ErrSizeMismatch is returned when the decoded size differs from the header.
	ErrSizeMismatch = errors.New("compress: decompressed size mismatch")
)

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Encode compresses data with t and prefixes the block header.
// If compression does not save at least 10% the data is stored raw.
func Encode(data []byte, t Type) ([]byte, error) {
	var compressed []byte
	switch t {
	case LZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		compressed = buf[:n]
	case ZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		out := make([]byte, HeaderSize+len(data))
		binary.LittleEndian.PutUint32(out[0:], uint32(len(data))) //nolint:gosec // pages are far below 4GiB
		copy(out[HeaderSize:], data)
		return out, nil
	}

	out := make([]byte, HeaderSize+len(compressed))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))       //nolint:gosec
	binary.LittleEndian.PutUint32(out[4:], uint32(len(compressed))) //nolint:gosec
	copy(out[HeaderSize:], compressed)
	return out, nil
}

// Decode reverses Encode, writing the raw bytes into dst when it is large
// enough. dst may be nil.
func Decode(block []byte, t Type, dst []byte) ([]byte, error) {
	if len(block) < HeaderSize {
		return nil, ErrShortBlock
	}
	rawSize := int(binary.LittleEndian.Uint32(block[0:]))
	storedSize := int(binary.LittleEndian.Uint32(block[4:]))

	if cap(dst) >= rawSize {
		dst = dst[:rawSize]
	} else {
		dst = make([]byte, rawSize)
	}

	if storedSize == 0 {
		if len(block) < HeaderSize+rawSize {
			return nil, ErrShortBlock
		}
		copy(dst, block[HeaderSize:HeaderSize+rawSize])
		return dst, nil
	}
	if len(block) < HeaderSize+storedSize {
		return nil, ErrShortBlock
	}
	payload := block[HeaderSize : HeaderSize+storedSize]

	switch t {
	case LZ4:
		n, err := lz4.UncompressBlock(payload, dst)
		if err != nil {
			return nil, err
		}
		if n != rawSize {
			return nil, ErrSizeMismatch
		}
		return dst, nil
	case ZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(payload, dst[:0])
		if err != nil {
			return nil, err
		}
		if len(out) != rawSize {
			return nil, ErrSizeMismatch
		}
		return out, nil
	default:
		return nil, fmt.Errorf("compress: compressed block with type %s", t)
	}
}
