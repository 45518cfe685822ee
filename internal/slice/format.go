package slice

import (
	"encoding/binary"
	"errors"
	"hash/crc32"

	"github.com/hupe1980/dframe/internal/compress"
)

const (
	// PageMagic identifies slice pages (ASCII: "DFS1").
	PageMagic = 0x31534644

	// PageVersion is the current page format version.
	PageVersion uint32 = 1

	// HeaderSize is the size of the page header in bytes.
	HeaderSize = 64
)

var (
	// ErrInvalidMagic is returned when a page has an invalid magic number.
	ErrInvalidMagic = errors.New("slice: invalid page magic")

	// ErrInvalidVersion is returned when a page has an unsupported version.
	ErrInvalidVersion = errors.New("slice: unsupported page version")

	// ErrCorrupted is returned when a page fails checksum or size validation.
	ErrCorrupted = errors.New("slice: page corrupted")
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Header is the fixed 64-byte header in front of every page.
//
// All multi-byte fields are little-endian. Values and hashes in the payload
// are in native byte order: pages never leave the process that wrote them.
type Header struct {
	Magic       uint32
	Version     uint32
	Flags       uint32
	Compression compress.Type
	Rows        uint32
	Stride      uint32
	RawSize     uint64 // decompressed payload size
	PayloadSize uint64 // stored payload size
	PayloadCRC  uint32 // CRC32-C of the stored payload
	Checksum    uint32 // CRC32-C of bytes [0:60)
}

// Marshal encodes the header and fills in Checksum.
func (h *Header) Marshal() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.Flags)
	buf[12] = byte(h.Compression)
	binary.LittleEndian.PutUint32(buf[16:20], h.Rows)
	binary.LittleEndian.PutUint32(buf[20:24], h.Stride)
	binary.LittleEndian.PutUint64(buf[24:32], h.RawSize)
	binary.LittleEndian.PutUint64(buf[32:40], h.PayloadSize)
	binary.LittleEndian.PutUint32(buf[40:44], h.PayloadCRC)
	// [44:60) reserved

	h.Checksum = crc32.Checksum(buf[:60], castagnoli)
	binary.LittleEndian.PutUint32(buf[60:64], h.Checksum)
	return buf
}

// Unmarshal decodes and validates a header.
func (h *Header) Unmarshal(buf []byte) error {
	if len(buf) < HeaderSize {
		return ErrCorrupted
	}
	h.Magic = binary.LittleEndian.Uint32(buf[0:4])
	if h.Magic != PageMagic {
		return ErrInvalidMagic
	}
	h.Checksum = binary.LittleEndian.Uint32(buf[60:64])
	if crc32.Checksum(buf[:60], castagnoli) != h.Checksum {
		return ErrCorrupted
	}
	h.Version = binary.LittleEndian.Uint32(buf[4:8])
	if h.Version > PageVersion {
		return ErrInvalidVersion
	}
	h.Flags = binary.LittleEndian.Uint32(buf[8:12])
	h.Compression = compress.Type(buf[12])
	h.Rows = binary.LittleEndian.Uint32(buf[16:20])
	h.Stride = binary.LittleEndian.Uint32(buf[20:24])
	h.RawSize = binary.LittleEndian.Uint64(buf[24:32])
	h.PayloadSize = binary.LittleEndian.Uint64(buf[32:40])
	h.PayloadCRC = binary.LittleEndian.Uint32(buf[40:44])

	if h.RawSize != uint64(h.Rows)*(uint64(h.Stride)+1)*4 {
		return ErrCorrupted
	}
	return nil
}

// encodePage serializes rows of buf into a page.
func encodePage(buf *Buffer, typ compress.Type) ([]byte, error) {
	rows := buf.Rows()
	values := buf.Values[:rows*buf.Stride]

	raw := make([]byte, 0, (len(values)+rows)*4)
	raw = append(raw, float32Bytes(values)...)
	raw = append(raw, int32Bytes(buf.DocHashes[:rows])...)

	block, err := compress.Encode(raw, typ)
	if err != nil {
		return nil, err
	}

	h := Header{
		Magic:       PageMagic,
		Version:     PageVersion,
		Compression: typ,
		Rows:        uint32(rows),       //nolint:gosec // rows <= capacity
		Stride:      uint32(buf.Stride), //nolint:gosec
		RawSize:     uint64(len(raw)),
		PayloadSize: uint64(len(block)),
		PayloadCRC:  crc32.Checksum(block, castagnoli),
	}
	page := make([]byte, 0, HeaderSize+len(block))
	page = append(page, h.Marshal()...)
	page = append(page, block...)
	return page, nil
}
