// Package archive stores decoded textures as zstd-compressed frames.
//
// A frame is a fixed header, the texture name, and mip 0 compressed with zstd:
//
//	[0, HeaderSize)                        Header
//	[HeaderSize, HeaderSize+NameLength)    name
//	[..., +CompressedLength)               zstd(mip 0)
package archive

import (
	"encoding/binary"
	"fmt"

	"github.com/EchoTools/nutexTools/pkg/nutexb"
)

// Magic bytes identifying a texture frame.
var Magic = [4]byte{'N', 'T', 'X', 'Z'}

// Version is the current frame version.
const Version = 1

// HeaderSize is the fixed binary size of a frame header.
const HeaderSize = 40 // 4 + 2 + 1 + 1 + 4*4 + 8 + 8 bytes

// maxNameLength bounds the name read from a frame.
const maxNameLength = 1 << 10

// Header describes one decoded texture frame.
type Header struct {
	Magic            [4]byte
	Version          uint16
	Format           nutexb.Format
	Reserved         uint8
	Width            uint32
	Height           uint32
	Depth            uint32
	NameLength       uint32
	Length           uint64 // Uncompressed mip size
	CompressedLength uint64 // Compressed mip size
}

// Size returns the binary size of the header.
func (h *Header) Size() int {
	return HeaderSize
}

// Validate checks the header for validity.
func (h *Header) Validate() error {
	if h.Magic != Magic {
		return fmt.Errorf("invalid magic: expected %x, got %x", Magic, h.Magic)
	}
	if h.Version != Version {
		return fmt.Errorf("unsupported version %d", h.Version)
	}
	if h.NameLength > maxNameLength {
		return fmt.Errorf("name length %d exceeds %d", h.NameLength, maxNameLength)
	}
	if h.Length > 0 && h.CompressedLength == 0 {
		return fmt.Errorf("compressed size is zero")
	}
	return nil
}

// MarshalBinary encodes the header to binary format.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	h.EncodeTo(buf)
	return buf, nil
}

// EncodeTo writes the header to the given buffer.
// The buffer must be at least HeaderSize bytes.
func (h *Header) EncodeTo(buf []byte) {
	copy(buf[0:4], h.Magic[:])
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	buf[6] = byte(h.Format)
	buf[7] = h.Reserved
	binary.LittleEndian.PutUint32(buf[8:12], h.Width)
	binary.LittleEndian.PutUint32(buf[12:16], h.Height)
	binary.LittleEndian.PutUint32(buf[16:20], h.Depth)
	binary.LittleEndian.PutUint32(buf[20:24], h.NameLength)
	binary.LittleEndian.PutUint64(buf[24:32], h.Length)
	binary.LittleEndian.PutUint64(buf[32:40], h.CompressedLength)
}

// UnmarshalBinary decodes and validates the header.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("header data too short: need %d, got %d", HeaderSize, len(data))
	}
	h.DecodeFrom(data)
	return h.Validate()
}

// DecodeFrom reads the header from the given buffer.
// Does not validate - use UnmarshalBinary for validation.
func (h *Header) DecodeFrom(data []byte) {
	copy(h.Magic[:], data[0:4])
	h.Version = binary.LittleEndian.Uint16(data[4:6])
	h.Format = nutexb.Format(data[6])
	h.Reserved = data[7]
	h.Width = binary.LittleEndian.Uint32(data[8:12])
	h.Height = binary.LittleEndian.Uint32(data[12:16])
	h.Depth = binary.LittleEndian.Uint32(data[16:20])
	h.NameLength = binary.LittleEndian.Uint32(data[20:24])
	h.Length = binary.LittleEndian.Uint64(data[24:32])
	h.CompressedLength = binary.LittleEndian.Uint64(data[32:40])
}

// NewHeader creates a header describing t. CompressedLength is filled in by
// the Writer.
func NewHeader(t *nutexb.Texture) *Header {
	h := &Header{
		Magic:      Magic,
		Version:    Version,
		Format:     t.Format,
		Width:      t.Width,
		Height:     t.Height,
		Depth:      t.Depth,
		NameLength: uint32(len(t.Name)),
	}
	if len(t.Mipmaps) > 0 {
		h.Length = uint64(len(t.Mipmaps[0]))
	}
	return h
}
