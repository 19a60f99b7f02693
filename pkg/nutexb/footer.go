// Package nutexb decodes NUTEXB texture containers.
//
// A NUTEXB file is the swizzled image payload followed by a fixed 176-byte
// footer holding all metadata:
//
//	[0, ImageSize)        block-linear image data, all mips and array layers
//	[len-176, len)        footer
//
// Decoding parses the footer, reverses the block-linear layout of mip 0 and
// trims the result to the mip's exact byte count. Higher mips and array
// layers are described by the footer but never decoded.
package nutexb

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// FooterSize is the fixed size of the trailing footer.
const FooterSize = 0xB0

// MaxMipmaps is the number of mip size slots in the footer.
const MaxMipmaps = 16

const nameSize = 0x40

// Magic values written by the official tools. They are carried through but
// never checked.
var (
	TNXMagic = [4]byte{' ', 'X', 'N', 'T'}
	TEXMagic = [4]byte{' ', 'X', 'E', 'T'}
)

// Footer is the decoded NUTEXB trailer.
type Footer struct {
	MipSizes     [MaxMipmaps]uint32 // -0xB0: byte count of each mip
	TNXMagic     [4]byte            // -0x70
	Name         string             // -0x6C: 64 bytes, zero bytes dropped
	Width        uint32             // -0x2C
	Height       uint32             // -0x28
	Depth        uint32             // -0x24
	Format       Format             // -0x20
	Reserved0    uint8              // -0x1F
	Reserved1    uint16             // -0x1E
	Reserved2    uint32             // -0x1C
	MipCount     uint32             // -0x18
	Alignment    uint32             // -0x14
	ArrayCount   uint32             // -0x10
	ImageSize    uint32             // -0x0C
	TEXMagic     [4]byte            // -0x08
	MajorVersion uint16             // -0x04
	MinorVersion uint16             // -0x02
}

// ParseFooter decodes the footer at the end of data.
//
// Empty input is a placeholder file and yields a nil footer with no error.
func ParseFooter(data []byte) (*Footer, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if len(data) < FooterSize {
		return nil, &TruncatedFileError{Size: len(data), Need: FooterSize}
	}

	f := &Footer{}
	f.DecodeFrom(data[len(data)-FooterSize:])
	return f, nil
}

// DecodeFrom reads the footer from buf, which must hold at least FooterSize
// bytes. No field is validated.
func (f *Footer) DecodeFrom(buf []byte) {
	for i := range f.MipSizes {
		f.MipSizes[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}
	copy(f.TNXMagic[:], buf[0x40:0x44])
	f.Name = decodeName(buf[0x44 : 0x44+nameSize])
	f.Width = binary.LittleEndian.Uint32(buf[0x84:0x88])
	f.Height = binary.LittleEndian.Uint32(buf[0x88:0x8C])
	f.Depth = binary.LittleEndian.Uint32(buf[0x8C:0x90])
	f.Format = Format(buf[0x90])
	f.Reserved0 = buf[0x91]
	f.Reserved1 = binary.LittleEndian.Uint16(buf[0x92:0x94])
	f.Reserved2 = binary.LittleEndian.Uint32(buf[0x94:0x98])
	f.MipCount = binary.LittleEndian.Uint32(buf[0x98:0x9C])
	f.Alignment = binary.LittleEndian.Uint32(buf[0x9C:0xA0])
	f.ArrayCount = binary.LittleEndian.Uint32(buf[0xA0:0xA4])
	f.ImageSize = binary.LittleEndian.Uint32(buf[0xA4:0xA8])
	copy(f.TEXMagic[:], buf[0xA8:0xAC])
	f.MajorVersion = binary.LittleEndian.Uint16(buf[0xAC:0xAE])
	f.MinorVersion = binary.LittleEndian.Uint16(buf[0xAE:0xB0])
}

// decodeName drops every zero byte rather than stopping at the first one, so
// "a\x00b" decodes to "ab".
func decodeName(raw []byte) string {
	return string(bytes.ReplaceAll(raw, []byte{0}, nil))
}

// MarshalBinary encodes the footer to FooterSize bytes.
func (f *Footer) MarshalBinary() ([]byte, error) {
	if len(f.Name) > nameSize {
		return nil, fmt.Errorf("name is %d bytes, max %d", len(f.Name), nameSize)
	}
	buf := make([]byte, FooterSize)
	f.EncodeTo(buf)
	return buf, nil
}

// EncodeTo writes the footer to buf, which must hold at least FooterSize
// bytes. Names longer than 64 bytes are truncated.
func (f *Footer) EncodeTo(buf []byte) {
	for i, size := range f.MipSizes {
		binary.LittleEndian.PutUint32(buf[i*4:], size)
	}
	copy(buf[0x40:0x44], f.TNXMagic[:])
	name := buf[0x44 : 0x44+nameSize]
	clear(name)
	copy(name, f.Name)
	binary.LittleEndian.PutUint32(buf[0x84:0x88], f.Width)
	binary.LittleEndian.PutUint32(buf[0x88:0x8C], f.Height)
	binary.LittleEndian.PutUint32(buf[0x8C:0x90], f.Depth)
	buf[0x90] = byte(f.Format)
	buf[0x91] = f.Reserved0
	binary.LittleEndian.PutUint16(buf[0x92:0x94], f.Reserved1)
	binary.LittleEndian.PutUint32(buf[0x94:0x98], f.Reserved2)
	binary.LittleEndian.PutUint32(buf[0x98:0x9C], f.MipCount)
	binary.LittleEndian.PutUint32(buf[0x9C:0xA0], f.Alignment)
	binary.LittleEndian.PutUint32(buf[0xA0:0xA4], f.ArrayCount)
	binary.LittleEndian.PutUint32(buf[0xA4:0xA8], f.ImageSize)
	copy(buf[0xA8:0xAC], f.TEXMagic[:])
	binary.LittleEndian.PutUint16(buf[0xAC:0xAE], f.MajorVersion)
	binary.LittleEndian.PutUint16(buf[0xAE:0xB0], f.MinorVersion)
}

// Validate checks the dimension and mip count invariants.
func (f *Footer) Validate() error {
	if f.Width == 0 || f.Height == 0 || f.Depth == 0 {
		return fmt.Errorf("%w: dimensions %dx%dx%d", ErrInvalidFooter, f.Width, f.Height, f.Depth)
	}
	if f.MipCount > MaxMipmaps {
		return fmt.Errorf("%w: mip count %d exceeds %d", ErrInvalidFooter, f.MipCount, MaxMipmaps)
	}
	return nil
}

// AlignedMipSize returns the byte count of mip i rounded up to Alignment.
func (f *Footer) AlignedMipSize(i int) uint32 {
	size := f.MipSizes[i]
	if f.Alignment != 0 && size%f.Alignment != 0 {
		size += f.Alignment - size%f.Alignment
	}
	return size
}

// String returns a human-readable summary.
func (f *Footer) String() string {
	return fmt.Sprintf("%q: %dx%dx%d, format=%s, %d mips, %d layers, image_size=%d",
		f.Name, f.Width, f.Height, f.Depth, f.Format, f.MipCount, f.ArrayCount, f.ImageSize)
}
