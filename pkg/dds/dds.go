// Package dds writes decoded NUTEXB textures as DirectDraw Surface files.
//
// Output always uses the DX10 extended header so every NUTEXB format,
// including sRGB and BC6H/BC7 variants, maps to an exact DXGI_FORMAT.
package dds

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/EchoTools/nutexTools/pkg/nutexb"
)

// DXGI_FORMAT values used by NUTEXB textures.
const (
	DXGI_FORMAT_UNKNOWN             = 0
	DXGI_FORMAT_R32G32B32A32_FLOAT  = 2
	DXGI_FORMAT_R8G8B8A8_UNORM      = 28
	DXGI_FORMAT_R8G8B8A8_UNORM_SRGB = 29
	DXGI_FORMAT_BC1_UNORM           = 71
	DXGI_FORMAT_BC1_UNORM_SRGB      = 72
	DXGI_FORMAT_BC2_UNORM           = 74
	DXGI_FORMAT_BC2_UNORM_SRGB      = 75
	DXGI_FORMAT_BC3_UNORM           = 77
	DXGI_FORMAT_BC3_UNORM_SRGB      = 78
	DXGI_FORMAT_BC4_UNORM           = 80
	DXGI_FORMAT_BC4_SNORM           = 81
	DXGI_FORMAT_BC5_UNORM           = 83
	DXGI_FORMAT_BC5_SNORM           = 84
	DXGI_FORMAT_B8G8R8A8_UNORM      = 87
	DXGI_FORMAT_B8G8R8A8_UNORM_SRGB = 91
	DXGI_FORMAT_BC6H_UF16           = 95
	DXGI_FORMAT_BC7_UNORM           = 98
	DXGI_FORMAT_BC7_UNORM_SRGB      = 99
)

// DDS header constants
const (
	DDS_MAGIC                    = 0x20534444 // "DDS "
	DDS_HEADER_SIZE              = 124
	DDS_HEADER_FLAGS_CAPS        = 0x1
	DDS_HEADER_FLAGS_HEIGHT      = 0x2
	DDS_HEADER_FLAGS_WIDTH       = 0x4
	DDS_HEADER_FLAGS_PITCH       = 0x8
	DDS_HEADER_FLAGS_PIXELFORMAT = 0x1000
	DDS_HEADER_FLAGS_MIPMAPCOUNT = 0x20000
	DDS_HEADER_FLAGS_LINEARSIZE  = 0x80000

	DDS_SURFACE_FLAGS_TEXTURE = 0x1000

	DDS_PIXELFORMAT_SIZE = 32
	DDS_FOURCC           = 0x4

	DX10_FOURCC = 0x30315844 // "DX10"

	// HeaderSize is magic + DDS_HEADER + DDS_HEADER_DXT10.
	HeaderSize = 4 + DDS_HEADER_SIZE + 20
)

// ErrNoMipmaps is returned when a texture has nothing to write.
var ErrNoMipmaps = errors.New("texture has no decoded mipmaps")

// DXGIFormat maps a NUTEXB format to its DXGI_FORMAT.
func DXGIFormat(f nutexb.Format) (uint32, error) {
	switch f {
	case nutexb.R8G8B8A8_UNORM:
		return DXGI_FORMAT_R8G8B8A8_UNORM, nil
	case nutexb.R8G8B8A8_SRGB:
		return DXGI_FORMAT_R8G8B8A8_UNORM_SRGB, nil
	case nutexb.R32G32B32A32_FLOAT:
		return DXGI_FORMAT_R32G32B32A32_FLOAT, nil
	case nutexb.B8G8R8A8_UNORM:
		return DXGI_FORMAT_B8G8R8A8_UNORM, nil
	case nutexb.B8G8R8A8_SRGB:
		return DXGI_FORMAT_B8G8R8A8_UNORM_SRGB, nil
	case nutexb.BC1_UNORM:
		return DXGI_FORMAT_BC1_UNORM, nil
	case nutexb.BC1_SRGB:
		return DXGI_FORMAT_BC1_UNORM_SRGB, nil
	case nutexb.BC2_UNORM:
		return DXGI_FORMAT_BC2_UNORM, nil
	case nutexb.BC2_SRGB:
		return DXGI_FORMAT_BC2_UNORM_SRGB, nil
	case nutexb.BC3_UNORM:
		return DXGI_FORMAT_BC3_UNORM, nil
	case nutexb.BC3_SRGB:
		return DXGI_FORMAT_BC3_UNORM_SRGB, nil
	case nutexb.BC4_UNORM:
		return DXGI_FORMAT_BC4_UNORM, nil
	case nutexb.BC4_SNORM:
		return DXGI_FORMAT_BC4_SNORM, nil
	case nutexb.BC5_UNORM:
		return DXGI_FORMAT_BC5_UNORM, nil
	case nutexb.BC5_SNORM:
		return DXGI_FORMAT_BC5_SNORM, nil
	case nutexb.BC6_UFLOAT:
		return DXGI_FORMAT_BC6H_UF16, nil
	case nutexb.BC7_UNORM:
		return DXGI_FORMAT_BC7_UNORM, nil
	case nutexb.BC7_SRGB:
		return DXGI_FORMAT_BC7_UNORM_SRGB, nil
	default:
		return DXGI_FORMAT_UNKNOWN, &nutexb.UnsupportedFormatError{Format: f}
	}
}

// FormatName returns a human-readable name for a DXGI_FORMAT value.
func FormatName(format uint32) string {
	switch format {
	case DXGI_FORMAT_R32G32B32A32_FLOAT:
		return "R32G32B32A32_FLOAT"
	case DXGI_FORMAT_R8G8B8A8_UNORM:
		return "R8G8B8A8_UNORM"
	case DXGI_FORMAT_R8G8B8A8_UNORM_SRGB:
		return "R8G8B8A8_UNORM_SRGB"
	case DXGI_FORMAT_B8G8R8A8_UNORM:
		return "B8G8R8A8_UNORM"
	case DXGI_FORMAT_B8G8R8A8_UNORM_SRGB:
		return "B8G8R8A8_UNORM_SRGB"
	case DXGI_FORMAT_BC1_UNORM:
		return "BC1_UNORM"
	case DXGI_FORMAT_BC1_UNORM_SRGB:
		return "BC1_UNORM_SRGB"
	case DXGI_FORMAT_BC2_UNORM:
		return "BC2_UNORM"
	case DXGI_FORMAT_BC2_UNORM_SRGB:
		return "BC2_UNORM_SRGB"
	case DXGI_FORMAT_BC3_UNORM:
		return "BC3_UNORM"
	case DXGI_FORMAT_BC3_UNORM_SRGB:
		return "BC3_UNORM_SRGB"
	case DXGI_FORMAT_BC4_UNORM:
		return "BC4_UNORM"
	case DXGI_FORMAT_BC4_SNORM:
		return "BC4_SNORM"
	case DXGI_FORMAT_BC5_UNORM:
		return "BC5_UNORM"
	case DXGI_FORMAT_BC5_SNORM:
		return "BC5_SNORM"
	case DXGI_FORMAT_BC6H_UF16:
		return "BC6H_UF16"
	case DXGI_FORMAT_BC7_UNORM:
		return "BC7_UNORM"
	case DXGI_FORMAT_BC7_UNORM_SRGB:
		return "BC7_UNORM_SRGB"
	default:
		return fmt.Sprintf("UNKNOWN(0x%x)", format)
	}
}

// Header holds the DDS fields this package writes.
type Header struct {
	Width             uint32
	Height            uint32
	MipMapCount       uint32
	PitchOrLinearSize uint32
	Compressed        bool
	DXGIFormat        uint32
	ArraySize         uint32
}

// NewHeader describes mip 0 of t.
func NewHeader(t *nutexb.Texture) (*Header, error) {
	dxgi, err := DXGIFormat(t.Format)
	if err != nil {
		return nil, err
	}
	compressed, err := t.Format.IsCompressed()
	if err != nil {
		return nil, err
	}

	h := &Header{
		Width:       t.Width,
		Height:      t.Height,
		MipMapCount: 1,
		Compressed:  compressed,
		DXGIFormat:  dxgi,
		ArraySize:   1,
	}
	if compressed {
		size, err := t.Format.ImageSize(t.Width, t.Height)
		if err != nil {
			return nil, err
		}
		h.PitchOrLinearSize = uint32(size)
	} else {
		bpb, err := t.Format.BytesPerBlock()
		if err != nil {
			return nil, err
		}
		h.PitchOrLinearSize = t.Width * bpb
	}
	return h, nil
}

// MarshalBinary encodes the header to HeaderSize bytes.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	h.EncodeTo(buf)
	return buf, nil
}

// EncodeTo writes the header to buf, which must hold at least HeaderSize bytes.
func (h *Header) EncodeTo(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], DDS_MAGIC)

	flags := uint32(DDS_HEADER_FLAGS_CAPS | DDS_HEADER_FLAGS_HEIGHT | DDS_HEADER_FLAGS_WIDTH |
		DDS_HEADER_FLAGS_PIXELFORMAT)
	if h.Compressed {
		flags |= DDS_HEADER_FLAGS_LINEARSIZE
	} else {
		flags |= DDS_HEADER_FLAGS_PITCH
	}
	if h.MipMapCount > 1 {
		flags |= DDS_HEADER_FLAGS_MIPMAPCOUNT
	}

	binary.LittleEndian.PutUint32(buf[4:8], DDS_HEADER_SIZE)
	binary.LittleEndian.PutUint32(buf[8:12], flags)
	binary.LittleEndian.PutUint32(buf[12:16], h.Height)
	binary.LittleEndian.PutUint32(buf[16:20], h.Width)
	binary.LittleEndian.PutUint32(buf[20:24], h.PitchOrLinearSize)
	binary.LittleEndian.PutUint32(buf[24:28], 0) // depth
	binary.LittleEndian.PutUint32(buf[28:32], h.MipMapCount)
	// dwReserved1[11] at 32..76

	// DDS_PIXELFORMAT at 76
	binary.LittleEndian.PutUint32(buf[76:80], DDS_PIXELFORMAT_SIZE)
	binary.LittleEndian.PutUint32(buf[80:84], DDS_FOURCC)
	binary.LittleEndian.PutUint32(buf[84:88], DX10_FOURCC)
	// bit count and masks at 88..108 stay zero

	binary.LittleEndian.PutUint32(buf[108:112], DDS_SURFACE_FLAGS_TEXTURE)
	// dwCaps2..4 and dwReserved2 at 112..128

	// DDS_HEADER_DXT10 at 128
	binary.LittleEndian.PutUint32(buf[128:132], h.DXGIFormat)
	binary.LittleEndian.PutUint32(buf[132:136], 3) // D3D10_RESOURCE_DIMENSION_TEXTURE2D
	binary.LittleEndian.PutUint32(buf[136:140], 0)
	binary.LittleEndian.PutUint32(buf[140:144], h.ArraySize)
	binary.LittleEndian.PutUint32(buf[144:148], 0)
}

// UnmarshalBinary decodes a header written by EncodeTo.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("header data too short: need %d, got %d", HeaderSize, len(data))
	}
	if magic := binary.LittleEndian.Uint32(data[0:4]); magic != DDS_MAGIC {
		return fmt.Errorf("invalid magic: expected 0x%08X, got 0x%08X", DDS_MAGIC, magic)
	}
	if fourCC := binary.LittleEndian.Uint32(data[84:88]); fourCC != DX10_FOURCC {
		return fmt.Errorf("missing DX10 header: fourCC 0x%08X", fourCC)
	}

	flags := binary.LittleEndian.Uint32(data[8:12])
	h.Height = binary.LittleEndian.Uint32(data[12:16])
	h.Width = binary.LittleEndian.Uint32(data[16:20])
	h.PitchOrLinearSize = binary.LittleEndian.Uint32(data[20:24])
	h.MipMapCount = binary.LittleEndian.Uint32(data[28:32])
	h.Compressed = flags&DDS_HEADER_FLAGS_LINEARSIZE != 0
	h.DXGIFormat = binary.LittleEndian.Uint32(data[128:132])
	h.ArraySize = binary.LittleEndian.Uint32(data[140:144])
	return nil
}

// Write writes mip 0 of t as a DDS file.
func Write(w io.Writer, t *nutexb.Texture) error {
	if len(t.Mipmaps) == 0 {
		return ErrNoMipmaps
	}
	h, err := NewHeader(t)
	if err != nil {
		return fmt.Errorf("build header: %w", err)
	}

	buf, err := h.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal header: %w", err)
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := w.Write(t.Mipmaps[0]); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	return nil
}
