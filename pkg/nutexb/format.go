package nutexb

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/EchoTools/nutexTools/pkg/swizzle"
)

// Format is the texture format code stored in the NUTEXB footer.
type Format uint8

const (
	R8G8B8A8_UNORM     Format = 0x00
	R8G8B8A8_SRGB      Format = 0x05
	R32G32B32A32_FLOAT Format = 0x34
	B8G8R8A8_UNORM     Format = 0x50
	B8G8R8A8_SRGB      Format = 0x55
	BC1_UNORM          Format = 0x80
	BC1_SRGB           Format = 0x85
	BC2_UNORM          Format = 0x90
	BC2_SRGB           Format = 0x95
	BC3_UNORM          Format = 0xa0
	BC3_SRGB           Format = 0xa5
	BC4_UNORM          Format = 0xb0
	BC4_SNORM          Format = 0xb5
	BC5_UNORM          Format = 0xc0
	BC5_SNORM          Format = 0xc5
	BC6_UFLOAT         Format = 0xd7
	BC7_UNORM          Format = 0xe0
	BC7_SRGB           Format = 0xe5
)

// Formats lists every supported format in code order.
var Formats = []Format{
	R8G8B8A8_UNORM, R8G8B8A8_SRGB, R32G32B32A32_FLOAT, B8G8R8A8_UNORM, B8G8R8A8_SRGB,
	BC1_UNORM, BC1_SRGB, BC2_UNORM, BC2_SRGB, BC3_UNORM, BC3_SRGB,
	BC4_UNORM, BC4_SNORM, BC5_UNORM, BC5_SNORM, BC6_UFLOAT, BC7_UNORM, BC7_SRGB,
}

// Geometry is the pixel footprint of one block unit.
type Geometry struct {
	Width  uint32
	Height uint32
}

var (
	texelGeometry = Geometry{Width: 1, Height: 1}
	blockGeometry = Geometry{Width: 4, Height: 4}
)

// formatInfo is one row of the format table.
type formatInfo struct {
	name          string
	bytesPerBlock uint32
	compressed    bool
	srgb          bool
}

func (f Format) info() (formatInfo, error) {
	switch f {
	case R8G8B8A8_UNORM:
		return formatInfo{"R8G8B8A8_UNORM", 4, false, false}, nil
	case R8G8B8A8_SRGB:
		return formatInfo{"R8G8B8A8_SRGB", 4, false, true}, nil
	case R32G32B32A32_FLOAT:
		return formatInfo{"R32G32B32A32_FLOAT", 16, false, false}, nil
	case B8G8R8A8_UNORM:
		return formatInfo{"B8G8R8A8_UNORM", 4, false, false}, nil
	case B8G8R8A8_SRGB:
		return formatInfo{"B8G8R8A8_SRGB", 4, false, true}, nil
	case BC1_UNORM:
		return formatInfo{"BC1_UNORM", 8, true, false}, nil
	case BC1_SRGB:
		return formatInfo{"BC1_SRGB", 8, true, true}, nil
	case BC2_UNORM:
		return formatInfo{"BC2_UNORM", 16, true, false}, nil
	case BC2_SRGB:
		return formatInfo{"BC2_SRGB", 16, true, true}, nil
	case BC3_UNORM:
		return formatInfo{"BC3_UNORM", 16, true, false}, nil
	case BC3_SRGB:
		return formatInfo{"BC3_SRGB", 16, true, true}, nil
	case BC4_UNORM:
		return formatInfo{"BC4_UNORM", 8, true, false}, nil
	case BC4_SNORM:
		return formatInfo{"BC4_SNORM", 8, true, false}, nil
	case BC5_UNORM:
		return formatInfo{"BC5_UNORM", 16, true, false}, nil
	case BC5_SNORM:
		return formatInfo{"BC5_SNORM", 16, true, false}, nil
	case BC6_UFLOAT:
		return formatInfo{"BC6_UFLOAT", 16, true, false}, nil
	case BC7_UNORM:
		return formatInfo{"BC7_UNORM", 16, true, false}, nil
	case BC7_SRGB:
		return formatInfo{"BC7_SRGB", 16, true, true}, nil
	default:
		return formatInfo{}, &UnsupportedFormatError{Format: f}
	}
}

// String returns the format name, or UNKNOWN(0x..) for unmapped codes.
func (f Format) String() string {
	info, err := f.info()
	if err != nil {
		return fmt.Sprintf("UNKNOWN(0x%02x)", uint8(f))
	}
	return info.name
}

// Geometry returns the block footprint in pixels.
func (f Format) Geometry() (Geometry, error) {
	info, err := f.info()
	if err != nil {
		return Geometry{}, err
	}
	if info.compressed {
		return blockGeometry, nil
	}
	return texelGeometry, nil
}

// BytesPerBlock returns the size of one block unit: one texel for
// uncompressed formats, one 4x4 block for BCn.
func (f Format) BytesPerBlock() (uint32, error) {
	info, err := f.info()
	if err != nil {
		return 0, err
	}
	return info.bytesPerBlock, nil
}

// IsCompressed reports whether f is a block-compressed format.
func (f Format) IsCompressed() (bool, error) {
	info, err := f.info()
	if err != nil {
		return false, err
	}
	return info.compressed, nil
}

// IsSRGB reports whether f stores sRGB encoded color.
func (f Format) IsSRGB() bool {
	info, err := f.info()
	return err == nil && info.srgb
}

// ImageSize returns the byte size of a width x height image in format f,
// rounding partial blocks up.
func (f Format) ImageSize(width, height uint32) (int, error) {
	geom, err := f.Geometry()
	if err != nil {
		return 0, err
	}
	bpb, err := f.BytesPerBlock()
	if err != nil {
		return 0, err
	}
	bw := uint64(swizzle.DivRoundUp(width, geom.Width))
	bh := uint64(swizzle.DivRoundUp(height, geom.Height))
	hi, n := bits.Mul64(bw, bh)
	if hi == 0 {
		hi, n = bits.Mul64(n, uint64(bpb))
	}
	if hi != 0 || n > math.MaxInt {
		return 0, fmt.Errorf("%w: %s image %dx%d is too large", ErrInvalidFooter, f, width, height)
	}
	return int(n), nil
}
