// Package bcdec decodes deswizzled NUTEXB mip data into RGBA images.
//
// Supported: R8G8B8A8, B8G8R8A8, R32G32B32A32_FLOAT, BC1, BC2, BC3, BC4 and
// BC5. BC6H and BC7 are left to GPU upload or DDS export.
//
// sRGB formats are decoded without conversion: endpoints are interpolated in
// encoded space and written out as sRGB bytes.
package bcdec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/EchoTools/nutexTools/pkg/nutexb"
)

var (
	// ErrUnsupported is returned for formats with no software decoder.
	ErrUnsupported = errors.New("no software decoder for format")

	// ErrTruncated is returned when data is smaller than the image needs.
	ErrTruncated = errors.New("image data truncated")
)

// Decode converts one row-major mip of the given format to an NRGBA image.
func Decode(format nutexb.Format, width, height int, data []byte) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", width, height)
	}
	need, err := format.ImageSize(uint32(width), uint32(height))
	if err != nil {
		return nil, err
	}
	if len(data) < need {
		return nil, fmt.Errorf("%w: %s %dx%d needs %d bytes, got %d",
			ErrTruncated, format, width, height, need, len(data))
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	switch format {
	case nutexb.R8G8B8A8_UNORM, nutexb.R8G8B8A8_SRGB:
		copy(img.Pix, data[:need])
	case nutexb.B8G8R8A8_UNORM, nutexb.B8G8R8A8_SRGB:
		decodeBGRA(img, data)
	case nutexb.R32G32B32A32_FLOAT:
		decodeRGBA32F(img, data)
	case nutexb.BC1_UNORM, nutexb.BC1_SRGB:
		decodeBlocks(img, data, 8, decodeBC1Block)
	case nutexb.BC2_UNORM, nutexb.BC2_SRGB:
		decodeBlocks(img, data, 16, decodeBC2Block)
	case nutexb.BC3_UNORM, nutexb.BC3_SRGB:
		decodeBlocks(img, data, 16, decodeBC3Block)
	case nutexb.BC4_UNORM:
		decodeBlocks(img, data, 8, bc4Decoder(false))
	case nutexb.BC4_SNORM:
		decodeBlocks(img, data, 8, bc4Decoder(true))
	case nutexb.BC5_UNORM:
		decodeBlocks(img, data, 16, bc5Decoder(false))
	case nutexb.BC5_SNORM:
		decodeBlocks(img, data, 16, bc5Decoder(true))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, format)
	}
	return img, nil
}

// Supported reports whether Decode handles format.
func Supported(format nutexb.Format) bool {
	switch format {
	case nutexb.BC6_UFLOAT, nutexb.BC7_UNORM, nutexb.BC7_SRGB:
		return false
	}
	_, err := format.Geometry()
	return err == nil
}

func decodeBGRA(img *image.NRGBA, data []byte) {
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = data[i+2]
		img.Pix[i+1] = data[i+1]
		img.Pix[i+2] = data[i+0]
		img.Pix[i+3] = data[i+3]
	}
}

func decodeRGBA32F(img *image.NRGBA, data []byte) {
	for i := range img.Pix {
		v := math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		img.Pix[i] = unitToByte(v)
	}
}

func unitToByte(v float32) uint8 {
	if v != v || v <= 0 { // NaN or negative
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// blockDecoder expands one compressed block into 16 RGBA texels in row-major
// order.
type blockDecoder func(block []byte, out *[16][4]uint8)

func decodeBlocks(img *image.NRGBA, data []byte, blockSize int, decode blockDecoder) {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	blocksWide := (width + 3) / 4
	blocksHigh := (height + 3) / 4

	var texels [16][4]uint8
	offset := 0
	for by := 0; by < blocksHigh; by++ {
		for bx := 0; bx < blocksWide; bx++ {
			decode(data[offset:offset+blockSize], &texels)
			offset += blockSize

			for py := 0; py < 4; py++ {
				y := by*4 + py
				if y >= height {
					break
				}
				for px := 0; px < 4; px++ {
					x := bx*4 + px
					if x >= width {
						break
					}
					o := img.PixOffset(x, y)
					copy(img.Pix[o:o+4], texels[py*4+px][:])
				}
			}
		}
	}
}

func expand565(c uint16) [3]int {
	r := int(c>>11) & 0x1F
	g := int(c>>5) & 0x3F
	b := int(c) & 0x1F
	return [3]int{r<<3 | r>>2, g<<2 | g>>4, b<<3 | b>>2}
}

// colorPalette builds the four BC1 colors. BC2 and BC3 always use the
// four-color mode.
func colorPalette(block []byte, fourColor bool) [4][4]uint8 {
	c0 := binary.LittleEndian.Uint16(block[0:2])
	c1 := binary.LittleEndian.Uint16(block[2:4])
	e0, e1 := expand565(c0), expand565(c1)

	var p [4][4]uint8
	for i := 0; i < 3; i++ {
		p[0][i] = uint8(e0[i])
		p[1][i] = uint8(e1[i])
		if fourColor || c0 > c1 {
			p[2][i] = uint8((2*e0[i] + e1[i]) / 3)
			p[3][i] = uint8((e0[i] + 2*e1[i]) / 3)
		} else {
			p[2][i] = uint8((e0[i] + e1[i]) / 2)
		}
	}
	p[0][3], p[1][3], p[2][3] = 255, 255, 255
	if fourColor || c0 > c1 {
		p[3][3] = 255
	}
	return p
}

func decodeColor(block []byte, fourColor bool, out *[16][4]uint8) {
	palette := colorPalette(block, fourColor)
	indices := binary.LittleEndian.Uint32(block[4:8])
	for i := 0; i < 16; i++ {
		out[i] = palette[(indices>>(2*i))&3]
	}
}

func decodeBC1Block(block []byte, out *[16][4]uint8) {
	decodeColor(block, false, out)
}

func decodeBC2Block(block []byte, out *[16][4]uint8) {
	decodeColor(block[8:16], true, out)
	alpha := binary.LittleEndian.Uint64(block[0:8])
	for i := 0; i < 16; i++ {
		a := uint8(alpha>>(4*i)) & 0xF
		out[i][3] = a<<4 | a
	}
}

func decodeBC3Block(block []byte, out *[16][4]uint8) {
	decodeColor(block[8:16], true, out)
	var alpha [16]uint8
	decodeChannel(block[0:8], false, &alpha)
	for i := range alpha {
		out[i][3] = alpha[i]
	}
}

// decodeChannel decodes a BC3 alpha / BC4 block into 16 values.
func decodeChannel(block []byte, signed bool, out *[16]uint8) {
	palette := channelPalette(block[0], block[1], signed)
	var bits uint64
	for i := 0; i < 6; i++ {
		bits |= uint64(block[2+i]) << (8 * i)
	}
	for i := 0; i < 16; i++ {
		out[i] = palette[(bits>>(3*i))&7]
	}
}

func channelPalette(b0, b1 byte, signed bool) [8]uint8 {
	lo, hi := 0, 255
	r0, r1 := int(b0), int(b1)
	if signed {
		lo, hi = -127, 127
		r0, r1 = max(int(int8(b0)), -127), max(int(int8(b1)), -127)
	}

	var v [8]int
	v[0], v[1] = r0, r1
	if r0 > r1 {
		for i := 2; i < 8; i++ {
			v[i] = (r0*(8-i) + r1*(i-1)) / 7
		}
	} else {
		for i := 2; i < 6; i++ {
			v[i] = (r0*(6-i) + r1*(i-1)) / 5
		}
		v[6], v[7] = lo, hi
	}

	var p [8]uint8
	for i, x := range v {
		if signed {
			x = (x + 127) * 255 / 254
		}
		p[i] = uint8(x)
	}
	return p
}

func bc4Decoder(signed bool) blockDecoder {
	return func(block []byte, out *[16][4]uint8) {
		var r [16]uint8
		decodeChannel(block, signed, &r)
		for i := range r {
			out[i] = [4]uint8{r[i], r[i], r[i], 255}
		}
	}
}

func bc5Decoder(signed bool) blockDecoder {
	return func(block []byte, out *[16][4]uint8) {
		var r, g [16]uint8
		decodeChannel(block[0:8], signed, &r)
		decodeChannel(block[8:16], signed, &g)
		for i := range r {
			out[i] = [4]uint8{r[i], g[i], normalZ(r[i], g[i]), 255}
		}
	}
}

// normalZ reconstructs the Z component of a unit normal stored in X and Y.
func normalZ(r, g uint8) uint8 {
	x := float64(r)/127.5 - 1
	y := float64(g)/127.5 - 1
	z := 1 - x*x - y*y
	if z <= 0 {
		return 127
	}
	return uint8(math.Round((math.Sqrt(z) + 1) * 127.5))
}
