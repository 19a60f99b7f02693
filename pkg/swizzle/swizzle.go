// Package swizzle reverses the Tegra X1 block-linear surface layout used by
// Nintendo Switch textures.
//
// Block-linear surfaces are built from GOBs (groups of bytes): 64 bytes wide by
// 8 rows tall, 512 bytes each. GOBs are stacked vertically in columns of
// 2^BlockHeightLog2 before the layout advances to the next column. Within a GOB
// the bytes are further interleaved in 16x2 byte sectors.
package swizzle

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
)

// GOB geometry.
const (
	GOBWidth  = 64  // bytes
	GOBHeight = 8   // rows
	GOBSize   = 512 // GOBWidth * GOBHeight

	// MaxBlockHeight is the largest number of GOBs stacked in one column.
	MaxBlockHeight = 16
)

// TileMode selects the surface layout.
type TileMode uint32

const (
	TileModeBlockLinear TileMode = 0
	TileModePitchLinear TileMode = 1
)

var (
	// ErrUnsupportedMipLevel is returned for any mip level other than 0.
	ErrUnsupportedMipLevel = errors.New("only mip level 0 can be deswizzled")

	// ErrUnsupportedTileMode is returned for tile modes other than block or pitch linear.
	ErrUnsupportedTileMode = errors.New("unsupported tile mode")

	// ErrInvalidParams is returned when a surface dimension or block size is
	// zero, or the image is too large to address.
	ErrInvalidParams = errors.New("invalid surface parameters")
)

// OutOfBoundsError reports a block whose source address lies past the end of
// the swizzled input.
type OutOfBoundsError struct {
	Offset int // source offset of the block
	Length int // bytes needed at Offset
	Size   int // length of the source buffer
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("swizzled read out of bounds: need [%d:%d], source is %d bytes",
		e.Offset, e.Offset+e.Length, e.Size)
}

// Params describes one surface to deswizzle. Width and Height are in pixels;
// BlockWidth and BlockHeight give the pixel footprint of one block unit, which
// is 1x1 for uncompressed formats and 4x4 for BCn.
type Params struct {
	Width           uint32
	Height          uint32
	BlockWidth      uint32
	BlockHeight     uint32
	MipLevel        uint32
	BytesPerBlock   uint32
	TileMode        TileMode
	BlockHeightLog2 uint32
}

func (p Params) validate() error {
	if p.Width == 0 || p.Height == 0 || p.BlockWidth == 0 || p.BlockHeight == 0 || p.BytesPerBlock == 0 {
		return fmt.Errorf("%w: %dx%d, block %dx%d, %d bytes per block", ErrInvalidParams,
			p.Width, p.Height, p.BlockWidth, p.BlockHeight, p.BytesPerBlock)
	}
	if p.MipLevel != 0 {
		return fmt.Errorf("%w: got %d", ErrUnsupportedMipLevel, p.MipLevel)
	}
	if p.BlockHeightLog2 > 5 {
		return fmt.Errorf("%w: block height log2 %d", ErrInvalidParams, p.BlockHeightLog2)
	}
	return nil
}

// DivRoundUp divides n by d, rounding up.
func DivRoundUp(n, d uint32) uint32 {
	q := n / d
	if n%d != 0 {
		q++
	}
	return q
}

// linearSize returns w*h*bpb, failing when it does not fit in an int.
func linearSize(w, h, bpb uint64) (int, error) {
	hi, n := bits.Mul64(w, h)
	if hi == 0 {
		hi, n = bits.Mul64(n, bpb)
	}
	if hi != 0 || n > math.MaxInt {
		return 0, fmt.Errorf("%w: %dx%d blocks of %d bytes overflow", ErrInvalidParams, w, h, bpb)
	}
	return int(n), nil
}

func pow2RoundUp(x uint32) uint32 {
	if x == 0 {
		return 0
	}
	return 1 << bits.Len32(x-1)
}

// BlockHeight returns the number of GOBs stacked per column for a surface
// that is heightInBlocks block rows tall.
func BlockHeight(heightInBlocks uint32) uint32 {
	h := pow2RoundUp(heightInBlocks / GOBHeight)
	if h > MaxBlockHeight {
		return MaxBlockHeight
	}
	if h == 0 {
		return 1
	}
	return h
}

// BlockHeightLog2 returns log2 of BlockHeight(heightInBlocks).
func BlockHeightLog2(heightInBlocks uint32) uint32 {
	return uint32(bits.Len32(BlockHeight(heightInBlocks)) - 1)
}

// BlockLinearAddress returns the byte offset of block (x, y) in a block-linear
// surface that is widthInBlocks blocks wide.
func BlockLinearAddress(x, y, widthInBlocks, bytesPerBlock, blockHeight int) int {
	widthInGOBs := (widthInBlocks*bytesPerBlock + GOBWidth - 1) / GOBWidth
	columnHeight := GOBHeight * blockHeight

	addr := (y/columnHeight)*GOBSize*blockHeight*widthInGOBs +
		(x*bytesPerBlock/GOBWidth)*GOBSize*blockHeight +
		(y%columnHeight/GOBHeight)*GOBSize

	xb := x * bytesPerBlock
	return addr +
		(xb%64)/32*256 +
		(y%8)/2*64 +
		(xb%32)/16*32 +
		(y%2)*16 +
		xb%16
}

// Deswizzle converts src from the layout described by p into row-major block
// order. The result holds exactly the image blocks, w*h*BytesPerBlock bytes,
// with no surface padding.
func Deswizzle(p Params, src []byte) ([]byte, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if p.TileMode != TileModeBlockLinear && p.TileMode != TileModePitchLinear {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedTileMode, p.TileMode)
	}

	bw := DivRoundUp(p.Width, p.BlockWidth)
	bh := DivRoundUp(p.Height, p.BlockHeight)
	size, err := linearSize(uint64(bw), uint64(bh), uint64(p.BytesPerBlock))
	if err != nil {
		return nil, err
	}
	// Blocks map to disjoint source bytes, so a shorter source cannot hold them.
	if size > len(src) {
		return nil, &OutOfBoundsError{Offset: 0, Length: size, Size: len(src)}
	}

	w, h := int(bw), int(bh)
	bpb := int(p.BytesPerBlock)
	blockHeight := 1 << p.BlockHeightLog2
	pitch := w * bpb

	dst := make([]byte, size)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var pos int
			if p.TileMode == TileModePitchLinear {
				pos = y*pitch + x*bpb
			} else {
				pos = BlockLinearAddress(x, y, w, bpb, blockHeight)
			}
			if pos+bpb > len(src) {
				return nil, &OutOfBoundsError{Offset: pos, Length: bpb, Size: len(src)}
			}
			out := (y*w + x) * bpb
			copy(dst[out:out+bpb], src[pos:pos+bpb])
		}
	}
	return dst, nil
}
