// Package testutil builds NUTEXB fixtures for tests.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/EchoTools/nutexTools/pkg/nutexb"
	"github.com/EchoTools/nutexTools/pkg/swizzle"
)

// File describes a single-mip NUTEXB fixture.
type File struct {
	Name      string
	Width     uint32
	Height    uint32
	Format    nutexb.Format
	Alignment uint32

	// Linear is mip 0 in row-major block order. Pattern data is used when nil.
	Linear []byte

	// Edit, if set, is applied to the footer before it is encoded.
	Edit func(*nutexb.Footer)
}

// Pattern returns n bytes of non-repeating test data.
func Pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*13 + i/256)
	}
	return b
}

// Swizzle lays linear block data out in the layout described by p. It exists
// only to build fixtures.
//
// Block-linear output is built by walking the surface in memory order, one
// GOB at a time, and reading each byte from the pixel coordinates encoded in
// its offset. It shares no address code with the swizzle package.
func Swizzle(p swizzle.Params, linear []byte) []byte {
	pitch := int(swizzle.DivRoundUp(p.Width, p.BlockWidth) * p.BytesPerBlock)
	rows := int(swizzle.DivRoundUp(p.Height, p.BlockHeight))
	if p.TileMode == swizzle.TileModePitchLinear {
		return append([]byte(nil), linear[:pitch*rows]...)
	}

	gobsPerColumn := 1 << p.BlockHeightLog2
	widthInGOBs := (pitch + 63) / 64
	columns := (rows + 8*gobsPerColumn - 1) / (8 * gobsPerColumn)

	out := make([]byte, columns*widthInGOBs*gobsPerColumn*512)
	for m := range out {
		gob, o := m/512, m%512
		gy := gob % gobsPerColumn
		gx := gob / gobsPerColumn % widthInGOBs
		column := gob / (gobsPerColumn * widthInGOBs)

		// Offset bits within a GOB, low to high: x0-x3, y0, x4, y1-y2, x5.
		xb := o&0xf | (o>>5&1)<<4 | (o>>8&1)<<5
		yr := o>>4&1 | (o>>6&3)<<1

		x := gx*64 + xb
		y := (column*gobsPerColumn+gy)*8 + yr
		if x < pitch && y < rows {
			out[m] = linear[y*pitch+x]
		}
	}
	return out
}

// BuildFile returns the bytes of a NUTEXB file holding f and the linear mip 0
// that Decode is expected to return for it.
func BuildFile(tb testing.TB, f File) ([]byte, []byte) {
	tb.Helper()

	geom, err := f.Format.Geometry()
	require.NoError(tb, err)
	bpb, err := f.Format.BytesPerBlock()
	require.NoError(tb, err)
	size, err := f.Format.ImageSize(f.Width, f.Height)
	require.NoError(tb, err)

	linear := f.Linear
	if linear == nil {
		linear = Pattern(size)
	}
	require.Len(tb, linear, size, "linear data size")

	params := swizzle.Params{
		Width:           f.Width,
		Height:          f.Height,
		BlockWidth:      geom.Width,
		BlockHeight:     geom.Height,
		BytesPerBlock:   bpb,
		BlockHeightLog2: swizzle.BlockHeightLog2(swizzle.DivRoundUp(f.Height, geom.Height)),
	}
	image := Swizzle(params, linear)
	if f.Alignment > 0 && len(image)%int(f.Alignment) != 0 {
		pad := int(f.Alignment) - len(image)%int(f.Alignment)
		image = append(image, make([]byte, pad)...)
	}

	footer := &nutexb.Footer{
		TNXMagic:     nutexb.TNXMagic,
		Name:         f.Name,
		Width:        f.Width,
		Height:       f.Height,
		Depth:        1,
		Format:       f.Format,
		MipCount:     1,
		Alignment:    f.Alignment,
		ArrayCount:   1,
		ImageSize:    uint32(len(image)),
		TEXMagic:     nutexb.TEXMagic,
		MajorVersion: 1,
		MinorVersion: 2,
	}
	footer.MipSizes[0] = uint32(size)
	if f.Edit != nil {
		f.Edit(footer)
	}

	trailer, err := footer.MarshalBinary()
	require.NoError(tb, err)
	return append(image, trailer...), linear
}
