package nutexb

import (
	"fmt"

	"github.com/EchoTools/nutexTools/pkg/swizzle"
)

// Texture is a decoded NUTEXB file. Mipmaps holds row-major mip data in the
// texture's own format; only mip 0 is ever present.
type Texture struct {
	Name    string
	Width   uint32
	Height  uint32
	Depth   uint32
	Format  Format
	Mipmaps [][]byte
	Footer  *Footer
}

// Decode parses data as a complete NUTEXB file. Empty input yields an empty
// texture with no mipmaps.
func Decode(data []byte) (*Texture, error) {
	footer, err := ParseFooter(data)
	if err != nil {
		return nil, fmt.Errorf("read footer: %w", err)
	}
	if footer == nil {
		return &Texture{Mipmaps: [][]byte{}}, nil
	}

	blob, err := imageData(data, footer)
	if err != nil {
		return nil, err
	}

	mips, err := ExtractMipmaps(footer, blob)
	if err != nil {
		return nil, err
	}

	return &Texture{
		Name:    footer.Name,
		Width:   footer.Width,
		Height:  footer.Height,
		Depth:   footer.Depth,
		Format:  footer.Format,
		Mipmaps: mips,
		Footer:  footer,
	}, nil
}

// imageData returns the payload preceding the footer.
func imageData(data []byte, f *Footer) ([]byte, error) {
	payload := len(data) - FooterSize
	if int64(f.ImageSize) > int64(payload) {
		return nil, fmt.Errorf("read image data: %w",
			&TruncatedFileError{Size: len(data), Need: int(f.ImageSize) + FooterSize})
	}
	return data[:f.ImageSize], nil
}

// ExtractMipmaps deswizzles mip 0 of blob using the layout described by f and
// trims it to f.MipSizes[0]. Surface and alignment padding never reach the
// result.
//
// Exactly one mip is returned regardless of f.MipCount. A nil footer returns
// an empty slice.
func ExtractMipmaps(f *Footer, blob []byte) ([][]byte, error) {
	if f == nil {
		return [][]byte{}, nil
	}

	geom, err := f.Format.Geometry()
	if err != nil {
		return nil, err
	}
	bpb, err := f.Format.BytesPerBlock()
	if err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	heightInBlocks := swizzle.DivRoundUp(f.Height, geom.Height)
	params := swizzle.Params{
		Width:           f.Width,
		Height:          f.Height,
		BlockWidth:      geom.Width,
		BlockHeight:     geom.Height,
		BytesPerBlock:   bpb,
		TileMode:        swizzle.TileModeBlockLinear,
		BlockHeightLog2: swizzle.BlockHeightLog2(heightInBlocks),
	}

	deswizzled, err := swizzle.Deswizzle(params, blob)
	if err != nil {
		return nil, fmt.Errorf("deswizzle mip 0: %w", err)
	}

	size := int(f.MipSizes[0])
	if size > len(deswizzled) {
		return nil, fmt.Errorf("trim mip 0: %w",
			&swizzle.OutOfBoundsError{Offset: 0, Length: size, Size: len(deswizzled)})
	}

	mip := make([]byte, size)
	copy(mip, deswizzled)
	return [][]byte{mip}, nil
}
