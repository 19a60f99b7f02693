// Package export writes decoded textures as PNG, WebP, TGA or DDS.
package export

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/draw"

	"github.com/EchoTools/nutexTools/pkg/bcdec"
	"github.com/EchoTools/nutexTools/pkg/dds"
	"github.com/EchoTools/nutexTools/pkg/nutexb"
)

// Kind is an output file format.
type Kind string

const (
	PNG  Kind = "png"
	WebP Kind = "webp"
	TGA  Kind = "tga"
	DDS  Kind = "dds"
)

// ErrUnknownKind is returned by ParseKind for unrecognized names.
var ErrUnknownKind = errors.New("unknown export format")

// ParseKind parses a format name such as "png" or ".webp".
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimPrefix(s, ".")))
	switch k {
	case PNG, WebP, TGA, DDS:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Ext returns the file extension including the dot.
func (k Kind) Ext() string {
	return "." + string(k)
}

// ContentType returns the MIME type for k.
func (k Kind) ContentType() string {
	switch k {
	case PNG:
		return "image/png"
	case WebP:
		return "image/webp"
	case TGA:
		return "image/x-tga"
	default:
		return "application/octet-stream"
	}
}

type options struct {
	maxSize int
}

// Option configures an export.
type Option func(*options)

// WithMaxSize downscales images whose larger side exceeds n pixels, keeping
// the aspect ratio. It has no effect on DDS output.
func WithMaxSize(n int) Option {
	return func(o *options) {
		o.maxSize = n
	}
}

// Encode writes img to w in the given image format.
func Encode(w io.Writer, img *image.NRGBA, kind Kind, opts ...Option) error {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	img = Fit(img, o.maxSize)

	switch kind {
	case PNG:
		return png.Encode(w, img)
	case WebP:
		return nativewebp.Encode(w, img, nil)
	case TGA:
		return tga.Encode(w, img)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Texture writes mip 0 of t. DDS output carries the mip unchanged; every
// other kind is decoded through bcdec first.
func Texture(w io.Writer, t *nutexb.Texture, kind Kind, opts ...Option) error {
	if kind == DDS {
		return dds.Write(w, t)
	}
	img, err := Image(t)
	if err != nil {
		return err
	}
	return Encode(w, img, kind, opts...)
}

// Image decodes mip 0 of t to an NRGBA image.
func Image(t *nutexb.Texture) (*image.NRGBA, error) {
	if len(t.Mipmaps) == 0 {
		return nil, dds.ErrNoMipmaps
	}
	img, err := bcdec.Decode(t.Format, int(t.Width), int(t.Height), t.Mipmaps[0])
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", t.Format, err)
	}
	return img, nil
}

// Fit scales img down so that neither side exceeds maxSize. Images already
// within bounds, or maxSize <= 0, are returned unchanged.
func Fit(img *image.NRGBA, maxSize int) *image.NRGBA {
	b := img.Bounds()
	if maxSize <= 0 || (b.Dx() <= maxSize && b.Dy() <= maxSize) {
		return img
	}

	w, h := maxSize, maxSize
	if b.Dx() > b.Dy() {
		h = max(1, b.Dy()*maxSize/b.Dx())
	} else {
		w = max(1, b.Dx()*maxSize/b.Dy())
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
