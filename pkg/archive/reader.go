package archive

import (
	"fmt"
	"io"

	"github.com/DataDog/zstd"

	"github.com/EchoTools/nutexTools/pkg/nutexb"
)

const (
	// DefaultCompressionLevel is the default compression level for encoding.
	DefaultCompressionLevel = zstd.BestSpeed
)

// Reader decompresses the mip data of one frame.
type Reader struct {
	header    *Header
	name      string
	zReader   io.ReadCloser
	headerBuf [HeaderSize]byte // Reusable buffer for header decoding
}

// NewReader reads and validates the frame header and name, then returns a
// reader for the decompressed mip.
func NewReader(r io.Reader) (*Reader, error) {
	reader := &Reader{
		header: &Header{},
	}

	if _, err := io.ReadFull(r, reader.headerBuf[:]); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	if err := reader.header.UnmarshalBinary(reader.headerBuf[:]); err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}

	name := make([]byte, reader.header.NameLength)
	if _, err := io.ReadFull(r, name); err != nil {
		return nil, fmt.Errorf("read name: %w", err)
	}
	reader.name = string(name)

	reader.zReader = zstd.NewReader(io.LimitReader(r, int64(reader.header.CompressedLength)))
	return reader, nil
}

// Header returns the frame header.
func (r *Reader) Header() *Header {
	return r.header
}

// Name returns the texture name stored in the frame.
func (r *Reader) Name() string {
	return r.name
}

// Read reads decompressed mip data into p.
func (r *Reader) Read(p []byte) (n int, err error) {
	return r.zReader.Read(p)
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.zReader.Close()
}

// ReadAll reads a complete frame back into a texture.
func ReadAll(r io.Reader) (*nutexb.Texture, error) {
	reader, err := NewReader(r)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	h := reader.Header()
	tex := &nutexb.Texture{
		Name:    reader.Name(),
		Width:   h.Width,
		Height:  h.Height,
		Depth:   h.Depth,
		Format:  h.Format,
		Mipmaps: [][]byte{},
	}
	if h.Length == 0 {
		return tex, nil
	}

	mip := make([]byte, h.Length)
	if _, err := io.ReadFull(reader, mip); err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	tex.Mipmaps = append(tex.Mipmaps, mip)
	return tex, nil
}
