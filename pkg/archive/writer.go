package archive

import (
	"fmt"
	"io"

	"github.com/DataDog/zstd"

	"github.com/EchoTools/nutexTools/pkg/nutexb"
)

// Writer compresses mip data into a frame written to an io.WriteSeeker.
type Writer struct {
	dst     io.WriteSeeker
	zWriter *zstd.Writer
	header  *Header
	start   int64
	level   int
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithCompressionLevel sets the compression level for the writer.
func WithCompressionLevel(level int) WriterOption {
	return func(w *Writer) {
		w.level = level
	}
}

// NewWriter writes the header and name of t to dst and returns a writer for
// its mip data.
func NewWriter(dst io.WriteSeeker, t *nutexb.Texture, opts ...WriterOption) (*Writer, error) {
	w := &Writer{
		dst:    dst,
		level:  DefaultCompressionLevel,
		header: NewHeader(t),
	}

	for _, opt := range opts {
		opt(w)
	}

	start, err := dst.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("get position: %w", err)
	}
	w.start = start

	// Write placeholder header
	headerBytes, err := w.header.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal header: %w", err)
	}
	if _, err := dst.Write(headerBytes); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if _, err := io.WriteString(dst, t.Name); err != nil {
		return nil, fmt.Errorf("write name: %w", err)
	}

	w.zWriter = zstd.NewWriterLevel(dst, w.level)
	return w, nil
}

// Write writes compressed data.
func (w *Writer) Write(p []byte) (n int, err error) {
	return w.zWriter.Write(p)
}

// Close finalizes the frame by updating the header with the compressed size.
func (w *Writer) Close() error {
	if err := w.zWriter.Close(); err != nil {
		return fmt.Errorf("close compressor: %w", err)
	}

	pos, err := w.dst.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("get position: %w", err)
	}

	dataStart := w.start + int64(w.header.Size()) + int64(w.header.NameLength)
	w.header.CompressedLength = uint64(pos - dataStart)

	if _, err := w.dst.Seek(w.start, io.SeekStart); err != nil {
		return fmt.Errorf("seek to start: %w", err)
	}

	headerBytes, err := w.header.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal header: %w", err)
	}

	if _, err := w.dst.Write(headerBytes); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	// Seek back to end
	if _, err := w.dst.Seek(pos, io.SeekStart); err != nil {
		return fmt.Errorf("seek to end: %w", err)
	}

	return nil
}

// Encode compresses mip 0 of t and writes it as a frame to dst.
func Encode(dst io.WriteSeeker, t *nutexb.Texture, opts ...WriterOption) error {
	w, err := NewWriter(dst, t, opts...)
	if err != nil {
		return err
	}

	if len(t.Mipmaps) > 0 {
		if _, err := w.Write(t.Mipmaps[0]); err != nil {
			return fmt.Errorf("write data: %w", err)
		}
	}

	return w.Close()
}
