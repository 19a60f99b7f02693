package archive

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EchoTools/nutexTools/pkg/nutexb"
)

func testTexture() *nutexb.Texture {
	mip := make([]byte, 64*64)
	for i := range mip {
		mip[i] = byte(i % 97)
	}
	return &nutexb.Texture{
		Name:    "model_body_col",
		Width:   128,
		Height:  128,
		Depth:   1,
		Format:  nutexb.BC1_SRGB,
		Mipmaps: [][]byte{mip},
	}
}

// encodeToFile writes a frame to a temp file, optionally after a prefix, and
// returns the file contents.
func encodeToFile(t *testing.T, prefix []byte, tex *nutexb.Texture) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frame")
	f, err := os.Create(path)
	require.NoError(t, err)
	_, err = f.Write(prefix)
	require.NoError(t, err)
	require.NoError(t, Encode(f, tex))
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestHeader(t *testing.T) {
	t.Run("MarshalUnmarshal", func(t *testing.T) {
		original := NewHeader(testTexture())
		original.CompressedLength = 512

		data, err := original.MarshalBinary()
		require.NoError(t, err)
		require.Len(t, data, HeaderSize)

		decoded := &Header{}
		require.NoError(t, decoded.UnmarshalBinary(data))
		assert.Equal(t, *original, *decoded)
	})

	t.Run("InvalidMagic", func(t *testing.T) {
		h := NewHeader(testTexture())
		h.Magic = [4]byte{}
		assert.Error(t, h.Validate())
	})

	t.Run("InvalidVersion", func(t *testing.T) {
		h := NewHeader(testTexture())
		h.Version = 9
		assert.Error(t, h.Validate())
	})

	t.Run("ZeroCompressedLength", func(t *testing.T) {
		h := NewHeader(testTexture())
		assert.Error(t, h.Validate())
	})

	t.Run("Short", func(t *testing.T) {
		assert.Error(t, (&Header{}).UnmarshalBinary(make([]byte, 8)))
	})
}

func TestEncodeReadAll(t *testing.T) {
	tex := testTexture()
	data := encodeToFile(t, nil, tex)

	decoded, err := ReadAll(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, tex.Name, decoded.Name)
	assert.Equal(t, tex.Width, decoded.Width)
	assert.Equal(t, tex.Height, decoded.Height)
	assert.Equal(t, tex.Depth, decoded.Depth)
	assert.Equal(t, tex.Format, decoded.Format)
	assert.Equal(t, tex.Mipmaps, decoded.Mipmaps)

	var h Header
	require.NoError(t, h.UnmarshalBinary(data))
	assert.Equal(t, uint64(len(data)-HeaderSize-len(tex.Name)), h.CompressedLength)
	assert.Less(t, int(h.CompressedLength), len(tex.Mipmaps[0]))
}

func TestEncodeAtOffset(t *testing.T) {
	prefix := []byte("leading bytes")
	tex := testTexture()
	data := encodeToFile(t, prefix, tex)

	assert.Equal(t, prefix, data[:len(prefix)])
	decoded, err := ReadAll(bytes.NewReader(data[len(prefix):]))
	require.NoError(t, err)
	assert.Equal(t, tex.Mipmaps, decoded.Mipmaps)
}

func TestEncodeNoMipmaps(t *testing.T) {
	tex := &nutexb.Texture{Name: "empty", Mipmaps: [][]byte{}}
	data := encodeToFile(t, nil, tex)

	decoded, err := ReadAll(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "empty", decoded.Name)
	assert.Empty(t, decoded.Mipmaps)
}

func TestReader(t *testing.T) {
	tex := testTexture()
	data := encodeToFile(t, nil, tex)

	r, err := NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, tex.Name, r.Name())
	assert.Equal(t, uint64(len(tex.Mipmaps[0])), r.Header().Length)

	content, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, tex.Mipmaps[0], content)
}

func TestReadAllTruncated(t *testing.T) {
	data := encodeToFile(t, nil, testTexture())

	_, err := ReadAll(bytes.NewReader(data[:HeaderSize+4]))
	assert.Error(t, err)

	_, err = ReadAll(bytes.NewReader(data[:10]))
	assert.Error(t, err)
}
