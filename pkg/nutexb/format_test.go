package nutexb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTable(t *testing.T) {
	tests := []struct {
		format     Format
		geom       Geometry
		bpb        uint32
		compressed bool
	}{
		{R8G8B8A8_UNORM, Geometry{1, 1}, 4, false},
		{R8G8B8A8_SRGB, Geometry{1, 1}, 4, false},
		{R32G32B32A32_FLOAT, Geometry{1, 1}, 16, false},
		{B8G8R8A8_UNORM, Geometry{1, 1}, 4, false},
		{B8G8R8A8_SRGB, Geometry{1, 1}, 4, false},
		{BC1_UNORM, Geometry{4, 4}, 8, true},
		{BC1_SRGB, Geometry{4, 4}, 8, true},
		{BC2_UNORM, Geometry{4, 4}, 16, true},
		{BC3_SRGB, Geometry{4, 4}, 16, true},
		{BC4_UNORM, Geometry{4, 4}, 8, true},
		{BC4_SNORM, Geometry{4, 4}, 8, true},
		{BC5_UNORM, Geometry{4, 4}, 16, true},
		{BC6_UFLOAT, Geometry{4, 4}, 16, true},
		{BC7_SRGB, Geometry{4, 4}, 16, true},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			geom, err := tt.format.Geometry()
			require.NoError(t, err)
			assert.Equal(t, tt.geom, geom)

			bpb, err := tt.format.BytesPerBlock()
			require.NoError(t, err)
			assert.Equal(t, tt.bpb, bpb)

			compressed, err := tt.format.IsCompressed()
			require.NoError(t, err)
			assert.Equal(t, tt.compressed, compressed)
		})
	}
}

func TestFormatTableComplete(t *testing.T) {
	for _, f := range Formats {
		_, err := f.Geometry()
		assert.NoError(t, err, f.String())
		_, err = f.BytesPerBlock()
		assert.NoError(t, err, f.String())
		_, err = f.UploadFormat()
		assert.NoError(t, err, f.String())
	}
}

func TestFormatUnsupported(t *testing.T) {
	f := Format(0xFF)

	_, err := f.Geometry()
	var unsupported *UnsupportedFormatError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, f, unsupported.Format)

	_, err = f.BytesPerBlock()
	assert.ErrorAs(t, err, &unsupported)
	_, err = f.IsCompressed()
	assert.ErrorAs(t, err, &unsupported)
	_, err = f.UploadFormat()
	assert.ErrorAs(t, err, &unsupported)

	assert.Equal(t, "UNKNOWN(0xff)", f.String())
	assert.False(t, f.IsSRGB())
}

func TestFormatImageSize(t *testing.T) {
	tests := []struct {
		format        Format
		width, height uint32
		want          int
	}{
		{R8G8B8A8_UNORM, 8, 8, 256},
		{R32G32B32A32_FLOAT, 3, 3, 144},
		{BC1_UNORM, 512, 512, 128 * 128 * 8},
		{BC7_UNORM, 513, 513, 129 * 129 * 16},
		{BC4_UNORM, 1, 1, 8},
	}

	for _, tt := range tests {
		got, err := tt.format.ImageSize(tt.width, tt.height)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s %dx%d", tt.format, tt.width, tt.height)
	}
}

func TestFormatImageSizeOverflow(t *testing.T) {
	_, err := R32G32B32A32_FLOAT.ImageSize(1<<30, 1<<30)
	assert.ErrorIs(t, err, ErrInvalidFooter)

	got, err := BC1_UNORM.ImageSize(0xFFFFFFFF, 4)
	require.NoError(t, err)
	assert.Equal(t, 0x40000000*8, got)
}

func TestCheckExtensions(t *testing.T) {
	none := func(string) bool { return false }
	all := func(string) bool { return true }

	assert.NoError(t, CheckExtensions(R8G8B8A8_UNORM, none))
	assert.NoError(t, CheckExtensions(BC7_UNORM, all))

	err := CheckExtensions(BC7_SRGB, none)
	var missing *MissingExtensionError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, ExtBPTC, missing.Extension)

	err = CheckExtensions(BC5_UNORM, func(ext string) bool { return ext == ExtS3TC })
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, ExtRGTC, missing.Extension)
}

func TestUploadFormat(t *testing.T) {
	u, err := B8G8R8A8_SRGB.UploadFormat()
	require.NoError(t, err)
	assert.Equal(t, "GL_BGRA", u.PixelFormat)
	assert.True(t, u.SRGB)
	assert.False(t, u.Compressed)

	u, err = BC1_UNORM.UploadFormat()
	require.NoError(t, err)
	assert.True(t, u.Compressed)
	assert.Empty(t, u.PixelFormat)
	assert.Equal(t, ExtS3TC, u.Extension)
}

func TestUploadFormatSRGB(t *testing.T) {
	for _, f := range Formats {
		u, err := f.UploadFormat()
		require.NoError(t, err)
		assert.Equal(t, f.IsSRGB(), u.SRGB, f.String())
	}
	assert.True(t, BC7_SRGB.IsSRGB())
	assert.False(t, BC7_UNORM.IsSRGB())
}
