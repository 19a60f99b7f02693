package nutexb

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFooter(t *testing.T) {
	buf := make([]byte, 64+FooterSize)
	tail := buf[64:]
	binary.LittleEndian.PutUint32(tail[0x00:], 4096) // mip 0
	binary.LittleEndian.PutUint32(tail[0x04:], 1024) // mip 1
	copy(tail[0x40:], " XNT")
	copy(tail[0x44:], "chara_0_col")
	binary.LittleEndian.PutUint32(tail[0x84:], 64)
	binary.LittleEndian.PutUint32(tail[0x88:], 32)
	binary.LittleEndian.PutUint32(tail[0x8C:], 1)
	tail[0x90] = byte(BC7_SRGB)
	binary.LittleEndian.PutUint32(tail[0x98:], 2)
	binary.LittleEndian.PutUint32(tail[0x9C:], 0x1000)
	binary.LittleEndian.PutUint32(tail[0xA0:], 1)
	binary.LittleEndian.PutUint32(tail[0xA4:], 0x2000)
	copy(tail[0xA8:], " XET")
	binary.LittleEndian.PutUint16(tail[0xAC:], 1)
	binary.LittleEndian.PutUint16(tail[0xAE:], 2)

	f, err := ParseFooter(buf)
	require.NoError(t, err)
	require.NotNil(t, f)

	assert.Equal(t, uint32(4096), f.MipSizes[0])
	assert.Equal(t, uint32(1024), f.MipSizes[1])
	assert.Equal(t, uint32(0), f.MipSizes[15])
	assert.Equal(t, TNXMagic, f.TNXMagic)
	assert.Equal(t, "chara_0_col", f.Name)
	assert.Equal(t, uint32(64), f.Width)
	assert.Equal(t, uint32(32), f.Height)
	assert.Equal(t, uint32(1), f.Depth)
	assert.Equal(t, BC7_SRGB, f.Format)
	assert.Equal(t, uint32(2), f.MipCount)
	assert.Equal(t, uint32(0x1000), f.Alignment)
	assert.Equal(t, uint32(1), f.ArrayCount)
	assert.Equal(t, uint32(0x2000), f.ImageSize)
	assert.Equal(t, TEXMagic, f.TEXMagic)
	assert.Equal(t, uint16(1), f.MajorVersion)
	assert.Equal(t, uint16(2), f.MinorVersion)
}

func TestParseFooterEmpty(t *testing.T) {
	f, err := ParseFooter(nil)
	assert.NoError(t, err)
	assert.Nil(t, f)

	f, err = ParseFooter([]byte{})
	assert.NoError(t, err)
	assert.Nil(t, f)
}

func TestParseFooterTruncated(t *testing.T) {
	for _, n := range []int{1, 100, FooterSize - 1} {
		_, err := ParseFooter(make([]byte, n))
		var truncated *TruncatedFileError
		require.ErrorAs(t, err, &truncated, "length %d", n)
		assert.Equal(t, n, truncated.Size)
		assert.Equal(t, FooterSize, truncated.Need)
	}
}

func TestParseFooterUncheckedMagic(t *testing.T) {
	buf := make([]byte, FooterSize)
	copy(buf[0x40:], "JUNK")
	copy(buf[0xA8:], "MORE")

	f, err := ParseFooter(buf)
	require.NoError(t, err)
	assert.Equal(t, [4]byte{'J', 'U', 'N', 'K'}, f.TNXMagic)
}

func TestDecodeName(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"plain", "plain"},
		{"Hello\x00\x00World\x00\x00\x00", "HelloWorld"},
		{"\x00\x00lead", "lead"},
		{"", ""},
	}

	for _, tt := range tests {
		raw := make([]byte, nameSize)
		copy(raw, tt.raw)
		assert.Equal(t, tt.want, decodeName(raw))
	}
}

func TestFooterRoundTrip(t *testing.T) {
	original := &Footer{
		TNXMagic:     TNXMagic,
		Name:         "stage_floor_nor",
		Width:        1024,
		Height:       512,
		Depth:        1,
		Format:       BC5_UNORM,
		MipCount:     11,
		Alignment:    0x200,
		ArrayCount:   1,
		ImageSize:    699048,
		TEXMagic:     TEXMagic,
		MajorVersion: 1,
		MinorVersion: 2,
	}
	original.MipSizes[0] = 524288

	data, err := original.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, FooterSize)

	parsed, err := ParseFooter(data)
	require.NoError(t, err)
	assert.Equal(t, original, parsed)
}

func TestFooterMarshalLongName(t *testing.T) {
	f := &Footer{Name: string(make([]byte, nameSize+1))}
	_, err := f.MarshalBinary()
	assert.Error(t, err)
}

func TestFooterValidate(t *testing.T) {
	valid := Footer{Width: 4, Height: 4, Depth: 1, MipCount: 1}
	assert.NoError(t, valid.Validate())

	for name, edit := range map[string]func(*Footer){
		"ZeroWidth":  func(f *Footer) { f.Width = 0 },
		"ZeroHeight": func(f *Footer) { f.Height = 0 },
		"ZeroDepth":  func(f *Footer) { f.Depth = 0 },
		"TooManyMip": func(f *Footer) { f.MipCount = MaxMipmaps + 1 },
	} {
		t.Run(name, func(t *testing.T) {
			f := valid
			edit(&f)
			assert.ErrorIs(t, f.Validate(), ErrInvalidFooter)
		})
	}
}

func TestAlignedMipSize(t *testing.T) {
	f := &Footer{Alignment: 512}
	f.MipSizes[0] = 256
	f.MipSizes[1] = 1024
	assert.Equal(t, uint32(512), f.AlignedMipSize(0))
	assert.Equal(t, uint32(1024), f.AlignedMipSize(1))

	f.Alignment = 0
	assert.Equal(t, uint32(256), f.AlignedMipSize(0))
}
