package nutexb

// GPU extensions needed to upload block-compressed formats.
const (
	ExtS3TC = "GL_EXT_texture_compression_s3tc"
	ExtRGTC = "GL_ARB_texture_compression_rgtc"
	ExtBPTC = "GL_ARB_texture_compression_bptc"
)

// UploadFormat tells a graphics uploader how to interpret decoded mip data.
// PixelFormat and PixelType are empty for compressed formats, which are
// uploaded as-is.
type UploadFormat struct {
	InternalFormat string
	PixelFormat    string
	PixelType      string
	Compressed     bool
	SRGB           bool
	Extension      string
}

// UploadFormat returns the OpenGL upload description for f.
func (f Format) UploadFormat() (UploadFormat, error) {
	info, err := f.info()
	if err != nil {
		return UploadFormat{}, err
	}

	u := UploadFormat{Compressed: info.compressed, SRGB: f.IsSRGB()}
	switch f {
	case R8G8B8A8_UNORM:
		u.InternalFormat, u.PixelFormat, u.PixelType = "GL_RGBA8", "GL_RGBA", "GL_UNSIGNED_BYTE"
	case R8G8B8A8_SRGB:
		u.InternalFormat, u.PixelFormat, u.PixelType = "GL_SRGB8_ALPHA8", "GL_RGBA", "GL_UNSIGNED_BYTE"
	case B8G8R8A8_UNORM:
		u.InternalFormat, u.PixelFormat, u.PixelType = "GL_RGBA8", "GL_BGRA", "GL_UNSIGNED_BYTE"
	case B8G8R8A8_SRGB:
		u.InternalFormat, u.PixelFormat, u.PixelType = "GL_SRGB8_ALPHA8", "GL_BGRA", "GL_UNSIGNED_BYTE"
	case R32G32B32A32_FLOAT:
		u.InternalFormat, u.PixelFormat, u.PixelType = "GL_RGBA32F", "GL_RGBA", "GL_FLOAT"
	case BC1_UNORM:
		u.InternalFormat, u.Extension = "GL_COMPRESSED_RGBA_S3TC_DXT1_EXT", ExtS3TC
	case BC1_SRGB:
		u.InternalFormat, u.Extension = "GL_COMPRESSED_SRGB_ALPHA_S3TC_DXT1_EXT", ExtS3TC
	case BC2_UNORM:
		u.InternalFormat, u.Extension = "GL_COMPRESSED_RGBA_S3TC_DXT3_EXT", ExtS3TC
	case BC2_SRGB:
		u.InternalFormat, u.Extension = "GL_COMPRESSED_SRGB_ALPHA_S3TC_DXT3_EXT", ExtS3TC
	case BC3_UNORM:
		u.InternalFormat, u.Extension = "GL_COMPRESSED_RGBA_S3TC_DXT5_EXT", ExtS3TC
	case BC3_SRGB:
		u.InternalFormat, u.Extension = "GL_COMPRESSED_SRGB_ALPHA_S3TC_DXT5_EXT", ExtS3TC
	case BC4_UNORM:
		u.InternalFormat, u.Extension = "GL_COMPRESSED_RED_RGTC1", ExtRGTC
	case BC4_SNORM:
		u.InternalFormat, u.Extension = "GL_COMPRESSED_SIGNED_RED_RGTC1", ExtRGTC
	case BC5_UNORM:
		u.InternalFormat, u.Extension = "GL_COMPRESSED_RG_RGTC2", ExtRGTC
	case BC5_SNORM:
		u.InternalFormat, u.Extension = "GL_COMPRESSED_SIGNED_RG_RGTC2", ExtRGTC
	case BC6_UFLOAT:
		u.InternalFormat, u.Extension = "GL_COMPRESSED_RGB_BPTC_UNSIGNED_FLOAT", ExtBPTC
	case BC7_UNORM:
		u.InternalFormat, u.Extension = "GL_COMPRESSED_RGBA_BPTC_UNORM", ExtBPTC
	case BC7_SRGB:
		u.InternalFormat, u.Extension = "GL_COMPRESSED_SRGB_ALPHA_BPTC_UNORM", ExtBPTC
	}
	return u, nil
}

// CheckExtensions returns a *MissingExtensionError if uploading f needs an
// extension that has does not report as available.
func CheckExtensions(f Format, has func(ext string) bool) error {
	u, err := f.UploadFormat()
	if err != nil {
		return err
	}
	if u.Extension != "" && !has(u.Extension) {
		return &MissingExtensionError{Extension: u.Extension}
	}
	return nil
}
