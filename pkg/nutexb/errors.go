package nutexb

import (
	"errors"
	"fmt"
)

// ErrInvalidFooter is returned when footer fields violate the container's
// invariants.
var ErrInvalidFooter = errors.New("invalid footer")

// UnsupportedFormatError reports a format code with no table entry.
type UnsupportedFormatError struct {
	Format Format
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported texture format 0x%02x", uint8(e.Format))
}

// TruncatedFileError reports input too short for the footer or for the image
// size it declares.
type TruncatedFileError struct {
	Size int // bytes available
	Need int // bytes required
}

func (e *TruncatedFileError) Error() string {
	return fmt.Sprintf("truncated file: %d bytes, need %d", e.Size, e.Need)
}

// MissingExtensionError reports a GPU extension required to upload a
// compressed format. It is produced for the uploader by CheckExtensions.
type MissingExtensionError struct {
	Extension string
}

func (e *MissingExtensionError) Error() string {
	return fmt.Sprintf("missing required GPU extension %s", e.Extension)
}
