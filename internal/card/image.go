package card

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Image is an opaque captured-image handle: a data URI holding an encoded
// JPEG. It is owned by whichever workflow step currently holds it and is
// dropped once superseded.
type Image string

const jpegPrefix = "data:image/jpeg;base64,"

// NewImage wraps raw JPEG bytes as a data-URI handle.
func NewImage(jpegData []byte) Image {
	return Image(jpegPrefix + base64.StdEncoding.EncodeToString(jpegData))
}

// Bytes decodes the handle back to raw JPEG bytes.
func (img Image) Bytes() ([]byte, error) {
	s := string(img)
	idx := strings.Index(s, ",")
	if !strings.HasPrefix(s, "data:") || idx < 0 {
		return nil, fmt.Errorf("not a data URI")
	}

	data, err := base64.StdEncoding.DecodeString(s[idx+1:])
	if err != nil {
		return nil, fmt.Errorf("decoding image data: %w", err)
	}
	return data, nil
}

// IsZero reports whether the handle holds no image.
func (img Image) IsZero() bool {
	return img == ""
}
