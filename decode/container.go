package decode

import (
	"bytes"
	"cam-relay/domain"
	"cam-relay/domain/mimetypes"
	"cam-relay/errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
)

// validateContainer sniffs the container, parses its header, then runs a full decode as
// the integrity pass. Dimensions are taken from the decoded image.
func validateContainer(data []byte) (*domain.ImageInfo, error) {
	detected := mimetypes.ToMIME(mimetype.Detect(data).String())
	if !mimetypes.IsDecodableImage(detected) {
		return nil, fmt.Errorf("%w: unsupported content %s", errors.ErrInvalidImageContainer, detected)
	}

	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: header: %v", errors.ErrInvalidImageContainer, err)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: integrity: %v", errors.ErrInvalidImageContainer, err)
	}

	bounds := img.Bounds()
	return &domain.ImageInfo{
		Format: format,
		MIME:   string(detected),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}
