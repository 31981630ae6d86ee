package mimetypes

import "mime"

type MIME string

const (
	Unknown     MIME = "unknown"
	OctetStream MIME = "application/octet-stream"

	ImagePNG  MIME = "image/png"
	ImageJPEG MIME = "image/jpeg"
	ImageGIF  MIME = "image/gif"
	ImageBMP  MIME = "image/bmp"
	ImageWEBP MIME = "image/webp"
)

// decodable lists the containers the pipeline can open with the registered image decoders.
var decodable = map[MIME]string{
	ImagePNG:  ".png",
	ImageJPEG: ".jpg",
	ImageGIF:  ".gif",
}

func Matches(detected string, expected MIME) (MIME, bool) {
	mt, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return Unknown, false
	}
	return expected, mt == string(expected)
}

// ToMIME strips parameters from a detected media type.
func ToMIME(detected string) MIME {
	mt, _, err := mime.ParseMediaType(detected)
	if err != nil || mt == "" {
		return Unknown
	}
	return MIME(mt)
}

func IsDecodableImage(m MIME) bool {
	_, ok := decodable[m]
	return ok
}

// Extension returns the file extension used when persisting a payload of type m.
func Extension(m MIME) string {
	if ext, ok := decodable[m]; ok {
		return ext
	}
	return ".bin"
}
