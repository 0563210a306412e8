package assistant

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// allowedImageTypes are the MIME types accepted for receipt images.
var allowedImageTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/heic": "heic",
	"image/heif": "heif",
}

// ImageExtension returns the file extension for an accepted MIME type.
func ImageExtension(mimeType string) (string, bool) {
	ext, ok := allowedImageTypes[strings.ToLower(mimeType)]
	return ext, ok
}

// DecodeBase64Image decodes a base64 payload, optionally in data-URL form
// ("data:image/png;base64,..."). When mimeType is empty it is taken from the
// data URL or sniffed from the bytes.
func DecodeBase64Image(payload, mimeType string) (Image, error) {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 {
			return Image{}, fmt.Errorf("DecodeBase64Image: malformed data URL")
		}
		header := payload[len("data:"):comma]
		payload = payload[comma+1:]
		if mimeType == "" {
			mimeType = strings.TrimSuffix(header, ";base64")
		}
	}
	if payload == "" {
		return Image{}, fmt.Errorf("DecodeBase64Image: empty image")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		var rawErr error
		data, rawErr = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if rawErr != nil {
			return Image{}, fmt.Errorf("DecodeBase64Image: decoding base64: %w", err)
		}
	}

	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if _, ok := allowedImageTypes[mimeType]; !ok {
		return Image{}, fmt.Errorf("DecodeBase64Image: unsupported image type %q", mimeType)
	}

	return Image{Data: data, MIMEType: mimeType}, nil
}
