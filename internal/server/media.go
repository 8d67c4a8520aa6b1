package server

import (
	"fmt"
	"net/http"
	"strings"
)

// extensionByMIME maps accepted image content types to their canonical
// blob filename extension. Detection goes by content bytes, never by the
// client-supplied filename or Content-Type.
var extensionByMIME = map[string]string{
	"image/jpeg":               "jpg",
	"image/png":                "png",
	"image/gif":                "gif",
	"image/webp":               "webp",
	"image/bmp":                "bmp",
	"image/vnd.microsoft.icon": "ico",
	"image/x-icon":             "ico",
}

// detectImageMedia sniffs the payload and returns (mime, extension).
// Non-image payloads are rejected.
func detectImageMedia(data []byte) (string, string, error) {
	mime := http.DetectContentType(data)
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	ext, ok := extensionByMIME[mime]
	if !ok {
		return "", "", badRequestCode(fmt.Errorf("unsupported media type: %s", mime), ErrCodeInvalidMedia)
	}
	return mime, ext, nil
}
