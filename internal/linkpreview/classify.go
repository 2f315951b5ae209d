package linkpreview

import (
	"log/slog"
	"mime"
	"net/http"
	"strings"
)

// genericTypes carry no information about the payload.
var genericTypes = map[string]bool{
	"":                         true,
	"application/octet-stream": true,
	"binary/octet-stream":      true,
	"application/unknown":      true,
	"application/x-unknown":    true,
	"unknown/unknown":          true,
}

// weakSniffs are sniffer results that only say "this is some text".
var weakSniffs = map[string]bool{
	"application/octet-stream": true,
	"text/plain":               true,
	"text/xml":                 true,
}

var imageFormats = map[string]string{
	"image/png":      "png",
	"image/jpeg":     "jpeg",
	"image/jpg":      "jpeg",
	"image/pjpeg":    "jpeg",
	"image/gif":      "gif",
	"image/webp":     "webp",
	"image/bmp":      "bmp",
	"image/x-ms-bmp": "bmp",
	"image/tiff":     "tiff",
}

// Classify decides what kind of payload body is. The declared Content-Type
// is used unless it is missing or generic, or the content sniffs as
// something of a different kind.
func Classify(header http.Header, body []byte) Classification {
	declared := mediaType(header.Get("Content-Type"))
	sniffed := mediaType(http.DetectContentType(body))

	if genericTypes[declared] {
		return classifyMIME(sniffed)
	}

	dc, sc := classifyMIME(declared), classifyMIME(sniffed)
	if !weakSniffs[sniffed] && (dc.Kind != sc.Kind || dc.Format != sc.Format) {
		slog.Debug("declared content type disagrees with content", "declared", declared, "sniffed", sniffed)
		return sc
	}
	return dc
}

func classifyMIME(mt string) Classification {
	switch {
	case mt == "text/html" || mt == "application/xhtml+xml":
		return Classification{Kind: ContentHTML, MIME: mt}
	case imageFormats[mt] != "":
		return Classification{Kind: ContentImage, Format: imageFormats[mt], MIME: mt}
	default:
		return Classification{Kind: ContentUnsupported, MIME: mt}
	}
}

func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}
