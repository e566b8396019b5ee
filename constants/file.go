package constants

import (
	"path/filepath"
	"strings"
)

// Document formats handled by the extraction strategies.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
)

// MaxVisionMBDefault caps the payload size sent to a vision provider.
const MaxVisionMBDefault = 20

// AllowedExtensions holds the file extensions accepted as delivery notes.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

var extMIME = map[string]string{
	"pdf":  "application/pdf",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// AllowedExt reports whether ext (with or without the dot) is accepted.
func AllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

// MIMEForName returns the MIME type implied by a file name, or "" when unknown.
func MIMEForName(name string) string {
	return extMIME[NormalizeExt(filepath.Ext(name))]
}

// FormatForMIME maps a MIME type to PDF or IMAGE. Unknown types return "".
func FormatForMIME(mimeType string) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case mt == "application/pdf":
		return PDF
	case strings.HasPrefix(mt, "image/"):
		return IMAGE
	default:
		return ""
	}
}

// ExtForMIME returns the canonical extension (without dot) for a supported MIME type.
func ExtForMIME(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "application/pdf":
		return "pdf"
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/png":
		return "png"
	default:
		return ""
	}
}
