package constants

import "strings"

// FileFormat is the coarse format bucket used to pick an extraction path.
type FileFormat string

const (
	TXT   FileFormat = "TXT"
	PDF   FileFormat = "PDF"
	IMAGE FileFormat = "IMAGE"
)

// SupportedExtensions holds every extension the pipeline accepts,
// lowercased and without the leading dot.
var SupportedExtensions = map[string]struct{}{
	"txt":  {},
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"tiff": {},
	"tif":  {},
	"bmp":  {},
}

// ImageExtensions are the extensions that always require OCR.
var ImageExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"tiff": {},
	"tif":  {},
	"bmp":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsSupportedExt reports whether the extension is in the supported set.
func IsSupportedExt(ext string) bool {
	_, ok := SupportedExtensions[NormalizeExt(ext)]
	return ok
}

// MapExtToFormat buckets an extension into TXT, PDF or IMAGE.
// Returns "" for unsupported extensions.
func MapExtToFormat(ext string) FileFormat {
	ext = NormalizeExt(ext)
	switch {
	case ext == "txt":
		return TXT
	case ext == "pdf":
		return PDF
	default:
		if _, ok := ImageExtensions[ext]; ok {
			return IMAGE
		}
		return ""
	}
}

// Processing method tags stored on each document (stable values, stored in DB).
const (
	MethodTextFile       = "text_file"
	MethodPDFTextOnly    = "pdf_text_only"
	MethodPDFOCRFallback = "pdf_with_ocr_fallback"
	MethodOCRRequired    = "ocr_required"
)

// ProcessingMethod derives the method tag for a format given OCR availability.
func ProcessingMethod(format FileFormat, ocrAvailable bool) string {
	switch format {
	case TXT:
		return MethodTextFile
	case PDF:
		if ocrAvailable {
			return MethodPDFOCRFallback
		}
		return MethodPDFTextOnly
	case IMAGE:
		return MethodOCRRequired
	default:
		return ""
	}
}

// ConfidenceForMethod maps a processing method to the stored 0-100
// confidence estimate.
func ConfidenceForMethod(method string) float64 {
	switch {
	case method == MethodTextFile:
		return 100.0
	case method == MethodPDFTextOnly:
		return 95.0
	case strings.Contains(method, "ocr"):
		return 75.0
	default:
		return 90.0
	}
}

// RequiresOCR reports whether a format can only be read through OCR.
func RequiresOCR(format FileFormat) bool {
	return format == IMAGE
}
