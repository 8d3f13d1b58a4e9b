package scanning

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"net/http"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

const (
	mimePNG  = "image/png"
	mimePDF  = "application/pdf"
	mimeHEIC = "image/heic"
)

// heicBrands are the ftyp brands used by HEIC/HEIF files
var heicBrands = []string{"heic", "heix", "heif", "mif1", "msf1"}

// detectMIMEType normalizes the declared content type, sniffing the data when it is missing
func detectMIMEType(data []byte, contentType string) string {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if isHEIC(data) || strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif") {
		return mimeHEIC
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
		if i := strings.Index(mimeType, ";"); i >= 0 {
			mimeType = mimeType[:i]
		}
	}
	return mimeType
}

// isHEIC checks for an ftyp box with a HEIC/HEIF brand at offset 4
func isHEIC(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	brand := string(data[8:12])
	for _, b := range heicBrands {
		if brand == b {
			return true
		}
	}
	return false
}

// decodeImage turns any supported upload into an image.Image.
// Only the first page of a PDF is rendered; receipts are a single page.
func decodeImage(data []byte, mimeType string) (image.Image, error) {
	switch mimeType {
	case mimePDF:
		doc, err := fitz.NewFromMemory(data)
		if err != nil {
			return nil, fmt.Errorf("opening PDF: %w", err)
		}
		defer doc.Close()
		img, err := doc.Image(0)
		if err != nil {
			return nil, fmt.Errorf("rendering PDF page: %w", err)
		}
		return img, nil
	case mimeHEIC:
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
		return img, nil
	default:
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("unsupported image format %q (supported: JPEG, PNG, GIF, HEIC, HEIF, PDF): %w", mimeType, err)
		}
		return img, nil
	}
}

// prepareImageData converts an upload to PNG, which every model provider accepts.
// PNG input is passed through untouched.
func prepareImageData(data []byte, contentType string) ([]byte, error) {
	mimeType := detectMIMEType(data, contentType)
	if mimeType == mimePNG {
		return data, nil
	}

	img, err := decodeImage(data, mimeType)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}
