package scan

import (
	"fmt"
	"image"
	"sync"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// ImageDecoder decodes barcodes from still images and camera frames using
// gozxing. Readers are tried in a fixed order covering the label formats the
// inventory uses: QR, Code 128, Code 39, EAN-13.
//
// Safe for concurrent use: the oned readers keep per-instance scratch state
// across DecodeRow calls, so decodes are serialized.
type ImageDecoder struct {
	mu      sync.Mutex
	readers []gozxing.Reader
	hints   map[gozxing.DecodeHintType]interface{}
}

// NewImageDecoder constructs a decoder with the supported format readers.
func NewImageDecoder() *ImageDecoder {
	return &ImageDecoder{
		readers: []gozxing.Reader{
			qrcode.NewQRCodeReader(),
			oned.NewCode128Reader(),
			oned.NewCode39Reader(),
			oned.NewEAN13Reader(),
		},
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

// Decode returns the first barcode readable in the image, or ErrNoBarcode
// when no supported format matches.
func (d *ImageDecoder) Decode(img image.Image) (string, error) {
	if img == nil {
		return "", ErrNoBarcode
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("scan: failed to binarize image: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var lastErr error
	for _, reader := range d.readers {
		result, err := reader.Decode(bmp, d.hints)
		if err == nil {
			return result.GetText(), nil
		}
		if _, notFound := err.(gozxing.NotFoundException); !notFound {
			lastErr = err
		}
	}

	if lastErr != nil {
		return "", fmt.Errorf("scan: decode failed: %w", lastErr)
	}
	return "", ErrNoBarcode
}
