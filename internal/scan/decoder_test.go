package scan

import (
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

func TestImageDecoder(t *testing.T) {
	t.Run("decodes a QR code", func(t *testing.T) {
		writer := qrcode.NewQRCodeWriter()
		img, err := writer.Encode("ROOM001", gozxing.BarcodeFormat_QR_CODE, 256, 256, nil)
		if err != nil {
			t.Fatalf("failed to encode test barcode: %v", err)
		}

		text, err := NewImageDecoder().Decode(img)
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if text != "ROOM001" {
			t.Fatalf("expected ROOM001, got %q", text)
		}
	})

	t.Run("decodes a Code 128 label", func(t *testing.T) {
		writer := oned.NewCode128Writer()
		img, err := writer.Encode("EQ001", gozxing.BarcodeFormat_CODE_128, 400, 100, nil)
		if err != nil {
			t.Fatalf("failed to encode test barcode: %v", err)
		}

		text, err := NewImageDecoder().Decode(img)
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if text != "EQ001" {
			t.Fatalf("expected EQ001, got %q", text)
		}
	})

	t.Run("decodes concurrently through a shared decoder", func(t *testing.T) {
		// The oned readers reuse per-instance scratch rows, so one decoder
		// shared by several goroutines must serialize its decodes.
		writer := oned.NewCode39Writer()
		img, err := writer.Encode("EQ77", gozxing.BarcodeFormat_CODE_39, 400, 100, nil)
		if err != nil {
			t.Fatalf("failed to encode test barcode: %v", err)
		}

		decoder := NewImageDecoder()
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				text, err := decoder.Decode(img)
				if err != nil {
					t.Errorf("expected success, got %v", err)
					return
				}
				if text != "EQ77" {
					t.Errorf("expected EQ77, got %q", text)
				}
			}()
		}
		wg.Wait()
	})

	t.Run("reports ErrNoBarcode for a blank image", func(t *testing.T) {
		blank := image.NewGray(image.Rect(0, 0, 64, 64))
		for y := 0; y < 64; y++ {
			for x := 0; x < 64; x++ {
				blank.SetGray(x, y, color.Gray{Y: 255})
			}
		}

		if _, err := NewImageDecoder().Decode(blank); !errors.Is(err, ErrNoBarcode) {
			t.Fatalf("expected ErrNoBarcode, got %v", err)
		}
	})

	t.Run("reports ErrNoBarcode for a nil image", func(t *testing.T) {
		if _, err := NewImageDecoder().Decode(nil); !errors.Is(err, ErrNoBarcode) {
			t.Fatalf("expected ErrNoBarcode, got %v", err)
		}
	})
}
