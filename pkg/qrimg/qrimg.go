package qrimg

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// BadgeSize is the rendered badge edge length in pixels.
const BadgeSize = 256

// RenderPNG encodes the badge payload into a PNG QR image.
func RenderPNG(payload string) ([]byte, error) {
	if payload == "" {
		return nil, fmt.Errorf("qrimg: empty payload")
	}
	png, err := qrcode.Encode(payload, qrcode.Medium, BadgeSize)
	if err != nil {
		return nil, fmt.Errorf("qrimg: encode: %w", err)
	}
	return png, nil
}
