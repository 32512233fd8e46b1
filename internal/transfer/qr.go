package transfer

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// QRSize is the PNG edge length in pixels.
const QRSize = 512

// QR renders text as a PNG QR code.
func QR(text string) ([]byte, error) {
	png, err := qrcode.Encode(text, qrcode.Low, QRSize)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR code: %w", err)
	}
	return png, nil
}

// QRTerminal renders text as a QR code drawn with block characters.
func QRTerminal(text string) (string, error) {
	q, err := qrcode.New(text, qrcode.Low)
	if err != nil {
		return "", fmt.Errorf("failed to render QR code: %w", err)
	}
	return q.ToSmallString(false), nil
}
