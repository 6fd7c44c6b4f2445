package snapshot

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
)

// WhiteToTransparent makes every pure white pixel of a PNG fully transparent.
func WhiteToTransparent(data []byte) ([]byte, error) {
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}

	img := image.NewNRGBA(src.Bounds())
	draw.Draw(img, img.Bounds(), src, src.Bounds().Min, draw.Src)

	for i := 0; i+3 < len(img.Pix); i += 4 {
		if img.Pix[i] == 0xff && img.Pix[i+1] == 0xff && img.Pix[i+2] == 0xff {
			img.Pix[i+3] = 0
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
