package relay

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	placeholderWidth   = 640
	placeholderHeight  = 480
	placeholderQuality = 70
)

var placeholderBackground = color.RGBA{R: 30, G: 41, B: 59, A: 255}

// PlaceholderJPEG renders the filler card served while a session has no
// fresh frame, already encoded for the wire.
func PlaceholderJPEG(message string) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, placeholderWidth, placeholderHeight))
	for y := 0; y < placeholderHeight; y++ {
		for x := 0; x < placeholderWidth; x++ {
			img.SetRGBA(x, y, placeholderBackground)
		}
	}

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: basicfont.Face7x13,
	}
	width := drawer.MeasureString(message)
	drawer.Dot = fixed.P((placeholderWidth-width.Ceil())/2, placeholderHeight/2)
	drawer.DrawString(message)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: placeholderQuality}); err != nil {
		return nil, fmt.Errorf("encode placeholder: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeFrameData accepts raw base64 or a canvas-style data URL, the two
// shapes phone uploads arrive in.
func DecodeFrameData(data string) ([]byte, error) {
	if strings.HasPrefix(data, "data:") {
		idx := strings.IndexByte(data, ',')
		if idx < 0 {
			return nil, fmt.Errorf("malformed data url")
		}
		data = data[idx+1:]
	}
	return base64.StdEncoding.DecodeString(data)
}

// EncodeFrameData produces the wire form served back to polling agents.
func EncodeFrameData(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
