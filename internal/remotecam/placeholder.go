package remotecam

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	placeholderWidth  = 640
	placeholderHeight = 480
)

var placeholderBackground = color.RGBA{R: 30, G: 41, B: 59, A: 255}

// placeholderImage renders the card shown while the phone feed is
// interrupted, so the candidate never sees a frozen or blank frame.
func placeholderImage(message string) image.Image {
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

	return img
}
