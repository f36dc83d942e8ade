package convert

import(
	"image"
	"image/color"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/hdrcolor"

	"github.com/abworrall/rawtoaces/pkg/amath"
)

var _ hdr.Image = (*Image)(nil)

// Image is the scene-linear working buffer the converter applies its
// matrices to. Rect is the pixel data window; Display is the display
// window (the crop), which soft cropping leaves smaller than Rect.
type Image struct {
	Rect    image.Rectangle
	Display image.Rectangle
	Pix     []float64 // interleaved RGB, Rect.Dx()*Rect.Dy()*3 values
}

func NewImage(w, h int) *Image {
	r := image.Rect(0, 0, w, h)
	return &Image{
		Rect:    r,
		Display: r,
		Pix:     make([]float64, w*h*3),
	}
}

func (im *Image)offset(x, y int) int {
	return ((y-im.Rect.Min.Y)*im.Rect.Dx() + (x - im.Rect.Min.X)) * 3
}

func (im *Image)RGBAt(x, y int) amath.Vec3 {
	i := im.offset(x, y)
	return amath.Vec3{im.Pix[i], im.Pix[i+1], im.Pix[i+2]}
}

func (im *Image)SetRGB(x, y int, v amath.Vec3) {
	i := im.offset(x, y)
	im.Pix[i], im.Pix[i+1], im.Pix[i+2] = v[0], v[1], v[2]
}

// Implement image.Image
func (im *Image)ColorModel() color.Model { return hdrcolor.RGBModel }
func (im *Image)Bounds() image.Rectangle { return im.Rect }
func (im *Image)At(x, y int) color.Color { return im.HDRAt(x, y) }

// Implement hdr.Image
func (im *Image)HDRAt(x, y int) hdrcolor.Color {
	v := im.RGBAt(x, y)
	return hdrcolor.RGB{R: v[0], G: v[1], B: v[2]}
}
func (im *Image)Size() int { return im.Rect.Dx() * im.Rect.Dy() }

// imageRect converts an (x, y, w, h) box to a rectangle.
func imageRect(box [4]int) image.Rectangle {
	return image.Rect(box[0], box[1], box[0]+box[2], box[1]+box[3])
}
