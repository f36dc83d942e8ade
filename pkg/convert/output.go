package convert

import(
	"fmt"
	"os"

	"github.com/mrjoshuak/go-openexr/exr"
)

// SaveImage writes the ACES Image Container file: an OpenEXR with HALF
// RGB channels, no compression, AP0 chromaticities, the
// acesImageContainerFlag, and the scene-linear AP0 color space name.
// The image's display window carries the crop.
func SaveImage(path string, img *Image) error {
	w := img.Rect.Dx()
	h := img.Rect.Dy()

	header := exr.NewHeader()

	dataWindow := exr.Box2i{
		Min: exr.V2i{X: int32(img.Rect.Min.X), Y: int32(img.Rect.Min.Y)},
		Max: exr.V2i{X: int32(img.Rect.Max.X - 1), Y: int32(img.Rect.Max.Y - 1)},
	}
	displayWindow := exr.Box2i{
		Min: exr.V2i{X: int32(img.Display.Min.X), Y: int32(img.Display.Min.Y)},
		Max: exr.V2i{X: int32(img.Display.Max.X - 1), Y: int32(img.Display.Max.Y - 1)},
	}

	header.SetDataWindow(dataWindow)
	header.SetDisplayWindow(displayWindow)
	header.SetCompression(exr.CompressionNone)
	header.SetLineOrder(exr.LineOrderIncreasing)
	header.SetPixelAspectRatio(1.0)
	header.SetScreenWindowCenter(exr.V2f{X: 0, Y: 0})
	header.SetScreenWindowWidth(1.0)

	cl := exr.NewChannelList()
	cl.Add(exr.NewChannel("R", exr.PixelTypeHalf))
	cl.Add(exr.NewChannel("G", exr.PixelTypeHalf))
	cl.Add(exr.NewChannel("B", exr.PixelTypeHalf))
	header.SetChannels(cl)

	header.Set(&exr.Attribute{
		Name:  "acesImageContainerFlag",
		Type:  exr.AttrTypeInt,
		Value: int32(1),
	})
	header.Set(&exr.Attribute{
		Name:  "colorSpace",
		Type:  exr.AttrTypeString,
		Value: "lin_ap0_scene",
	})

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open+w '%s': %v", path, err)
	}
	defer f.Close()

	out, err := exr.NewAcesOutputFileFromHeader(f, header)
	if err != nil {
		return fmt.Errorf("aces output '%s': %v", path, err)
	}

	rData := make([]float32, w*h)
	gData := make([]float32, w*h)
	bData := make([]float32, w*h)

	for i := 0; i < w*h; i++ {
		rData[i] = float32(img.Pix[i*3])
		gData[i] = float32(img.Pix[i*3+1])
		bData[i] = float32(img.Pix[i*3+2])
	}

	fb := exr.NewFrameBuffer()
	fb.Set("R", exr.NewSliceFromFloat32(rData, w, h))
	fb.Set("G", exr.NewSliceFromFloat32(gData, w, h))
	fb.Set("B", exr.NewSliceFromFloat32(bData, w, h))

	out.SetFrameBuffer(fb)
	if err := out.WritePixels(0, h-1); err != nil {
		return fmt.Errorf("write pixels '%s': %v", path, err)
	}

	return out.Close()
}
