package convert

import(
	"fmt"
	"os"

	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/tiff"

	"github.com/abworrall/rawtoaces/pkg/amath"
)

// DecoderHints carries the per-image decoder configuration the
// converter works out. The names mirror the knobs a camera raw
// decoder exposes.
type DecoderHints struct {
	// "raw" for camera-native RGB, "XYZ" for decoder-matrixed output.
	ColorSpace      string
	UseCameraWB     bool
	UseAutoWB       bool
	UseCameraMatrix int

	// White balance multipliers to apply during decode; nil means none.
	UserMul *[4]float64
	// Region to derive the white balance from; nil means none.
	GreyBox *[4]int
	// Custom crop; nil keeps the file's default crop.
	CropBox *[4]int

	AutoBright             bool
	AdjustMaximumThreshold float64
	BlackLevel             int
	SaturationLevel        int
	HalfSize               bool
	Flip                   int
	HighlightMode          int
	Demosaic               string
	DenoiseThreshold       float64
	ChromaticAberration    *[2]float64
}

// Decoder is the contract with the external raw-decoding library: one
// metadata pass to fill an ImageSpec, then a pixel decode honouring the
// hints. Demosaic, black level and highlight handling are entirely the
// decoder's business.
type Decoder interface {
	Probe(path string) (*ImageSpec, error)
	Decode(path string, hints DecoderHints) (*Image, error)
}

// TIFFDecoder reads linear RGB TIFFs (e.g. camera files developed to
// linear TIFF) and serves as the reference Decoder implementation. It
// applies the white-balance hints itself; ColorSpace requests beyond
// the data actually in the file are out of its hands.
type TIFFDecoder struct{}

func (d TIFFDecoder)Probe(path string) (*ImageSpec, error) {
	spec := &ImageSpec{}

	reader, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open+r exif '%s': %v", path, err)
	}
	defer reader.Close()

	ex, err := exif.Decode(reader)
	if err != nil {
		// No EXIF is survivable; the converter has --custom-camera-*
		// for exactly this case.
		return spec, nil
	}

	if tag, err := ex.Get(exif.Make); err == nil {
		if val, err := tag.StringVal(); err == nil {
			spec.Make = val
		}
	}
	if tag, err := ex.Get(exif.Model); err == nil {
		if val, err := tag.StringVal(); err == nil {
			spec.Model = val
		}
	}
	if tag, err := ex.Get(exif.ImageWidth); err == nil {
		if val, err := tag.Int64(0); err == nil {
			spec.Width = int(val)
		}
	}
	if tag, err := ex.Get(exif.ImageLength); err == nil {
		if val, err := tag.Int64(0); err == nil {
			spec.Height = int(val)
		}
	}

	return spec, nil
}

func (d TIFFDecoder)Decode(path string, hints DecoderHints) (*Image, error) {
	reader, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open+r img '%s': %v", path, err)
	}
	defer reader.Close()

	src, err := tiff.Decode(reader)
	if err != nil {
		return nil, fmt.Errorf("tiff loading '%s': %v", path, err)
	}

	bounds := src.Bounds()
	img := NewImage(bounds.Dx(), bounds.Dy())

	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			r, g, b, _ := src.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			img.SetRGB(x, y, amath.Vec3{
				float64(r) / float64(0xFFFF),
				float64(g) / float64(0xFFFF),
				float64(b) / float64(0xFFFF),
			})
		}
	}

	mul := d.resolveWB(img, hints)
	if mul != nil {
		for i := 0; i < len(img.Pix); i += 3 {
			img.Pix[i] *= mul[0]
			img.Pix[i+1] *= mul[1]
			img.Pix[i+2] *= mul[2]
		}
	}

	if hints.CropBox != nil {
		box := *hints.CropBox
		if box[2] > 0 && box[3] > 0 {
			img.Display = imageRect(box)
		}
	}

	return img, nil
}

// resolveWB turns the hints into the channel multipliers to apply, or
// nil for none: explicit user multipliers win, then grey-world auto WB
// over the grey box (or the whole frame).
func (d TIFFDecoder)resolveWB(img *Image, hints DecoderHints) *amath.Vec3 {
	if hints.UserMul != nil {
		m := *hints.UserMul
		green := m[1]
		if m[3] != 0 {
			green = (m[1] + m[3]) / 2.0
		}
		return &amath.Vec3{m[0], green, m[2]}
	}

	if !hints.UseAutoWB && hints.GreyBox == nil {
		return nil
	}

	area := img.Rect
	if hints.GreyBox != nil {
		box := *hints.GreyBox
		if box[2] > 0 && box[3] > 0 {
			area = imageRect(box).Intersect(img.Rect)
		}
	}

	sums := amath.Vec3{}
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			v := img.RGBAt(x, y)
			sums[0] += v[0]
			sums[1] += v[1]
			sums[2] += v[2]
		}
	}

	if sums[0] == 0 || sums[1] == 0 || sums[2] == 0 {
		return nil
	}

	return &amath.Vec3{sums[1] / sums[0], 1.0, sums[1] / sums[2]}
}
