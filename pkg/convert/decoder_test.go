package convert

import(
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
)

func writeTestTIFF(t *testing.T, w, h int, c color.Color) string {
	t.Helper()

	img := image.NewRGBA64(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(t.TempDir(), "test.tif")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, tiff.Encode(f, img, nil))

	return path
}

func TestTIFFDecoderDecode(t *testing.T) {
	path := writeTestTIFF(t, 4, 2, color.RGBA64{R: 0xFFFF, G: 0x8000, B: 0x4000, A: 0xFFFF})

	img, err := TIFFDecoder{}.Decode(path, DecoderHints{})
	require.NoError(t, err)

	assert.Equal(t, 4, img.Rect.Dx())
	assert.Equal(t, 2, img.Rect.Dy())

	v := img.RGBAt(0, 0)
	assert.InDelta(t, 1.0, v[0], 1e-4)
	assert.InDelta(t, 0.5, v[1], 1e-2)
	assert.InDelta(t, 0.25, v[2], 1e-2)
}

func TestTIFFDecoderUserMul(t *testing.T) {
	path := writeTestTIFF(t, 2, 2, color.RGBA64{R: 0x4000, G: 0x4000, B: 0x4000, A: 0xFFFF})

	mul := [4]float64{2.0, 1.0, 1.5, 1.0}
	img, err := TIFFDecoder{}.Decode(path, DecoderHints{UserMul: &mul})
	require.NoError(t, err)

	v := img.RGBAt(0, 0)
	assert.InDelta(t, 0.5, v[0], 1e-2)
	assert.InDelta(t, 0.25, v[1], 1e-2)
	assert.InDelta(t, 0.375, v[2], 1e-2)
}

func TestTIFFDecoderAutoWB(t *testing.T) {
	// A uniformly tinted frame comes out neutral under auto WB.
	path := writeTestTIFF(t, 4, 4, color.RGBA64{R: 0x2000, G: 0x8000, B: 0x4000, A: 0xFFFF})

	img, err := TIFFDecoder{}.Decode(path, DecoderHints{UseAutoWB: true})
	require.NoError(t, err)

	v := img.RGBAt(2, 2)
	assert.InDelta(t, v[1], v[0], 1e-3)
	assert.InDelta(t, v[1], v[2], 1e-3)
}

func TestTIFFDecoderMissingFile(t *testing.T) {
	_, err := TIFFDecoder{}.Decode("/no/such/file.tif", DecoderHints{})
	assert.Error(t, err)
}

func TestTIFFDecoderProbeSurvivesNoEXIF(t *testing.T) {
	path := writeTestTIFF(t, 2, 2, color.RGBA64{A: 0xFFFF})

	spec, err := TIFFDecoder{}.Probe(path)
	require.NoError(t, err)
	assert.Empty(t, spec.CameraMake)
}
