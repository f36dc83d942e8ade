package convert

import(
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/rawtoaces/pkg/amath"
)

func TestFixMetadata(t *testing.T) {
	spec := &ImageSpec{Make: "Canon", Model: "EOS R6"}
	FixMetadata(spec)
	assert.Equal(t, "Canon", spec.CameraMake)
	assert.Equal(t, "EOS R6", spec.CameraModel)
	assert.Empty(t, spec.Make)
	assert.Empty(t, spec.Model)

	// A populated destination keeps the source visible.
	spec = &ImageSpec{Make: "Vendor", CameraMake: "Canon"}
	FixMetadata(spec)
	assert.Equal(t, "Canon", spec.CameraMake)
	assert.Equal(t, "Vendor", spec.Make)
}

func TestDNGMetadata(t *testing.T) {
	spec := &ImageSpec{
		CamMul: []float64{2.0, 1.0, 1.25, 1.0},
	}
	spec.DNGCalibration[0].Illuminant = 17
	spec.DNGCalibration[1].Illuminant = 21
	for i := 0; i < 16; i++ {
		spec.DNGCalibration[0].CameraCalibration[i] = float64(i)
	}
	for i := 0; i < 9; i++ {
		spec.DNGCalibration[0].ColorMatrix[i] = float64(i) / 10
	}

	md := spec.DNGMetadata()

	// Neutral RGB is the inverse of the camera multipliers.
	require.Len(t, md.NeutralRGB, 3)
	assert.Equal(t, 0.5, md.NeutralRGB[0])
	assert.Equal(t, 1.0, md.NeutralRGB[1])
	assert.Equal(t, 0.8, md.NeutralRGB[2])

	assert.Equal(t, uint16(17), md.Calibration[0].Illuminant)

	// The camera calibration collapses the 4-wide tag rows to 3x3.
	assert.Equal(t, amath.Mat3{0, 1, 2, 4, 5, 6, 8, 9, 10}, md.Calibration[0].CameraCalibration)
	assert.Equal(t, 0.3, md.Calibration[0].XYZToRGB[3])
}

// Identity in, identity out: custom WB of all ones plus a custom
// identity matrix must produce identity multipliers and matrix.
func TestConfigureCustomIdentity(t *testing.T) {
	settings := NewSettings()
	settings.WBMethod = WBCustom
	settings.MatrixMethod = MatrixCustom
	settings.CustomWB = [4]float64{1, 1, 1, 1}
	settings.CustomMatrix = amath.Identity()

	c := NewImageConverter(settings)
	var hints DecoderHints
	require.NoError(t, c.Configure(&ImageSpec{}, &hints))

	assert.Equal(t, []float64{1, 1, 1, 1}, c.WBMultipliers())
	idt, ok := c.IDTMatrix()
	assert.True(t, ok)
	assert.Equal(t, amath.Identity(), idt)
	_, hasCAT := c.CATMatrix()
	assert.False(t, hasCAT)

	assert.Equal(t, "raw", hints.ColorSpace)
	require.NotNil(t, hints.UserMul)
	assert.Equal(t, [4]float64{1, 1, 1, 1}, *hints.UserMul)
	assert.False(t, hints.UseCameraWB)
	assert.False(t, hints.UseAutoWB)
}

func TestConfigureMetadataWB(t *testing.T) {
	settings := NewSettings()
	settings.MatrixMethod = MatrixAdobe // avoid database lookups

	c := NewImageConverter(settings)
	spec := &ImageSpec{CamMul: []float64{2.0, 1.0, 1.5, 1.0}}
	var hints DecoderHints
	require.NoError(t, c.Configure(spec, &hints))

	require.NotNil(t, hints.UserMul)
	assert.Equal(t, [4]float64{2.0, 1.0, 1.5, 1.0}, *hints.UserMul)
	assert.Equal(t, []float64{2.0, 1.0, 1.5, 1.0}, c.WBMultipliers())
}

func TestConfigureBoxWB(t *testing.T) {
	settings := NewSettings()
	settings.WBMethod = WBBox
	settings.MatrixMethod = MatrixAdobe

	// An empty box asks the decoder for auto white balance.
	c := NewImageConverter(settings)
	var hints DecoderHints
	require.NoError(t, c.Configure(&ImageSpec{}, &hints))
	assert.True(t, hints.UseAutoWB)
	assert.Nil(t, hints.GreyBox)

	// A real box goes through as the grey sample region.
	settings.WBBox = [4]int{10, 20, 100, 50}
	c = NewImageConverter(settings)
	hints = DecoderHints{}
	require.NoError(t, c.Configure(&ImageSpec{}, &hints))
	assert.False(t, hints.UseAutoWB)
	require.NotNil(t, hints.GreyBox)
	assert.Equal(t, [4]int{10, 20, 100, 50}, *hints.GreyBox)
}

func TestConfigureAdobeUsesFixedCAT(t *testing.T) {
	settings := NewSettings()
	settings.MatrixMethod = MatrixAdobe

	c := NewImageConverter(settings)
	var hints DecoderHints
	require.NoError(t, c.Configure(&ImageSpec{}, &hints))

	_, hasIDT := c.IDTMatrix()
	assert.False(t, hasIDT)
	cat, hasCAT := c.CATMatrix()
	assert.True(t, hasCAT)
	assert.Equal(t, amath.CATD65ToACES, cat)
	assert.Equal(t, "XYZ", hints.ColorSpace)
}

func TestConfigureMetadataNonDNG(t *testing.T) {
	settings := NewSettings()
	settings.MatrixMethod = MatrixMetadata

	c := NewImageConverter(settings)
	var hints DecoderHints
	require.NoError(t, c.Configure(&ImageSpec{}, &hints))

	_, hasIDT := c.IDTMatrix()
	assert.False(t, hasIDT)
	_, hasCAT := c.CATMatrix()
	assert.True(t, hasCAT)
	assert.Equal(t, 3, hints.UseCameraMatrix)
}

func TestConfigureMetadataDNG(t *testing.T) {
	settings := NewSettings()
	settings.MatrixMethod = MatrixMetadata

	spec := &ImageSpec{
		DNGVersion: 1,
		CamMul:     []float64{2.0, 1.0, 1.5, 1.0},
	}
	spec.DNGCalibration[0] = DNGCalibrationTags{
		Illuminant:  17,
		ColorMatrix: [9]float64{0.9, -0.2, -0.1, -0.4, 1.3, 0.1, -0.1, 0.2, 0.6},
	}
	spec.DNGCalibration[1] = DNGCalibrationTags{
		Illuminant:  21,
		ColorMatrix: [9]float64{0.8, -0.15, -0.05, -0.35, 1.25, 0.08, -0.05, 0.15, 0.75},
	}

	c := NewImageConverter(settings)
	var hints DecoderHints
	require.NoError(t, c.Configure(spec, &hints))

	_, hasIDT := c.IDTMatrix()
	assert.True(t, hasIDT)
	_, hasCAT := c.CATMatrix()
	assert.False(t, hasCAT)
	assert.True(t, hints.UseCameraWB)
	assert.Equal(t, 1, hints.UseCameraMatrix)
}

// The spectral path with no camera identification anywhere must fail;
// the missing-manufacturer diagnostic goes to the log.
func TestConfigureSpectralMissingCamera(t *testing.T) {
	settings := NewSettings()
	settings.MatrixMethod = MatrixSpectral
	settings.DatabaseDirs = []string{t.TempDir()}

	c := NewImageConverter(settings)
	var hints DecoderHints
	err := c.Configure(&ImageSpec{}, &hints)
	assert.Error(t, err)
}

func TestApplyMatrix(t *testing.T) {
	settings := NewSettings()
	c := NewImageConverter(settings)
	c.idtMatrix = amath.Mat3{2, 0, 0, 0, 2, 0, 0, 0, 2}
	c.hasIDT = true

	img := NewImage(2, 1)
	img.SetRGB(0, 0, amath.Vec3{1, 2, 3})
	img.SetRGB(1, 0, amath.Vec3{0.5, 0.5, 0.5})

	c.ApplyMatrix(img)
	assert.Equal(t, amath.Vec3{2, 4, 6}, img.RGBAt(0, 0))
	assert.Equal(t, amath.Vec3{1, 1, 1}, img.RGBAt(1, 0))
}

func TestApplyScale(t *testing.T) {
	settings := NewSettings() // headroom 6.0, scale 1.0
	c := NewImageConverter(settings)

	img := NewImage(1, 1)
	img.SetRGB(0, 0, amath.Vec3{1, 1, 1})
	c.ApplyScale(img)
	assert.Equal(t, amath.Vec3{6, 6, 6}, img.RGBAt(0, 0))
}

func TestApplyCrop(t *testing.T) {
	settings := NewSettings()
	settings.CropMode = CropHard
	c := NewImageConverter(settings)

	img := NewImage(4, 4)
	img.Display = imageRect([4]int{1, 1, 2, 2})
	img.SetRGB(1, 1, amath.Vec3{1, 2, 3})

	c.ApplyCrop(img)
	assert.Equal(t, 2, img.Rect.Dx())
	assert.Equal(t, 2, img.Rect.Dy())
	assert.Equal(t, amath.Vec3{1, 2, 3}, img.RGBAt(0, 0))

	// Off mode resets the display window to the full data window.
	settings.CropMode = CropOff
	c = NewImageConverter(settings)
	img = NewImage(4, 4)
	img.Display = imageRect([4]int{1, 1, 2, 2})
	c.ApplyCrop(img)
	assert.Equal(t, img.Rect, img.Display)
}

func TestMakeOutputPath(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "shot.dng")

	c := NewImageConverter(NewSettings())
	out, err := c.MakeOutputPath(input)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "shot_aces.exr"), out)

	_, err = c.MakeOutputPath("")
	assert.Error(t, err)
}

func TestMakeOutputPathOverwrite(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "shot.dng")
	existing := filepath.Join(dir, "shot_aces.exr")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0644))

	c := NewImageConverter(NewSettings())
	_, err := c.MakeOutputPath(input)
	assert.Error(t, err)

	c.Settings.Overwrite = true
	out, err := c.MakeOutputPath(input)
	require.NoError(t, err)
	assert.Equal(t, existing, out)
}

func TestMakeOutputPathOutputDir(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "shot.dng")

	settings := NewSettings()
	settings.OutputDir = "out"
	c := NewImageConverter(settings)

	// Without --create-dirs the missing directory is an error.
	_, err := c.MakeOutputPath(input)
	assert.Error(t, err)

	c.Settings.CreateDirs = true
	out, err := c.MakeOutputPath(input)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out", "shot_aces.exr"), out)
	_, err = os.Stat(filepath.Join(dir, "out"))
	assert.NoError(t, err)
}
