package dngmeta

import(
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/rawtoaces/pkg/amath"
)

func TestMiredRoundTrip(t *testing.T) {
	for _, cct := range []float64{2000, 2856, 5500, 6500, 50000} {
		back := MiredToCCT(CCTToMired(cct))
		assert.InEpsilon(t, cct, back, 1e-9)
	}
}

func TestLightSourceToColorTemp(t *testing.T) {
	assert.Equal(t, 5500.0, LightSourceToColorTemp(0))
	assert.Equal(t, 5500.0, LightSourceToColorTemp(1))
	assert.Equal(t, 3500.0, LightSourceToColorTemp(2))
	assert.Equal(t, 3400.0, LightSourceToColorTemp(3))
	assert.Equal(t, 5550.0, LightSourceToColorTemp(10))
	assert.Equal(t, 2856.0, LightSourceToColorTemp(17)) // standard A
	assert.Equal(t, 4874.0, LightSourceToColorTemp(18)) // standard B
	assert.Equal(t, 6774.0, LightSourceToColorTemp(19)) // standard C
	assert.Equal(t, 6500.0, LightSourceToColorTemp(21)) // D65
	assert.Equal(t, 7500.0, LightSourceToColorTemp(22)) // D75

	// Unknown tags default
	assert.Equal(t, 5500.0, LightSourceToColorTemp(9))

	// Extended tags carry the temperature directly
	assert.Equal(t, 3200.0, LightSourceToColorTemp(32768+3200))
}

func TestColorTemperatureRoundTrip(t *testing.T) {
	// Near-Planckian XYZ: CCT -> XYZ -> CCT should come back close.
	for _, cct := range []float64{2500, 3200, 4800, 6500, 10000} {
		xyz := ColorTemperatureToXYZ(cct)
		back := XYZToColorTemperature(xyz)
		assert.InEpsilon(t, cct, back, 0.02, "cct %v -> %v", cct, back)
	}
}

func TestXYZToColorTemperatureClamps(t *testing.T) {
	// A very blue stimulus clamps at 50000K, a very red one at 2000K.
	blue := XYZToColorTemperature(amath.Vec3{0.6, 0.8, 2.5})
	assert.LessOrEqual(t, blue, 50000.0)
	red := XYZToColorTemperature(amath.Vec3{2.0, 1.0, 0.05})
	assert.GreaterOrEqual(t, red, 2000.0)
}

func TestD65LandsNearLocus(t *testing.T) {
	cct := XYZToColorTemperature(amath.Vec3{0.95047, 1.0, 1.08883})
	assert.InDelta(t, 6500, cct, 150)
}

// A plausible pair of DNG calibrations: identity-ish matrices leaning
// warm and cool, bracketing illuminants A (17) and D65 (21).
func testMetadata() Metadata {
	return Metadata{
		BaselineExposure: 0.0,
		NeutralRGB:       []float64{0.6, 1.0, 0.8},
		Calibration: [2]Calibration{
			{
				Illuminant: 17,
				XYZToRGB: amath.Mat3{
					0.9, -0.2, -0.1,
					-0.4, 1.3, 0.1,
					-0.1, 0.2, 0.6,
				},
			},
			{
				Illuminant: 21,
				XYZToRGB: amath.Mat3{
					0.8, -0.15, -0.05,
					-0.35, 1.25, 0.08,
					-0.05, 0.15, 0.75,
				},
			},
		},
	}
}

func TestCalculateIDTMatrix(t *testing.T) {
	solver := NewMetadataSolver(testMetadata())

	idt, err := solver.CalculateIDTMatrix()
	require.NoError(t, err)

	for i := 0; i < 9; i++ {
		assert.False(t, math.IsNaN(idt[i]))
	}

	// The IDT must not be identity, and must be plausibly close to a
	// color matrix (positive diagonal, determinant-ish sanity).
	assert.NotEqual(t, amath.Identity(), idt)
	assert.Greater(t, idt[0], 0.0)
	assert.Greater(t, idt[4], 0.0)
	assert.Greater(t, idt[8], 0.0)
}

func TestCATMatrixAdaptsToACESWhite(t *testing.T) {
	solver := NewMetadataSolver(testMetadata())

	cat, err := solver.CalculateCATMatrix()
	require.NoError(t, err)

	// The camera white point must map exactly onto the ACES output
	// white under the computed CAT.
	_, white, err := cameraXYZMatrixAndWhitePoint(testMetadata())
	require.NoError(t, err)

	outputWhite := amath.ACESRGBToXYZ.Apply(amath.Vec3{1, 1, 1})
	moved := cat.Apply(white)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, outputWhite[i], moved[i], 1e-9)
	}
}

func TestMissingCalibrationFallsBack(t *testing.T) {
	md := testMetadata()
	md.Calibration[0].Illuminant = 0

	m := findXYZToCameraMatrix(md, md.NeutralRGB)
	assert.Equal(t, md.Calibration[0].XYZToRGB, m)
}

func TestMissingNeutralFallsBack(t *testing.T) {
	md := testMetadata()
	md.NeutralRGB = nil

	m := findXYZToCameraMatrix(md, nil)
	assert.Equal(t, md.Calibration[0].XYZToRGB, m)

	// And the white point then comes from the first calibration
	// illuminant's color temperature.
	_, white, err := cameraXYZMatrixAndWhitePoint(md)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, white[1], 1e-12)
}

func TestBaselineExposureScalesMatrix(t *testing.T) {
	md := testMetadata()
	m0, _, err := cameraXYZMatrixAndWhitePoint(md)
	require.NoError(t, err)

	md.BaselineExposure = 1.0
	m1, _, err := cameraXYZMatrixAndWhitePoint(md)
	require.NoError(t, err)

	for i := 0; i < 9; i++ {
		assert.InDelta(t, 2.0*m0[i], m1[i], 1e-9)
	}
}
