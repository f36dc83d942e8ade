// Package dngmeta derives an Input Device Transform from DNG-style
// calibration metadata alone, for cameras we have no spectral
// sensitivity data for. It implements the DNG color-math: interpolate
// between the two reference calibrations by color temperature, then
// chromatically adapt to the ACES white point.
package dngmeta

import(
	"log"
	"math"

	"github.com/abworrall/rawtoaces/pkg/amath"
)

// Calibration is one of the two per-illuminant calibrations a DNG
// carries.
type Calibration struct {
	// The EXIF LightSource code of the calibration illuminant.
	Illuminant uint16
	// The XYZ-to-camera color matrix (the DNG ColorMatrix tag).
	XYZToRGB amath.Mat3
	// The camera calibration matrix. Stored 4-wide per row in the DNG
	// tag; only the top-left 3x3 lands here.
	CameraCalibration amath.Mat3
}

// Metadata is the DNG tag subset the solver consumes.
type Metadata struct {
	BaselineExposure float64
	// A neutral color in camera RGB, i.e. the inverse of the camera's
	// white balance multipliers. Empty when the file carried none.
	NeutralRGB  []float64
	Calibration [2]Calibration
}

// MetadataSolver computes IDT and CAT matrices from Metadata.
type MetadataSolver struct {
	metadata Metadata
}

func NewMetadataSolver(metadata Metadata) *MetadataSolver {
	return &MetadataSolver{metadata: metadata}
}

// Linear interpolation between the two calibration matrices at a target
// Mired value, clamped to the calibrated range.
func weightedXYZToCameraMatrix(miredTarget, miredStart, miredEnd float64, matrixStart, matrixEnd amath.Mat3) amath.Mat3 {
	weight := math.Max(0.0, math.Min(1.0, (miredStart-miredTarget)/(miredStart-miredEnd)))

	var result amath.Mat3
	for i := 0; i < 9; i++ {
		result[i] = matrixStart[i] + weight*(matrixEnd[i]-matrixStart[i])
	}
	return result
}

// findXYZToCameraMatrix searches Mired space for the interpolated
// matrix that is self-consistent: the matrix whose implied white point
// (inverse matrix times the neutral RGB) has the color temperature the
// matrix was interpolated at. Accepts the first bracketing sign change
// of the error and interpolates to the zero; failing that, the smallest
// absolute error wins.
func findXYZToCameraMatrix(metadata Metadata, neutralRGB []float64) amath.Mat3 {
	if metadata.Calibration[0].Illuminant == 0 {
		log.Printf("No calibration illuminants were found.")
		return metadata.Calibration[0].XYZToRGB
	}

	if len(neutralRGB) == 0 {
		log.Printf("No neutral RGB values were found.")
		return metadata.Calibration[0].XYZToRGB
	}

	neutral := amath.Vec3{neutralRGB[0], neutralRGB[1], neutralRGB[2]}

	cct1 := LightSourceToColorTemp(metadata.Calibration[0].Illuminant)
	cct2 := LightSourceToColorTemp(metadata.Calibration[1].Illuminant)

	mir1 := CCTToMired(cct1)
	mir2 := CCTToMired(cct2)

	maxMired := CCTToMired(2000.0)
	minMired := CCTToMired(50000.0)

	matrixStart := metadata.Calibration[0].XYZToRGB
	matrixEnd := metadata.Calibration[1].XYZToRGB

	lowMired := math.Max(minMired, math.Min(maxMired, math.Min(mir1, mir2)))
	highMired := math.Max(minMired, math.Min(maxMired, math.Max(mir1, mir2)))
	miredStep := math.Max(5.0, (highMired-lowMired)/50.0)

	lastMired, estimatedMired := 0.0, 0.0
	currentError, lastError := 0.0, 0.0
	smallestError := math.Inf(1)

	for currentMired := lowMired; currentMired < highMired; currentMired += miredStep {
		candidate := weightedXYZToCameraMatrix(currentMired, mir1, mir2, matrixStart, matrixEnd)

		inverse, err := candidate.Inverse()
		if err != nil {
			continue
		}

		whiteXYZ := inverse.Apply(neutral)
		currentError = currentMired - CCTToMired(XYZToColorTemperature(whiteXYZ))

		if math.Abs(currentError) <= 1e-09 {
			estimatedMired = currentMired
			break
		}
		if math.Abs(currentMired-lowMired) > 1e-09 && currentError*lastError <= 0.0 {
			estimatedMired = currentMired +
				currentError/(currentError-lastError)*(currentMired-lastMired)
			break
		}
		if math.Abs(currentError) < math.Abs(smallestError) {
			estimatedMired = currentMired
			smallestError = currentError
		}

		lastError = currentError
		lastMired = currentMired
	}

	return weightedXYZToCameraMatrix(estimatedMired, mir1, mir2, matrixStart, matrixEnd)
}

// cameraXYZMatrixAndWhitePoint returns the camera-to-XYZ matrix (with
// baseline exposure folded in) and the camera white point, normalized
// to Y=1. The white point comes from the neutral RGB when present, else
// from the first calibration illuminant's color temperature.
func cameraXYZMatrixAndWhitePoint(metadata Metadata) (amath.Mat3, amath.Vec3, error) {
	xyzToCamera := findXYZToCameraMatrix(metadata, metadata.NeutralRGB)

	cameraToXYZ, err := xyzToCamera.Inverse()
	if err != nil {
		return amath.Identity(), amath.Vec3{}, err
	}

	cameraToXYZ = cameraToXYZ.Scale(math.Pow(2.0, metadata.BaselineExposure))

	var white amath.Vec3
	if len(metadata.NeutralRGB) > 0 {
		neutral := amath.Vec3{metadata.NeutralRGB[0], metadata.NeutralRGB[1], metadata.NeutralRGB[2]}
		white = cameraToXYZ.Apply(neutral)
	} else {
		white = ColorTemperatureToXYZ(LightSourceToColorTemp(metadata.Calibration[0].Illuminant))
	}

	white = white.Scale(1.0 / white[1])
	return cameraToXYZ, white, nil
}

// CalculateCATMatrix produces the Bradford adaptation from the camera
// white point to the ACES output white point.
func (ms *MetadataSolver)CalculateCATMatrix() (amath.Mat3, error) {
	_, cameraWhite, err := cameraXYZMatrixAndWhitePoint(ms.metadata)
	if err != nil {
		return amath.Identity(), err
	}

	outputWhite := amath.ACESRGBToXYZ.Apply(amath.Vec3{1, 1, 1})

	return amath.CAT(cameraWhite, outputWhite)
}

// CalculateIDTMatrix produces the metadata-derived IDT: the fixed
// D65-referenced XYZ to AP0 matrix composed with the camera's CAT.
func (ms *MetadataSolver)CalculateIDTMatrix() (amath.Mat3, error) {
	cat, err := ms.CalculateCATMatrix()
	if err != nil {
		return amath.Identity(), err
	}

	return amath.XYZD65ToACESRGB.Mult(cat), nil
}
