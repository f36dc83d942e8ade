package convert

import(
	"github.com/abworrall/rawtoaces/pkg/dngmeta"
)

// DNGCalibrationTags is the raw shape of one calibration's DNG tags.
// ColorMatrix is 3x3 row-major; CameraCalibration keeps the tag's
// 4-wide row stride, of which only the top-left 3x3 is meaningful.
type DNGCalibrationTags struct {
	Illuminant        uint16
	ColorMatrix       [9]float64
	CameraCalibration [16]float64
}

// ImageSpec is the image metadata the converter works from; the
// decoder fills it in during Probe.
type ImageSpec struct {
	Width  int
	Height int

	// Vendor tags as read from the file.
	Make  string
	Model string

	// Normalised camera identification (see FixMetadata).
	CameraMake  string
	CameraModel string

	// Camera white balance multipliers, 4-wide, when present.
	CamMul []float64
	// Decoder-derived multipliers (daylight baseline), 4-wide, when present.
	PreMul []float64

	DNGVersion       int
	BaselineExposure float64
	DNGCalibration   [2]DNGCalibrationTags

	// The camera's default crop, when the file carries one. Zero
	// width/height means no crop.
	DefaultCrop [4]int
}

func (spec *ImageSpec)IsDNG() bool {
	return spec.DNGVersion > 0
}

// FixMetadata normalises attribute names where the vendor tag doesn't
// match the ACES container name: Make/Model move to
// cameraMake/cameraModel iff the destination is absent, and only then
// is the source erased (a populated destination keeps the source
// visible so the caller can see the conflict).
func FixMetadata(spec *ImageSpec) {
	if spec.CameraMake == "" && spec.Make != "" {
		spec.CameraMake = spec.Make
		spec.Make = ""
	}
	if spec.CameraModel == "" && spec.Model != "" {
		spec.CameraModel = spec.Model
		spec.Model = ""
	}
}

// DNGMetadata assembles the metadata solver's input from the spec's
// DNG tags: the neutral RGB is the inverse of the camera multipliers,
// and the camera calibration collapses from its 4-wide tag stride to
// 3x3.
func (spec *ImageSpec)DNGMetadata() dngmeta.Metadata {
	md := dngmeta.Metadata{
		BaselineExposure: spec.BaselineExposure,
	}

	if len(spec.CamMul) == 4 {
		md.NeutralRGB = make([]float64, 3)
		for i := 0; i < 3; i++ {
			md.NeutralRGB[i] = 1.0 / spec.CamMul[i]
		}
	}

	for k := 0; k < 2; k++ {
		md.Calibration[k].Illuminant = spec.DNGCalibration[k].Illuminant
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				md.Calibration[k].XYZToRGB[i*3+j] = spec.DNGCalibration[k].ColorMatrix[i*3+j]
				md.Calibration[k].CameraCalibration[i*3+j] = spec.DNGCalibration[k].CameraCalibration[i*4+j]
			}
		}
	}

	return md
}

// cameraIdentifier is the make/model pair used for database lookups.
type cameraIdentifier struct {
	make  string
	model string
}

func (id cameraIdentifier)isEmpty() bool {
	return id.make == "" && id.model == ""
}

func (id cameraIdentifier)String() string {
	return "make: '" + id.make + "', model: '" + id.model + "'"
}
