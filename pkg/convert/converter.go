// Package convert orchestrates the raw-to-ACES conversion of a single
// image: pick the white balance and matrix methods, run the
// appropriate solver, then drive the pixels through decode, matrix,
// scale, crop and save.
package convert

import(
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/abworrall/rawtoaces/pkg/amath"
	"github.com/abworrall/rawtoaces/pkg/dngmeta"
	"github.com/abworrall/rawtoaces/pkg/solver"
	"github.com/abworrall/rawtoaces/pkg/specdb"
)

// ImageConverter holds the settings and, after Configure, the concrete
// matrices for one image. No state survives between images beyond the
// settings, so batch drivers can run one converter per image in
// parallel.
type ImageConverter struct {
	Settings Settings
	Decoder  Decoder

	wbMultipliers []float64
	idtMatrix     amath.Mat3
	hasIDT        bool
	catMatrix     amath.Mat3
	hasCAT        bool
}

func NewImageConverter(settings Settings) *ImageConverter {
	return &ImageConverter{
		Settings: settings,
		Decoder:  TIFFDecoder{},
	}
}

func (c *ImageConverter)database() specdb.Database {
	return specdb.Database{Roots: c.Settings.DatabaseDirs, Verbosity: c.Settings.Verbosity}
}

// WBMultipliers returns the multipliers recorded during Configure;
// empty means the decoder owns white balance for this image.
func (c *ImageConverter)WBMultipliers() []float64 { return c.wbMultipliers }

// IDTMatrix returns the input transform; ok=false means identity.
func (c *ImageConverter)IDTMatrix() (amath.Mat3, bool) { return c.idtMatrix, c.hasIDT }

// CATMatrix returns the chromatic adaptation; ok=false means skip.
func (c *ImageConverter)CATMatrix() (amath.Mat3, bool) { return c.catMatrix, c.hasCAT }

func (c *ImageConverter)getCameraIdentifier(spec *ImageSpec) cameraIdentifier {
	id := cameraIdentifier{
		make:  c.Settings.CustomCameraMake,
		model: c.Settings.CustomCameraModel,
	}

	if id.make == "" {
		id.make = spec.CameraMake
		if id.make == "" {
			log.Printf("Missing the camera manufacturer name in the file metadata. " +
				"You can provide a camera make using the --custom-camera-make parameter")
			return cameraIdentifier{}
		}
	}

	if id.model == "" {
		id.model = spec.CameraModel
		if id.model == "" {
			log.Printf("Missing the camera model name in the file metadata. " +
				"You can provide a camera model using the --custom-camera-model parameter")
			return cameraIdentifier{}
		}
	}

	return id
}

func printDataError(dataType string) {
	log.Printf("Failed to find %s.\nPlease check the database search path in %s",
		dataType, specdb.EnvDataPath)
}

// Configure works out the white balance and matrix methods for this
// image, runs the solvers, and fills in the decoder hints. Returns an
// error when the transform can't be configured; warnings about
// inconsistent parameters are non-fatal.
func (c *ImageConverter)Configure(spec *ImageSpec, hints *DecoderHints) error {
	hints.UseCameraWB = false
	hints.UseAutoWB = false

	hints.AutoBright = c.Settings.AutoBright
	hints.AdjustMaximumThreshold = c.Settings.AdjustMaximumThreshold
	hints.BlackLevel = c.Settings.BlackLevel
	hints.SaturationLevel = c.Settings.SaturationLevel
	hints.HalfSize = c.Settings.HalfSize
	hints.Flip = c.Settings.Flip
	hints.HighlightMode = c.Settings.HighlightMode
	hints.Demosaic = c.Settings.DemosaicAlgorithm
	hints.DenoiseThreshold = c.Settings.DenoiseThreshold

	if c.Settings.CropBox[2] != 0 && c.Settings.CropBox[3] != 0 {
		box := c.Settings.CropBox
		hints.CropBox = &box
	}

	if c.Settings.ChromaticAberration[0] != 1.0 && c.Settings.ChromaticAberration[1] != 1.0 {
		aber := c.Settings.ChromaticAberration
		hints.ChromaticAberration = &aber
	}

	switch c.Settings.WBMethod {
	case WBMetadata:
		if len(spec.CamMul) == 4 {
			var mul [4]float64
			copy(mul[:], spec.CamMul)
			hints.UserMul = &mul
			c.wbMultipliers = append([]float64{}, spec.CamMul...)
		}

	case WBIlluminant:
		// No configuration is required at this stage.

	case WBBox:
		if c.Settings.WBBox[2] == 0 || c.Settings.WBBox[3] == 0 {
			// use whole image (auto white balancing)
			hints.UseAutoWB = true
		} else {
			box := c.Settings.WBBox
			hints.GreyBox = &box
		}

	case WBCustom:
		mul := c.Settings.CustomWB
		hints.UserMul = &mul
		c.wbMultipliers = append([]float64{}, mul[:]...)

	default:
		return fmt.Errorf("this white balancing method has not been configured properly")
	}

	matrixMethod := c.Settings.MatrixMethod
	if matrixMethod == MatrixAuto {
		sol := solver.NewSpectralSolver(c.database())
		id := c.getCameraIdentifier(spec)

		if !id.isEmpty() && sol.FindCamera(id.make, id.model) {
			matrixMethod = MatrixSpectral
		} else {
			matrixMethod = MatrixMetadata
			if c.Settings.Verbosity > 0 {
				log.Printf("Info: Falling back to metadata matrix method because "+
					"no spectral data was found for camera %s", id)
			}
		}
	}

	switch matrixMethod {
	case MatrixSpectral:
		hints.ColorSpace = "raw"
		hints.UseCameraMatrix = 0
	case MatrixMetadata:
		hints.ColorSpace = "XYZ"
		if spec.IsDNG() {
			hints.UseCameraMatrix = 1
		} else {
			hints.UseCameraMatrix = 3
		}
	case MatrixAdobe:
		hints.ColorSpace = "XYZ"
		hints.UseCameraMatrix = 1
	case MatrixCustom:
		hints.ColorSpace = "raw"
		hints.UseCameraMatrix = 0
		c.idtMatrix = c.Settings.CustomMatrix
		c.hasIDT = true
	default:
		return fmt.Errorf("this matrix method has not been configured properly")
	}

	isSpectralWB := c.Settings.WBMethod == WBIlluminant
	isSpectralMatrix := matrixMethod == MatrixSpectral

	if isSpectralWB || isSpectralMatrix {
		if err := c.prepareTransformSpectral(spec); err != nil {
			return fmt.Errorf("the colour space transform has not been configured properly (spectral mode): %v", err)
		}

		if isSpectralWB {
			var mul [4]float64
			copy(mul[:], c.wbMultipliers)
			if len(c.wbMultipliers) == 3 {
				mul[3] = c.wbMultipliers[1]
			}
			hints.UserMul = &mul
		}
	}

	if matrixMethod == MatrixMetadata {
		if spec.IsDNG() {
			hints.UseCameraMatrix = 1
			hints.UseCameraWB = true

			if err := c.prepareTransformDNG(spec); err != nil {
				return fmt.Errorf("the colour space transform has not been configured properly (metadata mode): %v", err)
			}
		} else {
			c.prepareTransformNonDNG()
		}
	} else if matrixMethod == MatrixAdobe {
		c.prepareTransformNonDNG()
	}

	if c.Settings.Verbosity > 1 {
		c.logConfiguration()
	}

	return nil
}

// prepareTransformSpectral runs the full spectral path: camera lookup,
// training and observer loads, illuminant resolution (explicit or
// auto-detected from the white balance ratios), then WB and the IDT
// fit. The CAT stays empty; in spectral mode the adaptation is baked
// into the IDT.
func (c *ImageConverter)prepareTransformSpectral(spec *ImageSpec) error {
	// The illuminant parameter only applies in illuminant WB mode;
	// otherwise the illuminant is auto-detected below.
	lowerIlluminant := ""
	if c.Settings.WBMethod == WBIlluminant {
		lowerIlluminant = strings.ToLower(c.Settings.Illuminant)
	}

	id := c.getCameraIdentifier(spec)
	if id.isEmpty() {
		return fmt.Errorf("missing camera identification")
	}

	sol := solver.NewSpectralSolver(c.database())
	sol.Verbosity = c.Settings.Verbosity

	if !sol.FindCamera(id.make, id.model) {
		dataType := "spectral data for camera " + id.String()
		printDataError(dataType)
		return fmt.Errorf("no %s", dataType)
	}

	trainingPath := "training/training_spectral.json"
	if !sol.LoadSpectralData(trainingPath, &sol.TrainingData) {
		dataType := "training data '" + trainingPath + "'"
		printDataError(dataType)
		return fmt.Errorf("no %s", dataType)
	}

	observerPath := "cmf/cmf_1931.json"
	if !sol.LoadSpectralData(observerPath, &sol.Observer) {
		dataType := "observer '" + observerPath + "'"
		printDataError(dataType)
		return fmt.Errorf("no %s", dataType)
	}

	if lowerIlluminant != "" {
		if !sol.FindIlluminant(lowerIlluminant) {
			dataType := "illuminant type = '" + lowerIlluminant + "'"
			printDataError(dataType)
			return fmt.Errorf("no %s", dataType)
		}

		if !sol.CalculateWB() {
			return fmt.Errorf("failed to calculate the white balancing weights")
		}

		wb := sol.WBMultipliers()
		c.wbMultipliers = []float64{wb[0], wb[1], wb[2]}

		if c.Settings.Verbosity > 0 {
			log.Printf("White balance coefficients: %f %f %f", wb[0], wb[1], wb[2])
		}
	} else {
		// Auto-detect the illuminant from white balance multipliers
		tmp := make([]float64, 4)

		if len(c.wbMultipliers) == 4 {
			copy(tmp, c.wbMultipliers[:3])
		} else if len(spec.PreMul) == 4 {
			copy(tmp, spec.PreMul)
		}

		// Average the green channels if 4-channel data
		if tmp[3] != 0 {
			tmp[1] = (tmp[1] + tmp[3]) / 2.0
		}
		tmp = tmp[:3]

		minVal := tmp[0]
		for _, v := range tmp[1:] {
			if v < minVal {
				minVal = v
			}
		}
		if minVal > 0 && minVal != 1 {
			for i := range tmp {
				tmp[i] /= minVal
			}
		}

		if !sol.FindIlluminantFromWB(amath.Vec3{tmp[0], tmp[1], tmp[2]}) {
			return fmt.Errorf("failed to find a suitable illuminant")
		}

		if c.Settings.Verbosity > 0 {
			log.Printf("Found illuminant: '%s'.", sol.Illuminant.Type)
		}
	}

	if !sol.CalculateIDTMatrix() {
		return fmt.Errorf("failed to calculate the input transform matrix")
	}

	c.idtMatrix = sol.IDTMatrix()
	c.hasIDT = true

	if c.Settings.Verbosity > 0 {
		log.Printf("Input Device Transform (IDT) matrix:\n%s", c.idtMatrix)
	}

	// CAT is embedded in the IDT in spectral mode.
	c.hasCAT = false

	return nil
}

// prepareTransformDNG derives the IDT from the file's DNG calibration
// tags. No CAT is applied for DNG; the solver folds the adaptation in.
func (c *ImageConverter)prepareTransformDNG(spec *ImageSpec) error {
	sol := dngmeta.NewMetadataSolver(spec.DNGMetadata())

	idt, err := sol.CalculateIDTMatrix()
	if err != nil {
		return err
	}

	c.idtMatrix = idt
	c.hasIDT = true
	c.hasCAT = false

	if c.Settings.Verbosity > 0 {
		log.Printf("Input transform matrix:\n%s", c.idtMatrix)
	}

	return nil
}

// prepareTransformNonDNG: the decoder has already produced
// device-independent XYZ, so no IDT; just adapt D65 to the ACES white.
func (c *ImageConverter)prepareTransformNonDNG() {
	c.hasIDT = false
	c.catMatrix = amath.CATD65ToACES
	c.hasCAT = true
}

func (c *ImageConverter)logConfiguration() {
	log.Printf("Configuration:")
	log.Printf("  WB method: %s", c.Settings.WBMethod)
	log.Printf("  Matrix method: %s", c.Settings.MatrixMethod)

	if c.Settings.Illuminant != "" {
		log.Printf("  Illuminant: %s", c.Settings.Illuminant)
	}
	if c.Settings.CustomCameraMake != "" || c.Settings.CustomCameraModel != "" {
		log.Printf("  Camera override: %s / %s", c.Settings.CustomCameraMake, c.Settings.CustomCameraModel)
	}
	if c.Settings.WBMethod == WBBox {
		log.Printf("  WB box: %v", c.Settings.WBBox)
	}
	if c.Settings.WBMethod == WBCustom {
		log.Printf("  Custom WB: %v", c.Settings.CustomWB)
	}
	if c.Settings.MatrixMethod == MatrixCustom {
		log.Printf("  Custom matrix:\n%s", c.Settings.CustomMatrix)
	}

	log.Printf("  Crop mode: %s", c.Settings.CropMode)
	if c.Settings.CropBox[2] > 0 && c.Settings.CropBox[3] > 0 {
		log.Printf("  Crop box: %v", c.Settings.CropBox)
	}

	log.Printf("  Demosaic: %s", c.Settings.DemosaicAlgorithm)
	log.Printf("  Headroom: %g", c.Settings.Headroom)
	log.Printf("  Scale: %g", c.Settings.Scale)
	outputDir := c.Settings.OutputDir
	if outputDir == "" {
		outputDir = "<same as input>"
	}
	log.Printf("  Output dir: %s", outputDir)
	log.Printf("  Overwrite: %v", c.Settings.Overwrite)
	log.Printf("  Create dirs: %v", c.Settings.CreateDirs)
	log.Printf("  Verbosity: %d", c.Settings.Verbosity)
}

// ApplyMatrix runs the configured transforms over the pixels: the IDT
// first, then (when present) the CAT followed by XYZ-to-ACES.
func (c *ImageConverter)ApplyMatrix(img *Image) {
	if c.hasIDT {
		applyMatrix(c.idtMatrix, img)
	}
	if c.hasCAT {
		applyMatrix(c.catMatrix, img)
		applyMatrix(amath.XYZToACES, img)
	}
}

func applyMatrix(m amath.Mat3, img *Image) {
	for i := 0; i < len(img.Pix); i += 3 {
		v := m.Apply(amath.Vec3{img.Pix[i], img.Pix[i+1], img.Pix[i+2]})
		img.Pix[i], img.Pix[i+1], img.Pix[i+2] = v[0], v[1], v[2]
	}
}

// ApplyScale multiplies the pixels by headroom * scale.
func (c *ImageConverter)ApplyScale(img *Image) {
	scale := c.Settings.Headroom * c.Settings.Scale
	for i := range img.Pix {
		img.Pix[i] *= scale
	}
}

// ApplyCrop implements the crop modes: Off writes the full sensor area
// as the display window too, Soft leaves the crop marked as the
// display window only, Hard trims the pixels down to the crop.
func (c *ImageConverter)ApplyCrop(img *Image) {
	switch c.Settings.CropMode {
	case CropOff:
		img.Display = img.Rect

	case CropSoft:
		// The display window already marks the crop.

	case CropHard:
		crop := img.Display.Intersect(img.Rect)
		if crop == img.Rect {
			return
		}
		out := NewImage(crop.Dx(), crop.Dy())
		for y := 0; y < crop.Dy(); y++ {
			for x := 0; x < crop.Dx(); x++ {
				out.SetRGB(x, y, img.RGBAt(crop.Min.X+x, crop.Min.Y+y))
			}
		}
		*img = *out
	}
}

// MakeOutputPath works out where the output EXR goes: alongside the
// input (or under the output dir) with the "_aces.exr" suffix,
// honouring --create-dirs and --overwrite.
func (c *ImageConverter)MakeOutputPath(inputPath string) (string, error) {
	if inputPath == "" {
		return "", fmt.Errorf("empty input path provided")
	}

	ext := filepath.Ext(inputPath)
	outPath := inputPath[:len(inputPath)-len(ext)] + "_aces.exr"

	if c.Settings.OutputDir != "" {
		dir, file := filepath.Split(outPath)

		newDir := c.Settings.OutputDir
		if !filepath.IsAbs(newDir) {
			newDir = filepath.Join(dir, newDir)
		}

		if _, err := os.Stat(newDir); err != nil {
			if !c.Settings.CreateDirs {
				return "", fmt.Errorf("the output directory %s does not exist", newDir)
			}
			if err := os.MkdirAll(newDir, 0755); err != nil {
				return "", fmt.Errorf("failed to create directory %s: %v", newDir, err)
			}
		}

		outPath = filepath.Join(newDir, file)
	}

	if !c.Settings.Overwrite {
		if _, err := os.Stat(outPath); err == nil {
			return "", fmt.Errorf("file %s already exists. Use --overwrite to allow "+
				"overwriting existing files. Skipping this file", outPath)
		}
	}

	return outPath, nil
}

// ProcessImage runs one image through the whole pipeline. Failures are
// logged and reported as false; the batch driver keeps going.
func (c *ImageConverter)ProcessImage(inputPath string) bool {
	if inputPath == "" {
		if c.Settings.Verbosity > 0 {
			log.Printf("ERROR: Empty input filename provided.")
		}
		return false
	}

	if _, err := os.Stat(inputPath); err != nil {
		if c.Settings.Verbosity > 0 {
			log.Printf("ERROR: Input file does not exist: %s", inputPath)
		}
		return false
	}

	outputPath, err := c.MakeOutputPath(inputPath)
	if err != nil {
		log.Printf("ERROR: %v", err)
		return false
	}

	timer := NewUsageTimer(c.Settings.UseTiming)

	if c.Settings.Verbosity > 0 {
		log.Printf("Configuring transform for: %s", inputPath)
	}
	timer.Reset()
	spec, err := c.Decoder.Probe(inputPath)
	if err != nil {
		log.Printf("Failed to read the metadata of the file: %s: %v", inputPath, err)
		return false
	}
	FixMetadata(spec)

	var hints DecoderHints
	if err := c.Configure(spec, &hints); err != nil {
		log.Printf("Failed to configure the reader for the file: %s: %v", inputPath, err)
		return false
	}
	timer.Print(inputPath, "configuring reader")

	if c.Settings.Verbosity > 0 {
		log.Printf("Loading image: %s", inputPath)
	}
	timer.Reset()
	img, err := c.Decoder.Decode(inputPath, hints)
	if err != nil {
		log.Printf("Failed to read the file: %s: %v", inputPath, err)
		return false
	}
	timer.Print(inputPath, "reading image")

	if c.Settings.Verbosity > 0 {
		log.Printf("Applying transform matrix")
	}
	timer.Reset()
	c.ApplyMatrix(img)
	timer.Print(inputPath, "applying transform matrix")

	timer.Reset()
	c.ApplyScale(img)
	timer.Print(inputPath, "applying scale")

	timer.Reset()
	c.ApplyCrop(img)
	timer.Print(inputPath, "applying crop")

	if c.Settings.Verbosity > 0 {
		log.Printf("Saving output: %s", outputPath)
	}
	timer.Reset()
	if err := SaveImage(outputPath, img); err != nil {
		log.Printf("Failed to save the file: %s: %v", outputPath, err)
		return false
	}
	timer.Print(inputPath, "writing image")

	return true
}
