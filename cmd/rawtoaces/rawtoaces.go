package main

import(
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/abworrall/rawtoaces/pkg/amath"
	"github.com/abworrall/rawtoaces/pkg/convert"
	"github.com/abworrall/rawtoaces/pkg/solver"
	"github.com/abworrall/rawtoaces/pkg/specdb"
)

const helpString = `Rawtoaces converts raw image files from a digital camera to
Academy Colour Encoding System (ACES) compliant images.
The process consists of two parts:
- the colour values get converted from the camera native colour
space to the ACES AP0 (see "SMPTE ST 2065-1"), and
- the image file gets converted to the ACES Image Container
file format (see "SMPTE ST 2065-4").

White-balancing modes (--wb-method):
- "metadata" uses the white-balancing coefficients from the raw
  image file, provided by the camera.
- "illuminant" white balances to the illuminant given in
  "--illuminant". Requires spectral sensitivity data for the
  camera (see --list-cameras). Blackbody illuminants use a 'K'
  suffix (e.g. 3200K); daylight uses a 'D' prefix (e.g. D65).
- "box" white balances so the given region ("--wb-box") comes out
  neutral gray; with no box, the whole image is used.
- "custom" uses the "--custom-wb" coefficients.

Matrix methods (--mat-method):
- "auto" (recommended) tries "spectral" when the camera's spectral
  sensitivity data is available, falling back to "metadata".
- "spectral" computes the optimal matrix from the camera sensor's
  spectral sensitivity data.
- "metadata" uses the matrices from the raw file metadata (best
  with DNG).
- "Adobe" uses the Adobe coefficients provided by the decoder.
- "custom" uses the "--custom-mat" matrix.

The spectral data search path can be set in the ` + specdb.EnvDataPath + `
environment variable.

Multi-value parameters take a single quoted argument, e.g.
--wb-box "100 100 400 400". A path argument ending in .yaml is
loaded as a settings document before the flags apply.
`

var (
	fWBMethod          string
	fMatMethod         string
	fIlluminant        string
	fWBBox             string
	fCustomWB          string
	fCustomMat         string
	fCustomCameraMake  string
	fCustomCameraModel string

	fHeadroom float64
	fScale    float64

	fCropMode  string
	fCropBox   string
	fDataDir   string
	fOutputDir string

	fOverwrite       bool
	fCreateDirs      bool
	fListCameras     bool
	fListIlluminants bool
	fUseTiming       bool
	fVerbosity       int

	fDemosaic               string
	fHalfSize               bool
	fHighlightMode          int
	fFlip                   int
	fBlackLevel             int
	fSaturationLevel        int
	fAdjustMaximumThreshold float64
	fChromaticAberration    string
	fDenoiseThreshold       float64
	fAutoBright             bool
)

func init() {
	flag.StringVar(&fWBMethod, "wb-method", "metadata", "white balance method: metadata, illuminant, box, custom")
	flag.StringVar(&fMatMethod, "mat-method", "auto", "IDT matrix method: auto, spectral, metadata, Adobe, custom")
	flag.StringVar(&fIlluminant, "illuminant", "", "illuminant for white balancing (default D55)")
	flag.StringVar(&fWBBox, "wb-box", "", "box to use for white balancing: \"X Y W H\"")
	flag.StringVar(&fCustomWB, "custom-wb", "", "custom white balance multipliers: \"R G B G\"")
	flag.StringVar(&fCustomMat, "custom-mat", "", "custom camera RGB to ACES matrix, 9 values row-major")
	flag.StringVar(&fCustomCameraMake, "custom-camera-make", "", "camera manufacturer override for spectral data lookup")
	flag.StringVar(&fCustomCameraModel, "custom-camera-model", "", "camera model override for spectral data lookup")

	flag.Float64Var(&fHeadroom, "headroom", 6.0, "highlight headroom factor")
	flag.Float64Var(&fScale, "scale", 1.0, "additional scaling factor to apply to the pixel values")

	flag.StringVar(&fCropMode, "crop-mode", "soft", "cropping mode: off, soft, hard")
	flag.StringVar(&fCropBox, "crop-box", "", "apply custom crop: \"X Y W H\"")
	flag.StringVar(&fDataDir, "data-dir", "", "directory containing the spectral data files; overrides "+specdb.EnvDataPath)
	flag.StringVar(&fOutputDir, "output-dir", "", "the directory to write the output files to")

	flag.BoolVar(&fOverwrite, "overwrite", false, "allow overwriting existing files")
	flag.BoolVar(&fCreateDirs, "create-dirs", false, "create output directories if they don't exist")
	flag.BoolVar(&fListCameras, "list-cameras", false, "show the list of cameras supported in spectral mode")
	flag.BoolVar(&fListIlluminants, "list-illuminants", false, "show the list of illuminants supported in spectral mode")
	flag.BoolVar(&fUseTiming, "use-timing", false, "log the execution time of each step of image processing")
	flag.IntVar(&fVerbosity, "v", 0, "how verbose to get")

	flag.StringVar(&fDemosaic, "demosaic", "AHD", "demosaicing algorithm")
	flag.BoolVar(&fHalfSize, "half-size", false, "decode image at half size resolution")
	flag.IntVar(&fHighlightMode, "highlight-mode", 0, "0 = clip, 1 = unclip, 2 = blend, 3..9 = rebuild")
	flag.IntVar(&fFlip, "flip", 0, "if not 0, override the orientation specified in the metadata")
	flag.IntVar(&fBlackLevel, "black-level", -1, "if >= 0, override the black level")
	flag.IntVar(&fSaturationLevel, "saturation-level", 0, "if not 0, override the saturation level")
	flag.Float64Var(&fAdjustMaximumThreshold, "adjust-maximum-threshold", 0.75, "lower the linearity threshold by this scaling factor")
	flag.StringVar(&fChromaticAberration, "chromatic-aberration", "", "red and blue scale factors: \"R B\"")
	flag.Float64Var(&fDenoiseThreshold, "denoise-threshold", 0, "wavelet denoising threshold")
	flag.BoolVar(&fAutoBright, "auto-bright", false, "enable automatic exposure adjustment")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "%s\nUsage: rawtoaces [options] path/to/dir/or/file ...\n\n", helpString)
		flag.PrintDefaults()
	}

	flag.Parse()
}

func parseFloats(s string) []float64 {
	var out []float64
	for _, field := range strings.Fields(strings.ReplaceAll(s, ",", " ")) {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			log.Printf("Warning: can't parse '%s' as a number, ignoring.", field)
			continue
		}
		out = append(out, v)
	}
	return out
}

var demosaicAlgorithms = map[string]bool{
	"linear": true, "VNG": true, "PPG": true, "AHD": true, "DCB": true,
	"AHD-Mod": true, "AFD": true, "VCD": true, "Mixed": true, "LMMSE": true,
	"AMaZE": true, "DHT": true, "AAHD": true,
}

func buildSettings() convert.Settings {
	settings := convert.NewSettings()

	// A .yaml argument is a base settings document; flags layer on top.
	for _, arg := range flag.Args() {
		if strings.HasSuffix(strings.ToLower(arg), ".yaml") {
			if err := settings.LoadYaml(arg); err != nil {
				log.Fatalf("%v", err)
			}
			log.Printf("Loaded base settings from %s", arg)
		}
	}

	var err error
	if settings.WBMethod, err = convert.ParseWBMethod(fWBMethod); err != nil {
		log.Fatalf("%v", err)
	}
	if settings.MatrixMethod, err = convert.ParseMatrixMethod(fMatMethod); err != nil {
		log.Fatalf("%v", err)
	}
	if settings.CropMode, err = convert.ParseCropMode(fCropMode); err != nil {
		log.Fatalf("%v", err)
	}

	settings.Illuminant = fIlluminant
	settings.ValidateIlluminant()

	wbBox := parseFloats(fWBBox)
	convert.CheckParam("white balancing mode", "box", "wb-box", wbBox, 4,
		"The box will be ignored.",
		settings.WBMethod == convert.WBBox,
		func() {
			for i := 0; i < 4; i++ {
				settings.WBBox[i] = int(wbBox[i])
			}
		},
		func() { settings.WBBox = [4]int{} })

	customWB := parseFloats(fCustomWB)
	convert.CheckParam("white balancing mode", "custom", "custom-wb", customWB, 4,
		"The scalers will be ignored. The default values of (1, 1, 1, 1) will be used.",
		settings.WBMethod == convert.WBCustom,
		func() { copy(settings.CustomWB[:], customWB) },
		func() { settings.CustomWB = [4]float64{1, 1, 1, 1} })

	customMat := parseFloats(fCustomMat)
	convert.CheckParam("matrix mode", "custom", "custom-mat", customMat, 9,
		"Identity matrix will be used.",
		settings.MatrixMethod == convert.MatrixCustom,
		func() { copy(settings.CustomMatrix[:], customMat) },
		func() { settings.CustomMatrix = amath.Identity() })

	if cropBox := parseFloats(fCropBox); len(cropBox) == 4 {
		for i := 0; i < 4; i++ {
			settings.CropBox[i] = int(cropBox[i])
		}
	}

	if aber := parseFloats(fChromaticAberration); len(aber) == 2 {
		settings.ChromaticAberration = [2]float64{aber[0], aber[1]}
	}

	if !demosaicAlgorithms[fDemosaic] {
		var names []string
		for name := range demosaicAlgorithms {
			names = append(names, name)
		}
		log.Fatalf("Unsupported demosaicing algorithm: '%s'. The following algorithms are supported: %s.",
			fDemosaic, strings.Join(names, ", "))
	}
	settings.DemosaicAlgorithm = fDemosaic

	settings.CustomCameraMake = fCustomCameraMake
	settings.CustomCameraModel = fCustomCameraModel

	settings.Headroom = fHeadroom
	settings.Scale = fScale
	settings.AutoBright = fAutoBright
	settings.AdjustMaximumThreshold = fAdjustMaximumThreshold
	settings.BlackLevel = fBlackLevel
	settings.SaturationLevel = fSaturationLevel
	settings.HalfSize = fHalfSize
	settings.HighlightMode = fHighlightMode
	settings.Flip = fFlip
	settings.DenoiseThreshold = fDenoiseThreshold

	settings.OutputDir = fOutputDir
	settings.Overwrite = fOverwrite
	settings.CreateDirs = fCreateDirs
	settings.Verbosity = fVerbosity
	settings.UseTiming = fUseTiming

	settings.DatabaseDirs = specdb.ResolveRoots(fDataDir)

	return settings
}

func main() {
	settings := buildSettings()
	db := specdb.Database{Roots: settings.DatabaseDirs, Verbosity: settings.Verbosity}

	if fListCameras {
		fmt.Printf("\nSpectral sensitivity data is available for the following cameras:\n%s\n",
			strings.Join(db.Cameras(), "\n"))
		os.Exit(0)
	}

	if fListIlluminants {
		fmt.Printf("\nThe following illuminants are supported:\n%s\n",
			strings.Join(db.Illuminants(), "\n"))
		os.Exit(0)
	}

	// If an illuminant was requested, confirm that we have it in the
	// database before we start loading any images.
	if settings.WBMethod == convert.WBIlluminant {
		sol := solver.NewSpectralSolver(db)
		if !sol.FindIlluminant(settings.Illuminant) {
			log.Fatalf("Error: No matching light source. " +
				"Please find available options by \"rawtoaces --list-illuminants\".")
		}
	}

	if settings.Verbosity > 1 {
		log.Printf("Final configuration:-\n\n%s\n", settings.AsYaml())
	}

	var paths []string
	for _, arg := range flag.Args() {
		if !strings.HasSuffix(strings.ToLower(arg), ".yaml") {
			paths = append(paths, arg)
		}
	}

	if len(paths) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	failures := 0
	for _, batch := range convert.CollectImageFiles(paths) {
		for _, file := range batch {
			converter := convert.NewImageConverter(settings)
			if !converter.ProcessImage(file) {
				failures++
			}
		}
	}

	if failures > 0 {
		log.Printf("%d file(s) failed to convert", failures)
		os.Exit(1)
	}
}
