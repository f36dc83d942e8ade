package convert

import(
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/abworrall/rawtoaces/pkg/amath"
)

type WBMethod int

const (
	WBMetadata WBMethod = iota
	WBIlluminant
	WBBox
	WBCustom
)

func (m WBMethod)String() string {
	switch m {
	case WBMetadata:   return "metadata"
	case WBIlluminant: return "illuminant"
	case WBBox:        return "box"
	case WBCustom:     return "custom"
	}
	return "unknown"
}

func ParseWBMethod(s string) (WBMethod, error) {
	switch s {
	case "metadata":   return WBMetadata, nil
	case "illuminant": return WBIlluminant, nil
	case "box":        return WBBox, nil
	case "custom":     return WBCustom, nil
	}
	return WBMetadata, fmt.Errorf("unsupported white balancing method: '%s'. "+
		"The following methods are supported: metadata, illuminant, box, custom", s)
}

type MatrixMethod int

const (
	MatrixAuto MatrixMethod = iota
	MatrixSpectral
	MatrixMetadata
	MatrixAdobe
	MatrixCustom
)

func (m MatrixMethod)String() string {
	switch m {
	case MatrixAuto:     return "auto"
	case MatrixSpectral: return "spectral"
	case MatrixMetadata: return "metadata"
	case MatrixAdobe:    return "Adobe"
	case MatrixCustom:   return "custom"
	}
	return "unknown"
}

func ParseMatrixMethod(s string) (MatrixMethod, error) {
	switch s {
	case "auto":     return MatrixAuto, nil
	case "spectral": return MatrixSpectral, nil
	case "metadata": return MatrixMetadata, nil
	case "Adobe":    return MatrixAdobe, nil
	case "custom":   return MatrixCustom, nil
	}
	return MatrixAuto, fmt.Errorf("unsupported matrix method: '%s'. "+
		"The following methods are supported: auto, spectral, metadata, Adobe, custom", s)
}

type CropMode int

const (
	CropSoft CropMode = iota
	CropOff
	CropHard
)

func (m CropMode)String() string {
	switch m {
	case CropOff:  return "off"
	case CropSoft: return "soft"
	case CropHard: return "hard"
	}
	return "unknown"
}

func ParseCropMode(s string) (CropMode, error) {
	switch s {
	case "off":  return CropOff, nil
	case "soft": return CropSoft, nil
	case "hard": return CropHard, nil
	}
	return CropSoft, fmt.Errorf("unsupported cropping mode: '%s'. "+
		"The following modes are supported: off, soft, hard", s)
}

// Settings carries every user choice the converter honours.
type Settings struct {
	WBMethod     WBMethod
	MatrixMethod MatrixMethod
	CropMode     CropMode

	Illuminant        string
	WBBox             [4]int
	CustomWB          [4]float64
	CustomMatrix      amath.Mat3
	CustomCameraMake  string
	CustomCameraModel string

	// Decoder hints
	DemosaicAlgorithm      string
	HighlightMode          int
	Flip                   int
	BlackLevel             int
	SaturationLevel        int
	AdjustMaximumThreshold float64
	ChromaticAberration    [2]float64
	DenoiseThreshold       float64
	HalfSize               bool
	AutoBright             bool

	// Output
	Headroom   float64
	Scale      float64
	CropBox    [4]int
	OutputDir  string
	Overwrite  bool
	CreateDirs bool

	Verbosity int
	UseTiming bool

	DatabaseDirs []string
}

func NewSettings() Settings {
	return Settings{
		WBMethod:               WBMetadata,
		MatrixMethod:           MatrixAuto,
		CropMode:               CropSoft,
		CustomWB:               [4]float64{1, 1, 1, 1},
		CustomMatrix:           amath.Identity(),
		DemosaicAlgorithm:      "AHD",
		BlackLevel:             -1,
		AdjustMaximumThreshold: 0.75,
		ChromaticAberration:    [2]float64{1, 1},
		Headroom:               6.0,
		Scale:                  1.0,
	}
}

// LoadYaml merges a yaml settings document over the receiver.
func (s *Settings)LoadYaml(path string) error {
	contents, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("settings read %s: %v", path, err)
	}
	if err := yaml.Unmarshal(contents, s); err != nil {
		return fmt.Errorf("settings parse %s: %v", path, err)
	}
	return nil
}

func (s Settings)AsYaml() string {
	b, err := yaml.Marshal(s)
	if err != nil {
		log.Fatalf("Can't marshal settings yaml: %v", err)
	}
	return string(b)
}

// CheckParam validates a mode-specific parameter list: right mode wants
// exactly correctSize values (warn and fall back otherwise); wrong mode
// with values provided warns that they'll be ignored. Warnings are
// non-fatal; onFailure installs the default.
func CheckParam(modeName, modeValue, paramName string, values []float64, correctSize int,
	defaultValueMessage string, isCorrectMode bool, onSuccess, onFailure func()) bool {

	provided := len(values) > 1 || (len(values) == 1 && values[0] != 0)

	if isCorrectMode {
		if len(values) == correctSize {
			onSuccess()
			return true
		}
		if !provided {
			log.Printf("Warning: %s was set to \"%s\", but no \"--%s\" parameter provided. %s",
				modeName, modeValue, paramName, defaultValueMessage)
		} else {
			log.Printf("Warning: The parameter \"%s\" must have %d values. %s",
				paramName, correctSize, defaultValueMessage)
		}
		onFailure()
		return false
	}

	if provided {
		log.Printf("Warning: the \"--%s\" parameter provided, but the %s is different from \"%s\". %s",
			paramName, modeName, modeValue, defaultValueMessage)
		onFailure()
		return false
	}
	return true
}

// ValidateIlluminant applies the illuminant/WB-method consistency
// rules: the illuminant parameter only means something in illuminant
// mode, and illuminant mode without a parameter falls back to D55.
func (s *Settings)ValidateIlluminant() {
	isDefined := s.Illuminant != ""
	isIlluminantMode := s.WBMethod == WBIlluminant

	if isIlluminantMode && !isDefined {
		log.Printf("Warning: the white balancing method was set to \"illuminant\", " +
			"but no \"--illuminant\" parameter provided. D55 will be used as default.")
		s.Illuminant = "D55"
	} else if !isIlluminantMode && isDefined {
		log.Printf("Warning: the \"--illuminant\" parameter provided but the white " +
			"balancing mode different from \"illuminant\" requested. " +
			"The custom illuminant will be ignored.")
	}
}
