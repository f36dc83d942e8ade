// Package solver computes white balance multipliers and Input Device
// Transform matrices from camera spectral sensitivity data.
package solver

import(
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/abworrall/rawtoaces/pkg/amath"
	"github.com/abworrall/rawtoaces/pkg/specdb"
	"github.com/abworrall/rawtoaces/pkg/spectra"
)

// SpectralSolver owns the four spectral data slots the IDT computation
// needs. The candidate illuminant library for auto-identification is
// built at construction, so instances are read-only after setup except
// for the explicit FindCamera/FindIlluminant setters.
type SpectralSolver struct {
	DB        specdb.Database
	Verbosity int

	Camera       spectra.SpectralData
	Illuminant   spectra.SpectralData
	Observer     spectra.SpectralData
	TrainingData spectra.SpectralData

	wbMultipliers amath.Vec3
	idtMatrix     amath.Mat3

	allIlluminants []spectra.SpectralData
}

func NewSpectralSolver(db specdb.Database) *SpectralSolver {
	s := &SpectralSolver{
		DB:            db,
		Verbosity:     db.Verbosity,
		wbMultipliers: amath.Vec3{1, 1, 1},
		idtMatrix:     amath.Identity(),
	}
	s.buildIlluminantLibrary()
	return s
}

// The candidate library for auto-identification: daylight at 500K
// steps across [4000, 25000], blackbody at 500K steps across
// [1500, 4000), then every illuminant file in the database.
func (s *SpectralSolver)buildIlluminantLibrary() {
	for cct := 4000; cct <= 25000; cct += 500 {
		typeName := "d" + strconv.Itoa(cct/100)
		data, err := spectra.GenerateIlluminant(cct, typeName, true)
		if err != nil {
			continue
		}
		s.allIlluminants = append(s.allIlluminants, data)
	}

	for cct := 1500; cct < 4000; cct += 500 {
		typeName := strconv.Itoa(cct) + "k"
		data, err := spectra.GenerateIlluminant(cct, typeName, false)
		if err != nil {
			continue
		}
		s.allIlluminants = append(s.allIlluminants, data)
	}

	for _, file := range s.DB.CollectFiles("illuminant") {
		var data spectra.SpectralData
		if err := data.Load(file, true); err != nil {
			log.Printf("%v", err)
			continue
		}
		s.allIlluminants = append(s.allIlluminants, data)
	}
}

// LoadSpectralData loads a database file into the given slot. Relative
// paths search the roots in order; absolute paths load directly.
func (s *SpectralSolver)LoadSpectralData(relPath string, dst *spectra.SpectralData) bool {
	path, ok := s.DB.FindFile(relPath)
	if !ok {
		return false
	}
	if err := dst.Load(path, true); err != nil {
		log.Printf("%v", err)
		return false
	}
	return true
}

// FindCamera looks for spectral sensitivity data matching the make and
// model, case-insensitively, and loads the first hit into the camera
// slot.
func (s *SpectralSolver)FindCamera(make, model string) bool {
	for _, file := range s.DB.CollectFiles("camera") {
		if err := s.Camera.Load(file, true); err != nil {
			log.Printf("%v", err)
			continue
		}
		if !strings.EqualFold(s.Camera.Manufacturer, make) {
			continue
		}
		if !strings.EqualFold(s.Camera.Model, model) {
			continue
		}
		return true
	}
	return false
}

// FindIlluminant resolves an illuminant type string. "D" + digits
// synthesizes a daylight SPD ("D65", "D6025"), digits + "K" synthesizes
// a blackbody ("3200K"), anything else is looked up in the database by
// type, case-insensitively.
func (s *SpectralSolver)FindIlluminant(typeName string) bool {
	if typeName == "" {
		return false
	}

	startsWithD := typeName[0] == 'd' || typeName[0] == 'D'
	last := typeName[len(typeName)-1]
	endsWithK := last == 'k' || last == 'K'

	switch {
	case startsWithD && !endsWithK:
		cct, err := strconv.Atoi(typeName[1:])
		if err != nil {
			return false
		}
		data, err := spectra.GenerateIlluminant(cct, "d"+strconv.Itoa(cct), true)
		if err != nil {
			log.Printf("%v", err)
			return false
		}
		s.Illuminant = data
		return true

	case !startsWithD && endsWithK:
		cct, err := strconv.Atoi(typeName[:len(typeName)-1])
		if err != nil {
			return false
		}
		data, err := spectra.GenerateIlluminant(cct, strconv.Itoa(cct)+"k", false)
		if err != nil {
			log.Printf("%v", err)
			return false
		}
		s.Illuminant = data
		return true
	}

	for _, file := range s.DB.CollectFiles("illuminant") {
		var data spectra.SpectralData
		if err := data.Load(file, true); err != nil {
			continue
		}
		if strings.EqualFold(data.Type, typeName) {
			s.Illuminant = data
			return true
		}
	}

	return false
}

// FindIlluminantFromWB auto-identifies the scene illuminant: for each
// candidate in the library, compute the white balance that the loaded
// camera would yield under it, and pick the candidate whose multipliers
// sit closest (squared Euclidean distance) to the measured ratios.
// Deterministic for a given database.
func (s *SpectralSolver)FindIlluminantFromWB(wb amath.Vec3) bool {
	if !s.cameraReady() {
		log.Printf("ERROR: camera needs to be initialised prior to calling FindIlluminantFromWB()")
		return false
	}

	sse := math.Inf(1)

	for _, candidate := range s.allIlluminants {
		// Work on a copy: the WB calculation rescales the power curve,
		// and the library must stay pristine.
		scaled := copyIlluminant(candidate)
		wbTmp, err := calculateWB(&s.Camera, &scaled)
		if err != nil {
			continue
		}

		sseTmp := sumSquaredError(wbTmp, wb)
		if sseTmp < sse {
			sse = sseTmp
			s.Illuminant = scaled
			s.wbMultipliers = wbTmp
		}
	}

	if math.IsInf(sse, 1) {
		return false
	}

	if s.Verbosity > 1 {
		log.Printf("The illuminant calculated to be the best match to the camera metadata is '%s'.",
			s.Illuminant.Type)
	}

	return true
}

// CalculateWB computes the white balance multipliers for the loaded
// camera under the loaded illuminant. The middle (green) component is
// always exactly 1.
func (s *SpectralSolver)CalculateWB() bool {
	if !s.cameraReady() {
		log.Printf("ERROR: camera needs to be initialised prior to calling CalculateWB()")
		return false
	}
	if !s.illuminantReady() {
		log.Printf("ERROR: illuminant needs to be initialised prior to calling CalculateWB()")
		return false
	}

	wb, err := calculateWB(&s.Camera, &s.Illuminant)
	if err != nil {
		log.Printf("ERROR: %v", err)
		return false
	}
	s.wbMultipliers = wb
	return true
}

func (s *SpectralSolver)WBMultipliers() amath.Vec3 { return s.wbMultipliers }
func (s *SpectralSolver)IDTMatrix() amath.Mat3     { return s.idtMatrix }

func (s *SpectralSolver)cameraReady() bool {
	return len(s.Camera.Data["main"]) == 3
}

func (s *SpectralSolver)illuminantReady() bool {
	return len(s.Illuminant.Data["main"]) == 1
}

func (s *SpectralSolver)observerReady() bool {
	return len(s.Observer.Data["main"]) == 3
}

func (s *SpectralSolver)trainingReady() bool {
	return len(s.TrainingData.Data["main"]) > 0
}

func copyIlluminant(in spectra.SpectralData) spectra.SpectralData {
	out := in
	out.Data = map[string]spectra.Set{}
	for name, set := range in.Data {
		newSet := make(spectra.Set, len(set))
		for i, ch := range set {
			values := make([]float64, len(ch.Spectrum.Values))
			copy(values, ch.Spectrum.Values)
			newSet[i] = spectra.Channel{
				Name:     ch.Name,
				Spectrum: spectra.Spectrum{Shape: ch.Spectrum.Shape, Values: values},
			}
		}
		out.Data[name] = newSet
	}
	return out
}

// scaleIlluminant normalizes the illuminant in place so that its
// integral against the camera's strongest RGB channel comes to 1.
func scaleIlluminant(camera *spectra.SpectralData, illuminant *spectra.SpectralData) error {
	channels := map[string]*spectra.Spectrum{}
	for _, name := range []string{"R", "G", "B"} {
		ch, err := camera.Channel(name)
		if err != nil {
			return err
		}
		channels[name] = ch
	}

	maxR := channels["R"].Max()
	maxG := channels["G"].Max()
	maxB := channels["B"].Max()

	maxChannel := "B"
	if maxR >= maxG && maxR >= maxB {
		maxChannel = "R"
	} else if maxG >= maxR && maxG >= maxB {
		maxChannel = "G"
	}

	cameraSpectrum := channels[maxChannel]
	illuminantSpectrum, err := illuminant.Channel("power")
	if err != nil {
		return err
	}

	product, err := cameraSpectrum.Mul(*illuminantSpectrum)
	if err != nil {
		return err
	}

	illuminantSpectrum.ScaleBy(1.0 / product.Integrate())
	return nil
}

func calculateWB(camera *spectra.SpectralData, illuminant *spectra.SpectralData) (amath.Vec3, error) {
	if err := scaleIlluminant(camera, illuminant); err != nil {
		return amath.Vec3{}, err
	}

	power, err := illuminant.Channel("power")
	if err != nil {
		return amath.Vec3{}, err
	}

	integrals := [3]float64{}
	for i, name := range []string{"R", "G", "B"} {
		ch, err := camera.Channel(name)
		if err != nil {
			return amath.Vec3{}, err
		}
		product, err := ch.Mul(*power)
		if err != nil {
			return amath.Vec3{}, err
		}
		integrals[i] = product.Integrate()
	}

	r, g, b := integrals[0], integrals[1], integrals[2]

	// Normalise to the green channel.
	return amath.Vec3{g / r, 1.0, g / b}, nil
}

func sumSquaredError(a, b amath.Vec3) float64 {
	sse := 0.0
	for i := 0; i < 3; i++ {
		d := a[i] - b[i]
		sse += d * d
	}
	return sse
}
