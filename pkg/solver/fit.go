package solver

import(
	"fmt"
	"log"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"

	"github.com/abworrall/rawtoaces/pkg/amath"
	"github.com/abworrall/rawtoaces/pkg/spectra"
)

// CalculateIDTMatrix fits the 3x3 IDT carrying white-balanced camera
// RGB into ACES AP0, by minimizing CIELAB residuals against the
// training patches as seen by the observer under the illuminant.
// Requires all four data slots populated, and expects CalculateWB (or
// FindIlluminantFromWB) to have run first.
func (s *SpectralSolver)CalculateIDTMatrix() bool {
	if !s.cameraReady() {
		log.Printf("ERROR: camera needs to be initialised prior to calling CalculateIDTMatrix()")
		return false
	}
	if !s.illuminantReady() {
		log.Printf("ERROR: illuminant needs to be initialised prior to calling CalculateIDTMatrix()")
		return false
	}
	if !s.observerReady() {
		log.Printf("ERROR: observer needs to be initialised prior to calling CalculateIDTMatrix()")
		return false
	}
	if !s.trainingReady() {
		log.Printf("ERROR: training data needs to be initialised prior to calling CalculateIDTMatrix()")
		return false
	}

	ti, err := calculateTI(&s.Illuminant, &s.TrainingData)
	if err != nil {
		log.Printf("ERROR: %v", err)
		return false
	}

	rgb, err := calculateRGB(&s.Camera, s.wbMultipliers, ti)
	if err != nil {
		log.Printf("ERROR: %v", err)
		return false
	}

	xyz, err := calculateXYZ(&s.Observer, &s.Illuminant, ti)
	if err != nil {
		log.Printf("ERROR: %v", err)
		return false
	}

	lab := make([]amath.Vec3, len(xyz))
	for i, v := range xyz {
		lab[i] = xyzToLab(v)
	}

	m, err := curveFit(rgb, lab, s.Verbosity)
	if err != nil {
		log.Printf("%v", err)
		return false
	}

	s.idtMatrix = m

	if s.Verbosity > 1 {
		log.Printf("The IDT matrix is ...\n%s", m)
	}

	return true
}

// The training patches as lit by the illuminant: elementwise product of
// each patch reflectance with the power spectrum.
func calculateTI(illuminant *spectra.SpectralData, training *spectra.SpectralData) ([]spectra.Spectrum, error) {
	power, err := illuminant.Channel("power")
	if err != nil {
		return nil, err
	}

	var result []spectra.Spectrum
	for _, patch := range training.Data["main"] {
		product, err := patch.Spectrum.Mul(*power)
		if err != nil {
			return nil, fmt.Errorf("training patch '%s': %v", patch.Name, err)
		}
		result = append(result, product)
	}
	return result, nil
}

// White-balanced linear camera responses for each lit training patch.
func calculateRGB(camera *spectra.SpectralData, wb amath.Vec3, ti []spectra.Spectrum) ([]amath.Vec3, error) {
	channels := [3]*spectra.Spectrum{}
	for c, name := range []string{"R", "G", "B"} {
		ch, err := camera.Channel(name)
		if err != nil {
			return nil, err
		}
		channels[c] = ch
	}

	result := make([]amath.Vec3, len(ti))
	for i, patch := range ti {
		for c := 0; c < 3; c++ {
			product, err := patch.Mul(*channels[c])
			if err != nil {
				return nil, err
			}
			result[i][c] = product.Integrate() * wb[c]
		}
	}
	return result, nil
}

// XYZ tristimulus values for each lit training patch, normalized by the
// illuminant's Y integral, then chromatically adapted from the
// illuminant's white point to the ACES white point.
func calculateXYZ(observer *spectra.SpectralData, illuminant *spectra.SpectralData, ti []spectra.Spectrum) ([]amath.Vec3, error) {
	power, err := illuminant.Channel("power")
	if err != nil {
		return nil, err
	}

	channels := [3]*spectra.Spectrum{}
	for c, name := range []string{"X", "Y", "Z"} {
		ch, err := observer.Channel(name)
		if err != nil {
			return nil, err
		}
		channels[c] = ch
	}

	integrals := [3]float64{}
	for c := 0; c < 3; c++ {
		product, err := channels[c].Mul(*power)
		if err != nil {
			return nil, err
		}
		integrals[c] = product.Integrate()
	}

	scale := 1.0 / integrals[1]

	xyz := make([]amath.Vec3, len(ti))
	for i, patch := range ti {
		for c := 0; c < 3; c++ {
			product, err := patch.Mul(*channels[c])
			if err != nil {
				return nil, err
			}
			xyz[i][c] = product.Integrate() * scale
		}
	}

	sourceWhite := amath.Vec3{
		integrals[0] / integrals[1],
		1.0,
		integrals[2] / integrals[1],
	}

	cat, err := amath.CAT(sourceWhite, amath.ACESWhitePointXYZ)
	if err != nil {
		return nil, err
	}

	for i := range xyz {
		xyz[i] = cat.Apply(xyz[i])
	}

	return xyz, nil
}

func xyzToLab(xyz amath.Vec3) amath.Vec3 {
	l, a, b := colorful.XyzToLabWhiteRef(xyz[0], xyz[1], xyz[2],
		[3]float64{amath.ACESWhitePointXYZ[0], amath.ACESWhitePointXYZ[1], amath.ACESWhitePointXYZ[2]})
	return amath.Vec3{l, a, b}
}

// The six free parameters are the first two columns of each of the
// three rows; the third column of each row is pinned so the row sums to 1, which keeps the
// fit from trading white point against gain.
func betaToMatrix(beta []float64) amath.Mat3 {
	return amath.Mat3{
		beta[0], beta[1], 1.0 - beta[0] - beta[1],
		beta[2], beta[3], 1.0 - beta[2] - beta[3],
		beta[4], beta[5], 1.0 - beta[4] - beta[5],
	}
}

// curveFit minimizes the summed squared LAB residual over the six
// matrix parameters, starting from the identity. Fixed iteration budget
// and tight tolerances, so termination is guaranteed.
func curveFit(rgb []amath.Vec3, targetLab []amath.Vec3, verbosity int) (amath.Mat3, error) {
	cost := func(beta []float64) float64 {
		m := betaToMatrix(beta)
		sum := 0.0
		for i := range rgb {
			calc := xyzToLab(amath.ACESRGBToXYZ.Apply(m.Apply(rgb[i])))
			for c := 0; c < 3; c++ {
				d := targetLab[i][c] - calc[c]
				sum += d * d
			}
		}
		return sum
	}

	problem := optimize.Problem{
		Func: cost,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, cost, x, nil)
		},
	}

	beta := []float64{1.0, 0.0, 0.0, 1.0, 0.0, 0.0}
	f0 := cost(beta)

	settings := &optimize.Settings{
		MajorIterations:   300,
		GradientThreshold: 1e-17,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-17,
			Iterations: 20,
		},
	}
	if verbosity > 2 {
		settings.Recorder = optimize.NewPrinter()
	}

	result, _ := optimize.Minimize(problem, beta, settings, &optimize.BFGS{})

	if result == nil || math.IsNaN(result.F) || result.F > f0 {
		return amath.Identity(), fmt.Errorf("Failed to calculate the input transform matrix.")
	}

	if verbosity > 1 {
		log.Printf("Optimization finished: status %v, %d iterations, residual %g",
			result.Status, result.Stats.MajorIterations, result.F)
	}

	return betaToMatrix(result.X), nil
}
