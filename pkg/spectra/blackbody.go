package spectra

import(
	"fmt"
	"math"
)

const (
	plancksConstant   = 6.62607015e-34 // J*s
	lightSpeed        = 299792458.0    // m/s
	boltzmannConstant = 1.380649e-23   // J/K
)

// Blackbody synthesizes a Planckian radiator SPD on the reference grid,
// for color temperatures in [1500, 4000) Kelvin. Warmer sources are the
// daylight generator's territory.
func Blackbody(cct int) (Spectrum, error) {
	if cct < 1500 || cct >= 4000 {
		return Spectrum{}, fmt.Errorf(
			"the range of Color Temperature for BlackBody should be from 1500 to 3999, got %d", cct)
	}

	out := Spectrum{Shape: ReferenceShape}

	for wl := ReferenceShape.First; wl <= ReferenceShape.Last; wl += ReferenceShape.Step {
		lambda := wl / 1e9
		c1 := 2 * plancksConstant * math.Pow(lightSpeed, 2)
		c2 := (plancksConstant * lightSpeed) / (boltzmannConstant * lambda * float64(cct))
		out.Values = append(out.Values, c1*math.Pi/(math.Pow(lambda, 5)*(math.Exp(c2)-1)))
	}

	return out, nil
}

// GenerateIlluminant wraps a synthesized SPD into a SpectralData record
// with the single "power" channel the solvers expect.
func GenerateIlluminant(cct int, typeName string, isDaylight bool) (SpectralData, error) {
	var power Spectrum
	var err error

	if isDaylight {
		power, err = Daylight(cct)
	} else {
		power, err = Blackbody(cct)
	}
	if err != nil {
		return SpectralData{}, err
	}

	return SpectralData{
		Type: typeName,
		Data: map[string]Set{
			"main": {{Name: "power", Spectrum: power}},
		},
	}, nil
}
