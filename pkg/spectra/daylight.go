package spectra

import(
	"fmt"
	"math"
)

// CCTToXY converts a correlated color temperature to CIE 1931 (x,y)
// chromaticity coordinates, using the standard empirical polynomials
// (one fit for the low-temperature daylight region, one for the rest).
func CCTToXY(cct float64) (float64, float64) {
	var x float64
	if cct >= 4002.15 && cct <= 7003.77 {
		x = 0.244063 + 99.11/cct +
			2.9678*1000000/math.Pow(cct, 2) -
			4.6070*1000000000/math.Pow(cct, 3)
	} else {
		x = 0.237040 + 247.48/cct +
			1.9018*1000000/math.Pow(cct, 2) -
			2.0064*1000000000/math.Pow(cct, 3)
	}

	y := -3.0*math.Pow(x, 2) + 2.87*x - 0.275

	return x, y
}

// Daylight synthesizes a CIE D-series illuminant SPD on the reference
// grid. cct accepts Kelvin in [4000, 25000], or the legacy
// hundreds-of-Kelvin shorthand in [40, 250] (e.g. 65 for D65), which
// carries a small correction factor for the revised radiation constant.
func Daylight(cct int) (Spectrum, error) {
	var kelvin float64
	switch {
	case cct >= 40 && cct <= 250:
		kelvin = float64(cct) * 100 * 1.4387752 / 1.438
	case cct >= 4000 && cct <= 25000:
		kelvin = float64(cct)
	default:
		return Spectrum{}, fmt.Errorf(
			"the range of Correlated Color Temperature for Day Light should be from 4000 to 25000, got %d", cct)
	}

	x, y := CCTToXY(kelvin)

	m0 := 0.0241 + 0.2562*x - 0.7341*y
	m1 := (-1.3515 - 1.7703*x + 5.9114*y) / m0
	m2 := (0.03000 - 31.4424*x + 30.0717*y) / m0

	out := Spectrum{Shape: ReferenceShape}

	step := ReferenceShape.Step
	last := sSeriesFirst + sSeriesStep*float64(len(sSeries)-1)
	for wl := sSeriesFirst; wl <= last; wl += step {
		if wl < ReferenceShape.First || wl > ReferenceShape.Last {
			continue
		}
		s0 := interpSSeries(wl, 0)
		s1 := interpSSeries(wl, 1)
		s2 := interpSSeries(wl, 2)
		out.Values = append(out.Values, s0+m1*s1+m2*s2)
	}

	return out, nil
}

// Linear interpolation of an S-series column at a wavelength within the
// tabulated range.
func interpSSeries(wl float64, col int) float64 {
	pos := (wl - sSeriesFirst) / sSeriesStep
	i := int(pos)
	if i >= len(sSeries)-1 {
		return sSeries[len(sSeries)-1][col]
	}
	frac := pos - float64(i)
	return sSeries[i][col]*(1.0-frac) + sSeries[i+1][col]*frac
}
