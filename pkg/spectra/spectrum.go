package spectra

import(
	"fmt"
)

// Shape describes a uniform wavelength sampling grid, in nm. A step of
// zero means the spectrum is empty / unallocated.
type Shape struct {
	First float64
	Last  float64
	Step  float64
}

// ReferenceShape is the grid everything gets resampled onto before any
// of the solvers see it: 380-780nm at 5nm, 81 samples.
var ReferenceShape = Shape{First: 380, Last: 780, Step: 5}

func (s Shape)Count() int {
	if s.Step == 0 {
		return 0
	}
	return int((s.Last - s.First + s.Step) / s.Step)
}

func (s Shape)String() string {
	return fmt.Sprintf("(%g-%gnm @%gnm)", s.First, s.Last, s.Step)
}

// Spectrum is a curve sampled on a uniform wavelength grid.
type Spectrum struct {
	Shape  Shape
	Values []float64
}

// NewSpectrum allocates a spectrum on the given grid, filled with value.
func NewSpectrum(value float64, shape Shape) Spectrum {
	s := Spectrum{Shape: shape}
	if n := shape.Count(); n > 0 {
		s.Values = make([]float64, n)
		for i := range s.Values {
			s.Values[i] = value
		}
	}
	return s
}

// Binary ops require the two operands to be on the same grid; this is a
// recoverable error, not a panic, since mismatched data files are a
// user-input problem.
func (s Spectrum)op(o Spectrum, f func(a, b float64) float64) (Spectrum, error) {
	if s.Shape != o.Shape {
		return Spectrum{}, fmt.Errorf("spectrum shapes differ: %s vs %s", s.Shape, o.Shape)
	}

	out := Spectrum{Shape: s.Shape, Values: make([]float64, len(s.Values))}
	for i := range s.Values {
		out.Values[i] = f(s.Values[i], o.Values[i])
	}
	return out, nil
}

func (s Spectrum)Add(o Spectrum) (Spectrum, error) {
	return s.op(o, func(a, b float64) float64 { return a + b })
}

func (s Spectrum)Sub(o Spectrum) (Spectrum, error) {
	return s.op(o, func(a, b float64) float64 { return a - b })
}

func (s Spectrum)Mul(o Spectrum) (Spectrum, error) {
	return s.op(o, func(a, b float64) float64 { return a * b })
}

func (s Spectrum)Div(o Spectrum) (Spectrum, error) {
	return s.op(o, func(a, b float64) float64 { return a / b })
}

// ScaleBy multiplies every sample in place.
func (s *Spectrum)ScaleBy(f float64) {
	for i := range s.Values {
		s.Values[i] *= f
	}
}

// Integrate is a plain sum of the samples. There is no step weighting;
// the step cancels out across the ratio expressions downstream.
func (s Spectrum)Integrate() float64 {
	result := 0.0
	for _, v := range s.Values {
		result += v
	}
	return result
}

func (s Spectrum)Max() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	max := s.Values[0]
	for _, v := range s.Values[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// Reshape resamples the spectrum onto ReferenceShape by walking the
// source and target grids together: exact matches copy through, targets
// strictly between two source samples interpolate linearly, and targets
// beyond either end of the source range clamp to the nearest sample.
// Reshaping a reference-shape spectrum is a no-op.
func (s *Spectrum)Reshape() {
	if s.Shape == ReferenceShape || len(s.Values) == 0 {
		return
	}

	temp := make([]float64, 0, ReferenceShape.Count())
	src := 0

	wlSrcFirst := s.Shape.First
	wlSrcStep := s.Shape.Step

	wlSrc := wlSrcFirst
	wlDst := ReferenceShape.First

	emit := func(v float64) {
		temp = append(temp, v)
		wlDst = ReferenceShape.First + ReferenceShape.Step*float64(len(temp))
	}

	for wlDst <= ReferenceShape.Last {
		switch {
		case wlSrc < wlDst:
			if src < len(s.Values)-1 {
				nextWlSrc := wlSrcFirst + wlSrcStep*float64(src+1)
				if nextWlSrc <= wlDst {
					// The next source wavelength is still not big
					// enough, advancing.
					src++
					wlSrc = nextWlSrc
				} else {
					// The target wavelength is between two source
					// samples, linearly interpolating.
					ratio := (wlDst - wlSrc) / (nextWlSrc - wlSrc)
					emit(s.Values[src]*(1.0-ratio) + s.Values[src+1]*ratio)
				}
			} else {
				// We have passed all available source samples,
				// copying the last sample.
				emit(s.Values[src])
			}
		case wlSrc == wlDst:
			// Found an exact match, just copy it over.
			emit(s.Values[src])
		default:
			// Haven't reached the available source range yet.
			emit(s.Values[src])
		}
	}

	s.Values = temp
	s.Shape = ReferenceShape
}
