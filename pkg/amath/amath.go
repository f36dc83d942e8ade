package amath

// Linear algebra for color transforms: 3-vectors and 3x3 matrixes,
// plus the CIE chromaticity plumbing the solvers need.

import(
	"fmt"
	"math"

	"golang.org/x/image/math/f64"
	"gonum.org/v1/gonum/mat"
)

// Use local types so we can hang methods off them
type Vec3 f64.Vec3
type Mat3 f64.Mat3

func Identity() Mat3 {
	return Mat3{1, 0, 0,   0, 1, 0,   0, 0, 1}
}

func (a Mat3)Mult(b Mat3) Mat3 {
	return Mat3{
		a[3*0+0]*b[3*0+0] + a[3*0+1]*b[3*1+0] + a[3*0+2]*b[3*2+0],
		a[3*0+0]*b[3*0+1] + a[3*0+1]*b[3*1+1] + a[3*0+2]*b[3*2+1],
		a[3*0+0]*b[3*0+2] + a[3*0+1]*b[3*1+2] + a[3*0+2]*b[3*2+2],

		a[3*1+0]*b[3*0+0] + a[3*1+1]*b[3*1+0] + a[3*1+2]*b[3*2+0],
		a[3*1+0]*b[3*0+1] + a[3*1+1]*b[3*1+1] + a[3*1+2]*b[3*2+1],
		a[3*1+0]*b[3*0+2] + a[3*1+1]*b[3*1+2] + a[3*1+2]*b[3*2+2],

		a[3*2+0]*b[3*0+0] + a[3*2+1]*b[3*1+0] + a[3*2+2]*b[3*2+0],
		a[3*2+0]*b[3*0+1] + a[3*2+1]*b[3*1+1] + a[3*2+2]*b[3*2+1],
		a[3*2+0]*b[3*0+2] + a[3*2+1]*b[3*1+2] + a[3*2+2]*b[3*2+2],
	}
}

func (m Mat3)Apply(v Vec3) Vec3 {
	return Vec3{
		(m[3*0+0]*v[0] + m[3*0+1]*v[1] + m[3*0+2]*v[2]),
	  (m[3*1+0]*v[0] + m[3*1+1]*v[1] + m[3*1+2]*v[2]),
	  (m[3*2+0]*v[0] + m[3*2+1]*v[1] + m[3*2+2]*v[2]),
	}
}

func (m Mat3)Scale(s float64) Mat3 {
	for i := 0; i < 9; i++ {
		m[i] *= s
	}
	return m
}

func (m Mat3)String() string {
	str := fmt.Sprintf("[%10f, %10f, %10f]\n", m[3*0+0], m[3*0+1], m[3*0+2])
	str += fmt.Sprintf("[%10f, %10f, %10f]\n", m[3*1+0], m[3*1+1], m[3*1+2])
	str += fmt.Sprintf("[%10f, %10f, %10f]\n", m[3*2+0], m[3*2+1], m[3*2+2])
	return str
}

func (v Vec3)String() string {
	return fmt.Sprintf("[%12.10f, %12.10f, %12.10f]", v[0], v[1], v[2])
}

func (v Vec3)Scale(s float64) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

func (v Vec3)Sub(o Vec3) Vec3 {
	return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

// Places the vector on the diagonal of a matrix
func (v Vec3)Diag() Mat3 {
	return Mat3{
		v[0],    0,    0,
		0,    v[1],    0,
		0,       0, v[2],
	}
}

// Places the vector on the diagonal of a matrix, then inverts it
func (v Vec3)InvertDiag() Mat3 {
	return Mat3{
		1.0 / v[0],           0,           0,
		0,           1.0 / v[1],           0,
		0,                    0,  1.0 / v[2],
	}
}

// Inverse inverts the matrix, failing on singular input.
func (m Mat3)Inverse() (Mat3, error) {
	var inv mat.Dense
	if err := inv.Inverse(mat.NewDense(3, 3, m[:])); err != nil {
		return Identity(), fmt.Errorf("matrix inversion: %v", err)
	}

	var out Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i*3+j] = inv.At(i, j)
		}
	}
	return out, nil
}

// XYToXYZ lifts a CIE (x,y) chromaticity into XYZ with x+y+z=1.
func XYToXYZ(x, y float64) Vec3 {
	return Vec3{x, y, 1.0 - x - y}
}

// XYZToUV maps XYZ into the CIE 1960 UCS (u,v) diagram.
func XYZToUV(xyz Vec3) (float64, float64) {
	d := xyz[0] + 15.0*xyz[1] + 3.0*xyz[2]
	return 4.0 * xyz[0] / d, 6.0 * xyz[1] / d
}

// UVToXYZ maps a CIE 1960 (u,v) point back to XYZ, normalized to Y=1.
func UVToXYZ(u, v float64) Vec3 {
	d := 2.0*u - 8.0*v + 4.0
	x := 3.0 * u / d
	y := 2.0 * v / d
	return Vec3{x / y, 1.0, (1.0 - x - y) / y}
}

// RGBToXYZ builds the matrix carrying an RGB space onto CIE XYZ, given
// the xy chromaticities of the R, G, B primaries and the white point.
// The white point comes out with Y=1.
func RGBToXYZ(chromaticities [4][2]float64) (Mat3, error) {
	red := XYToXYZ(chromaticities[0][0], chromaticities[0][1])
	green := XYToXYZ(chromaticities[1][0], chromaticities[1][1])
	blue := XYToXYZ(chromaticities[2][0], chromaticities[2][1])
	white := XYToXYZ(chromaticities[3][0], chromaticities[3][1])

	// Primaries go in as columns
	rgb := Mat3{
		red[0], green[0], blue[0],
		red[1], green[1], blue[1],
		red[2], green[2], blue[2],
	}

	white = white.Scale(1.0 / white[1])

	inv, err := rgb.Inverse()
	if err != nil {
		return Identity(), err
	}
	gains := inv.Apply(white)

	return rgb.Mult(gains.Diag()), nil
}

// The Bradford cone response matrix (Lam & Rigg).
var Bradford = Mat3{
	 0.8951,  0.2664, -0.1614,
	-0.7502,  1.7135,  0.0367,
	 0.0389, -0.0685,  1.0296,
}

// CAT computes the Bradford chromatic adaptation matrix carrying colors
// that appear white at srcWhite to colors that appear white at dstWhite.
// Adapting a white point to itself yields the identity.
func CAT(srcWhite, dstWhite Vec3) (Mat3, error) {
	srcCone := Bradford.Apply(srcWhite)
	dstCone := Bradford.Apply(dstWhite)

	for i := 0; i < 3; i++ {
		if math.Abs(srcCone[i]) < 1e-12 {
			return Identity(), fmt.Errorf("chromatic adaptation: degenerate source white %s", srcWhite)
		}
	}

	gains := Vec3{
		dstCone[0] / srcCone[0],
		dstCone[1] / srcCone[1],
		dstCone[2] / srcCone[2],
	}

	inv, err := Bradford.Inverse()
	if err != nil {
		return Identity(), err
	}

	return inv.Mult(gains.Diag().Mult(Bradford)), nil
}
