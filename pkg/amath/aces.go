package amath

import(
	"log"
)

// The ACES AP0 primaries and white point, CIE xy.
var ChromaticitiesACES = [4][2]float64{
	{0.7347, 0.2653},
	{0.0, 1.0},
	{0.0001, -0.077},
	{0.32168, 0.33767},
}

// The ACES white point in XYZ: the AP0 RGB-to-XYZ matrix applied to
// (1,1,1).
var ACESWhitePointXYZ = Vec3{0.952646074569846, 1.0, 1.00882518435159}

// The CIE D65 white point in XYZ, Y=1.
var D65WhitePointXYZ = Vec3{0.95047, 1.0, 1.08883}

// D65-referenced XYZ to ACES AP0 RGB. This is the AP0 XYZ-to-RGB
// matrix with a Bradford adaptation from D65 to the ACES white point
// folded in.
var XYZD65ToACESRGB = Mat3{
	 1.0634731317028,     0.00639793641966071, -0.0157891874506841,
	-0.492082784686793,   1.36823709310019,     0.0913444629573544,
	-0.0028137154424595,  0.00463991165243123,  0.91649468506889,
}

var (
	// AP0 RGB to XYZ, built from the chromaticities.
	ACESRGBToXYZ Mat3
	// XYZ to AP0 RGB, its inverse.
	XYZToACES Mat3
	// Bradford adaptation from the D65 white point to the ACES white
	// point, for sources that hand us D65-referenced XYZ.
	CATD65ToACES Mat3
)

func init() {
	var err error
	if ACESRGBToXYZ, err = RGBToXYZ(ChromaticitiesACES); err != nil {
		log.Fatalf("can't build ACES RGB->XYZ matrix: %v", err)
	}
	if XYZToACES, err = ACESRGBToXYZ.Inverse(); err != nil {
		log.Fatalf("can't build XYZ->ACES matrix: %v", err)
	}
	if CATD65ToACES, err = CAT(D65WhitePointXYZ, ACESWhitePointXYZ); err != nil {
		log.Fatalf("can't build D65->ACES adaptation: %v", err)
	}
}
