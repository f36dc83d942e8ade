package dngmeta

import(
	"math"

	"github.com/abworrall/rawtoaces/pkg/amath"
)

// The Robertson isotemperature lines: (u, v) on the Planckian locus and
// the slope of the isotemperature line through it, one row per entry of
// robertsonMired. Classic 31-row table.
var robertsonUVT = [31][3]float64{
	{0.18006, 0.26352, -0.24341},
	{0.18066, 0.26589, -0.25479},
	{0.18133, 0.26846, -0.26876},
	{0.18208, 0.27119, -0.28539},
	{0.18293, 0.27407, -0.30470},
	{0.18388, 0.27709, -0.32675},
	{0.18494, 0.28021, -0.35156},
	{0.18611, 0.28342, -0.37915},
	{0.18740, 0.28668, -0.40955},
	{0.18880, 0.28997, -0.44278},
	{0.19032, 0.29326, -0.47888},
	{0.19462, 0.30141, -0.58204},
	{0.19962, 0.30921, -0.70471},
	{0.20525, 0.31647, -0.84901},
	{0.21142, 0.32312, -1.0182},
	{0.21807, 0.32909, -1.2168},
	{0.22511, 0.33439, -1.4512},
	{0.23247, 0.33904, -1.7298},
	{0.24010, 0.34308, -2.0637},
	{0.24702, 0.34655, -2.4681},
	{0.25591, 0.34951, -2.9641},
	{0.26400, 0.35200, -3.5814},
	{0.27218, 0.35407, -4.3633},
	{0.28039, 0.35577, -5.3762},
	{0.28863, 0.35714, -6.7262},
	{0.29685, 0.35823, -8.5955},
	{0.30505, 0.35907, -11.324},
	{0.31320, 0.35968, -15.628},
	{0.32129, 0.36011, -23.325},
	{0.32931, 0.36038, -40.770},
	{0.33724, 0.36051, -116.45},
}

// Mired values for the rows above.
var robertsonMired = [31]float64{
	0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100,
	125, 150, 175, 200, 225, 250, 275, 300, 325, 350,
	375, 400, 425, 450, 475, 500, 525, 550, 575, 600,
}

// CCTToMired converts a color temperature in Kelvin to the Mired scale.
func CCTToMired(cct float64) float64 {
	return 1.0e06 / cct
}

// MiredToCCT converts back to Kelvin.
func MiredToCCT(mired float64) float64 {
	return 1.0e06 / mired
}

// robertsonLength is the signed perpendicular distance from (u,v) to an
// isotemperature line, normalized so the sign flips as the point
// crosses the line.
func robertsonLength(u, v float64, uvt [3]float64) float64 {
	t := uvt[2]
	sign := 0.0
	if t < 0 {
		sign = -1.0
	} else if t > 0 {
		sign = 1.0
	}

	slope0 := -sign / math.Sqrt(1+t*t)
	slope1 := t * slope0

	du := u - uvt[0]
	dv := v - uvt[1]
	return slope0*dv - slope1*du
}

// LightSourceToColorTemp maps an EXIF LightSource tag to a color
// temperature in Kelvin. Tags at or above 32768 carry the temperature
// directly, offset by 32768. Unknown tags fall back to 5500K.
func LightSourceToColorTemp(tag uint16) float64 {
	if tag >= 32768 {
		return float64(tag) - 32768.0
	}

	temps := map[uint16]float64{
		0: 5500, 1: 5500, 2: 3500, 3: 3400,
		10: 5550, 17: 2856, 18: 4874, 19: 6774,
		20: 5500, 21: 6500, 22: 7500,
	}

	if temp, ok := temps[tag]; ok {
		return temp
	}
	return 5500.0
}

// XYZToColorTemperature inverts chromaticity to a correlated color
// temperature via the Robertson table: scan for the sign flip of the
// perpendicular distance and interpolate the Mired value at the zero
// crossing. The result is clamped to [2000, 50000] Kelvin.
func XYZToColorTemperature(xyz amath.Vec3) float64 {
	u, v := amath.XYZToUV(xyz)

	var mired float64
	distThis, distPrev := 0.0, 0.0

	i := 0
	for ; i < len(robertsonUVT); i++ {
		distThis = robertsonLength(u, v, robertsonUVT[i])
		if distThis <= 0.0 {
			break
		}
		distPrev = distThis
	}

	switch {
	case i <= 0:
		mired = robertsonMired[0]
	case i >= len(robertsonUVT):
		mired = robertsonMired[len(robertsonUVT)-1]
	default:
		mired = robertsonMired[i-1] +
			distPrev*(robertsonMired[i]-robertsonMired[i-1])/(distPrev-distThis)
	}

	cct := MiredToCCT(mired)
	return math.Max(2000.0, math.Min(50000.0, cct))
}

// ColorTemperatureToXYZ maps a color temperature back onto the
// Planckian locus: locate the bracketing Robertson rows in Mired,
// interpolate (u,v), and project back to XYZ with Y=1.
func ColorTemperatureToXYZ(cct float64) amath.Vec3 {
	mired := CCTToMired(cct)

	i := 0
	for ; i < len(robertsonMired); i++ {
		if robertsonMired[i] >= mired {
			break
		}
	}

	var u, v float64
	switch {
	case i <= 0:
		u, v = robertsonUVT[0][0], robertsonUVT[0][1]
	case i >= len(robertsonMired):
		last := len(robertsonMired) - 1
		u, v = robertsonUVT[last][0], robertsonUVT[last][1]
	default:
		weight := (mired - robertsonMired[i-1]) / (robertsonMired[i] - robertsonMired[i-1])
		u = robertsonUVT[i][0]*weight + robertsonUVT[i-1][0]*(1.0-weight)
		v = robertsonUVT[i][1]*weight + robertsonUVT[i-1][1]*(1.0-weight)
	}

	return amath.UVToXYZ(u, v)
}
