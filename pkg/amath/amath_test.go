package amath

import(
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultIdentity(t *testing.T) {
	m := Mat3{1, 2, 3, 4, 5, 6, 7, 8, 9}
	assert.Equal(t, m, Identity().Mult(m))
	assert.Equal(t, m, m.Mult(Identity()))
}

func TestApply(t *testing.T) {
	m := Mat3{
		2, 0, 0,
		0, 3, 0,
		0, 0, 4,
	}
	assert.Equal(t, Vec3{2, 6, 12}, m.Apply(Vec3{1, 2, 3}))
}

func TestInverse(t *testing.T) {
	m := Mat3{
		2, 0, 1,
		0, 3, 0,
		1, 0, 4,
	}
	inv, err := m.Inverse()
	require.NoError(t, err)

	prod := m.Mult(inv)
	for i := 0; i < 9; i++ {
		want := 0.0
		if i%4 == 0 {
			want = 1.0
		}
		assert.InDelta(t, want, prod[i], 1e-12)
	}
}

func TestInverseSingular(t *testing.T) {
	_, err := Mat3{1, 2, 3, 2, 4, 6, 0, 0, 0}.Inverse()
	assert.Error(t, err)
}

func TestDiag(t *testing.T) {
	v := Vec3{2, 4, 8}
	assert.Equal(t, Vec3{2, 4, 8}, v.Diag().Apply(Vec3{1, 1, 1}))
	assert.Equal(t, Vec3{0.5, 0.25, 0.125}, v.InvertDiag().Apply(Vec3{1, 1, 1}))
}

func TestUVRoundTrip(t *testing.T) {
	xyz := Vec3{0.95047, 1.0, 1.08883}
	u, v := XYZToUV(xyz)
	back := UVToXYZ(u, v)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, xyz[i], back[i], 1e-9)
	}
}

func TestRGBToXYZMapsWhite(t *testing.T) {
	// sRGB primaries with D65: (1,1,1) must land on the white point.
	m, err := RGBToXYZ([4][2]float64{
		{0.64, 0.33}, {0.30, 0.60}, {0.15, 0.06}, {0.3127, 0.3290},
	})
	require.NoError(t, err)

	white := m.Apply(Vec3{1, 1, 1})
	assert.InDelta(t, 0.3127/0.3290, white[0], 1e-9)
	assert.InDelta(t, 1.0, white[1], 1e-9)
	assert.InDelta(t, (1-0.3127-0.3290)/0.3290, white[2], 1e-9)
}

func TestCATIdentityForSameWhite(t *testing.T) {
	m, err := CAT(D65WhitePointXYZ, D65WhitePointXYZ)
	require.NoError(t, err)

	for i := 0; i < 9; i++ {
		want := 0.0
		if i%4 == 0 {
			want = 1.0
		}
		assert.InDelta(t, want, m[i], 1e-12)
	}
}

func TestCATMovesWhitePoint(t *testing.T) {
	m, err := CAT(D65WhitePointXYZ, ACESWhitePointXYZ)
	require.NoError(t, err)

	moved := m.Apply(D65WhitePointXYZ)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, ACESWhitePointXYZ[i], moved[i], 1e-9)
	}
}

func TestACESConstantsAgree(t *testing.T) {
	// The ACES white point constant is the AP0 matrix applied to (1,1,1).
	white := ACESRGBToXYZ.Apply(Vec3{1, 1, 1})
	for i := 0; i < 3; i++ {
		assert.InDelta(t, ACESWhitePointXYZ[i], white[i], 1e-9)
	}

	// The hardcoded D65 XYZ->AP0 matrix is the AP0 inverse with the
	// D65->ACES adaptation folded in.
	derived := XYZToACES.Mult(CATD65ToACES)
	for i := 0; i < 9; i++ {
		assert.InDelta(t, XYZD65ToACESRGB[i], derived[i], 2e-3)
	}
}
