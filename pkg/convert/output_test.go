package convert

import(
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/rawtoaces/pkg/amath"
)

func TestSaveImage(t *testing.T) {
	img := NewImage(4, 2)
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			img.SetRGB(x, y, amath.Vec3{0.18, 0.18, 0.18})
		}
	}

	path := filepath.Join(t.TempDir(), "out_aces.exr")
	require.NoError(t, SaveImage(path, img))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(300)) // header + pixel data

	// EXR magic number
	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x76, 0x2f, 0x31, 0x01}, contents[:4])
}

func TestSaveImageWithSoftCrop(t *testing.T) {
	img := NewImage(4, 4)
	img.Display = imageRect([4]int{1, 1, 2, 2})

	path := filepath.Join(t.TempDir(), "crop_aces.exr")
	require.NoError(t, SaveImage(path, img))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}
