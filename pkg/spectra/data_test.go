package spectra

import(
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

const cameraJSON = `{
  "header": {
    "manufacturer": "Canon",
    "model": "EOS R6",
    "type": "camera",
    "schema_version": "1.0.0"
  },
  "spectral_data": {
    "units": "relative",
    "index": { "main": ["R", "G", "B"] },
    "data": {
      "main": {
        "380": [0.1, 0.2, 0.3],
        "390": [0.4, 0.5, 0.6],
        "400": [0.7, 0.8, 0.9]
      }
    }
  }
}`

func TestLoadSpectralData(t *testing.T) {
	path := writeTestFile(t, cameraJSON)

	var data SpectralData
	require.NoError(t, data.Load(path, false))

	assert.Equal(t, "Canon", data.Manufacturer)
	assert.Equal(t, "EOS R6", data.Model)
	assert.Equal(t, "camera", data.Type)
	assert.Equal(t, "relative", data.Units)

	require.Len(t, data.Data["main"], 3)
	// Channel order must follow the index, not the data layout.
	assert.Equal(t, "R", data.Data["main"][0].Name)
	assert.Equal(t, "G", data.Data["main"][1].Name)
	assert.Equal(t, "B", data.Data["main"][2].Name)

	r, err := data.Channel("R")
	require.NoError(t, err)
	assert.Equal(t, Shape{First: 380, Last: 400, Step: 10}, r.Shape)
	assert.Equal(t, []float64{0.1, 0.4, 0.7}, r.Values)

	b, err := data.Channel("B")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.3, 0.6, 0.9}, b.Values)
}

func TestLoadReshapesByDefault(t *testing.T) {
	path := writeTestFile(t, cameraJSON)

	var data SpectralData
	require.NoError(t, data.Load(path, true))

	r, err := data.Channel("R")
	require.NoError(t, err)
	assert.Equal(t, ReferenceShape, r.Shape)
	assert.Len(t, r.Values, 81)
	assert.Equal(t, 0.1, r.Values[0])
	assert.InDelta(t, 0.25, r.Values[1], 1e-12) // interpolated at 385nm
	// Clamped past the source range.
	assert.Equal(t, 0.7, r.Values[80])
}

func TestLoadLegacySchemaIlluminant(t *testing.T) {
	legacy := `{
  "header": { "illuminant": "my-illuminant", "schema_version": "0.1.0" },
  "spectral_data": {
    "index": { "main": ["power"] },
    "data": { "main": { "380": [1.0], "385": [2.0] } }
  }
}`
	path := writeTestFile(t, legacy)

	var data SpectralData
	require.NoError(t, data.Load(path, false))
	assert.Equal(t, "my-illuminant", data.Type)
}

func TestLoadInconsistentStep(t *testing.T) {
	bad := `{
  "header": { "type": "camera" },
  "spectral_data": {
    "index": { "main": ["R"] },
    "data": { "main": { "380": [1.0], "385": [2.0], "395": [3.0] } }
  }
}`
	path := writeTestFile(t, bad)

	var data SpectralData
	err := data.Load(path, false)
	assert.Error(t, err)
	// A failed load resets the object.
	assert.Empty(t, data.Type)
	assert.Empty(t, data.Data)
}

func TestLoadMalformedJSON(t *testing.T) {
	path := writeTestFile(t, `{"header": {`)

	var data SpectralData
	assert.Error(t, data.Load(path, false))
	assert.Empty(t, data.Data)
}

func TestLoadMissingFile(t *testing.T) {
	var data SpectralData
	assert.Error(t, data.Load("/no/such/file.json", false))
}

func TestChannelLookupErrors(t *testing.T) {
	path := writeTestFile(t, cameraJSON)

	var data SpectralData
	require.NoError(t, data.Load(path, false))

	_, err := data.Get("nope", "R")
	assert.Error(t, err)
	_, err = data.Get("main", "Q")
	assert.Error(t, err)
}
