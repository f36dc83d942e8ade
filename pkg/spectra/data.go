package spectra

import(
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
)

// Channel is a named spectrum within a set. Order within a set is
// significant (camera files rely on R,G,B ordering).
type Channel struct {
	Name     string
	Spectrum Spectrum
}

// Set is an ordered list of channels.
type Set []Channel

// SpectralData is a named, versioned bundle of spectral curves loaded
// from a database JSON file.
type SpectralData struct {
	Manufacturer         string
	Model                string
	Type                 string
	Description          string
	DocumentCreator      string
	UniqueIdentifier     string
	MeasurementEquipment string
	Laboratory           string
	CreationDate         string
	Comments             string
	License              string

	Units                string
	ReflectionGeometry   string
	TransmissionGeometry string
	BandwidthFWHM        string
	BandwidthCorrected   string

	Data map[string]Set
}

// The on-disk layout. Wavelength keys under "data" are strings of
// integer nm; each row holds one value per channel, in "index" order.
type dataFile struct {
	Header struct {
		Manufacturer         string `json:"manufacturer"`
		Model                string `json:"model"`
		Type                 string `json:"type"`
		Description          string `json:"description"`
		DocumentCreator      string `json:"document_creator"`
		UniqueIdentifier     string `json:"unique_identifier"`
		MeasurementEquipment string `json:"measurement_equipment"`
		Laboratory           string `json:"laboratory"`
		CreationDate         string `json:"document_creation_date"`
		Comments             string `json:"comments"`
		License              string `json:"license"`
		SchemaVersion        string `json:"schema_version"`
		Illuminant           string `json:"illuminant"`
	} `json:"header"`
	SpectralData struct {
		Units                string                          `json:"units"`
		ReflectionGeometry   string                          `json:"reflection_geometry"`
		TransmissionGeometry string                          `json:"transmission_geometry"`
		BandwidthFWHM        string                          `json:"bandwidth_FWHM"`
		BandwidthCorrected   string                          `json:"bandwidth_corrected"`
		Index                map[string][]string             `json:"index"`
		Data                 map[string]map[string][]float64 `json:"data"`
	} `json:"spectral_data"`
}

// Get looks up a channel by set and name.
func (sd *SpectralData)Get(setName, channelName string) (*Spectrum, error) {
	set, ok := sd.Data[setName]
	if !ok {
		return nil, fmt.Errorf("data set '%s' not found in spectral data", setName)
	}
	for i := range set {
		if set[i].Name == channelName {
			return &set[i].Spectrum, nil
		}
	}
	return nil, fmt.Errorf("channel '%s' not found in data set '%s'", channelName, setName)
}

// Channel resolves a channel from the "main" set.
func (sd *SpectralData)Channel(name string) (*Spectrum, error) {
	return sd.Get("main", name)
}

// Load reads a spectral data JSON file. All channels get resampled onto
// ReferenceShape unless reshape is false. Any failure resets the object
// to its empty state.
func (sd *SpectralData)Load(path string, reshape bool) error {
	*sd = SpectralData{}

	contents, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %v", path, err)
	}

	var file dataFile
	if err := json.Unmarshal(contents, &file); err != nil {
		return fmt.Errorf("JSON parsing of %s failed: %v", path, err)
	}

	sd.Manufacturer = file.Header.Manufacturer
	sd.Model = file.Header.Model
	sd.Type = file.Header.Type
	sd.Description = file.Header.Description
	sd.DocumentCreator = file.Header.DocumentCreator
	sd.UniqueIdentifier = file.Header.UniqueIdentifier
	sd.MeasurementEquipment = file.Header.MeasurementEquipment
	sd.Laboratory = file.Header.Laboratory
	sd.CreationDate = file.Header.CreationDate
	sd.Comments = file.Header.Comments
	sd.License = file.Header.License

	// Schema 0.1.0 kept the illuminant type in 'header/illuminant';
	// 1.0.0 renamed it to 'header/type'. The type wins when both exist.
	if sd.Type == "" && file.Header.SchemaVersion == "0.1.0" {
		sd.Type = file.Header.Illuminant
	}

	sd.Units = file.SpectralData.Units
	sd.ReflectionGeometry = file.SpectralData.ReflectionGeometry
	sd.TransmissionGeometry = file.SpectralData.TransmissionGeometry
	sd.BandwidthFWHM = file.SpectralData.BandwidthFWHM
	sd.BandwidthCorrected = file.SpectralData.BandwidthCorrected

	sd.Data = map[string]Set{}
	for setName, channelNames := range file.SpectralData.Index {
		set := make(Set, 0, len(channelNames))
		for _, name := range channelNames {
			set = append(set, Channel{Name: name})
		}
		sd.Data[setName] = set
	}

	var shape Shape
	shapeKnown := false

	for setName, rows := range file.SpectralData.Data {
		set := sd.Data[setName]

		type bin struct {
			wl  float64
			key string
		}
		bins := make([]bin, 0, len(rows))
		for key := range rows {
			wl, err := strconv.ParseFloat(key, 64)
			if err != nil {
				*sd = SpectralData{}
				return fmt.Errorf("bad wavelength key '%s' in %s: %v", key, path, err)
			}
			bins = append(bins, bin{wl, key})
		}
		sort.Slice(bins, func(i, j int) bool { return bins[i].wl < bins[j].wl })

		prev := -1.0
		for _, b := range bins {
			wl := b.wl
			if prev != -1 {
				step := wl - prev
				if shape.Step != 0 && step != shape.Step {
					*sd = SpectralData{}
					return fmt.Errorf("inconsistent wavelength step in %s: expected %g, got %g",
						path, shape.Step, step)
				}
				shape.Step = step
			} else if !shapeKnown {
				shape.First = wl
				shapeKnown = true
			}
			prev = wl
			shape.Last = wl

			row := rows[b.key]
			if len(row) != len(set) {
				*sd = SpectralData{}
				return fmt.Errorf("row %gnm of set '%s' in %s has %d values, want %d",
					wl, setName, path, len(row), len(set))
			}
			for j := range set {
				set[j].Spectrum.Values = append(set[j].Spectrum.Values, row[j])
			}
		}
	}

	for _, set := range sd.Data {
		for i := range set {
			set[i].Spectrum.Shape = shape
			if reshape {
				set[i].Spectrum.Reshape()
			}
		}
	}

	return nil
}
