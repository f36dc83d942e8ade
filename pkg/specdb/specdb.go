// Package specdb resolves the on-disk spectral database: a list of
// root directories, each laid out as <root>/<type>/<name>.json for the
// types camera, illuminant, cmf and training.
package specdb

import(
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/abworrall/rawtoaces/pkg/spectra"
)

const (
	// The primary environment variable naming database roots.
	EnvDataPath = "RAWTOACES_DATA_PATH"
	// The deprecated one, honoured with a warning.
	EnvDataPathDeprecated = "AMPAS_DATA_PATH"
)

// Database is an ordered list of root directories; earlier roots win.
type Database struct {
	Roots     []string
	Verbosity int
}

// ResolveRoots works out the database roots. Precedence: an explicit
// override (the --data-dir flag), then RAWTOACES_DATA_PATH, then the
// deprecated AMPAS_DATA_PATH, then the platform default. Multi-path
// values use the platform list separator (':' on POSIX, ';' on Windows).
func ResolveRoots(override string) []string {
	path := override

	if path == "" {
		path = os.Getenv(EnvDataPath)
	}
	if path == "" {
		path = os.Getenv(EnvDataPathDeprecated)
		if path != "" {
			log.Printf("Warning: The environment variable %s is now deprecated. Please use %s instead.",
				EnvDataPathDeprecated, EnvDataPath)
		}
	}
	if path == "" {
		if runtime.GOOS == "windows" {
			path = "."
		} else {
			path = "/usr/local/share/rawtoaces/data" + string(os.PathListSeparator) +
				"/usr/local/include/rawtoaces/data"
		}
	}

	return filepath.SplitList(path)
}

// CollectFiles enumerates every <root>/<typeName>/*.json across the
// roots, in root order. Missing type directories are only worth a
// warning; roots that aren't directories likewise.
func (db Database)CollectFiles(typeName string) []string {
	var result []string

	for _, root := range db.Roots {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			if db.Verbosity > 0 {
				log.Printf("WARNING: Database location '%s' is not a directory.", root)
			}
			continue
		}

		typeDir := filepath.Join(root, typeName)
		entries, err := os.ReadDir(typeDir)
		if err != nil {
			if db.Verbosity > 0 {
				log.Printf("WARNING: Directory '%s' does not exist.", typeDir)
			}
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
				continue
			}
			result = append(result, filepath.Join(typeDir, entry.Name()))
		}
	}

	return result
}

// FindFile locates a database file. Absolute paths bypass the search;
// relative paths try each root in order and the first hit wins.
func (db Database)FindFile(relPath string) (string, bool) {
	if filepath.IsAbs(relPath) {
		_, err := os.Stat(relPath)
		return relPath, err == nil
	}

	for _, root := range db.Roots {
		candidate := filepath.Join(root, relPath)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}

// Cameras lists every camera the database has spectral sensitivities
// for, as "<manufacturer> / <model>".
func (db Database)Cameras() []string {
	var result []string

	for _, file := range db.CollectFiles("camera") {
		var data spectra.SpectralData
		if err := data.Load(file, false); err != nil {
			log.Printf("%v", err)
			continue
		}
		result = append(result, data.Manufacturer+" / "+data.Model)
	}

	return result
}

// Illuminants lists the supported illuminant type strings: the two
// synthetic families first, then every illuminant file in the database.
func (db Database)Illuminants() []string {
	result := []string{
		"Day-light (e.g., D60, D6025)",
		"Blackbody (e.g., 3200K)",
	}

	for _, file := range db.CollectFiles("illuminant") {
		var data spectra.SpectralData
		if err := data.Load(file, false); err != nil {
			log.Printf("%v", err)
			continue
		}
		result = append(result, data.Type)
	}

	return result
}
