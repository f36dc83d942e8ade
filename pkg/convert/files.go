package convert

import(
	"log"
	"os"
	"path/filepath"
	"strings"
)

var ignoreFilenames = map[string]bool{".DS_Store": true}

// Outputs and camera-JPEG siblings never count as inputs.
var ignoreExtensions = map[string]bool{".exr": true, ".jpg": true, ".jpeg": true}

func checkAndAddFile(path string, batch []string) []string {
	info, err := os.Lstat(path)
	if err != nil || !(info.Mode().IsRegular() || info.Mode()&os.ModeSymlink != 0) {
		log.Printf("Not a regular file: %s", path)
		return batch
	}

	if ignoreFilenames[filepath.Base(path)] {
		return batch
	}

	if ignoreExtensions[strings.ToLower(filepath.Ext(path))] {
		return batch
	}

	return append(batch, path)
}

// CollectImageFiles expands the path arguments into processing batches:
// the first batch gathers the bare-file arguments, and every directory
// argument contributes a batch of its own (not recursed). Missing paths
// are reported and skipped.
func CollectImageFiles(paths []string) [][]string {
	batches := make([][]string, 1)

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			log.Printf("File or directory not found: %s", path)
			continue
		}

		if info.IsDir() {
			var batch []string
			entries, err := os.ReadDir(path)
			if err != nil {
				log.Printf("readdir %s: %v", path, err)
				continue
			}
			for _, entry := range entries {
				batch = checkAndAddFile(filepath.Join(path, entry.Name()), batch)
			}
			batches = append(batches, batch)
		} else {
			batches[0] = checkAndAddFile(path, batches[0])
		}
	}

	return batches
}
