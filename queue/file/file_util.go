package file

import "os"

// exists checks whether a regular file exists in the given path. Directories
// and stat errors both count as absent.
func exists(path string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	return true
}
