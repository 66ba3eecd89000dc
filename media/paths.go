package media

import (
	"path/filepath"
	"strings"
)

// Stem returns the file name without directory and final extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// SiblingPath returns dir(path)/<stem><suffix>.
func SiblingPath(path, suffix string) string {
	return filepath.Join(filepath.Dir(path), Stem(path)+suffix)
}
