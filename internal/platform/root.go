package platform

import (
	"fmt"
	"os"
	"path/filepath"
)

// FindRoot looks upwards from startDir for a vault root indicator: the
// system directory or a speeza.yaml file. It returns the absolute path of
// the first directory that has one.
func FindRoot(startDir, systemDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	if systemDir == "" {
		systemDir = DefaultConfig().SystemDir
	}

	dir := abs
	for {
		if hasFile(dir, systemDir) || hasFile(dir, ConfigFileName) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("no speeza vault found above %s", abs)
}

func hasFile(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}
