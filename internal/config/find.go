package config

import (
	"errors"
	"os"
	"path/filepath"
)

// ErrNoConfigFile is returned when utrun.yaml is not found.
var ErrNoConfigFile = errors.New(FileName + " not found in the current directory or any parent")

// FindFile walks up from the current working directory until it finds utrun.yaml.
func FindFile() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return FindFileFrom(cwd)
}

// FindFileFrom walks up from the given directory until it finds utrun.yaml
// and returns its path.
func FindFileFrom(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		path := filepath.Join(dir, FileName)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoConfigFile
		}
		dir = parent
	}
}

// LoadDiscovered loads the file at path, or discovers utrun.yaml when path
// is empty. A missing discovered file yields the defaults.
func LoadDiscovered(path string) (*File, []string, error) {
	if path != "" {
		return Load(path)
	}
	found, err := FindFile()
	if errors.Is(err, ErrNoConfigFile) {
		return Default(), nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return Load(found)
}
