package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML file at path into a File. A missing file is not an
// error; callers get a zero-value File and fall back to flag defaults.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &File{}, nil
	}
	if err != nil {
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}
