package anchor

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// file is the on-disk shape of an anchor set.
type file struct {
	Anchors []Anchor `yaml:"anchors"`
}

// Load reads and validates an anchor set from a YAML file.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read anchor file: %w", err)
	}
	return Parse(data)
}

// Parse validates an anchor set from YAML bytes.
func Parse(data []byte) (*Set, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse anchor file: %w", err)
	}
	if len(f.Anchors) == 0 {
		return nil, fmt.Errorf("anchor file contains no anchors")
	}
	set, err := NewSet(f.Anchors)
	if err != nil {
		return nil, fmt.Errorf("validate anchor set: %w", err)
	}
	return set, nil
}
