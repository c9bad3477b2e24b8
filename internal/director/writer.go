package director

import (
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// WriteStoryboard encodes a storyboard as YAML.
func WriteStoryboard(w io.Writer, sb *Storyboard) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(sb); err != nil {
		return err
	}
	return enc.Close()
}

// SaveStoryboard writes a storyboard to a YAML file
func SaveStoryboard(sb *Storyboard, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteStoryboard(f, sb); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadStoryboard reads a storyboard from a YAML file
func ReadStoryboard(path string) (*Storyboard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sb Storyboard
	if err := yaml.Unmarshal(data, &sb); err != nil {
		return nil, err
	}
	return &sb, nil
}
