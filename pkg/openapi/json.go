package openapi

import (
	"encoding/json"
	"os"
)

// Marshal renders spec as indented JSON.
func Marshal(spec *Spec) ([]byte, error) {
	return json.MarshalIndent(spec, "", "  ")
}

// WriteJSON renders spec to filename with a trailing newline.
func WriteJSON(spec *Spec, filename string) error {
	data, err := Marshal(spec)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, append(data, '\n'), 0o644)
}
