package questionnaire

import (
	_ "embed"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed vendor_intake.yaml
var defaultDefinition []byte

// Parse decodes a YAML definition and validates it.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, eris.Wrap(err, "questionnaire: decode yaml")
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Load reads a definition from disk.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "questionnaire: read %s", path)
	}
	return Parse(data)
}

// Default returns the built-in vendor intake questionnaire.
func Default() *Definition {
	def, err := Parse(defaultDefinition)
	if err != nil {
		panic(err)
	}
	return def
}

// LoadOrDefault loads path when set, otherwise the built-in definition.
func LoadOrDefault(path string) (*Definition, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}
