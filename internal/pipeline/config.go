package pipeline

import (
	"fmt"
	"io"
	"os"

	yaml "gopkg.in/yaml.v2"
)

// Section is one declared pipeline stage: the section's name (carrying its
// kind tag) and a flat option mapping. Document order is execution order.
type Section struct {
	Name    string
	Options map[string]interface{}
}

// LoadConfig reads an ordered YAML configuration document. The top level is a
// mapping of section name to option mapping; yaml.MapSlice preserves the
// declaration order the engine executes in.
func LoadConfig(r io.Reader) ([]Section, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var doc yaml.MapSlice
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	sections := make([]Section, 0, len(doc))
	for _, item := range doc {
		name, ok := item.Key.(string)
		if !ok {
			return nil, fmt.Errorf("parse config: section name %v is not a string", item.Key)
		}

		opts := make(map[string]interface{})
		switch body := item.Value.(type) {
		case nil:
			// A bare section with no options is legal.
		case yaml.MapSlice:
			for _, opt := range body {
				key, ok := opt.Key.(string)
				if !ok {
					return nil, fmt.Errorf("parse config: section %q: option name %v is not a string", name, opt.Key)
				}
				opts[key] = normalize(opt.Value)
			}
		default:
			return nil, fmt.Errorf("parse config: section %q: want a mapping of options, got %T", name, item.Value)
		}

		sections = append(sections, Section{Name: name, Options: opts})
	}
	return sections, nil
}

// LoadConfigFile reads the configuration document at path.
func LoadConfigFile(path string) ([]Section, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	sections, err := LoadConfig(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sections, nil
}

// normalize flattens yaml.v2's MapSlice and MapItem values into plain maps
// and slices so Options accessors see one shape.
func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case yaml.MapSlice:
		out := make(map[interface{}]interface{}, len(val))
		for _, item := range val {
			out[item.Key] = normalize(item.Value)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	default:
		return v
	}
}
