package formats

import (
	"io"

	"gopkg.in/yaml.v3"
)

// YAML writes block style YAML with two space indentation
var YAML = &OutputFormat{
	Name:      "yaml",
	Extension: ".yaml",
	Render: func(w io.Writer, v any) error {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	},
}
