package formats

import (
	"encoding/json"
	"io"
)

// JSON writes indented JSON. Ordered objects keep their key order.
var JSON = &OutputFormat{
	Name:      "json",
	Extension: ".json",
	Render: func(w io.Writer, v any) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	},
}
