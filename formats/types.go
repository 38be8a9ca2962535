package formats

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// OutputFormat defines how a command result is written out
type OutputFormat struct {
	// Name is the format identifier (alphanumeric, dashes, underscores, lowercase)
	Name string

	// Extension is the file extension including the dot (e.g., ".json")
	Extension string

	// Render writes v to w
	Render func(w io.Writer, v any) error
}

// registry holds all available output formats
var registry = make(map[string]*OutputFormat)

func init() {
	for _, f := range []*OutputFormat{JSON, YAML, Table} {
		if err := Register(f); err != nil {
			panic(err)
		}
	}
}

// Register adds a new output format to the registry
func Register(format *OutputFormat) error {
	if !isValidFormatName(format.Name) {
		return fmt.Errorf("invalid format name %q: must be lowercase alphanumeric with dashes and underscores only", format.Name)
	}
	if format.Render == nil {
		return fmt.Errorf("format %q has no renderer", format.Name)
	}

	if format.Extension != "" && !strings.HasPrefix(format.Extension, ".") {
		format.Extension = "." + format.Extension
	}

	if _, exists := registry[format.Name]; exists {
		return fmt.Errorf("format %q already registered", format.Name)
	}

	registry[format.Name] = format
	return nil
}

// Get returns an output format by name
func Get(name string) (*OutputFormat, error) {
	format, exists := registry[strings.ToLower(name)]
	if !exists {
		return nil, fmt.Errorf("unknown format %q (available: %s)", name, strings.Join(List(), ", "))
	}
	return format, nil
}

// List returns all registered format names, sorted
func List() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Write renders v with the named format
func Write(w io.Writer, name string, v any) error {
	format, err := Get(name)
	if err != nil {
		return err
	}
	return format.Render(w, v)
}

// isValidFormatName checks if a format name is valid
func isValidFormatName(name string) bool {
	if name == "" {
		return false
	}

	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' && r != '_' {
			return false
		}
	}
	return true
}
