package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/nanoquery/formats"
	"github.com/arthur-debert/nanoquery/nanoquery/schema"
	"github.com/arthur-debert/nanoquery/types"
)

const (
	lockFileName   = ".nanoquery.lock"
	schemaFileName = "schema.yaml"
	lockRetry      = 50 * time.Millisecond
)

type exportedFile struct {
	Entity string `json:"entity" yaml:"entity"`
	Path   string `json:"path" yaml:"path"`
}

type exportList []exportedFile

func (l exportList) Header() []string { return []string{"entity", "path"} }

func (l exportList) Rows() [][]string {
	rows := make([][]string, len(l))
	for i, f := range l {
		rows[i] = []string{f.Entity, f.Path}
	}
	return rows
}

func newExportCmd(a *app) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "export <dir>",
		Short: "Write the filter JSON Schema of every entity into a directory",
		Long: `Export writes <dir>/<Entity>.schema.json for every declared entity, plus
<dir>/schema.yaml with the merged entity declarations. The directory is
locked while writing so concurrent exports do not interleave.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			const op = "export schemas"
			dir := args[0]

			reg, err := a.registry()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(dir, 0755); err != nil {
				return WrapError(op, err, CommonSuggestions.CheckPerms)
			}

			lock := newFileLock(filepath.Join(dir, lockFileName))
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			locked, err := lock.TryLockContext(ctx, lockRetry)
			if err != nil || !locked {
				return &CLIError{
					Operation:   op,
					Cause:       fmt.Sprintf("directory %s is locked by another export", dir),
					Suggestions: []string{"Wait for the other export to finish", "Increase --timeout"},
					Underlying:  err,
				}
			}
			defer func() { _ = lock.Unlock() }()

			written := exportList{}
			var entities []types.EntitySpec
			for _, name := range reg.Entities() {
				e, err := reg.Get(name)
				if err != nil {
					return WrapError(op, err)
				}
				entities = append(entities, e)

				filterSpec, err := reg.FilterSpec(name)
				if err != nil {
					return WrapError(op, err)
				}
				path := filepath.Join(dir, name+".schema"+formats.JSON.Extension)
				if err := writeFile(path, formats.JSON, filterSpec.JSONSchema()); err != nil {
					return WrapError(op, err, CommonSuggestions.CheckPerms)
				}
				written = append(written, exportedFile{Entity: name, Path: path})
			}

			path := filepath.Join(dir, schemaFileName)
			if err := writeFile(path, formats.YAML, schema.FromEntities(entities)); err != nil {
				return WrapError(op, err, CommonSuggestions.CheckPerms)
			}
			written = append(written, exportedFile{Path: path})

			a.logger.Info("schemas exported", "dir", dir, "files", len(written))
			return a.render(written)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "how long to wait for the directory lock")
	return cmd
}

// writeFile renders v into a temporary file and renames it into place
func writeFile(path string, format *formats.OutputFormat, v any) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := format.Render(tmp, v); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
