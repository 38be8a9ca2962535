package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arthur-debert/nanoquery/formats"
	"github.com/arthur-debert/nanoquery/internal/config"
	"github.com/arthur-debert/nanoquery/nanoquery"
	"github.com/arthur-debert/nanoquery/nanoquery/registry"
	"github.com/arthur-debert/nanoquery/nanoquery/schema"
	"github.com/arthur-debert/nanoquery/types"
)

// app holds the state shared by every command of one invocation
type app struct {
	v          *viper.Viper
	configFile string

	cfg      *config.Config
	logger   *slog.Logger
	closeLog func() error
	reg      *registry.Registry

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{
		v:        config.New(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		closeLog: func() error { return nil },
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
	}

	rootCmd := &cobra.Command{
		Use:   "nanoquery",
		Short: "Compile filter and sort expressions against declared entities",
		Long: `nanoquery loads entity declarations from schema files and turns client
filter, sort and pagination arguments into finalized queries.

Examples:
  # List the declared entities
  nanoquery --schema catalog.yaml entities

  # Show what can be sorted and filtered on Order
  nanoquery --schema catalog.yaml spec Order

  # Assemble a query and render it as SQL
  echo '{take: 10, filter: {status: {eq: OPEN}}}' | nanoquery -s catalog.yaml assemble Order --sql`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.closeLog()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default nanoquery.yaml in ., $HOME/.nanoquery or /etc/nanoquery)")
	flags.StringSliceP("schema", "s", nil, "schema files declaring the entities")
	flags.StringP("format", "f", "json", "output format: json|yaml|table")
	flags.String("log-level", "warn", "log level: debug|info|warn|error")
	flags.String("log-format", "text", "log format: text|json")
	flags.String("log-file", "", "also write JSON logs to this file ('auto' for the user cache directory)")
	flags.String("policy", "reject", "pagination policy: reject|clamp")
	flags.Bool("strict", false, "validate filter and order against the entity specifications")

	for key, flag := range map[string]string{
		"schema":            "schema",
		"format":            "format",
		"log_level":         "log-level",
		"log_format":        "log-format",
		"log_file":          "log-file",
		"pagination.policy": "policy",
		"strict":            "strict",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.AddCommand(
		newEntitiesCmd(a),
		newSpecCmd(a),
		newCompileCmd(a),
		newAssembleCmd(a),
		newExportCmd(a),
	)
	return rootCmd
}

// setup loads the configuration and initializes logging
func (a *app) setup() error {
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return NewConfigError("load configuration", err.Error(), err, CommonSuggestions.CheckConfig)
	}
	a.cfg = cfg

	logger, closer, err := initLogging(a.stderr, cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		return NewConfigError("initialize logging", err.Error(), err, CommonSuggestions.CheckPerms)
	}
	a.logger = logger
	a.closeLog = closer
	return nil
}

// registry loads the configured schema files once per invocation
func (a *app) registry() (*registry.Registry, error) {
	if a.reg != nil {
		return a.reg, nil
	}
	if len(a.cfg.Schema) == 0 {
		return nil, NewConfigError("load schema", "no schema files configured", nil,
			"Pass --schema catalog.yaml",
			"Set schema in nanoquery.yaml or NANOQUERY_SCHEMA")
	}

	reg, err := schema.LoadRegistry(registry.NewBuilder(registry.WithLogger(a.logger)), a.cfg.Schema...)
	if err != nil {
		return nil, NewSchemaError(err)
	}
	a.logger.Debug("schema loaded", "files", a.cfg.Schema, "entities", len(reg.Entities()))
	a.reg = reg
	return reg, nil
}

// entity returns the published spec of name or a CLIError listing the alternatives
func (a *app) entity(operation, name string) (types.EntitySpec, error) {
	reg, err := a.registry()
	if err != nil {
		return types.EntitySpec{}, err
	}
	e, err := reg.Get(name)
	if err != nil {
		return types.EntitySpec{}, NewEntityError(operation, name, reg, err)
	}
	return e, nil
}

func (a *app) engine(logger *slog.Logger) (*nanoquery.Engine, error) {
	reg, err := a.registry()
	if err != nil {
		return nil, err
	}
	return nanoquery.New(reg,
		nanoquery.WithLogger(logger),
		nanoquery.WithPolicy(a.cfg.PaginationPolicy()),
		nanoquery.WithStrict(a.cfg.Strict),
	), nil
}

// render writes v in the configured format. Results that are not tabular are
// shown as YAML when the table format is selected.
func (a *app) render(v any) error {
	name := a.cfg.Format
	if _, ok := v.(formats.Tabular); !ok && name == formats.Table.Name {
		name = formats.YAML.Name
	}
	return formats.Write(a.stdout, name, v)
}

// readInput reads the document named by args[0], or stdin when absent or "-"
func (a *app) readInput(operation string, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return nil, NewInputError(operation, "standard input", err)
		}
		if len(bytes.TrimSpace(data)) == 0 {
			return nil, NewInputError(operation, "standard input", fmt.Errorf("input is empty"))
		}
		return data, nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, NewInputError(operation, args[0], err)
	}
	return data, nil
}
