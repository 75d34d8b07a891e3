// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"context"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/featurebasedb/colchain/errors"
	"github.com/featurebasedb/colchain/toml"
	gotoml "github.com/pelletier/go-toml"
	"github.com/spf13/pflag"
)

// Output formats accepted by Config.Format.
const (
	FormatTable    = "table"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
)

// Config represents the configuration shared by the query commands.
type Config struct {
	// Verbose enables debug logging of every constraint evaluation.
	Verbose bool `toml:"verbose"`

	// LogPath is the file logs are appended to. Empty means stderr.
	LogPath string `toml:"log-path"`

	// SlowQuery is the duration above which a query is logged as slow.
	// Zero disables slow query logging.
	SlowQuery toml.Duration `toml:"slow-query"`

	// Limit caps the rows returned by a query which sets no limit of its
	// own. Zero returns every row.
	Limit int `toml:"limit"`

	// Format is one of "table", "csv" or "markdown".
	Format string `toml:"format"`

	// Delimiter separates input CSV fields.
	Delimiter string `toml:"delimiter"`

	// PrintMetrics writes the query metrics to stderr after the results.
	PrintMetrics bool `toml:"print-metrics"`

	// Profile writes a JSON profile of each command run to stderr.
	Profile bool `toml:"profile"`
}

// NewConfig returns an instance of Config with default options.
func NewConfig() *Config {
	return &Config{
		SlowQuery: toml.Duration(time.Second),
		Format:    FormatTable,
		Delimiter: ",",
	}
}

// Validate checks the config for invalid settings.
func (c *Config) Validate() error {
	switch c.Format {
	case FormatTable, FormatCSV, FormatMarkdown:
	default:
		return errors.Newf(errors.ErrInvalidConfig, "invalid format: %q", c.Format)
	}
	if c.Limit < 0 {
		return errors.Newf(errors.ErrInvalidConfig, "invalid limit: %d", c.Limit)
	}
	if c.SlowQuery < 0 {
		return errors.Newf(errors.ErrInvalidConfig, "invalid slow-query: %s", c.SlowQuery)
	}
	if utf8.RuneCountInString(c.Delimiter) != 1 {
		return errors.Newf(errors.ErrInvalidConfig, "delimiter must be a single character: %q", c.Delimiter)
	}
	return nil
}

// BuildConfigFlags attaches the config options to flags. Flag names match
// the toml keys so a config file can set any of them.
func BuildConfigFlags(flags *pflag.FlagSet, c *Config) {
	flags.BoolVarP(&c.Verbose, "verbose", "v", c.Verbose, "Enable verbose logging")
	flags.StringVar(&c.LogPath, "log-path", c.LogPath, "Log path")
	flags.Var(&c.SlowQuery, "slow-query", "Duration that will trigger log and stat messages for slow queries. Zero to disable.")
	flags.IntVar(&c.Limit, "limit", c.Limit, "Maximum number of rows per query. Zero for no limit.")
	flags.StringVar(&c.Format, "format", c.Format, "Output format: table, csv or markdown.")
	flags.StringVar(&c.Delimiter, "delimiter", c.Delimiter, "Field delimiter of the CSV input.")
	flags.BoolVar(&c.PrintMetrics, "print-metrics", c.PrintMetrics, "Print query metrics to stderr after the results.")
	flags.BoolVar(&c.Profile, "profile", c.Profile, "Print a JSON profile of the run to stderr.")
}

func (c *Config) delimiter() rune {
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	return r
}

// ConfigCommand represents a command for printing the effective config.
type ConfigCommand struct {
	*CmdIO
	Config *Config
}

// NewConfigCommand returns a new instance of ConfigCommand.
func NewConfigCommand(stdin io.Reader, stdout, stderr io.Writer) *ConfigCommand {
	return &ConfigCommand{
		CmdIO:  NewCmdIO(stdin, stdout, stderr),
		Config: NewConfig(),
	}
}

// Run prints out the config.
func (cmd *ConfigCommand) Run(_ context.Context) error {
	buf, err := gotoml.Marshal(*cmd.Config)
	if err != nil {
		return errors.Wrap(err, "marshalling config")
	}
	fmt.Fprintln(cmd.Stdout, string(buf))
	return nil
}
