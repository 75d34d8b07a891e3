// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/featurebasedb/colchain/column"
	"github.com/featurebasedb/colchain/errors"
	"github.com/featurebasedb/colchain/logger"
	"github.com/featurebasedb/colchain/table"
	"github.com/featurebasedb/colchain/tracing"
	"github.com/prometheus/client_golang/prometheus"
)

// QueryCommand represents a command for filtering and sorting a CSV or
// parquet file.
type QueryCommand struct {
	*CmdIO

	// Path of the input. "-" reads CSV from stdin.
	Path string

	// Where holds constraints, all of which must hold.
	Where []string

	// OrderBy holds sort keys, most significant first.
	OrderBy []string

	// ArrangeBy, if set, arranges the table by this sort key before the
	// query runs.
	ArrangeBy string

	Config *Config
}

// NewQueryCommand returns a new instance of QueryCommand.
func NewQueryCommand(stdin io.Reader, stdout, stderr io.Writer) *QueryCommand {
	return &QueryCommand{
		CmdIO:  NewCmdIO(stdin, stdout, stderr),
		Config: NewConfig(),
	}
}

// Run loads the input, runs the query and writes the result to Stdout.
func (cmd *QueryCommand) Run(ctx context.Context) error {
	closeLog, err := setupLogger(cmd.CmdIO, cmd.Config)
	if err != nil {
		return err
	}
	defer closeLog()

	q, err := cmd.query()
	if err != nil {
		return err
	}
	ctx, span := startProfile(ctx, cmd.Config, "QueryCommand.Run")
	tbl, err := loadTable(ctx, cmd.CmdIO, cmd.Path, cmd.ArrangeBy, cmd.Config)
	if err != nil {
		return err
	}

	res, err := newExecutor(cmd.CmdIO, cmd.Config).Run(ctx, tbl, q)
	if err != nil {
		return errors.Wrap(err, "running query")
	}
	if err := writeResult(res, cmd.Config.Format, cmd.Stdout); err != nil {
		return err
	}
	return finish(cmd.CmdIO, cmd.Config, span)
}

func (cmd *QueryCommand) query() (table.Query, error) {
	q := table.Query{Limit: cmd.Config.Limit}
	for _, s := range cmd.Where {
		c, err := table.ParseConstraint(s)
		if err != nil {
			return table.Query{}, err
		}
		q.Constraints = append(q.Constraints, c)
	}
	for _, s := range cmd.OrderBy {
		o, err := table.ParseOrder(s)
		if err != nil {
			return table.Query{}, err
		}
		q.Orders = append(q.Orders, o)
	}
	return q, nil
}

// setupLogger points the command's logger at the configured log file,
// returning a function which closes it.
func setupLogger(cio *CmdIO, c *Config) (func(), error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	var w io.Writer = cio.Stderr
	closeFn := func() {}
	if c.LogPath != "" {
		fw, err := logger.NewFileWriter(c.LogPath)
		if err != nil {
			return nil, errors.Wrapf(err, "opening log file %s", c.LogPath)
		}
		w = fw
		closeFn = func() { fw.Close() }
	}
	cio.SetLogger(logger.NewLogger(w, c.Verbose))
	return closeFn, nil
}

// loadTable reads the input at path and arranges it by arrangeBy if set.
// Paths ending in ".parquet" are read as parquet files, anything else as
// CSV.
func loadTable(ctx context.Context, cio *CmdIO, path, arrangeBy string, c *Config) (*table.Table, error) {
	start := time.Now()
	tbl, err := readInput(ctx, cio, path, c)
	if err != nil {
		return nil, err
	}
	cio.Logger().Debugf("loaded %d rows, columns %v in %s", tbl.Rows(), tbl.ColumnNames(), time.Since(start))

	if arrangeBy == "" {
		return tbl, nil
	}
	o, err := table.ParseOrder(arrangeBy)
	if err != nil {
		return nil, err
	}
	dir := column.Ascending
	if o.Desc {
		dir = column.Descending
	}
	if tbl, err = tbl.ArrangeBy(o.Column, dir); err != nil {
		return nil, errors.Wrap(err, "arranging table")
	}
	cio.Logger().Debugf("arranged by %s", o)
	return tbl, nil
}

func readInput(ctx context.Context, cio *CmdIO, path string, c *Config) (*table.Table, error) {
	if strings.HasSuffix(path, ".parquet") {
		return LoadParquet(ctx, path)
	}
	if path == "-" {
		return LoadCSV(cio.Stdin, c.delimiter())
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening input")
	}
	defer f.Close()
	return LoadCSV(f, c.delimiter())
}

// startProfile starts a profiled span named name if the config asks for
// a profile. The returned span is nil otherwise.
func startProfile(ctx context.Context, c *Config, name string) (context.Context, *tracing.Profile) {
	if !c.Profile {
		return ctx, nil
	}
	span, ctx := tracing.StartProfiledSpanFromContext(ctx, name)
	return ctx, span
}

// finish writes the profile of span and the metrics dump to stderr if the
// config asks for them.
func finish(cio *CmdIO, c *Config, span *tracing.Profile) error {
	if span != nil {
		span.Finish()
		buf, err := json.MarshalIndent(span, "", "  ")
		if err != nil {
			return errors.Wrap(err, "marshalling profile")
		}
		fmt.Fprintln(cio.Stderr, string(buf))
	}
	if !c.PrintMetrics {
		return nil
	}
	return writeMetrics(cio.Stderr, prometheus.DefaultGatherer)
}

func newExecutor(cio *CmdIO, c *Config) *table.Executor {
	return table.NewExecutor(
		table.OptExecutorLogger(cio.Logger()),
		table.OptExecutorSlowQuery(time.Duration(c.SlowQuery)),
	)
}
