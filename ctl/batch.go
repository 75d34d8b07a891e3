// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/featurebasedb/colchain/errors"
	"github.com/featurebasedb/colchain/table"
)

// BatchCommand represents a command for running many queries against one
// CSV or parquet file concurrently.
type BatchCommand struct {
	*CmdIO

	// Path of the input.
	Path string

	// QueryPath holds one query per line. Blank lines and lines starting
	// with "#" are skipped. "-" reads stdin.
	QueryPath string

	// ArrangeBy, if set, arranges the table by this sort key first.
	ArrangeBy string

	Config *Config
}

// NewBatchCommand returns a new instance of BatchCommand.
func NewBatchCommand(stdin io.Reader, stdout, stderr io.Writer) *BatchCommand {
	return &BatchCommand{
		CmdIO:  NewCmdIO(stdin, stdout, stderr),
		Config: NewConfig(),
	}
}

// Run executes the batch, writing each result preceded by its query.
func (cmd *BatchCommand) Run(ctx context.Context) error {
	closeLog, err := setupLogger(cmd.CmdIO, cmd.Config)
	if err != nil {
		return err
	}
	defer closeLog()

	if cmd.Path == "-" && cmd.QueryPath == "-" {
		return errors.New(errors.ErrInvalidConfig, "input and queries cannot both be read from stdin")
	}
	qs, err := cmd.readQueries()
	if err != nil {
		return err
	}
	ctx, span := startProfile(ctx, cmd.Config, "BatchCommand.Run")
	tbl, err := loadTable(ctx, cmd.CmdIO, cmd.Path, cmd.ArrangeBy, cmd.Config)
	if err != nil {
		return err
	}

	results, err := newExecutor(cmd.CmdIO, cmd.Config).RunAll(ctx, tbl, qs)
	if err != nil {
		return errors.Wrap(err, "running batch")
	}
	for i, res := range results {
		if i > 0 {
			fmt.Fprintln(cmd.Stdout)
		}
		fmt.Fprintf(cmd.Stdout, "-- %s\n", qs[i])
		if err := writeResult(res, cmd.Config.Format, cmd.Stdout); err != nil {
			return err
		}
	}
	return finish(cmd.CmdIO, cmd.Config, span)
}

func (cmd *BatchCommand) readQueries() ([]table.Query, error) {
	var r io.Reader = cmd.Stdin
	if cmd.QueryPath != "-" {
		f, err := os.Open(cmd.QueryPath)
		if err != nil {
			return nil, errors.Wrap(err, "opening queries")
		}
		defer f.Close()
		r = f
	}

	var qs []table.Query
	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		s := strings.TrimSpace(scanner.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		q, err := table.ParseQuery(s)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		if q.Limit == 0 {
			q.Limit = cmd.Config.Limit
		}
		qs = append(qs, q)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading queries")
	}
	return qs, nil
}
