// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/featurebasedb/colchain/errors"
	"github.com/featurebasedb/colchain/table"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	shellPrompt    = "colchain> "
	exitCommand    = "exit"
	metricsCommand = "metrics"
	columnsCommand = "columns"
)

// lineReader is the part of *readline.Instance used by the shell.
type lineReader interface {
	Readline() (string, error)
	SaveHistory(content string) error
	Close() error
}

// ShellCommand represents an interactive session running queries against
// one loaded table.
type ShellCommand struct {
	*CmdIO

	// Path of the input. "-" is not allowed as stdin holds the session.
	Path string

	// ArrangeBy, if set, arranges the table by this sort key first.
	ArrangeBy string

	// HistoryPath is the readline history file. Empty disables history.
	HistoryPath string

	Config *Config

	newReader func() (lineReader, error)
}

// NewShellCommand returns a new instance of ShellCommand.
func NewShellCommand(stdin io.Reader, stdout, stderr io.Writer) *ShellCommand {
	cmd := &ShellCommand{
		CmdIO:  NewCmdIO(stdin, stdout, stderr),
		Config: NewConfig(),
	}
	cmd.newReader = cmd.newReadline
	return cmd
}

func (cmd *ShellCommand) newReadline() (lineReader, error) {
	cfg := &readline.Config{
		Prompt:                 shellPrompt,
		HistoryFile:            cmd.HistoryPath,
		HistoryLimit:           10000,
		DisableAutoSaveHistory: true,
		Stdout:                 cmd.Stdout,
		Stderr:                 cmd.Stderr,
	}
	if cmd.Stdin != nil {
		cfg.Stdin = io.NopCloser(cmd.Stdin)
	}
	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "getting readline")
	}
	return rl, nil
}

// Run loads the table and reads queries until "exit" or end of input.
// A failing query is reported on Stderr and the session continues.
func (cmd *ShellCommand) Run(ctx context.Context) error {
	closeLog, err := setupLogger(cmd.CmdIO, cmd.Config)
	if err != nil {
		return err
	}
	defer closeLog()

	if cmd.Path == "-" {
		return errors.New(errors.ErrInvalidConfig, "shell input cannot be read from stdin")
	}
	tbl, err := loadTable(ctx, cmd.CmdIO, cmd.Path, cmd.ArrangeBy, cmd.Config)
	if err != nil {
		return err
	}
	e := newExecutor(cmd.CmdIO, cmd.Config)

	rl, err := cmd.newReader()
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Fprintf(cmd.Stdout, "%d rows, columns %s\nType \"exit\" to quit.\n", tbl.Rows(), strings.Join(tbl.ColumnNames(), ", "))
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			return nil
		} else if err != nil {
			return errors.Wrap(err, "reading line")
		}

		line = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line), ";"))
		switch line {
		case "":
			continue
		case exitCommand:
			return nil
		case columnsCommand:
			cmd.writeColumns(tbl)
			continue
		case metricsCommand:
			if err := writeMetrics(cmd.Stdout, prometheus.DefaultGatherer); err != nil {
				fmt.Fprintf(cmd.Stderr, "Error: %v\n", err)
			}
			continue
		}

		if err := rl.SaveHistory(line); err != nil {
			cmd.Logger().Warnf("saving history: %v", err)
		}
		if err := cmd.runLine(ctx, e, tbl, line); err != nil {
			fmt.Fprintf(cmd.Stderr, "Error: %v\n", err)
		}
	}
}

func (cmd *ShellCommand) runLine(ctx context.Context, e *table.Executor, tbl *table.Table, line string) error {
	q, err := table.ParseQuery(line)
	if err != nil {
		return err
	}
	if q.Limit == 0 {
		q.Limit = cmd.Config.Limit
	}
	res, err := e.Run(ctx, tbl, q)
	if err != nil {
		return err
	}
	return writeResult(res, cmd.Config.Format, cmd.Stdout)
}

func (cmd *ShellCommand) writeColumns(tbl *table.Table) {
	for _, name := range tbl.ColumnNames() {
		c, _ := tbl.Column(name)
		fmt.Fprintf(cmd.Stdout, "%s\t%s\n", name, c.Type)
	}
}
