// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/featurebasedb/colchain/ctl"
	"github.com/spf13/cobra"
)

func newQueryCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	query := ctl.NewQueryCommand(stdin, stdout, stderr)
	queryCmd := &cobra.Command{
		Use:   "query <file>",
		Short: "Filter and sort a CSV or parquet file.",
		Long: `query loads a CSV file with a header row into typed columns, keeps the
rows matching every --where constraint and prints them sorted by the
--order-by keys. Files ending in ".parquet" are read as parquet. Pass
"-" to read CSV from stdin.

Constraints have the form "col OP value" with OP one of =, !=, <, <=, >,
>=, "col GLOB pattern", "col IS NULL" or "col IS NOT NULL".
`,
		Example: `  colchain query slices.csv --where "name GLOB 'sched*'" --where "dur > 100" --order-by "dur desc" --limit 10`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query.Path = args[0]
			return query.Run(context.Background())
		},
	}

	flags := queryCmd.Flags()
	flags.StringArrayVarP(&query.Where, "where", "w", nil, "Constraint rows must satisfy. May be repeated.")
	flags.StringArrayVarP(&query.OrderBy, "order-by", "o", nil, `Sort key "col [asc|desc]", most significant first. May be repeated.`)
	flags.StringVar(&query.ArrangeBy, "arrange-by", "", `Arrange the table by "col [asc|desc]" before querying.`)
	ctl.BuildConfigFlags(flags, query.Config)
	return queryCmd
}

func newBatchCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	batch := ctl.NewBatchCommand(stdin, stdout, stderr)
	batchCmd := &cobra.Command{
		Use:   "batch <file> <queries>",
		Short: "Run a file of queries against a CSV or parquet file concurrently.",
		Long: `batch loads a CSV or parquet file once and runs every query in the queries file
against it concurrently, one query per line:

  [SELECT *] [WHERE c1 AND c2 ...] [ORDER BY k1 [DESC], ...] [LIMIT n]

Lines starting with "#" are skipped. Either argument may be "-" for stdin.
`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			batch.Path, batch.QueryPath = args[0], args[1]
			return batch.Run(context.Background())
		},
	}

	flags := batchCmd.Flags()
	flags.StringVar(&batch.ArrangeBy, "arrange-by", "", `Arrange the table by "col [asc|desc]" before querying.`)
	ctl.BuildConfigFlags(flags, batch.Config)
	return batchCmd
}

func newShellCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	shell := ctl.NewShellCommand(stdin, stdout, stderr)
	shellCmd := &cobra.Command{
		Use:   "shell <file>",
		Short: "Run queries interactively against a CSV or parquet file.",
		Long: `shell loads a file once and reads queries from the terminal, one per
line, in the same form batch accepts. "columns" lists the columns,
"metrics" prints the query metrics and "exit" quits.
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shell.Path = args[0]
			return shell.Run(context.Background())
		},
	}

	flags := shellCmd.Flags()
	flags.StringVar(&shell.ArrangeBy, "arrange-by", "", `Arrange the table by "col [asc|desc]" before querying.`)
	flags.StringVar(&shell.HistoryPath, "history-path", defaultHistoryPath(), "Readline history file. Empty to disable.")
	ctl.BuildConfigFlags(flags, shell.Config)
	return shellCmd
}

// defaultHistoryPath returns ~/.colchain/history, or "" if the directory
// cannot be created.
func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(home, ".colchain")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return ""
	}
	return filepath.Join(dir, "history")
}
