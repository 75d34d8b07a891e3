// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"fmt"
	"io"

	"github.com/featurebasedb/colchain/errors"
	coltable "github.com/featurebasedb/colchain/table"
	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
)

// writeResult renders the rows of res to w in the given format. The row
// count footer is only written for the table format.
func writeResult(res *coltable.Result, format string, w io.Writer) error {
	if res == nil {
		return errors.New(errors.ErrUncoded, "attempt to write out nil result")
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)

	// Don't uppercase the header values.
	t.Style().Format.Header = text.FormatDefault

	t.AppendHeader(headerRow(res.Table.ColumnNames()))
	for _, row := range res.Values() {
		t.AppendRow(table.Row(row))
	}

	switch format {
	case FormatCSV:
		t.RenderCSV()
	case FormatMarkdown:
		t.RenderMarkdown()
	default:
		t.Render()
		if _, err := fmt.Fprintf(w, "(%d rows)\n", len(res.Rows)); err != nil {
			return errors.Wrap(err, "writing row count")
		}
	}
	return nil
}

func headerRow(names []string) table.Row {
	ret := make(table.Row, len(names))
	for i, name := range names {
		ret[i] = name
	}
	return ret
}
