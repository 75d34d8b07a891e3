// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package table

import (
	"context"
	"time"

	"github.com/featurebasedb/colchain/column"
	"github.com/featurebasedb/colchain/errors"
	"github.com/featurebasedb/colchain/logger"
	"github.com/featurebasedb/colchain/tracing"
	"golang.org/x/sync/errgroup"
)

// Result holds the rows of a query in output order.
type Result struct {
	Table *Table
	Rows  []uint32
}

// Values returns the result rows with one value per table column.
func (r *Result) Values() [][]interface{} {
	out := make([][]interface{}, len(r.Rows))
	for i, row := range r.Rows {
		vals := make([]interface{}, len(r.Table.columns))
		for j, c := range r.Table.columns {
			vals[j] = r.Table.Value(c, row)
		}
		out[i] = vals
	}
	return out
}

// Executor runs queries against tables. Tables are immutable, so one
// Executor may run any number of queries concurrently.
type Executor struct {
	logger    logger.Logger
	slowQuery time.Duration
}

// ExecutorOption is a functional option type for Executor.
type ExecutorOption func(e *Executor)

// OptExecutorLogger sets the logger for query tracing.
func OptExecutorLogger(l logger.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = l
	}
}

// OptExecutorSlowQuery sets the duration above which queries are logged
// as slow. Zero disables slow query logging.
func OptExecutorSlowQuery(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.slowQuery = d
	}
}

// NewExecutor returns an Executor with the given options applied.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		logger: logger.NopLogger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run filters t by every constraint of q, sorts the survivors by q's
// order keys and applies the limit.
func (e *Executor) Run(ctx context.Context, t *Table, q Query) (res *Result, err error) {
	span, ctx := tracing.StartSpanFromContext(ctx, "Executor.Run")
	defer span.Finish()
	span.LogKV("query", q.String())

	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		HistogramQueryDuration.Observe(elapsed.Seconds())
		if err != nil {
			CounterQueries.WithLabelValues("error").Inc()
			return
		}
		CounterQueries.WithLabelValues("ok").Inc()
		if e.slowQuery > 0 && elapsed > e.slowQuery {
			CounterSlowQueries.Inc()
			e.logger.Warnf("slow query %s: %s", elapsed, q)
		}
	}()

	if q.Limit < 0 {
		return nil, errors.Newf(errors.ErrInvalidConstraint, "negative limit %d", q.Limit)
	}
	filters := make([]*Column, len(q.Constraints))
	for i, c := range q.Constraints {
		if filters[i], err = t.Column(c.Column); err != nil {
			return nil, err
		}
	}
	keys := make([]*Column, len(q.Orders))
	for i, o := range q.Orders {
		if keys[i], err = t.Column(o.Column); err != nil {
			return nil, err
		}
	}

	rows, err := e.filter(ctx, t, q.Constraints, filters)
	if err != nil {
		return nil, err
	}
	if len(q.Orders) > 0 {
		if rows, err = e.sort(ctx, rows, q.Orders, keys); err != nil {
			return nil, err
		}
	}
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	span.LogKV("rows", len(rows))
	e.logger.Debugf("query %s: %d rows in %s", q, len(rows), time.Since(start))
	return &Result{Table: t, Rows: rows}, nil
}

// rowSet is the set of surviving rows, held as a range until a search
// breaks it up.
type rowSet struct {
	r       column.Range
	indices []uint32
	listed  bool
}

func (s rowSet) size() uint32 {
	if s.listed {
		return uint32(len(s.indices))
	}
	return s.r.Size()
}

func (s rowSet) first() uint32 {
	if s.listed {
		return s.indices[0]
	}
	return s.r.Start
}

func (s rowSet) list() []uint32 {
	if s.listed {
		return s.indices
	}
	return column.ToIndexVector(column.RangeResult(s.r))
}

func (e *Executor) filter(ctx context.Context, t *Table, constraints []Constraint, cols []*Column) ([]uint32, error) {
	span, _ := tracing.StartSpanFromContext(ctx, "Executor.filter")
	defer span.Finish()

	rows := rowSet{r: column.NewRange(0, t.Rows())}
	for i, c := range constraints {
		if rows.size() == 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chain := cols[i].chain

		switch chain.ValidateSearchConstraints(c.Op, c.Value) {
		case column.SearchAllData:
			e.logger.Debugf("constraint %s: every row matches", c)
			continue
		case column.SearchNoData:
			e.logger.Debugf("constraint %s: no row matches", c)
			rows = rowSet{}
			continue
		}

		if rows.size() == 1 {
			switch chain.SingleSearch(c.Op, c.Value, rows.first()) {
			case column.Match:
				e.logger.Debugf("constraint %s: single row matches", c)
				continue
			case column.NoMatch:
				e.logger.Debugf("constraint %s: single row does not match", c)
				rows = rowSet{}
				continue
			}
		}

		if !rows.listed {
			res := chain.Search(c.Op, c.Value, rows.r)
			if res.IsRange() {
				rows.r = res.Range()
				e.logger.Debugf("constraint %s: search gave range %s", c, rows.r)
			} else {
				rows = rowSet{indices: res.BitSet().SetIndices(), listed: true}
				e.logger.Debugf("constraint %s: search gave %d rows", c, len(rows.indices))
			}
		} else {
			indices := column.Indices{Data: rows.indices, State: column.Monotonic}
			rows.indices = column.SelectIndices(indices, chain.IndexSearch(c.Op, c.Value, indices))
			e.logger.Debugf("constraint %s: index search gave %d rows", c, len(rows.indices))
		}
		HistogramConstraintRows.Observe(float64(rows.size()))
	}
	span.LogKV("constraints", len(constraints), "rows", rows.size())
	return rows.list(), nil
}

// sort orders rows by keys, the first key most significant. Sorting by
// each key from last to first with a stable sort gives that order.
func (e *Executor) sort(ctx context.Context, rows []uint32, orders []Order, keys []*Column) ([]uint32, error) {
	span, _ := tracing.StartSpanFromContext(ctx, "Executor.sort")
	defer span.Finish()
	span.LogKV("keys", len(orders), "rows", len(rows))

	tokens := make([]column.SortToken, len(rows))
	for i, row := range rows {
		tokens[i] = column.SortToken{Index: row, Payload: row}
	}
	for i := len(orders) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		keys[i].chain.StableSort(tokens, orders[i].direction())
	}
	return column.ExtractPayload(tokens), nil
}

// RunAll runs qs concurrently against t. Results are in query order. The
// first failing query cancels the rest.
func (e *Executor) RunAll(ctx context.Context, t *Table, qs []Query) ([]*Result, error) {
	span, ctx := tracing.StartSpanFromContext(ctx, "Executor.RunAll")
	defer span.Finish()
	span.LogKV("queries", len(qs))

	results := make([]*Result, len(qs))
	eg, ctx := errgroup.WithContext(ctx)
	for i := range qs {
		i := i
		eg.Go(func() error {
			res, err := e.Run(ctx, t, qs[i])
			if err != nil {
				return errors.Wrapf(err, "query %d", i)
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
