// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package tracing holds the span interface used around query execution
// and a profiling span which records its children.
package tracing

import (
	"context"
	"sync"
	"time"
)

// GlobalTracer is a single, global instance of Tracer.
var GlobalTracer Tracer = NopTracer()

// Tracer starts spans.
type Tracer interface {
	// StartSpanFromContext returns a new child span and context.
	StartSpanFromContext(ctx context.Context, operationName string) (Span, context.Context)
}

// Span is a single span in a trace.
type Span interface {
	Finish()
	LogKV(alternatingKeyValues ...interface{})
}

// StartSpanFromContext starts a span on the global tracer. Below a
// Profile the new span is a child Profile.
func StartSpanFromContext(ctx context.Context, operationName string) (Span, context.Context) {
	parent, ok := ctx.Value(profileContextKey).(*Profile)
	if !ok {
		return GlobalTracer.StartSpanFromContext(ctx, operationName)
	}
	return startProfile(ctx, parent, operationName)
}

// StartProfiledSpanFromContext starts a Profile, which records the name,
// duration and logged values of every span started below it.
func StartProfiledSpanFromContext(ctx context.Context, operationName string) (*Profile, context.Context) {
	parent, _ := ctx.Value(profileContextKey).(*Profile)
	return startProfile(ctx, parent, operationName)
}

func startProfile(ctx context.Context, parent *Profile, name string) (*Profile, context.Context) {
	p := &Profile{Name: name, Begin: time.Now(), KV: make(map[string]interface{})}
	if parent != nil {
		parent.addChild(p)
	}
	p.inner, ctx = GlobalTracer.StartSpanFromContext(ctx, name)
	return p, context.WithValue(ctx, profileContextKey, p)
}

// Profile is a span that marshals to JSON as a tree of timings. Children
// may be added concurrently.
type Profile struct {
	mu         sync.Mutex
	inner      Span
	Name       string
	Begin, End time.Time `json:"-"`
	Duration   time.Duration
	Children   []*Profile             `json:",omitempty"`
	KV         map[string]interface{} `json:",omitempty"`
}

func (p *Profile) Finish() {
	p.inner.Finish()
	p.mu.Lock()
	p.End = time.Now()
	p.Duration = p.End.Sub(p.Begin)
	p.mu.Unlock()
}

// LogKV keeps pairs with string keys. A trailing unpaired value is dropped.
func (p *Profile) LogKV(alternatingKeyValues ...interface{}) {
	p.mu.Lock()
	for i := 0; i+1 < len(alternatingKeyValues); i += 2 {
		if s, ok := alternatingKeyValues[i].(string); ok {
			p.KV[s] = alternatingKeyValues[i+1]
		}
	}
	p.mu.Unlock()
	p.inner.LogKV(alternatingKeyValues...)
}

func (p *Profile) addChild(child *Profile) {
	p.mu.Lock()
	p.Children = append(p.Children, child)
	p.mu.Unlock()
}

// NopTracer returns a tracer whose spans do nothing.
func NopTracer() Tracer {
	return nopTracer{}
}

type nopTracer struct{}

func (nopTracer) StartSpanFromContext(ctx context.Context, operationName string) (Span, context.Context) {
	return nopSpan{}, ctx
}

type nopSpan struct{}

func (nopSpan) Finish()                                   {}
func (nopSpan) LogKV(alternatingKeyValues ...interface{}) {}

type profileContextKeyType int

var profileContextKey profileContextKeyType
