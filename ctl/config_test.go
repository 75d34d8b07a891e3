// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/featurebasedb/colchain/errors"
	"github.com/featurebasedb/colchain/toml"
	gotoml "github.com/pelletier/go-toml"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, NewConfig().Validate())

	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"Format", func(c *Config) { c.Format = "json" }},
		{"Limit", func(c *Config) { c.Limit = -1 }},
		{"SlowQuery", func(c *Config) { c.SlowQuery = toml.Duration(-time.Second) }},
		{"EmptyDelimiter", func(c *Config) { c.Delimiter = "" }},
		{"LongDelimiter", func(c *Config) { c.Delimiter = ";;" }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := NewConfig()
			test.modify(c)
			assert.True(t, errors.Is(c.Validate(), errors.ErrInvalidConfig))
		})
	}

	c := NewConfig()
	c.Delimiter = "\t"
	require.NoError(t, c.Validate())
	assert.Equal(t, '\t', c.delimiter())
}

func TestGenerateConfigCommand_Run(t *testing.T) {
	buf := &bytes.Buffer{}
	cm := NewGenerateConfigCommand(nil, buf, nil)
	err := cm.Run(context.Background())
	if err != nil {
		t.Fatalf("Config Run doesn't work: %s", err)
	}
	if !strings.Contains(buf.String(), `"table"`) {
		t.Fatalf("Unexpected config: %s", buf.String())
	}

	var c Config
	require.NoError(t, gotoml.Unmarshal(buf.Bytes(), &c))
	assert.Equal(t, *NewConfig(), c)
}

func TestConfigCommand_Run(t *testing.T) {
	buf := &bytes.Buffer{}
	cm := NewConfigCommand(nil, buf, nil)
	cm.Config.Limit = 42
	cm.Config.SlowQuery = toml.Duration(time.Minute)
	require.NoError(t, cm.Run(context.Background()))

	var c Config
	require.NoError(t, gotoml.Unmarshal(buf.Bytes(), &c))
	assert.Equal(t, 42, c.Limit)
	assert.Equal(t, toml.Duration(time.Minute), c.SlowQuery)
}

func TestBuildConfigFlags(t *testing.T) {
	c := NewConfig()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BuildConfigFlags(flags, c)

	assert.Equal(t, "1s", flags.Lookup("slow-query").DefValue)
	require.NoError(t, flags.Parse([]string{"-v", "--limit=5", "--slow-query=250ms", "--format", "csv", "--delimiter=;", "--print-metrics"}))
	assert.Equal(t, &Config{
		Verbose:      true,
		SlowQuery:    toml.Duration(250 * time.Millisecond),
		Limit:        5,
		Format:       FormatCSV,
		Delimiter:    ";",
		PrintMetrics: true,
	}, c)
}
