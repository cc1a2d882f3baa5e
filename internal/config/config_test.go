// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/bridge/expiry"
)

func TestCheckConfigValidityValid(t *testing.T) {
	v := viper.New()
	applyDefaults(v)
	require.NoError(t, CheckConfigValidity(v))
}

func TestCheckConfigValidityInvalid(t *testing.T) {
	v := viper.New()
	applyDefaults(v)
	v.Set("listen_addr", "")
	v.Set("transport", "carrier-pigeon")
	v.Set("expiry.created", "soon")
	v.Set("log.level", "loud")

	err := CheckConfigValidity(v)
	require.Error(t, err)
	for _, want := range []string{
		"listen_addr is required",
		`transport "carrier-pigeon"`,
		"expiry.created is not a duration",
		`log.level "loud"`,
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr: \":9000\"\nexpiry:\n  created: 20ms\n"), 0o600))
	t.Setenv("BRIDGE_LISTEN_ADDR", ":9100")

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, Load(context.Background(), v))

	assert.Equal(t, ":9100", v.GetString("listen_addr"), "env overrides file")
	assert.Equal(t, "20ms", v.GetString("expiry.created"), "file overrides default")
	assert.Equal(t, "127.0.0.1:7070", v.GetString("address"), "default applies")
}

func TestExpiryPolicy(t *testing.T) {
	v := viper.New()
	applyDefaults(v)
	v.Set("expiry.created", "20ms")
	v.Set("expiry.modified", "eternal")

	p, err := ExpiryPolicy(v)
	require.NoError(t, err)
	require.NotNil(t, p.Created)
	assert.Equal(t, expiry.Duration{Unit: expiry.Milliseconds, Amount: 20}, *p.Created)
	assert.Nil(t, p.Accessed)
	require.NotNil(t, p.Modified)
	assert.True(t, p.Modified.IsEternal())
}

func TestNewLogger(t *testing.T) {
	v := viper.New()
	applyDefaults(v)
	v.Set("log.level", "debug")
	l, err := NewLogger(v)
	require.NoError(t, err)
	assert.NotNil(t, l)
}
