// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/luxfi/bridge"
	"github.com/luxfi/bridge/expiry"
)

type ConfigOption struct {
	Key     string
	Default any
	Comment string
}

// GetConfigOptions returns the configuration options, their defaults and
// their meanings.
func GetConfigOptions() []ConfigOption {
	return []ConfigOption{
		{Key: "listen_addr", Default: ":7070", Comment: "Address the bridge server listens on"},
		{Key: "address", Default: "127.0.0.1:7070", Comment: "Bridge server address used by client commands"},
		{Key: "transport", Default: bridge.DefaultTransport, Comment: "Bridge transport: tcp or quic"},
		{Key: "control_addr", Default: "", Comment: "HTTP address for the JSON-RPC control plane; empty disables it"},
		{Key: "control_url", Default: "http://127.0.0.1:7071/", Comment: "Control plane URL used by the ops and stats commands"},

		{Key: "expiry.created", Default: "eternal", Comment: "Expiry returned for created entries (Go duration or eternal)"},
		{Key: "expiry.accessed", Default: "", Comment: "Expiry returned for accessed entries; empty leaves expiry unchanged"},
		{Key: "expiry.modified", Default: "", Comment: "Expiry returned for modified entries; empty leaves expiry unchanged"},

		{Key: "log.level", Default: "info", Comment: "Log level: debug, info, warn, error"},
		{Key: "log.development", Default: false, Comment: "Human-readable console logs instead of JSON"},
	}
}

// applyDefaults seeds Viper with defaults defined in GetConfigOptions.
func applyDefaults(v *viper.Viper) {
	for _, o := range GetConfigOptions() {
		v.SetDefault(o.Key, o.Default)
	}
}

// Load resolves configuration with precedence: defaults < file < env.
func Load(ctx context.Context, v *viper.Viper) error {
	if v.ConfigFileUsed() == "" {
		v.SetConfigName("bridge")
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			v.AddConfigPath(filepath.Join(xdg, "bridge"))
		}
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "bridge"))
		}
		v.AddConfigPath(".")
	}

	applyDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	// Environment variables: BRIDGE_*
	v.SetEnvPrefix("bridge")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return CheckConfigValidity(v)
}

// CheckConfigValidity reports every invalid setting at once.
func CheckConfigValidity(v *viper.Viper) error {
	var problems []string
	if strings.TrimSpace(v.GetString("listen_addr")) == "" {
		problems = append(problems, "listen_addr is required")
	}
	if strings.TrimSpace(v.GetString("address")) == "" {
		problems = append(problems, "address is required")
	}
	if t := v.GetString("transport"); !bridge.HasTransport(t) {
		problems = append(problems, fmt.Sprintf("transport %q is not one of %s", t, strings.Join(bridge.AvailableTransports(), ", ")))
	}
	for _, key := range []string{"expiry.created", "expiry.accessed", "expiry.modified"} {
		if s := strings.TrimSpace(v.GetString(key)); s != "" {
			if _, err := expiry.ParseDuration(s); err != nil {
				problems = append(problems, fmt.Sprintf("%s is not a duration: %q", key, s))
			}
		}
	}
	switch strings.ToLower(v.GetString("log.level")) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("log.level %q is not one of debug, info, warn, error", v.GetString("log.level")))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ExpiryPolicy builds the fixed policy described by the expiry.* keys.
func ExpiryPolicy(v *viper.Viper) (*expiry.FixedPolicy, error) {
	p := &expiry.FixedPolicy{}
	for _, f := range []struct {
		key string
		dst **expiry.Duration
	}{
		{"expiry.created", &p.Created},
		{"expiry.accessed", &p.Accessed},
		{"expiry.modified", &p.Modified},
	} {
		s := strings.TrimSpace(v.GetString(f.key))
		if s == "" {
			continue
		}
		d, err := expiry.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = &d
	}
	return p, nil
}
