// SPDX-FileCopyrightText: Copyright The Miniflux Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package config // import "github.com/dsh2dsh/feedkit/internal/config"

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dsh2dsh/feedkit/internal/version"
)

// Option contains a key to value map of a single option. It may be used to
// output debug strings.
type Option struct {
	Key   string
	Value any
}

// Options contains configuration options.
type Options struct {
	HostLimits map[string]HostLimits `yaml:"host_limits" validate:"dive,keys,host_suffix,endkeys,required"`

	env EnvOptions
}

type HostLimits struct {
	Connections int64   `yaml:"connections" validate:"omitempty,min=0"`
	Rate        float64 `yaml:"rate" validate:"omitempty,min=0"`
}

func (self *HostLimits) withDefaults(connections int64, rate float64,
) HostLimits {
	limits := *self
	if limits.Connections == 0 {
		limits.Connections = connections
	}
	if limits.Rate == 0 {
		limits.Rate = rate
	}
	return limits
}

type EnvOptions struct {
	LogFile     string `env:"LOG_FILE" validate:"required"`
	LogDateTime bool   `env:"LOG_DATE_TIME"`
	LogFormat   string `env:"LOG_FORMAT" validate:"required,oneof=human json text"`
	LogLevel    string `env:"LOG_LEVEL" validate:"required,oneof=debug info warning error"`
	Logging     []Log  `envPrefix:"LOG" validate:"dive,required"`

	CacheDir           string        `env:"CACHE_DIR" validate:"required"`
	CacheMaxAge        time.Duration `env:"CACHE_MAX_AGE" validate:"min=0"`
	CacheCleanInterval time.Duration `env:"CACHE_CLEAN_INTERVAL" validate:"min=0"`

	HttpClientTimeout     int     `env:"HTTP_CLIENT_TIMEOUT" validate:"min=1"`
	HttpClientUserAgent   string  `env:"HTTP_CLIENT_USER_AGENT"`
	HttpClientMaxBodySize int64   `env:"HTTP_CLIENT_MAX_BODY_SIZE" validate:"min=1"`
	ConnectionsPerServer  int64   `env:"HTTP_CLIENT_HOST_LIMIT" validate:"min=1"`
	RateLimitPerServer    float64 `env:"HTTP_CLIENT_RATE_LIMIT" validate:"min=0"`

	FetchWorkers    int    `env:"FETCH_WORKERS" validate:"min=1"`
	URLCleanerRules string `env:"URL_CLEANER_RULES" validate:"omitempty,file"`
	DateLenient     bool   `env:"DATE_LENIENT"`
	MetricsEnabled  bool   `env:"METRICS_ENABLED"`
}

type Log struct {
	LogFile     string `env:"FILE" validate:"required"`
	LogDateTime bool   `env:"DATE_TIME"`
	LogFormat   string `env:"FORMAT" validate:"required,oneof=human json text"`
	LogLevel    string `env:"LEVEL" validate:"required,oneof=debug info warning error"`
}

// NewOptions returns Options with default values.
func NewOptions() *Options {
	return &Options{
		HostLimits: map[string]HostLimits{},

		env: EnvOptions{
			LogFile:   "stderr",
			LogFormat: "text",
			LogLevel:  "info",

			CacheDir:           filepath.Join(os.TempDir(), "feedkit"),
			CacheMaxAge:        time.Hour,
			CacheCleanInterval: 7 * 24 * time.Hour,

			HttpClientTimeout:     20,
			HttpClientMaxBodySize: 15,
			HttpClientUserAgent:   version.UserAgent(),
			ConnectionsPerServer:  8,
			RateLimitPerServer:    10,

			FetchWorkers: 16,
		},
	}
}

func (o *Options) init() error {
	if err := o.validate(); err != nil {
		return err
	}
	o.env.HttpClientMaxBodySize *= 1024 * 1024
	return nil
}

func (o *Options) validate() error {
	if err := Validator().Struct(&o.env); err != nil {
		return fmt.Errorf("config: failed validate: %w", err)
	}
	return nil
}

func (o *Options) LogFile() string { return o.env.LogFile }

// LogDateTime returns true if the date/time should be displayed in log
// messages.
func (o *Options) LogDateTime() bool { return o.env.LogDateTime }

// LogFormat returns the log format.
func (o *Options) LogFormat() string { return o.env.LogFormat }

// LogLevel returns the log level.
func (o *Options) LogLevel() string { return o.env.LogLevel }

// SetLogLevel sets the log level.
func (o *Options) SetLogLevel(level string) { o.env.LogLevel = level }

func (o *Options) Logging() []Log {
	if len(o.env.Logging) == 0 {
		return []Log{{
			LogFile:     o.LogFile(),
			LogDateTime: o.LogDateTime(),
			LogFormat:   o.LogFormat(),
			LogLevel:    o.LogLevel(),
		}}
	}
	return slices.Clone(o.env.Logging)
}

// CacheDir returns directory of the content cache.
func (o *Options) CacheDir() string { return o.env.CacheDir }

// CacheMaxAge returns max age of cached responses.
func (o *Options) CacheMaxAge() time.Duration { return o.env.CacheMaxAge }

// CacheCleanInterval returns age of cache entries removed by clean.
func (o *Options) CacheCleanInterval() time.Duration {
	return o.env.CacheCleanInterval
}

// HTTPClientTimeout returns the time limit in seconds before the HTTP client
// cancel the request.
func (o *Options) HTTPClientTimeout() time.Duration {
	return time.Duration(o.env.HttpClientTimeout) * time.Second
}

// HTTPClientMaxBodySize returns the number of bytes allowed for the HTTP
// client to transfer.
func (o *Options) HTTPClientMaxBodySize() int64 {
	return o.env.HttpClientMaxBodySize
}

// HTTPClientUserAgent returns the global User-Agent header.
func (o *Options) HTTPClientUserAgent() string {
	return o.env.HttpClientUserAgent
}

func (o *Options) ConnectionsPerServer() int64 {
	return o.env.ConnectionsPerServer
}

func (o *Options) RateLimitPerServer() float64 {
	return o.env.RateLimitPerServer
}

func (o *Options) FindHostLimits(hostname string) (found HostLimits) {
	for hostname != "" {
		if limits, ok := o.HostLimits[hostname]; ok {
			found = limits
			break
		}
		_, hostname, _ = strings.Cut(hostname, ".")
	}
	return found.withDefaults(o.ConnectionsPerServer(), o.RateLimitPerServer())
}

// FetchWorkers returns number of URLs fetched in parallel.
func (o *Options) FetchWorkers() int { return o.env.FetchWorkers }

// URLCleanerRules returns path of tracking rules file, or empty string for
// embedded rules.
func (o *Options) URLCleanerRules() string { return o.env.URLCleanerRules }

func (o *Options) DateLenient() bool { return o.env.DateLenient }

func (o *Options) MetricsEnabled() bool { return o.env.MetricsEnabled }

// SortedOptions returns options as a list of key value pairs, sorted by keys.
func (o *Options) SortedOptions() []Option {
	keyValues := map[string]any{
		"CACHE_CLEAN_INTERVAL":      o.CacheCleanInterval(),
		"CACHE_DIR":                 o.CacheDir(),
		"CACHE_MAX_AGE":             o.CacheMaxAge(),
		"DATE_LENIENT":              o.DateLenient(),
		"FETCH_WORKERS":             o.FetchWorkers(),
		"HTTP_CLIENT_HOST_LIMIT":    o.ConnectionsPerServer(),
		"HTTP_CLIENT_MAX_BODY_SIZE": o.HTTPClientMaxBodySize(),
		"HTTP_CLIENT_RATE_LIMIT":    o.RateLimitPerServer(),
		"HTTP_CLIENT_TIMEOUT":       o.env.HttpClientTimeout,
		"HTTP_CLIENT_USER_AGENT":    o.HTTPClientUserAgent(),
		"LOG_DATE_TIME":             o.LogDateTime(),
		"LOG_FILE":                  o.LogFile(),
		"LOG_FORMAT":                o.LogFormat(),
		"LOG_LEVEL":                 o.LogLevel(),
		"METRICS_ENABLED":           o.MetricsEnabled(),
		"URL_CLEANER_RULES":         o.URLCleanerRules(),
	}

	sortedKeys := slices.Sorted(maps.Keys(keyValues))
	sortedOptions := make([]Option, len(sortedKeys))
	for i, key := range sortedKeys {
		sortedOptions[i] = Option{Key: key, Value: keyValues[key]}
	}
	return sortedOptions
}

func (o *Options) String() string {
	var builder strings.Builder
	for _, option := range o.SortedOptions() {
		fmt.Fprintf(&builder, "%s=%v\n", option.Key, option.Value)
	}
	return builder.String()
}
