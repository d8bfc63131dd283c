package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dsh2dsh/feedkit/internal/config"
	"github.com/dsh2dsh/feedkit/reader/cache"
)

var (
	flagHashKey bool
	flagMaxAge  time.Duration
	flagOlder   time.Duration
)

type cacheResult struct {
	Key   string `json:"key"`
	Found bool   `json:"found"`
	Data  string `json:"data,omitempty"`
}

var cacheCmd = cobra.Command{
	Use:   "cache",
	Short: "Manage content cache",
}

var cacheGetCmd = cobra.Command{
	Use:   "get KEY",
	Short: "Print cached content of KEY",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(cmd, func(c *cache.Cache) error {
			maxAge := config.Opts.CacheMaxAge()
			if cmd.Flags().Changed("max-age") {
				maxAge = flagMaxAge
			}

			key := cacheKey(args[0])
			r := cacheResult{Key: key}
			if data := c.Get(key, maxAge); data != nil {
				r.Found, r.Data = true, string(data)
			}
			return writeJSON(cmd, &r)
		})
	},
}

var cachePutCmd = cobra.Command{
	Use:   "put KEY FILE",
	Short: "Save content of FILE under KEY",
	Args:  cobra.ExactArgs(2),

	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, args[1])
		if err != nil {
			return err
		}

		return withCache(cmd, func(c *cache.Cache) error {
			key := cacheKey(args[0])
			if !c.Save(key, data) {
				return fmt.Errorf("unable save %q", key)
			}
			return writeJSON(cmd, &cacheResult{Key: key, Found: true})
		})
	},
}

var cacheRmCmd = cobra.Command{
	Use:   "rm KEY...",
	Short: "Remove cached content",
	Args:  cobra.MinimumNArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(cmd, func(c *cache.Cache) error {
			for _, k := range args {
				if key := cacheKey(k); !c.Remove(key) {
					return fmt.Errorf("unable remove %q", key)
				}
			}
			return nil
		})
	},
}

var cacheCleanCmd = cobra.Command{
	Use:   "clean",
	Short: "Remove stale cache entries",
	Args:  cobra.ExactArgs(0),

	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(cmd, func(c *cache.Cache) error {
			validity := config.Opts.CacheCleanInterval()
			if cmd.Flags().Changed("older") {
				validity = flagOlder
			}
			return c.Clean(validity)
		})
	},
}

func init() {
	cacheCmd.PersistentFlags().BoolVar(&flagHashKey, "hash", false,
		"Use SHA-256 of KEY as the key, like fetch does for URLs")
	cacheGetCmd.Flags().DurationVar(&flagMaxAge, "max-age", 0,
		"Max age of content, default is CACHE_MAX_AGE")
	cacheCleanCmd.Flags().DurationVar(&flagOlder, "older", 0,
		"Remove entries older than this, default is CACHE_CLEAN_INTERVAL")

	cacheCmd.AddCommand(&cacheGetCmd)
	cacheCmd.AddCommand(&cachePutCmd)
	cacheCmd.AddCommand(&cacheRmCmd)
	cacheCmd.AddCommand(&cacheCleanCmd)
}

func cacheKey(key string) string {
	if flagHashKey {
		return cache.Hash(key)
	}
	return key
}

func withCache(cmd *cobra.Command, fn func(c *cache.Cache) error) error {
	return withMetrics(cmd, func(reg prometheus.Registerer) error {
		c, err := openCache(reg)
		if err != nil {
			return err
		}
		return fn(c)
	})
}

// openCache returns cache in CACHE_DIR, creating the directory if needed.
// Cache counters are registered with reg, if it isn't nil.
func openCache(reg prometheus.Registerer) (*cache.Cache, error) {
	dir := config.Opts.CacheDir()
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	opts := []cache.Option{cache.WithLogger(slog.Default())}
	if reg != nil {
		opts = append(opts, cache.WithMetrics(reg))
	}
	return cache.New(dir, opts...)
}
