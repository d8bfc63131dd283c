package cli

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dsh2dsh/feedkit/internal/config"
	"github.com/dsh2dsh/feedkit/internal/metric"
)

// withMetrics calls fn with a metrics registry, if METRICS_ENABLED, or with
// nil. Gathered metrics are written to stderr of cmd after fn returned.
func withMetrics(cmd *cobra.Command,
	fn func(reg prometheus.Registerer) error,
) error {
	if !config.Opts.MetricsEnabled() {
		return fn(nil)
	}

	reg := metric.Registry()
	err := fn(reg)
	if err := metric.WriteText(cmd.ErrOrStderr(), reg); err != nil {
		slog.Warn("unable write metrics", slog.Any("error", err))
	}
	return err
}
