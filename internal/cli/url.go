package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dsh2dsh/feedkit/internal/config"
	"github.com/dsh2dsh/feedkit/reader/urlcleaner"
	"github.com/dsh2dsh/feedkit/urllib"
)

type urlResult struct {
	URL    string `json:"url"`
	Result string `json:"result"`
}

var canonicalCmd = cobra.Command{
	Use:   "canonical URL...",
	Short: "Print canonical form of URLs",
	Args:  cobra.MinimumNArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		results := make([]urlResult, len(args))
		for i, u := range args {
			results[i] = urlResult{URL: u, Result: urllib.Sanitize(u)}
		}
		return writeJSON(cmd, results)
	},
}

var clearCmd = cobra.Command{
	Use:   "clear URL...",
	Short: "Remove tracking parameters from URLs",
	Args:  cobra.MinimumNArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		cleaner, err := newCleaner(cmd.Context())
		if err != nil {
			return err
		}

		results := make([]urlResult, len(args))
		for i, u := range args {
			results[i] = urlResult{URL: u, Result: cleaner.Clear(u)}
		}
		return writeJSON(cmd, results)
	},
}

// newCleaner returns a cleaner using rules from URL_CLEANER_RULES or embedded
// rules.
func newCleaner(ctx context.Context) (*urlcleaner.Cleaner, error) {
	fname := config.Opts.URLCleanerRules()
	if fname == "" {
		return urlcleaner.New(urlcleaner.DefaultRules()), nil
	}

	f, err := os.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("open url cleaner rules: %w", err)
	}
	defer f.Close()

	rules, err := urlcleaner.LoadRules(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", fname, err)
	}
	return urlcleaner.New(rules), nil
}
