// Package main is the pubspy command line. It runs the API server or a single
// discovery, analysis, diagnostic or ads.txt check and prints JSON to stdout.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pubspy/internal/adapters/verifier"
	"pubspy/internal/app"
	"pubspy/internal/config"
	"pubspy/internal/domain"
	"pubspy/pkg/log"
)

// rootOptions holds the persistent flags.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	cacheFile  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "pubspy",
		Short: "Find and verify the sites that share an AdSense publisher ID",
		Long: `pubspy searches the web for sites carrying a ca-pub- publisher ID and
verifies each one through its ads.txt file and homepage.

Examples:
  pubspy discover ca-pub-1234567890123456
  pubspy analyze https://example.com/article
  pubspy adstxt example.com ca-pub-1234567890123456
  pubspy serve --port 3000`,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "Path to configuration file (YAML)")
	flags.StringVarP(&opts.logLevel, "log-level", "l", "", "Log level (trace, debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format (json, text)")
	flags.StringVar(&opts.cacheFile, "cache-file", "", "Load the cache from this file before running and save it after")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newDiscoverCmd(opts),
		newAnalyzeCmd(opts),
		newTestProviderCmd(opts),
		newAdsTxtCmd(opts),
	)
	return rootCmd
}

// run loads configuration, builds the app and hands it to fn. Only serve
// watches the config file.
func run(cmd *cobra.Command, opts *rootOptions, watch bool, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		lvl, err := log.ParseLevel(opts.logLevel)
		if err != nil {
			return fmt.Errorf("--log-level %q: %w", opts.logLevel, err)
		}
		cfg.Log.Level = lvl
	}
	if opts.logFormat != "" {
		cfg.Log.Format = opts.logFormat
	}

	logger := app.SetupLogging(cfg.Log.Level, cfg.Log.Format)
	defer logger.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	configPath := ""
	if watch {
		configPath = opts.configPath
	}
	a, err := app.New(ctx, cfg, configPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.GlobalWarn("shutdown incomplete", "error", err)
		}
	}()

	if err := importCache(a, opts.cacheFile); err != nil {
		return err
	}
	runErr := fn(ctx, a)
	if err := exportCache(a, opts.cacheFile); err != nil {
		log.GlobalWarn("cache not saved", "path", opts.cacheFile, "error", err)
	}
	return runErr
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, true, func(ctx context.Context, a *app.App) error {
				if port != "" {
					a.Config.Server.Port = port
				}
				return a.Serve(ctx)
			})
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides config and PORT)")
	return cmd
}

func newDiscoverCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "discover <publisher-id>",
		Short: "Discover and verify the domains sharing a publisher ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, false, func(ctx context.Context, a *app.App) error {
				result, err := a.Discover.Execute(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
}

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <url>",
		Short: "Extract publisher IDs from a page and discover their domains",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, false, func(ctx context.Context, a *app.App) error {
				result, err := a.Analyze.Execute(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
}

func newTestProviderCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "test-provider",
		Short: "Check the search provider credentials with one probe query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, false, func(ctx context.Context, a *app.App) error {
				diag := a.TestProvider.Execute(ctx)
				if err := printJSON(cmd.OutOrStdout(), diag); err != nil {
					return err
				}
				if !diag.Success {
					return errors.New("search provider is not working")
				}
				return nil
			})
		},
	}
}

func newAdsTxtCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "adstxt <domain> [publisher-id]",
		Short: "Fetch and analyze a domain's ads.txt",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id domain.PublisherID
			if len(args) == 2 {
				parsed, err := domain.ParsePublisherID(args[1])
				if err != nil {
					return err
				}
				id = parsed
			}
			return run(cmd, opts, false, func(ctx context.Context, a *app.App) error {
				analysis, err := a.AdsTxt.Check(ctx, args[0], id)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), analysis)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), verifier.Report(analysis))
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the analysis as JSON")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func importCache(a *app.App, path string) error {
	if path == "" {
		return nil
	}
	// #nosec G304 -- path is chosen by the operator
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read cache file: %w", err)
	}
	n, err := a.Cache.Import(data)
	if err != nil {
		return fmt.Errorf("import cache: %w", err)
	}
	log.GlobalDebug("cache imported", "path", path, "entries", n)
	return nil
}

func exportCache(a *app.App, path string) error {
	if path == "" {
		return nil
	}
	data, err := a.Cache.Export()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
