package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"imgcrawl/internal/downloader"
	"imgcrawl/pkg/bing"
	"imgcrawl/pkg/config"
	"imgcrawl/pkg/crawler"
	"imgcrawl/pkg/logger"
	"imgcrawl/pkg/metadata"
	"imgcrawl/pkg/queries"
	"imgcrawl/pkg/ratelimit"
	"imgcrawl/pkg/retry"
	"imgcrawl/pkg/storage"
	"imgcrawl/pkg/transport"
	"imgcrawl/pkg/ui"
	"imgcrawl/pkg/ui/tui"
)

var (
	// Crawl command flags
	queryFile      string
	limit          int
	outputDir      string
	adultFilterOff bool
	forceReplace   bool
	timeout        time.Duration
	filter         string
	imageSize      string
	proxyAddress   string
	verbose        bool
	useTUI         bool
	notify         bool
)

// crawlCmd represents the crawl command
var crawlCmd = &cobra.Command{
	Use:   "crawl [query...]",
	Short: "Download images for one or more search queries",
	Long: `Download images for each query into <output>/<query>/.

Each argument is one query; quote multi-word queries. Queries can also be
read from a file with one query per line.`,
	Example: `  # 100 images of cats into ./dataset/cat
  imgcrawl crawl cat

  # Two queries, 50 images each, safe search on
  imgcrawl crawl "red panda" "snow leopard" --limit 50 --adult-filter-off=false

  # Transparent clipart at a fixed size, replacing earlier results
  imgcrawl crawl logo --filter transparent --size 512_512 --force-replace

  # Queries from a file with the full screen UI
  imgcrawl crawl --query-file animals.txt --tui`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCrawl(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(crawlCmd)
	addCrawlFlags(crawlCmd)
}

func addCrawlFlags(cmd *cobra.Command) {
	defaults := config.DefaultConfig()

	cmd.Flags().StringVarP(&queryFile, "query-file", "f", "", "read queries from a file, one per line")
	cmd.Flags().IntVarP(&limit, "limit", "l", defaults.Search.Limit, "number of images to download per query")
	cmd.Flags().StringVarP(&outputDir, "output", "o", defaults.Output.RootDirectory, "root directory for downloaded images")
	cmd.Flags().BoolVar(&adultFilterOff, "adult-filter-off", defaults.Search.AdultFilterOff, "disable the engine's adult content filter")
	cmd.Flags().BoolVar(&forceReplace, "force-replace", false, "delete an existing query directory before downloading")
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", defaults.Download.Timeout, "timeout for fallback image requests")
	cmd.Flags().StringVar(&filter, "filter", "", "image type filter (line, photo, clipart, gif, transparent)")
	cmd.Flags().StringVar(&imageSize, "size", "", "exact image size as <width>_<height>")
	cmd.Flags().StringVar(&proxyAddress, "proxy", "", "SOCKS5 proxy address (host:port)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", defaults.UI.Verbose, "print a line per page and image")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "use the interactive terminal UI")
	cmd.Flags().BoolVar(&notify, "notify", false, "send a desktop notification when the crawl ends")
}

// flagOverrides returns the config overrides for flags the user actually set
func flagOverrides(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	set := func(name string, value interface{}) {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			flags[name] = value
		}
	}

	set("limit", limit)
	set("output", outputDir)
	set("adult-filter-off", adultFilterOff)
	set("force-replace", forceReplace)
	set("timeout", timeout)
	set("filter", filter)
	set("size", imageSize)
	set("proxy", proxyAddress)
	set("verbose", verbose)
	set("tui", useTUI)
	set("notify", notify)
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if noColor {
		flags["no-color"] = true
	}
	return flags
}

// collectQueries merges positional queries with those from path
func collectQueries(args []string, path string) ([]string, error) {
	var fromFile []string
	if path != "" {
		var err error
		if fromFile, err = queries.LoadFile(path); err != nil {
			return nil, err
		}
	}

	all := queries.Merge(args, fromFile)
	if len(all) == 0 {
		return nil, fmt.Errorf("no queries given")
	}
	return all, nil
}

func runCrawl(cmd *cobra.Command, args []string) error {
	list, err := collectQueries(args, queryFile)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configFile, flagOverrides(cmd))
	if err != nil {
		return err
	}
	ui.SetColor(cfg.UI.Color)

	if cfg.UI.TUI {
		l, err := logger.NewFileOnly(&cfg.Logging)
		if err != nil {
			return err
		}
		logger.SetLogger(l)
	} else if err := logger.Initialize(&cfg.Logging); err != nil {
		return err
	}
	log := logger.GetLogger()
	log.WithField("version", version).Debug("imgcrawl starting")
	resolveProxyLogin(&cfg.Network, log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var results []*crawler.Result
	if cfg.UI.TUI {
		results, err = crawlWithTUI(ctx, cfg, list, log)
	} else {
		results, err = crawlWithConsole(ctx, cfg, list, cmd.OutOrStdout(), log)
	}

	if cfg.UI.Notifications {
		ui.NewNotifier(cmd.OutOrStdout()).NotifyBatch(results, err)
	}
	return err
}

func crawlWithConsole(ctx context.Context, cfg *config.Config, list []string, out io.Writer, log logger.Logger) ([]*crawler.Result, error) {
	if cfg.UI.Verbose {
		ui.PrintLogo(out)
	}
	display := ui.NewProgressDisplay(out, cfg.Search.Limit, cfg.UI.Verbose)

	batch, err := newBatch(cfg, display, log)
	if err != nil {
		return nil, err
	}

	results, err := batch.Run(ctx, list)
	if len(list) > 1 {
		display.Summary(results)
	}
	return results, err
}

func crawlWithTUI(ctx context.Context, cfg *config.Config, list []string, log logger.Logger) ([]*crawler.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	terminal := tui.NewTUI(list, cfg.Search.Limit, cancel)
	batch, err := newBatch(cfg, terminal, log)
	if err != nil {
		return nil, err
	}

	type outcome struct {
		results []*crawler.Result
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		results, err := batch.Run(ctx, list)
		terminal.Done(err)
		done <- outcome{results, err}
	}()

	tuiErr := terminal.Run()
	cancel()
	res := <-done
	if tuiErr != nil {
		log.WithError(tuiErr).Error("Terminal UI failed")
		return res.results, tuiErr
	}
	return res.results, res.err
}

// newBatch wires the crawl pipeline described by cfg
func newBatch(cfg *config.Config, obs crawler.Observer, log logger.Logger) (*crawler.Batch, error) {
	// Image hosts may be slow; the primary fetch is bounded by ctx only
	httpClient, err := transport.NewClient(cfg.Network, 0)
	if err != nil {
		return nil, err
	}
	limiter := ratelimit.New(cfg.RateLimit)

	pages := bing.NewClient(httpClient,
		bing.WithBaseURL(cfg.Search.BaseURL),
		bing.WithUserAgent(cfg.Search.UserAgent),
		bing.WithLimiter(limiter),
		bing.WithRetry(retry.FromConfig(cfg.Retry, log)),
		bing.WithLogger(log),
	)

	store, err := storage.NewManager(cfg.Output.RootDirectory)
	if err != nil {
		return nil, err
	}

	fetcher := downloader.NewFetcher(httpClient, store, downloader.Options{
		Timeout:      cfg.Download.Timeout,
		UserAgent:    cfg.Search.UserAgent,
		BlockedHosts: cfg.Download.BlockedHosts,
		MaxFileSize:  cfg.Download.MaxFileSize,
		Limiter:      limiter,
	}, log)

	deps := crawler.Deps{
		Pages:    pages,
		Images:   fetcher,
		Dirs:     store,
		Observer: obs,
		Logger:   log,
	}
	if cfg.Output.SaveManifest {
		deps.Recorder = metadata.NewWriter(store)
	}

	return crawler.NewBatch(crawler.BatchOptions{
		Limit:        cfg.Search.Limit,
		Adult:        cfg.AdultSetting(),
		Filter:       bing.BuildFilter(cfg.Search.Filter, cfg.Search.ImageSize),
		ForceReplace: cfg.Output.ForceReplace,
		BackoffDelay: cfg.Backoff.Delay,
		ResumeAfter:  cfg.Backoff.ResumeAfter,
	}, deps), nil
}
