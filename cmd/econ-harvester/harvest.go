// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/econ-harvester/internal/catalog"
	"github.com/pdiddy/econ-harvester/internal/harvest"
	"github.com/pdiddy/econ-harvester/internal/httputil"
	"github.com/pdiddy/econ-harvester/internal/scrape"
	"github.com/pdiddy/econ-harvester/internal/source"
	"github.com/pdiddy/econ-harvester/pkg/types"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest [keywords...]",
	Short: "Fetch paper metadata from NBER, arXiv and SSRN",
	Long: `Harvest splits --max-articles across the sources (50% NBER, 10% arXiv,
40% SSRN), queries each in turn for papers matching any keyword, and prints
or writes the combined records. Multi-word keywords may be quoted.

With --full-abstract each NBER and SSRN landing page is scraped for the full
abstract (and SSRN author keywords). This is slow: pages are fetched one at a
time with randomized pauses. An SSRN cookie can be supplied through
.secrets/ssrn-cookie or ECON_HARVESTER_SSRN_COOKIE.`,
	PreRun: func(cmd *cobra.Command, args []string) {
		bindFlags(cmd.Flags(), map[string]string{
			"keyword":        "keywords",
			"keywords-file":  "keywords_file",
			"max-articles":   "max_articles",
			"full-abstract":  "load_full_abstract",
			"output":         "output_path",
			"catalog":        "catalog_path",
			"timeout":        "timeout",
			"user-agent":     "user_agent",
			"scrape-timeout": "scrape_timeout",
			"rate-limit":     "rate_limit_per_host",
			"rate-burst":     "rate_burst",
			"respect-robots": "respect_robots",
			"cache-ttl":      "scrape_cache_ttl",
		})
	},
	RunE: runHarvest,
}

func init() {
	f := harvestCmd.Flags()
	f.StringSliceP("keyword", "k", nil, "search keyword (repeatable)")
	f.String("keywords-file", "", "YAML file listing keywords")
	f.IntP("max-articles", "n", defaultMaxArticles, "total record budget across all sources")
	f.Bool("full-abstract", false, "scrape landing pages for full abstracts")
	f.StringP("output", "o", "", "write records as JSON to this file or directory")
	f.String("catalog", "", "also save records to this SQLite catalog")
	f.Duration("timeout", defaultTimeout, "HTTP timeout for search requests")
	f.String("user-agent", defaultUserAgent, "User-Agent header")
	f.Duration("scrape-timeout", source.DefaultScrapeTimeout, "timeout for one SSRN landing-page request")
	f.Float64("rate-limit", 0, "max requests per second to any one host (0 disables)")
	f.Int("rate-burst", 1, "rate limiter burst size")
	f.Bool("respect-robots", false, "skip landing pages disallowed by robots.txt")
	f.Duration("cache-ttl", 0, "keep scraped landing-page data in memory for this long (0 disables)")
	f.Bool("json", false, "print records as JSON to stdout")

	rootCmd.AddCommand(harvestCmd)
}

func runHarvest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	keywords, err := resolveKeywords(args, cfg)
	if err != nil {
		return err
	}
	printJSON, _ := cmd.Flags().GetBool("json")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Progress goes to stderr when stdout carries the JSON records.
	progress := cmd.OutOrStdout()
	if printJSON {
		progress = cmd.ErrOrStderr()
	}

	h := newHarvester(cfg, progress)
	out, runErr := h.Run(ctx, harvest.Request{
		Keywords:         keywords,
		MaxArticles:      cfg.MaxArticles,
		LoadFullAbstract: cfg.LoadFullAbstract,
		OutputPath:       cfg.OutputPath,
	})
	printSummary(progress, out)

	var srcErr *harvest.SourceError
	if runErr != nil && !errors.As(runErr, &srcErr) {
		return runErr
	}

	if cfg.CatalogPath != "" && len(out.Records) > 0 {
		if err := saveToCatalog(ctx, cfg.CatalogPath, out.Records, progress); err != nil {
			return err
		}
	}
	if out.Written != "" {
		fmt.Fprintf(progress, "Wrote %d records to %s\n", len(out.Records), out.Written)
	}
	if printJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(out.Records); err != nil {
			return fmt.Errorf("encoding records: %w", err)
		}
	}
	return runErr
}

// resolveKeywords prefers positional arguments, then configured keywords,
// then the keyword file.
func resolveKeywords(args []string, cfg types.HarvestConfig) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if len(cfg.Keywords) > 0 {
		return cfg.Keywords, nil
	}
	if cfg.KeywordsFile != "" {
		keywords, err := harvest.LoadKeywords(cfg.KeywordsFile)
		if err != nil {
			return nil, err
		}
		if len(keywords) > 0 {
			return keywords, nil
		}
	}
	return nil, fmt.Errorf("provide keywords as arguments, with --keyword, or via --keywords-file")
}

// newHarvester wires the three adapters to one HTTP client and the shared
// limiter, robots gate and extraction cache.
func newHarvester(cfg types.HarvestConfig, w io.Writer) *harvest.Harvester {
	client := &http.Client{Timeout: cfg.Timeout}

	common := source.Common{
		Client:    client,
		UserAgent: cfg.UserAgent,
		Limiter:   httputil.NewLimiter(cfg.RateLimitPerHost, cfg.RateBurst),
		Cache:     scrape.NewCache(cfg.ScrapeCacheTTL),
		Logger:    logger,
		Progress:  progressPrinter(w),
	}
	if cfg.RespectRobots {
		common.Robots = scrape.NewRobotsChecker(client, cfg.UserAgent)
	}

	return &harvest.Harvester{
		NBER:  &source.NBER{Common: common},
		Arxiv: &source.Arxiv{Common: common},
		SSRN: &source.SSRN{
			Common:        common,
			Cookie:        cfg.SSRNCookie,
			ScrapeTimeout: cfg.ScrapeTimeout,
		},
		Logger: logger,
	}
}

func progressPrinter(w io.Writer) source.ProgressFunc {
	return func(ev source.Event) {
		fmt.Fprintf(w, "%-5s page %d: %d/%d records (%.0f%%)\n", ev.Source, ev.Page, ev.Count, ev.Target, ev.Percent)
	}
}

func printSummary(w io.Writer, out harvest.Output) {
	fmt.Fprintf(w, "\nbudget: nber %d, arxiv %d, ssrn %d\n", out.Budget.NBER, out.Budget.Arxiv, out.Budget.SSRN)
	for _, src := range types.Sources {
		res, ok := out.Results[src]
		if !ok {
			fmt.Fprintf(w, "%-5s not run\n", src)
			continue
		}
		fmt.Fprintf(w, "%-5s %d records, %d skipped, %d pages\n", src, len(res.Records), len(res.Skipped), res.Pages)
	}
	for _, s := range out.Skipped() {
		fmt.Fprintf(w, "  skipped %s %s: %s\n", s.Source, s.Ref, s.Reason)
	}
	fmt.Fprintf(w, "total: %d records\n", len(out.Records))
}

func saveToCatalog(ctx context.Context, path string, records []types.Record, w io.Writer) error {
	c, err := catalog.Open(path)
	if err != nil {
		return err
	}
	defer c.Close()

	summary, err := c.Save(ctx, records)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Catalog %s: %d inserted, %d updated, %d skipped\n", path, summary.Inserted, summary.Updated, summary.Skipped)
	return nil
}
