package main

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nzambello/plone-map/internal/config"
	"github.com/nzambello/plone-map/internal/ingest"
	"github.com/nzambello/plone-map/internal/model"
)

var (
	scrapeIn           string
	scrapeOut          string
	scrapeConcurrency  int
	scrapeAllowMissing bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape and geocode the member directory",
	Long:  "Scrapes every member profile, geocodes its venue, merges the result with the input dataset and writes the output dataset.",
	RunE: func(cmd *cobra.Command, args []string) error {
		applyScrapeFlags(cmd, cfg)
		if err := cfg.Validate("scrape"); err != nil {
			return err
		}

		result, err := runScrape(cmd.Context(), cfg, scrapeAllowMissing)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d members (%d geocoded) to %s\n",
			result.MembersScraped, result.MembersGeocoded, cfg.Dataset.OutputPath)
		return nil
	},
}

// applyScrapeFlags lets explicitly set flags override config values.
func applyScrapeFlags(cmd *cobra.Command, c *config.Config) {
	if cmd.Flags().Changed("in") {
		c.Dataset.InputPath = scrapeIn
	}
	if cmd.Flags().Changed("out") {
		c.Dataset.OutputPath = scrapeOut
	}
	if cmd.Flags().Changed("concurrency") {
		c.Scrape.Concurrency = scrapeConcurrency
	}
}

func runScrape(ctx context.Context, c *config.Config, allowMissing bool) (*model.RunResult, error) {
	st, err := initStore(ctx, c)
	if err != nil {
		return nil, eris.Wrap(err, "scrape: open store")
	}
	var recorder ingest.RunRecorder
	if st != nil {
		defer st.Close() //nolint:errcheck
		recorder = st
	}

	p := ingest.NewPipeline(newScraper(c, st), recorder, ingest.Options{
		InputPath:         c.Dataset.InputPath,
		OutputPath:        c.Dataset.OutputPath,
		AllowMissingInput: allowMissing,
	})

	zap.L().Info("scrape starting",
		zap.String("listing_url", c.Scrape.ListingURL),
		zap.String("input", c.Dataset.InputPath),
		zap.String("output", c.Dataset.OutputPath),
		zap.Int("concurrency", c.Scrape.Concurrency),
	)
	return p.Run(ctx)
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapeIn, "in", "members.json", "existing dataset to merge with")
	scrapeCmd.Flags().StringVar(&scrapeOut, "out", "newmembers.json", "dataset to write")
	scrapeCmd.Flags().IntVar(&scrapeConcurrency, "concurrency", 1, "profiles scraped in parallel")
	scrapeCmd.Flags().BoolVar(&scrapeAllowMissing, "allow-missing-input", false, "treat a missing input dataset as empty")
	rootCmd.AddCommand(scrapeCmd)
}
