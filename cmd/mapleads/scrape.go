package main

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/spf13/cobra"

	"mapleads/internal/browser"
	"mapleads/internal/model"
	"mapleads/internal/output"
	"mapleads/internal/scrape"
	"mapleads/internal/storage"
)

func newScrapeCmd() *cobra.Command {
	var req model.SearchRequest
	var outputDir string
	var dbPath string

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run one scrape synchronously and write the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(cmd.Context(), req, outputDir, dbPath)
		},
	}

	cmd.Flags().StringVarP(&req.Category, "category", "c", "", "Business category to search for")
	cmd.Flags().StringVarP(&req.Region, "region", "r", "", "City-level location")
	cmd.Flags().StringSliceVarP(&req.Targets, "target", "t", nil, "Target locality (repeatable)")
	cmd.Flags().StringVar(&req.ExtraTerms, "extra", "", "Extra terms appended to every query")
	cmd.Flags().IntVar(&req.ScrollBudget, "scrolls", model.DefaultScrollBudget, "Max scroll passes per locality")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "output", "Directory for the results JSON")
	cmd.Flags().StringVar(&dbPath, "db", "", "Optional sqlite database to persist results into")

	return cmd
}

func runScrape(ctx context.Context, req model.SearchRequest, outputDir, dbPath string) error {
	logger := newLogger()

	writer, err := output.New(outputDir)
	if err != nil {
		return err
	}

	orch := scrape.New(func(ctx context.Context) (browser.Session, error) {
		return browser.Open(ctx, logger)
	}, logger)

	spin := spinner.New(spinner.CharSets[9], 100*time.Millisecond)
	bar := progress.New(progress.WithDefaultGradient())

	onProgress := func(done, total int, target string, found int) {
		spin.Suffix = fmt.Sprintf(" %s (%d found)", target, found)
		if done > 0 {
			fmt.Printf("\rProgress: %s %d/%d localities",
				bar.ViewAs(float64(done)/float64(total)), done, total)
		}
	}

	spin.Start()
	results, err := orch.RunWithProgress(ctx, req, onProgress)
	spin.Stop()
	fmt.Println()
	if err != nil {
		return err
	}

	path, err := writer.WriteResults(req, results)
	if err != nil {
		return err
	}
	logger.Info("scrape finished", "records", len(results), "file", path)

	if dbPath != "" {
		store, err := storage.Open(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		inserted, err := store.InsertBatch(results)
		if err != nil {
			return err
		}
		logger.Info("results persisted", "db", dbPath, "inserted", inserted)
	}

	return nil
}
