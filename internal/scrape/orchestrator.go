// Package scrape runs one search request end to end: one browser
// session shared across all target localities, processed sequentially,
// with per-locality failures degraded to zero records.
package scrape

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"mapleads/internal/browser"
	"mapleads/internal/dedupe"
	"mapleads/internal/model"
)

// Opener produces the browser session a request will own. Swapped for a
// fake in tests.
type Opener func(ctx context.Context) (browser.Session, error)

// Progress is invoked as locality processing advances: once when a
// target starts (done = targets finished so far) and once when it
// finishes. found is the running record count before deduplication.
type Progress func(done, total int, target string, found int)

// Orchestrator is the single entry point for running scrapes.
type Orchestrator struct {
	open   Opener
	logger *log.Logger
}

func New(open Opener, logger *log.Logger) *Orchestrator {
	return &Orchestrator{open: open, logger: logger}
}

// Run validates the request and scrapes every target locality in input
// order, returning the deduplicated result set. A request that finds
// nothing still succeeds with an empty set.
func (o *Orchestrator) Run(ctx context.Context, req model.SearchRequest) ([]model.BusinessRecord, error) {
	return o.run(ctx, req, nil)
}

// RunWithProgress is Run with per-locality progress callbacks, used by
// the session manager to relay live updates.
func (o *Orchestrator) RunWithProgress(ctx context.Context, req model.SearchRequest, onProgress Progress) ([]model.BusinessRecord, error) {
	return o.run(ctx, req, onProgress)
}

func (o *Orchestrator) run(ctx context.Context, req model.SearchRequest, onProgress Progress) ([]model.BusinessRecord, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	queries := req.Queries()

	sess, err := o.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening browser session: %w", err)
	}
	defer sess.Close()

	var all []model.BusinessRecord
	total := len(queries)
	for i, query := range queries {
		// Cancellation is honored at locality boundaries only; a
		// locality that has started runs to completion.
		if err := ctx.Err(); err != nil {
			return dedupe.Records(all), err
		}

		target := req.Targets[i]
		if onProgress != nil {
			onProgress(i, total, target, len(all))
		}

		records := o.scrapeTarget(sess, query, target, req.Budget())
		all = append(all, records...)

		if onProgress != nil {
			onProgress(i+1, total, target, len(all))
		}
	}

	return dedupe.Records(all), nil
}

// scrapeTarget processes one locality. Any failure here is logged and
// reported as zero records; it never aborts the remaining targets.
func (o *Orchestrator) scrapeTarget(sess browser.Session, query, target string, budget int) []model.BusinessRecord {
	page, err := sess.Search(query)
	if err != nil {
		o.logger.Warn("target failed", "target", target, "err", err)
		return nil
	}
	defer page.Close()

	page.LoadAll(budget)
	records := page.Walk(query)
	o.logger.Info("target finished", "target", target, "records", len(records))
	return records
}
