package browser

import (
	"fmt"

	"github.com/chromedp/chromedp"

	"mapleads/internal/model"
	"mapleads/internal/panel"
)

// Clicks the back control that restores the result list after a detail
// panel visit.
const backScript = `(() => {
	const back = document.querySelector('button[jsaction*="back"]') ||
		document.querySelector('button.hYBOP');
	if (back) back.click();
})()`

// Walk clicks through the loaded result entries in DOM order, up to the
// per-locality cap, and extracts a record from each detail panel.
func (p *chromePage) Walk(query string) []model.BusinessRecord {
	if !p.hasResults {
		return nil
	}

	var count int
	err := chromedp.Run(p.ctx, chromedp.Evaluate(
		fmt.Sprintf(`document.querySelectorAll(%q).length`, resultEntrySelector), &count))
	if err != nil {
		p.logger.Warn("counting result entries", "query", query, "err", err)
		return nil
	}

	return walkEntries(count, entryLimit, p.visitEntry, query, func(index int, err error) {
		p.logger.Warn("skipping result entry", "query", query, "index", index, "err", err)
	})
}

// walkEntries runs the per-entry loop: a failure on one entry is
// reported and the loop moves on. Records without a title are dropped.
// Factored out of the chromedp plumbing for testability.
func walkEntries(count, limit int, visit func(index int, query string) (model.BusinessRecord, error), query string, onError func(int, error)) []model.BusinessRecord {
	if count > limit {
		count = limit
	}
	var records []model.BusinessRecord
	for i := 0; i < count; i++ {
		rec, err := visit(i, query)
		if err != nil {
			onError(i, err)
			continue
		}
		if rec.Title == "" {
			continue
		}
		records = append(records, rec)
	}
	return records
}

// visitEntry opens one entry's detail panel, captures its HTML and
// extracts a record, then restores the result list.
func (p *chromePage) visitEntry(index int, query string) (model.BusinessRecord, error) {
	var rec model.BusinessRecord

	clickScript := fmt.Sprintf(
		`(() => { const items = document.querySelectorAll(%q); if (items[%d]) items[%d].click(); })()`,
		resultEntrySelector, index, index)
	err := chromedp.Run(p.ctx,
		chromedp.Evaluate(clickScript, nil),
		chromedp.Sleep(detailSettle),
	)
	if err != nil {
		return rec, fmt.Errorf("opening detail panel: %w", err)
	}

	// Make sure the detail view actually replaced the list before
	// reading anything out of it.
	var loaded bool
	err = chromedp.Run(p.ctx, chromedp.Evaluate(
		fmt.Sprintf(`!!document.querySelector(%q)`, detailMarkerSelector), &loaded))
	if err != nil {
		return rec, fmt.Errorf("probing detail panel: %w", err)
	}

	if loaded {
		var html string
		err = chromedp.Run(p.ctx, chromedp.OuterHTML(detailPanelSelector, &html, chromedp.ByQuery))
		if err != nil {
			return rec, fmt.Errorf("capturing detail panel: %w", err)
		}
		doc, err := panel.FromHTML(html)
		if err != nil {
			return rec, fmt.Errorf("parsing detail panel: %w", err)
		}
		rec = panel.Extract(doc, query)
	}

	// Restore the list view. Failure here affects the next entry, not
	// the record already extracted.
	err = chromedp.Run(p.ctx,
		chromedp.Evaluate(backScript, nil),
		chromedp.Sleep(backSettle),
	)
	if err != nil {
		p.logger.Warn("restoring result list", "query", query, "err", err)
	}

	return rec, nil
}
