// Package browser drives a headless Chrome instance through Google
// Maps search results. One Session owns one browser process, shared by
// every locality in a request; each search gets its own tab.
package browser

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"mapleads/internal/model"
)

const searchBaseURL = "https://www.google.com/maps/search/"

// Selectors for the results surface. Obfuscated class names, same
// caveat as the detail-panel selectors in internal/panel.
const (
	resultEntrySelector     = ".bfdHYd"
	scrollContainerSelector = `.m6QErb[aria-label]`
	detailMarkerSelector    = ".rogA2c, .ITvuef"
	detailPanelSelector     = `div[role="main"]`
)

// Fixed operational timings. Navigation gets a generous ceiling; the
// absence of results after resultsTimeout means "no results for this
// query", not a failure.
const (
	navigationTimeout = 60 * time.Second
	resultsTimeout    = 10 * time.Second
	scrollSettle      = 2 * time.Second
	detailSettle      = 1500 * time.Millisecond
	backSettle        = time.Second
	entryLimit        = 20
)

// Overrides navigator properties that give headless automation away.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
`

// Session is a live browser owned by one scrape request.
type Session interface {
	// Search opens a tab on the Maps results for query. A query with no
	// results still yields a usable (empty) Page.
	Search(query string) (Page, error)
	// Close tears down every open tab and the browser process.
	Close()
}

// Page is one locality's results tab.
type Page interface {
	// LoadAll scrolls the result list until its height stabilizes or
	// the budget is exhausted.
	LoadAll(budget int)
	// Walk visits the loaded result entries and extracts a record from
	// each detail panel. Entries that fail are skipped, not fatal.
	Walk(query string) []model.BusinessRecord
	// Close releases the tab.
	Close()
}

type chromeSession struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	logger        *log.Logger
}

// Open launches a headless browser. A launch failure is the one
// browser-side error that escalates to the caller; everything after it
// degrades to per-locality soft failures.
func Open(ctx context.Context, logger *log.Logger) (Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Headless,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("lang", "en-US,en"),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start the process eagerly so a missing or broken Chrome surfaces
	// here instead of on the first navigation.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	return &chromeSession{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		logger:        logger,
	}, nil
}

func (s *chromeSession) Search(query string) (Page, error) {
	tabCtx, tabCancel := chromedp.NewContext(s.browserCtx)

	searchURL := searchBaseURL + url.PathEscape(query)

	navCtx, navCancel := context.WithTimeout(tabCtx, navigationTimeout)
	defer navCancel()

	err := chromedp.Run(navCtx,
		emulation.SetDeviceMetricsOverride(1280, 800, 1.0, false),
		network.SetExtraHTTPHeaders(network.Headers{
			"Accept-Language": "en-US,en;q=0.9",
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}),
		chromedp.Navigate(searchURL),
		chromedp.WaitReady("body"),
	)
	if err != nil {
		tabCancel()
		return nil, fmt.Errorf("navigating to results for %q: %w", query, err)
	}

	hasResults := true
	waitCtx, waitCancel := context.WithTimeout(tabCtx, resultsTimeout)
	defer waitCancel()
	if err := chromedp.Run(waitCtx, chromedp.WaitVisible(resultEntrySelector, chromedp.ByQuery)); err != nil {
		s.logger.Info("no results found", "query", query)
		hasResults = false
	}

	return &chromePage{
		ctx:        tabCtx,
		cancel:     tabCancel,
		hasResults: hasResults,
		logger:     s.logger,
	}, nil
}

func (s *chromeSession) Close() {
	s.browserCancel()
	s.allocCancel()
}

type chromePage struct {
	ctx        context.Context
	cancel     context.CancelFunc
	hasResults bool
	logger     *log.Logger
}

func (p *chromePage) Close() {
	p.cancel()
}
