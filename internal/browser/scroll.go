package browser

import (
	"fmt"

	"github.com/chromedp/chromedp"
)

// LoadAll scrolls the result-list container to its bottom up to budget
// times, waiting for lazy content between passes, and stops early once
// the scrollable height stops growing. A missing container is logged
// and treated as "nothing to scroll", never as a batch failure.
func (p *chromePage) LoadAll(budget int) {
	if !p.hasResults {
		return
	}

	var exists bool
	err := chromedp.Run(p.ctx, chromedp.Evaluate(
		fmt.Sprintf(`!!document.querySelector(%q)`, scrollContainerSelector), &exists))
	if err != nil || !exists {
		p.logger.Warn("scroll container not found", "err", err)
		return
	}

	measure := func() (float64, error) {
		var height float64
		err := chromedp.Run(p.ctx, chromedp.Evaluate(
			fmt.Sprintf(`document.querySelector(%q).scrollHeight`, scrollContainerSelector), &height))
		return height, err
	}
	scroll := func() error {
		return chromedp.Run(p.ctx,
			chromedp.Evaluate(fmt.Sprintf(
				`(() => { const el = document.querySelector(%q); el.scrollTo(0, el.scrollHeight); })()`,
				scrollContainerSelector), nil),
			chromedp.Sleep(scrollSettle),
		)
	}

	if err := scrollToEnd(budget, measure, scroll); err != nil {
		p.logger.Warn("scrolling stopped early", "err", err)
	}
}

// scrollToEnd runs the height-stabilization loop. Separated from the
// chromedp plumbing so the termination behavior is testable without a
// browser.
func scrollToEnd(budget int, measure func() (float64, error), scroll func() error) error {
	lastHeight, err := measure()
	if err != nil {
		return err
	}
	for i := 0; i < budget; i++ {
		if err := scroll(); err != nil {
			return err
		}
		height, err := measure()
		if err != nil {
			return err
		}
		if height == lastHeight {
			// No new content arrived during the settle window.
			return nil
		}
		lastHeight = height
	}
	return nil
}
