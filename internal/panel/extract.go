package panel

import (
	"regexp"

	"mapleads/internal/model"
	"mapleads/internal/sanitize"
)

// Selectors for the current Google Maps detail panel markup. The class
// names are obfuscated and rotate between frontend builds, which is why
// most fields carry fallbacks.
const (
	selTitle          = "h1.DUwDvf"
	selRating         = ".F7nice span"
	selReviews        = ".F7nice span:nth-child(2)"
	selCategory       = ".DkEaL"
	selHours          = ".ZDu9vd"
	selDescription    = ".PYvSYb"
	selServiceOptions = ".qty3Ue"
	selThumbnail      = ".RZ66Rb img"
	selDirectionsLink = `a[href^="https://www.google.com/maps/dir"]`
	selInfoRow        = ".rogA2c"
)

var addressSelectors = []string{
	`button[data-item-id="address"]`,
	`button[data-tooltip="Copy address"]`,
}

var phoneSelectors = []string{
	`button[data-item-id^="phone:tel"]`,
	`[data-tooltip="Copy phone number"]`,
	`button[aria-label*="phone"]`,
}

var websiteSelectors = []string{
	`a[data-item-id="authority"]`,
	`a[href^="https://"][data-track-element="url"]`,
	`a[data-tooltip="Open website"]`,
}

var (
	phoneRe  = regexp.MustCompile(`^(\+\d{1,3}\s?)?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}$`)
	coordsRe = regexp.MustCompile(`@(-?\d+\.\d+),(-?\d+\.\d+)`)
	parensRe = regexp.MustCompile(`[()]`)
)

// Extract reads a best-effort business record from a loaded detail
// panel. A miss on one field never blocks the others; missing fields
// stay empty. Records without a recoverable title are discarded by the
// caller.
func Extract(p Panel, query string) model.BusinessRecord {
	rec := model.BusinessRecord{
		Title:          sanitize.Sanitize(sanitize.Text, p.Text(selTitle)),
		Rating:         sanitize.Sanitize(sanitize.Text, p.Text(selRating)),
		ReviewCount:    sanitize.Sanitize(sanitize.Text, parensRe.ReplaceAllString(p.Text(selReviews), "")),
		Category:       sanitize.Sanitize(sanitize.Text, p.Text(selCategory)),
		Address:        sanitize.Sanitize(sanitize.Text, firstText(p, addressSelectors)),
		Phone:          sanitize.Sanitize(sanitize.Phone, extractPhone(p)),
		Website:        firstAttr(p, websiteSelectors, "href"),
		Hours:          sanitize.Sanitize(sanitize.Hours, p.Text(selHours)),
		Description:    sanitize.Sanitize(sanitize.Text, p.Text(selDescription)),
		ServiceOptions: sanitize.Sanitize(sanitize.Text, p.Text(selServiceOptions)),
		ThumbnailURL:   p.Attr(selThumbnail, "src"),
		Coordinates:    extractCoordinates(p),
		SourceQuery:    query,
	}
	return rec
}

func firstText(p Panel, selectors []string) string {
	for _, sel := range selectors {
		if text := p.Text(sel); text != "" {
			return text
		}
	}
	return ""
}

func firstAttr(p Panel, selectors []string, name string) string {
	for _, sel := range selectors {
		if val := p.Attr(sel, name); val != "" {
			return val
		}
	}
	return ""
}

// extractPhone tries the explicit phone controls first and falls back
// to scanning the info rows for something shaped like a phone number.
func extractPhone(p Panel) string {
	if phone := firstText(p, phoneSelectors); phone != "" {
		return phone
	}
	for _, text := range p.EachText(selInfoRow) {
		if phoneRe.MatchString(text) {
			return text
		}
	}
	return ""
}

// extractCoordinates recovers the @lat,lng pair embedded in the
// directions link. Absent coordinates are omitted, not zero-filled.
func extractCoordinates(p Panel) *model.Coordinates {
	href := p.Attr(selDirectionsLink, "href")
	if href == "" {
		return nil
	}
	match := coordsRe.FindStringSubmatch(href)
	if match == nil {
		return nil
	}
	return &model.Coordinates{Latitude: match[1], Longitude: match[2]}
}
