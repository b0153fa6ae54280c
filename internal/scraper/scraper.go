package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"

	"dtek-shutdowns-monitor/internal/models"
)

const (
	DefaultSiteURL = "https://www.dtek-dnem.com.ua/ua/shutdowns"

	modalSelector            = "div#modal-attention.is-open"
	closeModalButtonSelector = "button.modal__close"
	cityInputSelector        = "input#city"
	streetInputSelector      = "input#street"
	houseInputSelector       = "input#house_num"
	cityListSelector         = "div#cityautocomplete-list"
	streetListSelector       = "div#streetautocomplete-list"
	houseListSelector        = "div#house_numautocomplete-list"
	factTableSelector        = "div.discon-fact-table"
)

var (
	// ErrRenderUnavailable covers upstream failures: page load, browser
	// startup, timeouts. Callers degrade to cached data.
	ErrRenderUnavailable = errors.New("render unavailable")
	// ErrAddressNotFound means the autocomplete offered no match for the
	// configured address. Not retried: it will not self-heal.
	ErrAddressNotFound = errors.New("address not found")
)

// apostrophes maps the apostrophe variants users paste into street names to
// the one the DTEK autocomplete understands.
var apostrophes = strings.NewReplacer(
	"ʼ", "'", // modifier letter apostrophe
	"ʹ", "'", // modifier letter prime
	"′", "'", // prime
	"`", "'",
)

// NormalizeApostrophes rewrites apostrophe variants so address comparison
// against the autocomplete is stable.
func NormalizeApostrophes(s string) string {
	return apostrophes.Replace(s)
}

// Renderer is the page-rendering collaborator: it turns an address into the
// raw rendered schedule markup. The extractor does the rest.
type Renderer interface {
	Render(ctx context.Context, address models.Address) (string, error)
}

type playwrightRenderer struct {
	siteURL  string
	headless bool
	logger   zerolog.Logger
}

func NewRenderer(siteURL string, headless bool, logger zerolog.Logger) Renderer {
	if siteURL == "" {
		siteURL = DefaultSiteURL
	}
	return &playwrightRenderer{siteURL: siteURL, headless: headless, logger: logger}
}

// Render drives the shutdowns page: dismiss the attention modal, fill the
// city/street/house autocomplete chain, wait for the schedule tables and
// return the page HTML. The context deadline bounds the whole run; a timed
// out render returns ErrRenderUnavailable and the caller keeps its cache.
func (r *playwrightRenderer) Render(ctx context.Context, address models.Address) (string, error) {
	pw, err := playwright.Run()
	if err != nil {
		return "", fmt.Errorf("%w: start playwright: %v", ErrRenderUnavailable, err)
	}
	defer pw.Stop()

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(r.headless),
	})
	if err != nil {
		return "", fmt.Errorf("%w: launch browser: %v", ErrRenderUnavailable, err)
	}
	defer browser.Close()

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Locale:     playwright.String("uk-UA,uk;"),
		TimezoneId: playwright.String("Europe/Kyiv"),
	})
	if err != nil {
		return "", fmt.Errorf("%w: browser context: %v", ErrRenderUnavailable, err)
	}
	defer bctx.Close()

	page, err := bctx.NewPage()
	if err != nil {
		return "", fmt.Errorf("%w: new page: %v", ErrRenderUnavailable, err)
	}
	defer page.Close()
	page.SetDefaultTimeout(float64(remaining(ctx).Milliseconds()))

	if _, err = page.Goto(r.siteURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(remaining(ctx).Milliseconds())),
	}); err != nil {
		return "", fmt.Errorf("%w: goto %s: %v", ErrRenderUnavailable, r.siteURL, err)
	}

	r.closeModalIfPresent(page)

	steps := []struct {
		input, list, value string
	}{
		{cityInputSelector, cityListSelector, NormalizeApostrophes(address.City)},
		{streetInputSelector, streetListSelector, NormalizeApostrophes(address.Street)},
		{houseInputSelector, houseListSelector, NormalizeApostrophes(address.HouseNumber)},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("%w: %v", ErrRenderUnavailable, err)
		}
		if err := r.fillAndPick(page, step.input, step.list, step.value); err != nil {
			return "", err
		}
	}

	if err := page.Locator(factTableSelector).First().WaitFor(playwright.LocatorWaitForOptions{
		State: playwright.WaitForSelectorStateVisible,
	}); err != nil {
		return "", fmt.Errorf("%w: schedule tables did not load: %v", ErrRenderUnavailable, err)
	}

	html, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("%w: page content: %v", ErrRenderUnavailable, err)
	}
	return html, nil
}

func (r *playwrightRenderer) closeModalIfPresent(page playwright.Page) {
	modal := page.Locator(modalSelector)
	if count, _ := modal.Count(); count > 0 {
		if err := modal.Locator(closeModalButtonSelector).Click(); err != nil {
			r.logger.Debug().Err(err).Msg("could not close attention modal")
		}
	}
}

// fillAndPick types value into input and clicks the autocomplete option
// carrying exactly that value. No option within the wait means the address
// does not exist upstream.
func (r *playwrightRenderer) fillAndPick(page playwright.Page, inputSelector, listSelector, value string) error {
	input := page.Locator(inputSelector)
	if err := input.WaitFor(playwright.LocatorWaitForOptions{
		State: playwright.WaitForSelectorStateVisible,
	}); err != nil {
		return fmt.Errorf("%w: wait for %s: %v", ErrRenderUnavailable, inputSelector, err)
	}
	if err := input.Fill(value); err != nil {
		return fmt.Errorf("%w: fill %s: %v", ErrRenderUnavailable, inputSelector, err)
	}

	option := page.Locator(listSelector+" > div").Filter(playwright.LocatorFilterOptions{
		Has: page.Locator(fmt.Sprintf("input[value=%q]", value)),
	}).First()
	if err := option.Click(); err != nil {
		return fmt.Errorf("%w: no autocomplete match for %q in %s", ErrAddressNotFound, value, listSelector)
	}

	// The dropdown closing is what enables the next field.
	if err := page.Locator(listSelector).WaitFor(playwright.LocatorWaitForOptions{
		State: playwright.WaitForSelectorStateHidden,
	}); err != nil {
		r.logger.Debug().Err(err).Str("list", listSelector).Msg("autocomplete list did not hide")
	}
	return nil
}

func remaining(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 30 * time.Second
	}
	if d := time.Until(deadline); d > 0 {
		return d
	}
	// An expired deadline must not turn into a negative timeout.
	return 0
}
