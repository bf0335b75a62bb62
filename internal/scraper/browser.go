package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Session is the headless-browser capability the Dork and Widget
// strategies depend on. Tests inject a scripted fake; production uses
// chromedp.
type Session interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	Evaluate(ctx context.Context, js string, out any) error
	Close()
}

// SessionFactory opens a fresh browser session. A strategy opens one
// session per cycle and must close it on every exit path.
type SessionFactory func(ctx context.Context) (Session, error)

const desktopUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

// stealthScript masks the automation fingerprints search engines check
// before serving results. Without it the dork queries get blocked.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
window.chrome = window.chrome || { runtime: {} };
Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
`

type chromedpSession struct {
	ctx     context.Context
	cancels []context.CancelFunc
}

// NewChromedpSession launches a hardened headless Chrome. The session is
// heavyweight; callers reuse it across navigations within one cycle.
func NewChromedpSession(parent context.Context) (Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(parent,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.UserAgent(desktopUserAgent),
		)...,
	)

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	s := &chromedpSession{
		ctx:     browserCtx,
		cancels: []context.CancelFunc{browserCancel, allocCancel},
	}

	startCtx, startCancel := context.WithTimeout(browserCtx, 30*time.Second)
	defer startCancel()
	err := chromedp.Run(startCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
		return err
	}))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	return s, nil
}

func (s *chromedpSession) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(s.ctx, 45*time.Second)
	defer cancel()
	return runUntil(ctx, navCtx, cancel,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1500*time.Millisecond),
	)
}

func (s *chromedpSession) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return runUntil(ctx, waitCtx, cancel, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (s *chromedpSession) Evaluate(ctx context.Context, js string, out any) error {
	evalCtx, cancel := context.WithTimeout(s.ctx, 20*time.Second)
	defer cancel()
	return runUntil(ctx, evalCtx, cancel, chromedp.EvaluateAsDevTools(js, out))
}

func (s *chromedpSession) Close() {
	for _, cancel := range s.cancels {
		cancel()
	}
}

// runUntil runs actions on the browser context but also honours the
// caller's cancellation, so a task timeout interrupts a hung navigation.
func runUntil(caller context.Context, browser context.Context, cancel context.CancelFunc, actions ...chromedp.Action) error {
	stop := context.AfterFunc(caller, cancel)
	defer stop()
	if err := chromedp.Run(browser, actions...); err != nil {
		if cerr := caller.Err(); cerr != nil {
			return cerr
		}
		return err
	}
	return nil
}
