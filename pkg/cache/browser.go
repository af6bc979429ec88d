package cache

import (
	"context"
	"fmt"
	"net/url"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/carebridge/carebridge/pkg/config"
	"github.com/carebridge/carebridge/pkg/fault"
)

// BrowserFetcher renders pages with a headless Chromium instance. Every
// request goes through the configured forward proxy; proxy credentials
// embedded in the URL are answered via the CDP auth challenge.
type BrowserFetcher struct {
	launch  *launcher.Launcher
	browser *rod.Browser
}

// NewBrowserFetcher launches the browser and connects. The caller owns
// Close.
func NewBrowserFetcher(proxy config.ProxyConfig) (*BrowserFetcher, error) {
	l := launcher.New().Headless(true).NoSandbox(true)

	var proxyUser, proxyPass string
	if proxy.URL != "" {
		u, err := url.Parse(proxy.URL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		// Chromium takes host:port only; credentials go through HandleAuth.
		l = l.Proxy(u.Host)
		if u.User != nil {
			proxyUser = u.User.Username()
			proxyPass, _ = u.User.Password()
		}
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	if proxyUser != "" {
		go browser.MustHandleAuth(proxyUser, proxyPass)()
	}

	return &BrowserFetcher{launch: l, browser: browser}, nil
}

// Fetch opens a fresh page, navigates, waits for load, and returns the
// rendered HTML. The page is torn down before returning so one bad site
// cannot poison the next fetch.
func (f *BrowserFetcher) Fetch(ctx context.Context, target string) (string, error) {
	page, err := f.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fault.NewUpstreamError("scrape", "open page", err)
	}
	defer page.Close()

	page = page.Context(ctx)
	if err := page.Navigate(target); err != nil {
		return "", fault.NewUpstreamError("scrape", "navigate "+target, err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", fault.NewUpstreamError("scrape", "wait load "+target, err)
	}
	html, err := page.HTML()
	if err != nil {
		return "", fault.NewUpstreamError("scrape", "read html "+target, err)
	}
	return html, nil
}

// Close shuts the browser down and cleans up the launcher's temp state.
func (f *BrowserFetcher) Close() error {
	err := f.browser.Close()
	f.launch.Cleanup()
	return err
}
