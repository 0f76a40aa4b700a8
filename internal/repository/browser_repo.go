package repository

import (
	"context"
	"time"
)

// PageOptions configure a fresh browser session.
type PageOptions struct {
	// BlockResources aborts image, font and media requests.
	BlockResources bool
	// DownloadDir receives files saved by Page.Download. Required for downloads.
	DownloadDir string
}

// Browser opens isolated browser sessions. Each Page owns its own browser
// process and must be closed by the caller.
type Browser interface {
	NewPage(ctx context.Context, opts PageOptions) (Page, error)
}

// Page is the set of browser actions the crawlers drive. Selectors are CSS.
type Page interface {
	Navigate(ctx context.Context, url string) error
	// WaitReady blocks until selector is attached to the DOM or timeout expires.
	WaitReady(ctx context.Context, selector string, timeout time.Duration) error
	Exists(ctx context.Context, selector string) (bool, error)
	// ContainsText reports whether the rendered body text contains text.
	ContainsText(ctx context.Context, text string) (bool, error)
	SelectOption(ctx context.Context, selector, value string) error
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	Evaluate(ctx context.Context, script string, res any) error
	OuterHTML(ctx context.Context, selector string) (string, error)
	// Download clicks selector, waits for the resulting file and moves it to dest.
	Download(ctx context.Context, selector, dest string) error
	Screenshot(ctx context.Context, path string) error
	Close() error
}
