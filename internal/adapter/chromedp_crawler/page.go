package chromedp_crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/user/mst-crawler/pkg/utils"
)

type page struct {
	closeOnce

	ctx         context.Context
	timeout     time.Duration
	limiter     *utils.HostLimiter
	downloadDir string
	downloads   chan downloadResult
	logger      *zap.Logger
}

var blockedResources = map[network.ResourceType]bool{
	network.ResourceTypeImage: true,
	network.ResourceTypeFont:  true,
	network.ResourceTypeMedia: true,
}

func (p *page) listen(block bool) func(ev any) {
	return func(ev any) {
		switch e := ev.(type) {
		case *fetch.EventRequestPaused:
			if !block {
				return
			}
			// Listeners must not block the event loop.
			go func() {
				c := chromedp.FromContext(p.ctx)
				if c == nil || c.Target == nil {
					return
				}
				execCtx := cdp.WithExecutor(p.ctx, c.Target)
				var err error
				if blockedResources[e.ResourceType] {
					err = fetch.FailRequest(e.RequestID, network.ErrorReasonBlockedByClient).Do(execCtx)
				} else {
					err = fetch.ContinueRequest(e.RequestID).Do(execCtx)
				}
				if err != nil && p.ctx.Err() == nil {
					p.logger.Debug("Request interception failed", zap.Error(err))
				}
			}()
		case *browser.EventDownloadProgress:
			var res downloadResult
			switch e.State {
			case browser.DownloadProgressStateCompleted:
				res = downloadResult{guid: e.GUID, ok: true}
			case browser.DownloadProgressStateCanceled:
				res = downloadResult{guid: e.GUID}
			default:
				return
			}
			select {
			case p.downloads <- res:
			default:
			}
		}
	}
}

// run executes actions bounded by timeout and by the caller's context.
func (p *page) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if timeout <= 0 {
		timeout = p.timeout
	}
	runCtx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (p *page) Navigate(ctx context.Context, url string) error {
	if err := p.limiter.WaitURL(ctx, url); err != nil {
		return err
	}
	return p.run(ctx, p.timeout, chromedp.Navigate(url))
}

func (p *page) WaitReady(ctx context.Context, selector string, timeout time.Duration) error {
	return p.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery))
}

func (p *page) Exists(ctx context.Context, selector string) (bool, error) {
	var found bool
	script := fmt.Sprintf(`document.querySelector(%s) !== null`, jsString(selector))
	err := p.run(ctx, p.timeout, chromedp.Evaluate(script, &found))
	return found, err
}

func (p *page) ContainsText(ctx context.Context, text string) (bool, error) {
	var found bool
	script := fmt.Sprintf(`!!document.body && document.body.innerText.includes(%s)`, jsString(text))
	err := p.run(ctx, p.timeout, chromedp.Evaluate(script, &found))
	return found, err
}

// setValueScript assigns a form value and fires the events page scripts listen for.
const setValueScript = `(function(sel, value) {
	const el = document.querySelector(sel);
	if (!el) return false;
	el.value = value;
	el.dispatchEvent(new Event('input', {bubbles: true}));
	el.dispatchEvent(new Event('change', {bubbles: true}));
	return el.value === value;
})(%s, %s)`

func (p *page) setValue(ctx context.Context, selector, value string) error {
	var ok bool
	script := fmt.Sprintf(setValueScript, jsString(selector), jsString(value))
	if err := p.run(ctx, p.timeout, chromedp.Evaluate(script, &ok)); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("could not set %s to %q", selector, value)
	}
	return nil
}

func (p *page) SelectOption(ctx context.Context, selector, value string) error {
	return p.setValue(ctx, selector, value)
}

func (p *page) Fill(ctx context.Context, selector, value string) error {
	return p.setValue(ctx, selector, value)
}

func (p *page) Click(ctx context.Context, selector string) error {
	return p.run(ctx, p.timeout, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

func (p *page) Evaluate(ctx context.Context, script string, res any) error {
	return p.run(ctx, p.timeout, chromedp.Evaluate(script, res))
}

func (p *page) OuterHTML(ctx context.Context, selector string) (string, error) {
	var html string
	err := p.run(ctx, p.timeout, chromedp.OuterHTML(selector, &html, chromedp.ByQuery))
	return html, err
}

func (p *page) Download(ctx context.Context, selector, dest string) error {
	if p.downloadDir == "" {
		return errors.New("page opened without a download directory")
	}
	for len(p.downloads) > 0 {
		<-p.downloads
	}
	if err := p.Click(ctx, selector); err != nil {
		return fmt.Errorf("click download control: %w", err)
	}

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case res := <-p.downloads:
		if !res.ok {
			return errors.New("download canceled by browser")
		}
		if err := os.Rename(filepath.Join(p.downloadDir, res.guid), dest); err != nil {
			return fmt.Errorf("move download: %w", err)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("download did not complete within %s", p.timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *page) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := p.run(ctx, p.timeout, chromedp.FullScreenshot(&buf, 80)); err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0o644)
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
