package masothue

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/user/mst-crawler/internal/repository"
	"github.com/user/mst-crawler/pkg/utils"
)

type pageState int

const (
	showDetail pageState = iota
	showListing
	showNotFound
	showNothing
)

type fakeBrowser struct {
	state       pageState
	detailHTML  string
	navFailures int

	pages       int
	closed      int
	opts        []repository.PageOptions
	filled      string
	listClicked bool
}

func (b *fakeBrowser) NewPage(ctx context.Context, opts repository.PageOptions) (repository.Page, error) {
	b.pages++
	b.opts = append(b.opts, opts)
	return &fakePage{b: b}, nil
}

type fakePage struct {
	b        *fakeBrowser
	searched bool
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	if p.b.navFailures > 0 {
		p.b.navFailures--
		return errors.New("net::ERR_TIMED_OUT")
	}
	return nil
}

func (p *fakePage) WaitReady(ctx context.Context, selector string, timeout time.Duration) error {
	return nil
}

func (p *fakePage) Exists(ctx context.Context, selector string) (bool, error) {
	if !p.searched {
		return false, nil
	}
	switch selector {
	case resultBodySelector:
		return p.b.state == showDetail || (p.b.state == showListing && p.b.listClicked), nil
	case listingLinkSelector:
		return p.b.state == showListing, nil
	}
	return false, nil
}

func (p *fakePage) ContainsText(ctx context.Context, text string) (bool, error) {
	return p.searched && p.b.state == showNotFound && text == notFoundMarkers[0], nil
}

func (p *fakePage) SelectOption(ctx context.Context, selector, value string) error { return nil }

func (p *fakePage) Fill(ctx context.Context, selector, value string) error {
	p.b.filled = value
	return nil
}

func (p *fakePage) Click(ctx context.Context, selector string) error {
	switch selector {
	case searchSubmitSelector:
		p.searched = true
	case listingLinkSelector:
		p.b.listClicked = true
	}
	return nil
}

func (p *fakePage) Evaluate(ctx context.Context, script string, res any) error { return nil }

func (p *fakePage) OuterHTML(ctx context.Context, selector string) (string, error) {
	return p.b.detailHTML, nil
}

func (p *fakePage) Download(ctx context.Context, selector, dest string) error { return nil }

func (p *fakePage) Screenshot(ctx context.Context, path string) error { return nil }

func (p *fakePage) Close() error {
	p.b.closed++
	return nil
}

func testCrawler(t *testing.T, b *fakeBrowser) *Crawler {
	t.Helper()
	html, err := os.ReadFile("testdata/detail.html")
	if err != nil {
		t.Fatal(err)
	}
	b.detailHTML = string(html)
	return New(b, NewParser(nil), Config{
		BaseURL:      "https://directory.example",
		MaxAttempts:  2,
		Backoff:      utils.Backoff{Base: 1, Unit: time.Millisecond},
		WaitTimeout:  20 * time.Millisecond,
		PollInterval: time.Millisecond,
	}, zap.NewNop())
}

func TestLookupDetail(t *testing.T) {
	b := &fakeBrowser{state: showDetail}
	info, err := testCrawler(t, b).Lookup(context.Background(), "Công ty ABC")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if info.TaxID != "0123456789" || info.Phone != "0241112222" {
		t.Errorf("unexpected info %+v", info)
	}
	if b.filled != "Công ty ABC" {
		t.Errorf("search box filled with %q", b.filled)
	}
	if len(b.opts) != 1 || !b.opts[0].BlockResources {
		t.Errorf("expected one session with resource blocking, got %+v", b.opts)
	}
	if b.closed != 1 {
		t.Errorf("closed %d pages, expected 1", b.closed)
	}
}

func TestLookupFollowsListing(t *testing.T) {
	b := &fakeBrowser{state: showListing}
	info, err := testCrawler(t, b).Lookup(context.Background(), "ABC")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !b.listClicked || info.TaxID != "0123456789" {
		t.Errorf("expected listing to be followed, got clicked=%v info=%+v", b.listClicked, info)
	}
}

func TestLookupNotFoundIsEmpty(t *testing.T) {
	b := &fakeBrowser{state: showNotFound}
	info, err := testCrawler(t, b).Lookup(context.Background(), "zzzz")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !info.IsEmpty() {
		t.Errorf("expected empty info, got %+v", info)
	}
	if b.pages != 1 {
		t.Errorf("opened %d sessions, expected no retry", b.pages)
	}
}

func TestLookupRetries(t *testing.T) {
	b := &fakeBrowser{state: showDetail, navFailures: 1}
	info, err := testCrawler(t, b).Lookup(context.Background(), "ABC")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if info.TaxID == "" || b.pages != 2 {
		t.Errorf("expected success on second session, pages=%d info=%+v", b.pages, info)
	}

	b = &fakeBrowser{state: showNothing}
	_, err = testCrawler(t, b).Lookup(context.Background(), "ABC")
	if !errors.Is(err, repository.ErrResultsTimeout) {
		t.Fatalf("expected ErrResultsTimeout, got %v", err)
	}
	if b.pages != 2 || b.closed != 2 {
		t.Errorf("pages=%d closed=%d, expected 2 each", b.pages, b.closed)
	}
}
