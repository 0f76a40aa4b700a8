package repository

import (
	"context"

	"github.com/user/mst-crawler/internal/entity"
)

// TaxInfoRepository looks a keyword up on the public tax lookup site.
type TaxInfoRepository interface {
	// Lookup returns an empty TaxInfo (not an error) when the site reports no match.
	Lookup(ctx context.Context, keyword string) (*entity.TaxInfo, error)
}

// RegistryRepository fetches the announcement PDF for a tax ID from the registry portal.
type RegistryRepository interface {
	// FetchAnnouncement returns an Announcement with Outcome AnnouncementNoResults when
	// no registration type produced a document. Errors are reserved for failures.
	FetchAnnouncement(ctx context.Context, taxID string) (*entity.Announcement, error)
}

// CaptchaSolver obtains reCAPTCHA tokens from a solving service.
type CaptchaSolver interface {
	Solve(ctx context.Context, siteKey, pageURL string) (string, error)
	Balance(ctx context.Context) (float64, error)
}

// TextSource turns a PDF file into cleaned text.
type TextSource interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// ContactExtractor pulls phone and email out of cleaned text.
type ContactExtractor interface {
	Extract(text string) entity.ContactInfo
}
