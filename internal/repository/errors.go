package repository

import "errors"

var (
	// ErrNotFound is returned by lookups that match no row.
	ErrNotFound = errors.New("not found")

	ErrNavigation     = errors.New("navigation failed")
	ErrFormNotFound   = errors.New("search form not found")
	ErrResultsTimeout = errors.New("results state not detected")
	ErrDownload       = errors.New("pdf download failed")
	ErrExtraction     = errors.New("pdf yielded no text")

	ErrCaptchaSubmission   = errors.New("captcha submission failed")
	ErrCaptchaSolve        = errors.New("captcha solve failed")
	ErrCaptchaTimeout      = errors.New("captcha solve timed out")
	ErrBalance             = errors.New("captcha balance check failed")
	ErrInsufficientBalance = errors.New("insufficient captcha balance")

	// ErrPersistence marks a record the sink refused to store.
	ErrPersistence = errors.New("persistence rejected record")
)
