package scraper

import (
	"errors"
	"fmt"
)

// ErrNavigation indicates a page navigation failure.
type ErrNavigation struct {
	URL string
	Err error
}

func (e ErrNavigation) Error() string {
	return fmt.Sprintf("navigation %s: %v", e.URL, e.Err)
}

func (e ErrNavigation) Unwrap() error {
	return e.Err
}

// ErrPopupTimeout indicates a reveal click that never produced a new page
// within the configured timeout.
type ErrPopupTimeout struct {
	Shop string
	Card int
	Err  error
}

func (e ErrPopupTimeout) Error() string {
	return fmt.Sprintf("popup timeout for %s card %d: %v", e.Shop, e.Card, e.Err)
}

func (e ErrPopupTimeout) Unwrap() error {
	return e.Err
}

// ErrExtraction indicates a fault while pulling data out of an open popup.
type ErrExtraction struct {
	Shop string
	Card int
	URL  string
	Err  error
}

func (e ErrExtraction) Error() string {
	return fmt.Sprintf("extraction for %s card %d (%s): %v", e.Shop, e.Card, e.URL, e.Err)
}

func (e ErrExtraction) Unwrap() error {
	return e.Err
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var nav ErrNavigation
	if errors.As(err, &nav) {
		return "navigation"
	}
	var popup ErrPopupTimeout
	if errors.As(err, &popup) {
		return "popup_timeout"
	}
	var extraction ErrExtraction
	if errors.As(err, &extraction) {
		return "extraction"
	}
	return "other"
}
