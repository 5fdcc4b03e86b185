package extract

import (
	"context"
	"errors"
)

// Extractor produces a local audio file for a video URL.
type Extractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

var (
	// ErrUnavailable means the video cannot be fetched at all (deleted,
	// region-blocked, or the upstream rejected the request).
	ErrUnavailable = errors.New("video unavailable")

	// ErrRestricted means the video exists but requires sign-in or age
	// confirmation the service cannot provide.
	ErrRestricted = errors.New("video restricted")
)
