package donation

import (
	"context"
	"time"
)

// Linker creates a per-user donation checkout link.
type Linker interface {
	DonationLink(ctx context.Context, userID int64, day time.Time) (string, error)
}

// Links resolves the URL behind the donate button: a checkout link when a
// Linker is configured, otherwise the static fallback URL.
type Links struct {
	linker   Linker
	fallback string
}

func NewLinks(linker Linker, fallback string) *Links {
	return &Links{linker: linker, fallback: fallback}
}

// URL returns the donation URL for userID. When the Linker fails the fallback
// is returned along with the error. An empty URL means donations are off.
func (l *Links) URL(ctx context.Context, userID int64, day time.Time) (string, error) {
	if l == nil {
		return "", nil
	}
	if l.linker == nil {
		return l.fallback, nil
	}
	url, err := l.linker.DonationLink(ctx, userID, day)
	if err != nil {
		return l.fallback, err
	}
	return url, nil
}
