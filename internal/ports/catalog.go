package ports

import (
	"context"

	"github.com/tejashwikalptaru/tunestream/internal/domain"
)

// Catalog is the remote music catalog.
// A tag of "" means no genre filter.
type Catalog interface {
	// FeaturedTracks returns all-time popular tracks.
	FeaturedTracks(ctx context.Context, tag string) ([]domain.Track, error)

	// TrendingTracks returns tracks popular this week.
	TrendingTracks(ctx context.Context, tag string) ([]domain.Track, error)

	// NewAlbums returns the most recently released albums.
	NewAlbums(ctx context.Context, tag string) ([]domain.Album, error)

	// SearchTracks returns tracks matching a free-text query.
	SearchTracks(ctx context.Context, query string) ([]domain.Track, error)
}
