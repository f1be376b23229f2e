package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/tejashwikalptaru/tunestream/internal/domain"
	"github.com/tejashwikalptaru/tunestream/internal/ports"
)

// AllGenres is the genre that applies no catalog filter.
const AllGenres = "All"

// MinSearchLength is the shortest query Search sends to the catalog.
const MinSearchLength = 2

// Genres lists the genre chips offered by the home feed.
var Genres = []string{AllGenres, "Pop", "Rock", "Electronic", "HipHop", "Jazz", "Classical", "Ambient", "Lounge"}

// HomeFeed is the catalog content of the home screen.
type HomeFeed struct {
	Genre    string
	Featured []domain.Track
	Trending []domain.Track
	Albums   []domain.Album
}

// BrowseService assembles catalog listings.
type BrowseService struct {
	logger  *slog.Logger
	catalog ports.Catalog
}

// NewBrowseService creates a new browse service.
func NewBrowseService(logger *slog.Logger, catalog ports.Catalog) *BrowseService {
	return &BrowseService{
		logger:  logger,
		catalog: catalog,
	}
}

// GenreTag converts a genre name to a catalog tag. AllGenres and "" map to no tag.
func GenreTag(genre string) string {
	genre = strings.TrimSpace(genre)
	if genre == "" || strings.EqualFold(genre, AllGenres) {
		return ""
	}
	return strings.ToLower(genre)
}

// Home fetches featured tracks, trending tracks and new albums concurrently.
// The first failure cancels the remaining requests and is returned.
func (s *BrowseService) Home(ctx context.Context, genre string) (*HomeFeed, error) {
	tag := GenreTag(genre)
	feed := &HomeFeed{Genre: genre}
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		feed.Featured, err = s.catalog.FeaturedTracks(gctx, tag)
		return err
	})
	g.Go(func() (err error) {
		feed.Trending, err = s.catalog.TrendingTracks(gctx, tag)
		return err
	})
	g.Go(func() (err error) {
		feed.Albums, err = s.catalog.NewAlbums(gctx, tag)
		return err
	})

	if err := g.Wait(); err != nil {
		s.logger.Warn("failed to load home feed", slog.String("genre", genre), slog.Any("error", err))
		return nil, domain.NewServiceError("browse", "home", "failed to load home feed", err)
	}

	s.logger.Debug("home feed loaded",
		slog.String("genre", genre),
		slog.Int("featured", len(feed.Featured)),
		slog.Int("trending", len(feed.Trending)),
		slog.Int("albums", len(feed.Albums)),
		slog.Duration("elapsed", time.Since(start)))

	return feed, nil
}

// Radio returns featured tracks for genre, suitable as a play queue.
func (s *BrowseService) Radio(ctx context.Context, genre string) ([]domain.Track, error) {
	tracks, err := s.catalog.FeaturedTracks(ctx, GenreTag(genre))
	if err != nil {
		return nil, domain.NewServiceError("browse", "radio", "failed to load featured tracks", err)
	}
	if len(tracks) == 0 {
		return nil, domain.ErrQueueEmpty
	}
	return tracks, nil
}

// Search returns catalog tracks matching query. Queries shorter than
// MinSearchLength characters are rejected without a request.
func (s *BrowseService) Search(ctx context.Context, query string) ([]domain.Track, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinSearchLength {
		return nil, domain.NewValidationError("query", query, fmt.Sprintf("must be at least %d characters", MinSearchLength))
	}

	tracks, err := s.catalog.SearchTracks(ctx, query)
	if err != nil {
		s.logger.Warn("search failed", slog.String("query", query), slog.Any("error", err))
		return nil, domain.NewServiceError("browse", "search", "failed to search tracks", err)
	}
	if len(tracks) == 0 {
		return nil, domain.ErrQueueEmpty
	}

	s.logger.Debug("search completed", slog.String("query", query), slog.Int("results", len(tracks)))
	return tracks, nil
}
