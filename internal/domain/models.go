// Package domain contains core business models and logic with no external dependencies.
// This package defines the fundamental entities of the tunestream playback core.
package domain

import (
	"time"
)

// Track represents a single streamable audio item with its display metadata.
// Tracks are values: once constructed they are never mutated.
type Track struct {
	// ID is the catalog identifier, used for queue lookups
	ID string `json:"id"`

	// Name is the track title
	Name string `json:"name"`

	// ArtistName is the performing artist
	ArtistName string `json:"artist_name"`

	// AlbumName is the album title ("" for singles)
	AlbumName string `json:"album_name,omitempty"`

	// AlbumImage is the artwork URI
	AlbumImage string `json:"album_image"`

	// AudioURL is the resolvable media resource
	AudioURL string `json:"audio"`

	// ShareURL is an optional link for external sharing
	ShareURL string `json:"shareurl,omitempty"`

	// Duration is the catalog's length hint (0 if unknown)
	Duration time.Duration `json:"duration,omitempty"`
}

// DisplayAlbum returns the album name, or "Single" when the track has none.
func (t Track) DisplayAlbum() string {
	if t.AlbumName == "" {
		return "Single"
	}
	return t.AlbumName
}

// Album represents a catalog album.
type Album struct {
	ID          string
	Name        string
	ArtistName  string
	Image       string
	ReleaseDate string
	ShareURL    string
}

// StatusSnapshot is a point-in-time report from the media primitive.
type StatusSnapshot struct {
	// IsLoaded is false while a handle is being torn down or has been released
	IsLoaded bool

	// IsPlaying reports whether audio is currently being rendered
	IsPlaying bool

	// Position is the playback position within the track
	Position time.Duration

	// Duration is the total track length (0 if not yet known)
	Duration time.Duration

	// DidJustFinish is set once when the track reaches its natural end
	DidJustFinish bool
}

// HandleMetadata holds tags probed from a media resource after it was opened.
type HandleMetadata struct {
	Title  string
	Artist string
	Album  string
	Format string
}

// LoadOutcome classifies the result of a transport operation that may load a track.
type LoadOutcome int

const (
	// OutcomeSkipped means the operation was a no-op (e.g. empty queue)
	OutcomeSkipped LoadOutcome = iota

	// OutcomeLoaded means a new handle was opened and is playing
	OutcomeLoaded

	// OutcomeFailed means the load was attempted and failed
	OutcomeFailed

	// OutcomeRestarted means the current track was rewound instead of changing tracks
	OutcomeRestarted

	// OutcomeCanceled means the caller's context ended before the operation ran
	OutcomeCanceled
)

// String returns a human-readable representation of the outcome.
func (o LoadOutcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeLoaded:
		return "loaded"
	case OutcomeFailed:
		return "failed"
	case OutcomeRestarted:
		return "restarted"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// LoadResult is returned by every operation that may change the loaded track.
type LoadResult struct {
	Outcome LoadOutcome

	// Track is the track that was (or would have been) loaded
	Track *Track

	// Index is the queue index after the operation
	Index int

	// Err is set when Outcome is OutcomeFailed or OutcomeCanceled
	Err *LoadError
}

// OK reports whether the operation completed without a load error.
func (r LoadResult) OK() bool {
	return r.Err == nil
}
