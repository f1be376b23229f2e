// Package ports define interfaces for dependency inversion.
// These interfaces allow the core business logic to remain independent of external frameworks.
package ports

import (
	"context"
	"time"

	"github.com/tejashwikalptaru/tunestream/internal/domain"
)

// StatusHandler receives asynchronous status snapshots from a media handle.
// It may be called from any goroutine, including synchronously from inside
// Open or a handle method, so it must not call back into the handle.
type StatusHandler func(status domain.StatusSnapshot)

// OpenOptions configure a newly opened media handle.
type OpenOptions struct {
	// Autoplay starts playback as soon as the resource is ready
	Autoplay bool

	// StatusInterval bounds how often periodic snapshots are delivered
	StatusInterval time.Duration
}

// MediaPlayer is the platform media-playback primitive.
// It abstracts the underlying audio stack and allows for testing with mocks.
//
// Implementations must be thread-safe as they may be called from multiple goroutines.
type MediaPlayer interface {
	// Open resolves uri and returns a live handle.
	// ctx bounds the resolution (network fetch, decode); it does not bound the
	// lifetime of the returned handle.
	//
	// Returns an error if the resource cannot be fetched, decoded or played.
	Open(ctx context.Context, uri string, opts OpenOptions, onStatus StatusHandler) (MediaHandle, error)
}

// MediaHandle is a live, possibly playing, audio stream.
// Every successful command delivers a snapshot reflecting its effect before
// it returns. A handle must be released with Unload. Unload may deliver one final
// snapshot with IsLoaded false; once it returns no further snapshots are
// delivered and every method returns domain.ErrHandleUnloaded.
type MediaHandle interface {
	// Play starts or resumes playback.
	Play() error

	// Pause pauses playback, preserving the position.
	Pause() error

	// SetPosition moves playback to position.
	// Range checking is the implementation's responsibility.
	SetPosition(position time.Duration) error

	// Stop halts playback and rewinds to the start.
	Stop() error

	// Unload releases all resources held by the handle.
	Unload() error
}

// MetadataProvider is implemented by handles that probe tags from the resource.
type MetadataProvider interface {
	Metadata() *domain.HandleMetadata
}
