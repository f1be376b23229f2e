// Package ports define the view interface for the now-playing surface.
// This interface allows the presenter to update a view without depending on how it renders.
package ports

import (
	"github.com/tejashwikalptaru/tunestream/internal/domain"
)

// NowPlaying is the view model derived from controller events.
type NowPlaying struct {
	Track    *domain.Track
	Album    string // display album ("Single" when unknown)
	Loading  bool
	Playing  bool
	Progress float64 // position/duration in [0,1], 0 when duration is unknown
	Elapsed  string  // formatted m:ss
	Total    string  // formatted m:ss
	UpNext   []domain.Track
	Error    string // last load failure, "" if none
}

// NowPlayingView renders the now-playing state.
//
// Thread-safety: Render may be called from any goroutine that publishes
// controller events; implementations synchronize their own output.
type NowPlayingView interface {
	// Render replaces the displayed state.
	Render(state NowPlaying)
}
