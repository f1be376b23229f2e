package domain

import (
	"time"
)

// PlaybackPhase is the tagged state of a playback session.
type PlaybackPhase int

const (
	// PhaseEmpty means no track is loaded
	PhaseEmpty PlaybackPhase = iota

	// PhaseLoading means a teardown-and-open transition is in flight
	PhaseLoading

	// PhaseReady means a handle is open and status mirrors the primitive
	PhaseReady

	// PhaseFailed means the last load failed; CurrentTrack is the attempted track
	PhaseFailed
)

// String returns a human-readable representation of the phase.
func (p PlaybackPhase) String() string {
	switch p {
	case PhaseEmpty:
		return "empty"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PlaybackSession is the mutable state owned by the playback controller.
// The zero value is the initial session: nothing loaded, empty queue.
//
// Playing is only observable through IsPlaying, which reports false outside
// PhaseReady, so "loading and playing" cannot be observed.
type PlaybackSession struct {
	CurrentTrack *Track
	Queue        []Track
	QueueIndex   int
	Phase        PlaybackPhase
	Position     time.Duration
	Duration     time.Duration
	LastError    *LoadError

	playing bool
}

// IsPlaying reports whether the primitive last said it was playing a ready track.
func (s PlaybackSession) IsPlaying() bool {
	return s.Phase == PhaseReady && s.playing
}

// IsLoading reports whether a load transition is in flight.
func (s PlaybackSession) IsLoading() bool {
	return s.Phase == PhaseLoading
}

// UpNext returns the tracks queued after the current one.
func (s PlaybackSession) UpNext() []Track {
	return UpNext(s.Queue, s.QueueIndex)
}

// Clone returns a deep copy that shares no mutable memory with s.
func (s PlaybackSession) Clone() PlaybackSession {
	c := s
	if s.CurrentTrack != nil {
		t := *s.CurrentTrack
		c.CurrentTrack = &t
	}
	if s.Queue != nil {
		c.Queue = make([]Track, len(s.Queue))
		copy(c.Queue, s.Queue)
	}
	if s.LastError != nil {
		e := *s.LastError
		c.LastError = &e
	}
	return c
}

// BeginLoad enters PhaseLoading for track at index within queue.
// Position and duration reset to zero; any previous error is cleared.
func (s *PlaybackSession) BeginLoad(track Track, queue []Track, index int) {
	t := track
	s.CurrentTrack = &t
	s.Queue = queue
	s.QueueIndex = index
	s.Phase = PhaseLoading
	s.Position = 0
	s.Duration = 0
	s.LastError = nil
	s.playing = false
}

// LoadSucceeded moves a loading session to PhaseReady and marks it playing.
func (s *PlaybackSession) LoadSucceeded() {
	s.Phase = PhaseReady
	s.playing = true
}

// LoadFailed moves a loading session to PhaseFailed.
// CurrentTrack keeps pointing at the attempted track.
func (s *PlaybackSession) LoadFailed(err *LoadError) {
	s.Phase = PhaseFailed
	s.LastError = err
	s.playing = false
}

// ApplyStatus mirrors a status snapshot into the session.
// It reports whether the snapshot marked a natural end of track.
// Snapshots are ignored when not loaded or when no handle is expected.
func (s *PlaybackSession) ApplyStatus(st StatusSnapshot) bool {
	if !st.IsLoaded {
		return false
	}
	if s.Phase != PhaseLoading && s.Phase != PhaseReady {
		return false
	}

	s.playing = st.IsPlaying
	s.Position = st.Position
	s.Duration = st.Duration

	if st.DidJustFinish {
		s.playing = false
		s.Position = 0
		return true
	}
	return false
}

// Reset returns to PhaseEmpty. The queue and index are kept.
func (s *PlaybackSession) Reset() {
	s.CurrentTrack = nil
	s.Phase = PhaseEmpty
	s.Position = 0
	s.Duration = 0
	s.LastError = nil
	s.playing = false
}
