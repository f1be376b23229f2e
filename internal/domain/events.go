// Package domain defines events for the event-driven architecture.
// Controller state changes are republished as events so views never touch the media handle.
package domain

import (
	"time"
)

// Event is the base interface for all events in the system.
// All events must implement this interface to be published via the event bus.
type Event interface {
	// Type returns the event type identifier
	Type() EventType

	// Timestamp returns when the event occurred
	Timestamp() time.Time
}

// EventType is a string identifier for different event types.
type EventType string

// Event type constants define all possible events in the system.
const (
	// Load lifecycle events
	EventTrackLoading   EventType = "track.loading"
	EventTrackLoaded    EventType = "track.loaded"
	EventTrackError     EventType = "track.error"
	EventTrackCompleted EventType = "track.completed"
	EventTrackStopped   EventType = "track.stopped"
	EventTrackRestarted EventType = "track.restarted"

	// Status mirror
	EventPlaybackStatus EventType = "playback.status"

	// Queue events
	EventQueueChanged EventType = "queue.changed"
)

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

// baseEvent provides common event functionality.
// All concrete events should embed this struct.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

// newBaseEvent creates a new base event with the current timestamp.
func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// TrackLoadingEvent is published when a load transition starts.
type TrackLoadingEvent struct {
	baseEvent
	RequestID string
	Track     Track
	Index     int
}

// Type returns the event type.
func (e TrackLoadingEvent) Type() EventType {
	return EventTrackLoading
}

// NewTrackLoadingEvent creates a new TrackLoadingEvent.
func NewTrackLoadingEvent(requestID string, track Track, index int) TrackLoadingEvent {
	return TrackLoadingEvent{
		baseEvent: newBaseEvent(),
		RequestID: requestID,
		Track:     track,
		Index:     index,
	}
}

// TrackLoadedEvent is published when a handle was opened successfully.
type TrackLoadedEvent struct {
	baseEvent
	RequestID string
	Track     Track
	Index     int
	Metadata  *HandleMetadata // nil if the primitive does not probe tags
}

// Type returns the event type.
func (e TrackLoadedEvent) Type() EventType {
	return EventTrackLoaded
}

// NewTrackLoadedEvent creates a new TrackLoadedEvent.
func NewTrackLoadedEvent(requestID string, track Track, index int, metadata *HandleMetadata) TrackLoadedEvent {
	return TrackLoadedEvent{
		baseEvent: newBaseEvent(),
		RequestID: requestID,
		Track:     track,
		Index:     index,
		Metadata:  metadata,
	}
}

// TrackErrorEvent is published when a track fails to load.
type TrackErrorEvent struct {
	baseEvent
	RequestID string
	Track     Track
	Error     *LoadError
}

// Type returns the event type.
func (e TrackErrorEvent) Type() EventType {
	return EventTrackError
}

// NewTrackErrorEvent creates a new TrackErrorEvent.
func NewTrackErrorEvent(requestID string, track Track, err *LoadError) TrackErrorEvent {
	return TrackErrorEvent{
		baseEvent: newBaseEvent(),
		RequestID: requestID,
		Track:     track,
		Error:     err,
	}
}

// TrackCompletedEvent is published when a track finishes playing naturally.
type TrackCompletedEvent struct {
	baseEvent
	Track Track
	Index int
}

// Type returns the event type.
func (e TrackCompletedEvent) Type() EventType {
	return EventTrackCompleted
}

// NewTrackCompletedEvent creates a new TrackCompletedEvent.
func NewTrackCompletedEvent(track Track, index int) TrackCompletedEvent {
	return TrackCompletedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
		Index:     index,
	}
}

// TrackStoppedEvent is published when playback is explicitly stopped.
type TrackStoppedEvent struct {
	baseEvent
	Track *Track // nil if nothing was loaded
}

// Type returns the event type.
func (e TrackStoppedEvent) Type() EventType {
	return EventTrackStopped
}

// NewTrackStoppedEvent creates a new TrackStoppedEvent.
func NewTrackStoppedEvent(track *Track) TrackStoppedEvent {
	return TrackStoppedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
	}
}

// TrackRestartedEvent is published when "previous" rewinds the current track.
type TrackRestartedEvent struct {
	baseEvent
	Track Track
}

// Type returns the event type.
func (e TrackRestartedEvent) Type() EventType {
	return EventTrackRestarted
}

// NewTrackRestartedEvent creates a new TrackRestartedEvent.
func NewTrackRestartedEvent(track Track) TrackRestartedEvent {
	return TrackRestartedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
	}
}

// PlaybackStatusEvent mirrors every accepted status snapshot.
type PlaybackStatusEvent struct {
	baseEvent
	IsPlaying bool
	Position  time.Duration
	Duration  time.Duration
}

// Type returns the event type.
func (e PlaybackStatusEvent) Type() EventType {
	return EventPlaybackStatus
}

// NewPlaybackStatusEvent creates a new PlaybackStatusEvent.
func NewPlaybackStatusEvent(playing bool, position, duration time.Duration) PlaybackStatusEvent {
	return PlaybackStatusEvent{
		baseEvent: newBaseEvent(),
		IsPlaying: playing,
		Position:  position,
		Duration:  duration,
	}
}

// QueueChangedEvent is published when the queue or the current index changes.
type QueueChangedEvent struct {
	baseEvent
	Queue []Track
	Index int
}

// Type returns the event type.
func (e QueueChangedEvent) Type() EventType {
	return EventQueueChanged
}

// NewQueueChangedEvent creates a new QueueChangedEvent.
func NewQueueChangedEvent(queue []Track, index int) QueueChangedEvent {
	return QueueChangedEvent{
		baseEvent: newBaseEvent(),
		Queue:     queue,
		Index:     index,
	}
}
