// Package mock provides an in-memory implementation of the MediaPlayer port.
// It is used for testing the playback controller and for running the CLI
// without an audio device.
package mock

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/tejashwikalptaru/tunestream/internal/domain"
	"github.com/tejashwikalptaru/tunestream/internal/ports"
)

// DefaultDuration is the length reported for every opened resource unless overridden.
const DefaultDuration = 3 * time.Minute

// Player is a mock MediaPlayer. Nothing is decoded or rendered; each handle
// keeps a position that only moves when a test calls Advance.
//
// Snapshots are delivered synchronously on the calling goroutine.
//
// Thread-safety: This implementation is thread-safe.
type Player struct {
	logger *slog.Logger

	mu        sync.Mutex
	handles   map[int]*Handle
	nextID    int
	openCalls []string
	peak      int
	current   *Handle

	// Behavior configuration (for testing error scenarios)
	failOpen  map[string]error
	failAll   error
	failPlay  bool
	durations map[string]time.Duration
	gate      chan struct{}
	entered   chan string
}

// NewPlayer creates a new mock media player.
func NewPlayer(logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Player{
		logger:    logger.With(slog.String("adapter", "mock-media")),
		handles:   make(map[int]*Handle),
		nextID:    1,
		failOpen:  make(map[string]error),
		durations: make(map[string]time.Duration),
	}
}

// SetFailOpen makes Open fail for uri with a fetch error wrapping err.
// A nil err clears the failure.
func (p *Player) SetFailOpen(uri string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.failOpen, uri)
		return
	}
	p.failOpen[uri] = err
}

// SetFailAll makes every Open fail with err. A nil err clears it.
func (p *Player) SetFailAll(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failAll = err
}

// SetFailPlay makes Play on every handle fail.
func (p *Player) SetFailPlay(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failPlay = fail
}

// SetDuration overrides the duration reported for uri.
func (p *Player) SetDuration(uri string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.durations[uri] = d
}

// SetOpenGate makes every subsequent Open block until gate is closed or the
// caller's context ends. When entered is non-nil the URI is sent on it as
// soon as Open starts waiting. Pass nil, nil to remove the gate.
func (p *Player) SetOpenGate(gate chan struct{}, entered chan string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gate = gate
	p.entered = entered
}

// Open implements ports.MediaPlayer.
func (p *Player) Open(ctx context.Context, uri string, opts ports.OpenOptions, onStatus ports.StatusHandler) (ports.MediaHandle, error) {
	if uri == "" {
		return nil, domain.ErrInvalidTrack
	}

	p.mu.Lock()
	gate, entered := p.gate, p.entered
	p.openCalls = append(p.openCalls, uri)
	p.mu.Unlock()

	if gate != nil {
		if entered != nil {
			select {
			case entered <- uri:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	if err := p.failAll; err != nil {
		p.mu.Unlock()
		return nil, domain.NewMediaError("fetch", uri, 0, "mock open failed", err)
	}
	if err, ok := p.failOpen[uri]; ok {
		p.mu.Unlock()
		return nil, domain.NewMediaError("fetch", uri, 0, "mock open failed", err)
	}

	duration := DefaultDuration
	if d, ok := p.durations[uri]; ok {
		duration = d
	}
	h := &Handle{
		player:   p,
		id:       p.nextID,
		uri:      uri,
		onStatus: onStatus,
		duration: duration,
		playing:  opts.Autoplay,
	}
	p.nextID++
	p.handles[h.id] = h
	p.peak = max(p.peak, len(p.handles))
	p.current = h
	p.mu.Unlock()

	p.logger.Debug("handle opened", slog.Int("handle", h.id), slog.String("uri", uri))
	h.emit(h.snapshot(false))
	return h, nil
}

// OpenHandles returns the number of handles that have not been unloaded.
func (p *Player) OpenHandles() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.handles)
}

// PeakOpenHandles returns the largest number of simultaneously open handles.
func (p *Player) PeakOpenHandles() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.peak
}

// OpenCalls returns the URIs passed to Open, in call order.
func (p *Player) OpenCalls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.openCalls))
	copy(out, p.openCalls)
	return out
}

// OpenCount returns the number of Open calls.
func (p *Player) OpenCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.openCalls)
}

// Current returns the most recently opened handle, or nil.
func (p *Player) Current() *Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *Player) release(h *Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.handles, h.id)
}

func (p *Player) playFails() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failPlay
}

// Handle is a mock MediaHandle.
type Handle struct {
	player   *Player
	id       int
	uri      string
	onStatus ports.StatusHandler

	mu       sync.Mutex
	playing  bool
	position time.Duration
	duration time.Duration
	unloaded bool
}

// URI returns the resource this handle was opened for.
func (h *Handle) URI() string { return h.uri }

// Play implements ports.MediaHandle.
func (h *Handle) Play() error {
	if h.player.playFails() {
		return domain.NewMediaError("play", h.uri, -1, "mock play failed", domain.ErrPlaybackFailed)
	}
	return h.update(func() { h.playing = true })
}

// Pause implements ports.MediaHandle.
func (h *Handle) Pause() error {
	return h.update(func() { h.playing = false })
}

// SetPosition implements ports.MediaHandle.
func (h *Handle) SetPosition(position time.Duration) error {
	if position < 0 {
		return domain.ErrInvalidPosition
	}
	return h.update(func() { h.position = min(position, h.duration) })
}

// Stop implements ports.MediaHandle.
func (h *Handle) Stop() error {
	return h.update(func() {
		h.playing = false
		h.position = 0
	})
}

// Unload implements ports.MediaHandle.
// A final IsLoaded=false snapshot is delivered before the handle goes quiet.
func (h *Handle) Unload() error {
	h.mu.Lock()
	if h.unloaded {
		h.mu.Unlock()
		return domain.ErrHandleUnloaded
	}
	h.playing = false
	st := domain.StatusSnapshot{IsLoaded: false, Position: h.position, Duration: h.duration}
	h.mu.Unlock()

	h.emit(st)

	h.mu.Lock()
	h.unloaded = true
	h.mu.Unlock()

	h.player.release(h)
	h.player.logger.Debug("handle unloaded", slog.Int("handle", h.id))
	return nil
}

// Metadata implements ports.MetadataProvider.
func (h *Handle) Metadata() *domain.HandleMetadata {
	return &domain.HandleMetadata{Title: path.Base(h.uri), Format: "mock"}
}

// IsPlaying reports the handle's playing flag.
func (h *Handle) IsPlaying() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.playing
}

// Position reports the handle's position.
func (h *Handle) Position() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.position
}

// Unloaded reports whether Unload was called.
func (h *Handle) Unloaded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.unloaded
}

// Advance moves a playing handle forward by d and delivers a snapshot.
// Reaching the end delivers the finish snapshot instead.
func (h *Handle) Advance(d time.Duration) {
	h.mu.Lock()
	if h.unloaded || !h.playing {
		h.mu.Unlock()
		return
	}
	h.position += d
	if h.position >= h.duration {
		h.mu.Unlock()
		h.Finish()
		return
	}
	st := h.snapshot(false)
	h.mu.Unlock()
	h.emit(st)
}

// Finish simulates reaching the natural end of the track.
func (h *Handle) Finish() {
	h.mu.Lock()
	if h.unloaded {
		h.mu.Unlock()
		return
	}
	h.playing = false
	h.position = h.duration
	st := h.snapshot(true)
	h.mu.Unlock()
	h.emit(st)
}

// Emit delivers an arbitrary snapshot, even after Unload.
// Tests use it to reproduce callbacks that race with teardown.
func (h *Handle) Emit(st domain.StatusSnapshot) {
	h.emit(st)
}

func (h *Handle) update(fn func()) error {
	h.mu.Lock()
	if h.unloaded {
		h.mu.Unlock()
		return fmt.Errorf("handle %d: %w", h.id, domain.ErrHandleUnloaded)
	}
	fn()
	st := h.snapshot(false)
	h.mu.Unlock()

	h.emit(st)
	return nil
}

// snapshot must be called with h.mu held.
func (h *Handle) snapshot(finished bool) domain.StatusSnapshot {
	return domain.StatusSnapshot{
		IsLoaded:      true,
		IsPlaying:     h.playing,
		Position:      h.position,
		Duration:      h.duration,
		DidJustFinish: finished,
	}
}

func (h *Handle) emit(st domain.StatusSnapshot) {
	if h.onStatus != nil {
		h.onStatus(st)
	}
}

var (
	_ ports.MediaPlayer      = (*Player)(nil)
	_ ports.MediaHandle      = (*Handle)(nil)
	_ ports.MetadataProvider = (*Handle)(nil)
)
