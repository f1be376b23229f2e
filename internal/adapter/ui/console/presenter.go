// Package console provides the terminal now-playing surface: a presenter
// that folds controller events into a view model, a lipgloss line view and
// a stdin command reader.
package console

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/tejashwikalptaru/tunestream/internal/domain"
	"github.com/tejashwikalptaru/tunestream/internal/ports"
)

// Controller is the part of the playback controller the presenter drives.
type Controller interface {
	PlayTrack(ctx context.Context, track domain.Track, queue []domain.Track) domain.LoadResult
	PlayNext(ctx context.Context) domain.LoadResult
	PlayPrev(ctx context.Context) domain.LoadResult
	TogglePlay(ctx context.Context) error
	Seek(ctx context.Context, position time.Duration) error
	Stop(ctx context.Context) error
	State() domain.PlaybackSession
}

// Presenter implements the Presenter pattern for the now-playing view.
//
// Event handlers run on the publishing goroutine, which is inside a
// controller operation. They only read controller state and never issue
// transport commands.
//
// Thread-safety: All operations are thread-safe.
type Presenter struct {
	logger     *slog.Logger
	controller Controller
	bus        ports.EventBus
	view       ports.NowPlayingView

	mu        sync.Mutex
	lastError string
	subs      []domain.SubscriptionID
	closeOnce sync.Once
}

// NewPresenter subscribes to controller events and renders the initial state.
func NewPresenter(
	logger *slog.Logger,
	controller Controller,
	bus ports.EventBus,
	view ports.NowPlayingView,
) *Presenter {
	p := &Presenter{
		logger:     logger.With(slog.String("component", "presenter")),
		controller: controller,
		bus:        bus,
		view:       view,
	}

	subscriptions := map[domain.EventType]domain.EventHandler{
		domain.EventQueueChanged:   p.refresh,
		domain.EventTrackLoading:   p.onTrackLoading,
		domain.EventTrackLoaded:    p.refresh,
		domain.EventTrackError:     p.onTrackError,
		domain.EventPlaybackStatus: p.refresh,
		domain.EventTrackCompleted: p.refresh,
		domain.EventTrackStopped:   p.onTrackStopped,
		domain.EventTrackRestarted: p.refresh,
	}
	for eventType, handler := range subscriptions {
		p.subs = append(p.subs, bus.Subscribe(eventType, handler))
	}

	p.render()
	return p
}

// Close removes the presenter's subscriptions.
func (p *Presenter) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		subs := p.subs
		p.subs = nil
		p.mu.Unlock()

		for _, id := range subs {
			p.bus.Unsubscribe(id)
		}
	})
}

// Commands

// Play starts track with queue as the play queue.
func (p *Presenter) Play(ctx context.Context, track domain.Track, queue []domain.Track) domain.LoadResult {
	return p.logResult("play", p.controller.PlayTrack(ctx, track, queue))
}

// Next skips to the next queued track.
func (p *Presenter) Next(ctx context.Context) domain.LoadResult {
	return p.logResult("next", p.controller.PlayNext(ctx))
}

// Previous restarts the current track or goes back one.
func (p *Presenter) Previous(ctx context.Context) domain.LoadResult {
	return p.logResult("previous", p.controller.PlayPrev(ctx))
}

// TogglePlay pauses or resumes.
func (p *Presenter) TogglePlay(ctx context.Context) error {
	return p.logErr("toggle", p.controller.TogglePlay(ctx))
}

// maxSeekSeconds is the first value that no longer fits a time.Duration.
const maxSeekSeconds = float64(math.MaxInt64) / float64(time.Second)

// SeekTo moves playback to seconds from the start.
// Negative, NaN and out-of-range values fail with domain.ErrInvalidPosition.
func (p *Presenter) SeekTo(ctx context.Context, seconds float64) error {
	if !(seconds >= 0 && seconds < maxSeekSeconds) {
		return p.logErr("seek", fmt.Errorf("seek to %.1fs: %w", seconds, domain.ErrInvalidPosition))
	}
	return p.logErr("seek", p.controller.Seek(ctx, time.Duration(seconds*float64(time.Second))))
}

// Stop stops playback.
func (p *Presenter) Stop(ctx context.Context) error {
	return p.logErr("stop", p.controller.Stop(ctx))
}

// Event handlers

func (p *Presenter) onTrackLoading(domain.Event) {
	p.mu.Lock()
	p.lastError = ""
	p.mu.Unlock()
	p.render()
}

func (p *Presenter) onTrackError(event domain.Event) {
	e, ok := event.(domain.TrackErrorEvent)
	if !ok {
		return
	}
	msg := fmt.Sprintf("could not play %q", e.Track.Name)
	if e.Error != nil {
		msg = fmt.Sprintf("could not play %q (%s)", e.Track.Name, e.Error.Kind)
	}

	p.mu.Lock()
	p.lastError = msg
	p.mu.Unlock()
	p.render()
}

func (p *Presenter) onTrackStopped(domain.Event) {
	p.mu.Lock()
	p.lastError = ""
	p.mu.Unlock()
	p.render()
}

func (p *Presenter) refresh(domain.Event) {
	p.render()
}

func (p *Presenter) render() {
	p.mu.Lock()
	errMsg := p.lastError
	p.mu.Unlock()

	p.view.Render(BuildNowPlaying(p.controller.State(), errMsg))
}

func (p *Presenter) logResult(op string, res domain.LoadResult) domain.LoadResult {
	if res.Err != nil {
		p.logger.Warn("command failed",
			slog.String("op", op),
			slog.String("outcome", res.Outcome.String()),
			slog.Any("error", res.Err))
	}
	return res
}

func (p *Presenter) logErr(op string, err error) error {
	if err != nil {
		p.logger.Warn("command failed", slog.String("op", op), slog.Any("error", err))
	}
	return err
}

// BuildNowPlaying derives the view model from a session snapshot.
func BuildNowPlaying(s domain.PlaybackSession, errMsg string) ports.NowPlaying {
	np := ports.NowPlaying{
		Loading:  s.IsLoading(),
		Playing:  s.IsPlaying(),
		Progress: Progress(s.Position, s.Duration),
		Elapsed:  FormatTime(s.Position),
		Total:    FormatTime(s.Duration),
		UpNext:   s.UpNext(),
		Error:    errMsg,
	}
	if s.CurrentTrack != nil {
		t := *s.CurrentTrack
		np.Track = &t
		np.Album = t.DisplayAlbum()
	}
	return np
}

// Progress returns position/duration clamped to [0,1], or 0 when the
// duration is unknown.
func Progress(position, duration time.Duration) float64 {
	if duration <= 0 {
		return 0
	}
	return min(max(float64(position)/float64(duration), 0), 1)
}

// FormatTime renders d as m:ss. Negative durations render as 0:00.
func FormatTime(d time.Duration) string {
	secs := max(int64(d/time.Second), 0)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
