package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunestream/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/tunestream/internal/adapter/media/mock"
	"github.com/tejashwikalptaru/tunestream/internal/domain"
	"github.com/tejashwikalptaru/tunestream/internal/logger"
	"github.com/tejashwikalptaru/tunestream/internal/testutil"
)

// eventLog records every event published on the bus.
type eventLog struct {
	mu     sync.Mutex
	events []domain.Event
}

func (l *eventLog) record(e domain.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) types() []domain.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.EventType, len(l.events))
	for i, e := range l.events {
		out[i] = e.Type()
	}
	return out
}

func (l *eventLog) count(t domain.EventType) int {
	n := 0
	for _, et := range l.types() {
		if et == t {
			n++
		}
	}
	return n
}

func (l *eventLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}

type controllerFixture struct {
	ctrl   *PlaybackController
	player *mock.Player
	bus    *eventbus.SyncEventBus
	events *eventLog
}

func newTestController(t *testing.T, opts ControllerOptions) *controllerFixture {
	t.Helper()
	testutil.CheckLeaks(t)

	log := logger.NewTestLogger()
	player := mock.NewPlayer(log)
	bus := eventbus.NewSyncEventBus(log)
	events := &eventLog{}
	bus.SubscribeAll(events.record)

	ctrl := NewPlaybackController(log, player, bus, opts)
	t.Cleanup(func() {
		require.NoError(t, ctrl.Shutdown())
		_ = bus.Close()
	})

	return &controllerFixture{ctrl: ctrl, player: player, bus: bus, events: events}
}

func track(id string) domain.Track {
	return domain.Track{
		ID:         id,
		Name:       "Song " + id,
		ArtistName: "Artist " + id,
		AlbumImage: "https://img.test/" + id + ".jpg",
		AudioURL:   "https://cdn.test/" + id + ".mp3",
	}
}

func tracks(ids ...string) []domain.Track {
	out := make([]domain.Track, len(ids))
	for i, id := range ids {
		out[i] = track(id)
	}
	return out
}

func TestPlaybackController_InitialState(t *testing.T) {
	f := newTestController(t, DefaultControllerOptions())

	state := f.ctrl.State()
	assert.Nil(t, state.CurrentTrack)
	assert.Empty(t, state.Queue)
	assert.Zero(t, state.QueueIndex)
	assert.Equal(t, domain.PhaseEmpty, state.Phase)
	assert.False(t, state.IsPlaying())
	assert.False(t, state.IsLoading())
	assert.Zero(t, state.Position)
	assert.Zero(t, state.Duration)
	assert.Nil(t, f.ctrl.UpNext())
}

func TestPlaybackController_PlayTrack(t *testing.T) {
	f := newTestController(t, DefaultControllerOptions())
	ctx := context.Background()
	queue := tracks("a", "b", "c")

	res := f.ctrl.PlayTrack(ctx, queue[1], queue)

	require.True(t, res.OK())
	assert.Equal(t, domain.OutcomeLoaded, res.Outcome)
	assert.Equal(t, 1, res.Index)
	assert.Equal(t, "b", res.Track.ID)

	state := f.ctrl.State()
	require.NotNil(t, state.CurrentTrack)
	assert.Equal(t, "b", state.CurrentTrack.ID)
	assert.Equal(t, 1, state.QueueIndex)
	assert.Len(t, state.Queue, 3)
	assert.Equal(t, domain.PhaseReady, state.Phase)
	assert.True(t, state.IsPlaying())
	assert.False(t, state.IsLoading())
	assert.Equal(t, mock.DefaultDuration, state.Duration)

	assert.Equal(t, []string{queue[1].AudioURL}, f.player.OpenCalls())
	assert.Equal(t, 1, f.player.OpenHandles())
	assert.Equal(t, []domain.Track{queue[2]}, f.ctrl.UpNext())
}

func TestPlaybackController_PlayTrack_IndexProperty(t *testing.T) {
	f := newTestController(t, DefaultControllerOptions())
	ctx := context.Background()
	queue := tracks("a", "b", "c", "d")

	tests := []struct {
		name  string
		track domain.Track
		queue []domain.Track
		index int
	}{
		{"first", queue[0], queue, 0},
		{"last", queue[3], queue, 3},
		{"middle", queue[2], queue, 2},
		{"absent falls back to zero", track("z"), queue, 0},
		{"nil queue is singleton", track("solo"), nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.ctrl.PlayTrack(ctx, tt.track, tt.queue)
			require.True(t, res.OK())

			state := f.ctrl.State()
			require.NotNil(t, state.CurrentTrack)
			assert.Equal(t, tt.track.ID, state.CurrentTrack.ID)
			assert.Equal(t, tt.index, state.QueueIndex)
		})
	}

	state := f.ctrl.State()
	assert.Equal(t, []domain.Track{track("solo")}, state.Queue)
}

func TestPlaybackController_PlayTrack_CopiesQueue(t *testing.T) {
	f := newTestController(t, DefaultControllerOptions())
	queue := tracks("a", "b")

	f.ctrl.PlayTrack(context.Background(), queue[0], queue)
	queue[1] = track("mutated")

	assert.Equal(t, "b", f.ctrl.State().Queue[1].ID)
}

func TestPlaybackController_PlayTrack_EventOrder(t *testing.T) {
	f := newTestController(t, DefaultControllerOptions())
	queue := tracks("a", "b")

	f.ctrl.PlayTrack(context.Background(), queue[0], queue)

	assert.Equal(t, []domain.EventType{
		domain.EventQueueChanged,
		domain.EventTrackLoading,
		domain.EventPlaybackStatus, // initial snapshot during open
		domain.EventTrackLoaded,
	}, f.events.types())

	f.events.mu.Lock()
	loading := f.events.events[1].(domain.TrackLoadingEvent)
	loaded := f.events.events[3].(domain.TrackLoadedEvent)
	status := f.events.events[2].(domain.PlaybackStatusEvent)
	f.events.mu.Unlock()

	assert.NotEmpty(t, loading.RequestID)
	assert.Equal(t, loading.RequestID, loaded.RequestID)
	assert.False(t, status.IsPlaying, "playing must not be observable while loading")
	require.NotNil(t, loaded.Metadata)
	assert.Equal(t, "mock", loaded.Metadata.Format)
}

func TestPlaybackController_PlayTrack_ReplacesHandle(t *testing.T) {
	f := newTestController(t, DefaultControllerOptions())
	ctx := context.Background()
	queue := tracks("a", "b", "c")

	f.ctrl.PlayTrack(ctx, queue[0], queue)
	first := f.player.Current()

	f.ctrl.PlayTrack(ctx, queue[2], queue)

	assert.True(t, first.Unloaded())
	assert.Equal(t, 1, f.player.OpenHandles())
	assert.Equal(t, 1, f.player.PeakOpenHandles())
	assert.Equal(t, "c", f.ctrl.State().CurrentTrack.ID)
}

func TestPlaybackController_PlayTrack_Failure(t *testing.T) {
	f := newTestController(t, DefaultControllerOptions())
	ctx := context.Background()
	queue := tracks("a", "b")
	f.player.SetFailOpen(queue[1].AudioURL, errors.New("dial tcp: connection refused"))

	require.True(t, f.ctrl.PlayTrack(ctx, queue[0], queue).OK())
	previous := f.player.Current()

	res := f.ctrl.PlayTrack(ctx, queue[1], queue)

	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	require.NotNil(t, res.Err)
	assert.Equal(t, domain.LoadErrorNetwork, res.Err.Kind)
	assert.Equal(t, "b", res.Err.TrackID)

	state := f.ctrl.State()
	require.NotNil(t, state.CurrentTrack, "failed track stays current")
	assert.Equal(t, "b", state.CurrentTrack.ID)
	assert.Equal(t, 1, state.QueueIndex)
	assert.Equal(t, domain.PhaseFailed, state.Phase)
	assert.False(t, state.IsPlaying())
	assert.False(t, state.IsLoading())
	assert.Equal(t, res.Err, state.LastError)

	assert.True(t, previous.Unloaded(), "previous handle is released even when the next load fails")
	assert.Zero(t, f.player.OpenHandles())
	assert.Equal(t, 1, f.events.count(domain.EventTrackError))
}

func TestPlaybackController_PlayTrack_MissingAudioURL(t *testing.T) {
	f := newTestController(t, DefaultControllerOptions())
	bad := domain.Track{ID: "x", Name: "No audio"}

	res := f.ctrl.PlayTrack(context.Background(), bad, nil)

	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	require.NotNil(t, res.Err)
	assert.Equal(t, domain.LoadErrorInvalid, res.Err.Kind)
	assert.Zero(t, f.player.OpenCount())
}

func TestPlaybackController_RecoversAfterFailure(t *testing.T) {
	f := newTestController(t, DefaultControllerOptions())
	ctx := context.Background()
	queue := tracks("a", "b")
	f.player.SetFailOpen(queue[0].AudioURL, domain.ErrUnsupportedFormat)

	res := f.ctrl.PlayTrack(ctx, queue[0], queue)
	require.NotNil(t, res.Err)
	assert.Equal(t, domain.LoadErrorUnsupported, res.Err.Kind)

	res = f.ctrl.PlayNext(ctx)
	require.True(t, res.OK())

	state := f.ctrl.State()
	assert.Equal(t, "b", state.CurrentTrack.ID)
	assert.Equal(t, domain.PhaseReady, state.Phase)
	assert.Nil(t, state.LastError)
}

func TestPlaybackController_PlayNext_Circular(t *testing.T) {
	for n := 1; n <= 4; n++ {
		for start := 0; start < n; start++ {
			f := newTestController(t, DefaultControllerOptions())
			ctx := context.Background()
			queue := tracks("a", "b", "c", "d")[:n]

			f.ctrl.PlayTrack(ctx, queue[start], queue)
			for range n {
				require.True(t, f.ctrl.PlayNext(ctx).OK())
			}

			assert.Equal(t, start, f.ctrl.State().QueueIndex, "n=%d start=%d", n, start)
			assert.LessOrEqual(t, f.player.PeakOpenHandles(), 1)
		}
	}
}

func TestPlaybackController_FullCycleScenario(t *testing.T) {
	f := newTestController(t, DefaultControllerOptions())
	ctx := context.Background()
	a := domain.Track{ID: "a", AudioURL: "x"}
	queue := []domain.Track{a, track("b"), track("c")}

	f.ctrl.PlayTrack(ctx, a, queue)
	f.ctrl.PlayNext(ctx)
	f.ctrl.PlayNext(ctx)
	f.ctrl.PlayNext(ctx)

	state := f.ctrl.State()
	assert.Equal(t, "a", state.CurrentTrack.ID)
	assert.Equal(t, 0, state.QueueIndex)
	assert.Equal(t, 4, f.player.OpenCount())
}

func TestPlaybackController_PrevAfterNext(t *testing.T) {
	f := newTestController(t, DefaultControllerOptions())
	ctx := context.Background()
	queue := tracks("a", "b", "c")

	for start := range queue {
		f.ctrl.PlayTrack(ctx, queue[start], queue)

		f.ctrl.PlayNext(ctx)
		res := f.ctrl.PlayPrev(ctx)

		assert.Equal(t, domain.OutcomeLoaded, res.Outcome)
		assert.Equal(t, start, f.ctrl.State().QueueIndex)
	}
}

func TestPlaybackController_PlayPrev_Wraps(t *testing.T) {
	f := newTestController(t, DefaultControllerOptions())
	ctx := context.Background()
	queue := tracks("a", "b", "c")

	f.ctrl.PlayTrack(ctx, queue[0], queue)
	res := f.ctrl.PlayPrev(ctx)

	assert.Equal(t, 2, res.Index)
	assert.Equal(t, "c", f.ctrl.State().CurrentTrack.ID)
}

func TestPlaybackController_PlayPrev_RestartShortcut(t *testing.T) {
	f := newTestController(t, DefaultControllerOptions())
	ctx := context.Background()
	queue := tracks("a", "b", "c")

	f.ctrl.PlayTrack(ctx, queue[1], queue)
	f.player.Current().Advance(3*time.Second + time.Millisecond)
	require.Greater(t, f.ctrl.State().Position, DefaultRestartThreshold)
	opens := f.player.OpenCount()

	res := f.ctrl.PlayPrev(ctx)

	assert.Equal(t, domain.OutcomeRestarted, res.Outcome)
	assert.True(t, res.OK())
	state := f.ctrl.State()
	assert.Equal(t, 1, state.QueueIndex)
	assert.Equal(t, "b", state.CurrentTrack.ID)
	assert.Zero(t, state.Position)
	assert.Equal(t, opens, f.player.OpenCount(), "restart must not reopen")
	assert.Equal(t, 1, f.events.count(domain.EventTrackRestarted))
}

func TestPlaybackController_PlayPrev_AtThresholdGoesBack(t *testing.T) {
	f := newTestController(t, DefaultControllerOptions())
	ctx := context.Background()
	queue := tracks("a", "b", "c")

	f.ctrl.PlayTrack(ctx, queue[1], queue)
	f.player.Current().Advance(DefaultRestartThreshold)

	res := f.ctrl.PlayPrev(ctx)

	assert.Equal(t, domain.OutcomeLoaded, res.Outcome)
	assert.Equal(t, 0, f.ctrl.State().QueueIndex)
}

func TestPlaybackController_PlayPrev_CustomThreshold(t *testing.T) {
	f := newTestController(t, ControllerOptions{RestartThreshold: 10 * time.Second})
	ctx := context.Background()
	queue := tracks("a", "b")

	f.ctrl.PlayTrack(ctx, queue[1], queue)
	f.player.Current().Advance(5 * time.Second)

	res := f.ctrl.PlayPrev(ctx)
	assert.Equal(t, domain.OutcomeLoaded, res.Outcome)
	assert.Equal(t, "a", f.ctrl.State().CurrentTrack.ID)
}

func TestPlaybackController_EmptyQueueIsNoop(t *testing.T) {
	f := newTestController(t, DefaultControllerOptions())
	ctx := context.Background()
	before := f.ctrl.State()

	next := f.ctrl.PlayNext(ctx)
	prev := f.ctrl.PlayPrev(ctx)

	assert.Equal(t, domain.OutcomeSkipped, next.Outcome)
	assert.Equal(t, domain.OutcomeSkipped, prev.Outcome)
	assert.Equal(t, before, f.ctrl.State())
	assert.Zero(t, f.player.OpenCount())
	assert.Empty(t, f.events.types())
}

func TestPlaybackController_TogglePlay(t *testing.T) {
	f := newTestController(t, DefaultControllerOptions())
	ctx := context.Background()

	f.ctrl.PlayTrack(ctx, track("a"), nil)
	require.True(t, f.ctrl.State().IsPlaying())

	require.NoError(t, f.ctrl.TogglePlay(ctx))
	assert.False(t, f.ctrl.State().IsPlaying())
	assert.False(t, f.player.Current().IsPlaying())

	require.NoError(t, f.ctrl.TogglePlay(ctx))
	assert.True(t, f.ctrl.State().IsPlaying())
}

func TestPlaybackController_TogglePlay_StateFollowsPlayer(t *testing.T) {
	f := newTestController(t, DefaultControllerOptions())
	ctx := context.Background()

	f.ctrl.PlayTrack(ctx, track("a"), nil)
	f.player.SetFailPlay(true)
	require.NoError(t, f.ctrl.TogglePlay(ctx))

	err := f.ctrl.TogglePlay(ctx)
	assert.ErrorIs(t, err, domain.ErrPlaybackFailed)
	assert.False(t, f.ctrl.State().IsPlaying(), "a rejected resume must not flip the playing flag")
}

func TestPlaybackController_CommandsWithoutHandle(t *testing.T) {
	f := newTestController(t, DefaultControllerOptions())
	ctx := context.Background()

	assert.NoError(t, f.ctrl.TogglePlay(ctx))
	assert.NoError(t, f.ctrl.Seek(ctx, time.Second))
	assert.NoError(t, f.ctrl.Stop(ctx))

	// After a failed load there is still no handle.
	f.player.SetFailAll(errors.New("offline"))
	f.ctrl.PlayTrack(ctx, track("a"), nil)
	assert.NoError(t, f.ctrl.TogglePlay(ctx))
	assert.NoError(t, f.ctrl.Seek(ctx, time.Second))
}

func TestPlaybackController_Seek(t *testing.T) {
	f := newTestController(t, DefaultControllerOptions())
	ctx := context.Background()

	f.ctrl.PlayTrack(ctx, track("a"), nil)
	require.NoError(t, f.ctrl.Seek(ctx, 42*time.Second))
	assert.Equal(t, 42*time.Second, f.ctrl.State().Position)

	// Out-of-range values are the player's call; the mock clamps.
	require.NoError(t, f.ctrl.Seek(ctx, time.Hour))
	assert.Equal(t, mock.DefaultDuration, f.ctrl.State().Position)

	err := f.ctrl.Seek(ctx, -time.Second)
	assert.ErrorIs(t, err, domain.ErrInvalidPosition)
}

func TestPlaybackController_StatusMirrorsSnapshot(t *testing.T) {
	f := newTestController(t, DefaultControllerOptions())
	f.ctrl.PlayTrack(context.Background(), track("a"), nil)

	f.player.Current().Emit(domain.StatusSnapshot{
		IsLoaded:  true,
		IsPlaying: true,
		Position:  90 * time.Second,
		Duration:  180 * time.Second,
	})

	state := f.ctrl.State()
	assert.True(t, state.IsPlaying())
	assert.Equal(t, 90*time.Second, state.Position)
	assert.Equal(t, 180*time.Second, state.Duration)
}

func TestPlaybackController_StatusNotLoadedIgnored(t *testing.T) {
	f := newTestController(t, DefaultControllerOptions())
	f.ctrl.PlayTrack(context.Background(), track("a"), nil)
	before := f.ctrl.State()
	f.events.reset()

	f.player.Current().Emit(domain.StatusSnapshot{IsLoaded: false, IsPlaying: false, Position: time.Minute})

	assert.Equal(t, before, f.ctrl.State())
	assert.Empty(t, f.events.types())
}

func TestPlaybackController_StaleCallbackIgnored(t *testing.T) {
	f := newTestController(t, DefaultControllerOptions())
	ctx := context.Background()
	queue := tracks("a", "b")

	f.ctrl.PlayTrack(ctx, queue[0], queue)
	old := f.player.Current()
	f.ctrl.PlayTrack(ctx, queue[1], queue)

	old.Emit(domain.StatusSnapshot{IsLoaded: true, IsPlaying: false, Position: 170 * time.Second, Duration: 171 * time.Second})
	old.Emit(domain.StatusSnapshot{IsLoaded: true, DidJustFinish: true})

	state := f.ctrl.State()
	assert.True(t, state.IsPlaying())
	assert.Zero(t, state.Position)
	assert.Equal(t, mock.DefaultDuration, state.Duration)
	assert.Zero(t, f.events.count(domain.EventTrackCompleted))
}

func TestPlaybackController_DidJustFinish(t *testing.T) {
	f := newTestController(t, DefaultControllerOptions())
	ctx := context.Background()
	queue := tracks("a", "b")

	f.ctrl.PlayTrack(ctx, queue[0], queue)
	f.player.Current().Advance(time.Minute)
	f.player.Current().Emit(domain.StatusSnapshot{
		IsLoaded:      true,
		IsPlaying:     true,
		Position:      mock.DefaultDuration,
		Duration:      mock.DefaultDuration,
		DidJustFinish: true,
	})

	state := f.ctrl.State()
	assert.False(t, state.IsPlaying())
	assert.Zero(t, state.Position)
	assert.Equal(t, "a", state.CurrentTrack.ID, "no auto-advance by default")
	assert.Equal(t, domain.PhaseReady, state.Phase)
	assert.Equal(t, 1, f.player.OpenCount())
	assert.Equal(t, 1, f.events.count(domain.EventTrackCompleted))
}

func TestPlaybackController_AutoAdvance(t *testing.T) {
	f := newTestController(t, ControllerOptions{AutoAdvance: true})
	ctx := context.Background()
	queue := tracks("a", "b")

	f.ctrl.PlayTrack(ctx, queue[0], queue)
	f.player.Current().Finish()

	assert.Eventually(t, func() bool {
		s := f.ctrl.State()
		return s.CurrentTrack != nil && s.CurrentTrack.ID == "b" && s.IsPlaying()
	}, time.Second, 5*time.Millisecond)

	f.player.Current().Finish()
	assert.Eventually(t, func() bool {
		s := f.ctrl.State()
		return s.CurrentTrack != nil && s.CurrentTrack.ID == "a" && s.QueueIndex == 0
	}, time.Second, 5*time.Millisecond, "auto-advance wraps like PlayNext")
}

func TestPlaybackController_AutoAdvanceIgnoresStaleFinish(t *testing.T) {
	f := newTestController(t, ControllerOptions{AutoAdvance: true})
	ctx := context.Background()
	queue := tracks("a", "b", "c")

	gate := make(chan struct{})
	entered := make(chan string, 4)

	f.ctrl.PlayTrack(ctx, queue[0], queue)
	finished := f.player.Current()

	f.player.SetOpenGate(gate, entered)
	done := make(chan domain.LoadResult, 1)
	go func() { done <- f.ctrl.PlayTrack(ctx, queue[2], queue) }()
	<-entered

	// The old handle finishing now is stale.
	finished.Emit(domain.StatusSnapshot{IsLoaded: true, DidJustFinish: true})
	close(gate)
	require.True(t, (<-done).OK())

	f.player.SetOpenGate(nil, nil)
	require.NoError(t, f.ctrl.Shutdown())
	assert.Equal(t, 2, f.player.OpenCount())
}

func TestPlaybackController_OverlappingLoadsSerialized(t *testing.T) {
	f := newTestController(t, DefaultControllerOptions())
	ctx := context.Background()
	queue := tracks("a", "b", "c")

	gate := make(chan struct{})
	entered := make(chan string, 4)
	f.player.SetOpenGate(gate, entered)

	first := make(chan domain.LoadResult, 1)
	go func() { first <- f.ctrl.PlayTrack(ctx, queue[0], queue) }()
	assert.Equal(t, queue[0].AudioURL, <-entered)

	second := make(chan domain.LoadResult, 1)
	go func() { second <- f.ctrl.PlayTrack(ctx, queue[2], queue) }()

	select {
	case <-entered:
		t.Fatal("second open started while the first was in flight")
	case <-time.After(30 * time.Millisecond):
	}

	close(gate)
	require.True(t, (<-first).OK())
	require.True(t, (<-second).OK())

	assert.Equal(t, 1, f.player.PeakOpenHandles())
	assert.Equal(t, 1, f.player.OpenHandles())
	assert.Equal(t, "c", f.ctrl.State().CurrentTrack.ID)
}

func TestPlaybackController_ConcurrentTransport(t *testing.T) {
	f := newTestController(t, DefaultControllerOptions())
	ctx := context.Background()
	queue := tracks("a", "b", "c", "d")
	f.ctrl.PlayTrack(ctx, queue[0], queue)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			switch i % 4 {
			case 0:
				f.ctrl.PlayNext(ctx)
			case 1:
				f.ctrl.PlayPrev(ctx)
			case 2:
				_ = f.ctrl.TogglePlay(ctx)
			default:
				_ = f.ctrl.Seek(ctx, time.Second)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.player.PeakOpenHandles())
	assert.Equal(t, 1, f.player.OpenHandles())
	state := f.ctrl.State()
	assert.Equal(t, queue[state.QueueIndex].ID, state.CurrentTrack.ID)
}

func TestPlaybackController_Stop(t *testing.T) {
	f := newTestController(t, DefaultControllerOptions())
	ctx := context.Background()
	queue := tracks("a", "b", "c")

	f.ctrl.PlayTrack(ctx, queue[1], queue)
	f.player.Current().Advance(10 * time.Second)
	handle := f.player.Current()

	require.NoError(t, f.ctrl.Stop(ctx))

	state := f.ctrl.State()
	assert.Nil(t, state.CurrentTrack)
	assert.Equal(t, domain.PhaseEmpty, state.Phase)
	assert.False(t, state.IsPlaying())
	assert.Zero(t, state.Position)
	assert.Zero(t, state.Duration)
	assert.Equal(t, queue, state.Queue, "stop keeps the queue")
	assert.Equal(t, 1, state.QueueIndex)

	assert.True(t, handle.Unloaded())
	assert.Zero(t, f.player.OpenHandles())
	assert.Equal(t, 1, f.events.count(domain.EventTrackStopped))

	// Next continues from the kept index.
	res := f.ctrl.PlayNext(ctx)
	require.True(t, res.OK())
	assert.Equal(t, "c", f.ctrl.State().CurrentTrack.ID)
}

func TestPlaybackController_CanceledContext(t *testing.T) {
	f := newTestController(t, DefaultControllerOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := f.ctrl.PlayTrack(ctx, track("a"), nil)

	assert.Equal(t, domain.OutcomeCanceled, res.Outcome)
	require.NotNil(t, res.Err)
	assert.Equal(t, domain.LoadErrorCanceled, res.Err.Kind)
	assert.Equal(t, domain.PhaseEmpty, f.ctrl.State().Phase)
	assert.Zero(t, f.player.OpenCount())

	assert.ErrorIs(t, f.ctrl.TogglePlay(ctx), context.Canceled)
	assert.ErrorIs(t, f.ctrl.Seek(ctx, 0), context.Canceled)
	assert.ErrorIs(t, f.ctrl.Stop(ctx), context.Canceled)
}

func TestPlaybackController_CancelInFlightOpen(t *testing.T) {
	f := newTestController(t, DefaultControllerOptions())
	f.player.SetOpenGate(make(chan struct{}), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res := f.ctrl.PlayTrack(ctx, track("a"), nil)

	assert.Equal(t, domain.OutcomeCanceled, res.Outcome)
	state := f.ctrl.State()
	assert.Equal(t, domain.PhaseFailed, state.Phase)
	assert.Equal(t, "a", state.CurrentTrack.ID)
	assert.Zero(t, f.player.OpenHandles())
}

func TestPlaybackController_WaitingCallerCanceled(t *testing.T) {
	f := newTestController(t, DefaultControllerOptions())
	gate := make(chan struct{})
	entered := make(chan string, 1)
	f.player.SetOpenGate(gate, entered)

	done := make(chan domain.LoadResult, 1)
	go func() { done <- f.ctrl.PlayTrack(context.Background(), track("a"), nil) }()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	res := f.ctrl.PlayNext(ctx)
	assert.Equal(t, domain.OutcomeCanceled, res.Outcome)

	close(gate)
	assert.True(t, (<-done).OK())
}

func TestPlaybackController_ShutdownAbortsOpen(t *testing.T) {
	f := newTestController(t, DefaultControllerOptions())
	entered := make(chan string, 1)
	f.player.SetOpenGate(make(chan struct{}), entered)

	done := make(chan domain.LoadResult, 1)
	go func() { done <- f.ctrl.PlayTrack(context.Background(), track("a"), nil) }()
	<-entered

	require.NoError(t, f.ctrl.Shutdown())
	res := <-done
	assert.Equal(t, domain.OutcomeCanceled, res.Outcome)

	state := f.ctrl.State()
	assert.Equal(t, domain.PhaseEmpty, state.Phase)
	assert.Zero(t, f.player.OpenHandles())
}

func TestPlaybackController_ShutdownReleasesHandle(t *testing.T) {
	f := newTestController(t, DefaultControllerOptions())
	ctx := context.Background()

	f.ctrl.PlayTrack(ctx, track("a"), nil)
	h := f.player.Current()

	require.NoError(t, f.ctrl.Shutdown())
	require.NoError(t, f.ctrl.Shutdown(), "second shutdown is a no-op")

	assert.True(t, h.Unloaded())
	assert.Nil(t, f.ctrl.State().CurrentTrack)

	res := f.ctrl.PlayTrack(ctx, track("b"), nil)
	assert.Equal(t, domain.OutcomeCanceled, res.Outcome)
	assert.ErrorIs(t, res.Err, domain.ErrControllerClosed)
	assert.ErrorIs(t, f.ctrl.TogglePlay(ctx), domain.ErrControllerClosed)
}

func TestPlaybackController_StateIsACopy(t *testing.T) {
	f := newTestController(t, DefaultControllerOptions())
	queue := tracks("a", "b")
	f.ctrl.PlayTrack(context.Background(), queue[0], queue)

	state := f.ctrl.State()
	state.Queue[0].Name = "changed"
	state.CurrentTrack.Name = "changed"

	fresh := f.ctrl.State()
	assert.Equal(t, "Song a", fresh.Queue[0].Name)
	assert.Equal(t, "Song a", fresh.CurrentTrack.Name)
}
