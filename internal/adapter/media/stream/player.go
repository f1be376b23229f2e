// Package stream implements the MediaPlayer port on top of gopxl/beep.
// Remote resources are fetched over HTTP, buffered in memory so they stay
// seekable, decoded and mixed into a shared audio output.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"

	"github.com/tejashwikalptaru/tunestream/internal/domain"
	"github.com/tejashwikalptaru/tunestream/internal/ports"
)

const (
	// DefaultSampleRate is the output rate every handle is resampled to.
	DefaultSampleRate = 44100

	// DefaultMaxBytes caps how much of a remote resource is buffered.
	DefaultMaxBytes int64 = 64 << 20

	defaultStatusInterval = 500 * time.Millisecond
	resampleQuality       = 4
)

// Config configures a stream Player.
type Config struct {
	SampleRate int
	MaxBytes   int64
	HTTPClient *http.Client
	Logger     *slog.Logger

	// Output defaults to the platform speaker.
	Output Output
}

// Player fetches and decodes remote audio.
//
// Thread-safety: This implementation is thread-safe.
type Player struct {
	rate     beep.SampleRate
	maxBytes int64
	client   *http.Client
	out      Output
	logger   *slog.Logger
}

// NewPlayer creates a stream player from cfg, filling in defaults.
func NewPlayer(cfg Config) *Player {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Output == nil {
		cfg.Output = NewSpeakerOutput()
	}
	return &Player{
		rate:     beep.SampleRate(cfg.SampleRate),
		maxBytes: cfg.MaxBytes,
		client:   cfg.HTTPClient,
		out:      cfg.Output,
		logger:   cfg.Logger.With(slog.String("adapter", "stream-media")),
	}
}

// Open implements ports.MediaPlayer.
func (p *Player) Open(ctx context.Context, uri string, opts ports.OpenOptions, onStatus ports.StatusHandler) (ports.MediaHandle, error) {
	if uri == "" {
		return nil, domain.ErrInvalidTrack
	}

	start := time.Now()
	data, contentType, err := p.fetch(ctx, uri)
	if err != nil {
		return nil, err
	}

	c := detectContainer(data, contentType, uri)
	if c == containerUnknown {
		return nil, domain.NewMediaError("probe", uri, 0, "unrecognized container", domain.ErrUnsupportedFormat)
	}

	src, format, err := decode(c, data)
	if err != nil {
		return nil, domain.NewMediaError("decode", uri, 0, fmt.Sprintf("failed to decode %s", c), err)
	}

	if err := p.out.Init(p.rate); err != nil {
		_ = src.Close()
		return nil, domain.NewMediaError("output", uri, 0, "failed to initialize audio output", err)
	}

	interval := opts.StatusInterval
	if interval <= 0 {
		interval = defaultStatusInterval
	}

	h := &Handle{
		uri:      uri,
		out:      p.out,
		src:      src,
		format:   format,
		metadata: probeMetadata(c, data),
		onStatus: onStatus,
		paused:   !opts.Autoplay,
		ended:    make(chan struct{}, 1),
		quit:     make(chan struct{}),
		logger:   p.logger,
	}

	var s beep.Streamer = h
	if format.SampleRate != p.rate {
		s = beep.Resample(resampleQuality, format.SampleRate, p.rate, h)
	}
	p.out.Play(s)

	h.wg.Add(1)
	go h.report(interval)

	p.logger.Debug("handle opened",
		slog.String("uri", uri),
		slog.String("format", string(c)),
		slog.Int("bytes", len(data)),
		slog.Duration("elapsed", time.Since(start)))

	h.emit(h.snapshot(false))
	return h, nil
}

// fetch downloads uri into memory.
func (p *Player) fetch(ctx context.Context, uri string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, "", domain.NewMediaError("fetch", uri, 0, "invalid request", errors.Join(domain.ErrInvalidTrack, err))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "", domain.NewMediaError("fetch", uri, 0, "request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", domain.NewMediaError("fetch", uri, resp.StatusCode, http.StatusText(resp.StatusCode), nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBytes+1))
	if err != nil {
		return nil, "", domain.NewMediaError("fetch", uri, resp.StatusCode, "failed to read body", err)
	}
	if int64(len(data)) > p.maxBytes {
		return nil, "", domain.NewMediaError("fetch", uri, resp.StatusCode,
			fmt.Sprintf("body exceeds %d bytes", p.maxBytes), domain.ErrStreamTooLarge)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// Handle is a decoded stream mixed into the player's output.
// Streamer state is guarded by the output lock; cmdMu serializes commands
// with Unload so no snapshot follows the final one.
type Handle struct {
	uri      string
	out      Output
	src      beep.StreamSeekCloser
	format   beep.Format
	metadata *domain.HandleMetadata
	onStatus ports.StatusHandler
	logger   *slog.Logger

	cmdMu sync.Mutex

	// guarded by out.Lock
	paused   bool
	finished bool
	closed   bool

	ended chan struct{}
	quit  chan struct{}
	wg    sync.WaitGroup
}

// Stream implements beep.Streamer. It yields silence while paused or after
// the end of the track, and drains once the handle is unloaded.
func (h *Handle) Stream(samples [][2]float64) (int, bool) {
	if h.closed {
		return 0, false
	}
	if h.paused || h.finished {
		clear(samples)
		return len(samples), true
	}

	n, ok := h.src.Stream(samples)
	if !ok || h.src.Position() >= h.src.Len() {
		clear(samples[n:])
		h.finished = true
		h.signalEnded()
	}
	return len(samples), true
}

// signalEnded wakes report without blocking; the output lock must be held.
func (h *Handle) signalEnded() {
	select {
	case h.ended <- struct{}{}:
	default:
	}
}

// Err implements beep.Streamer.
func (h *Handle) Err() error {
	return h.src.Err()
}

// Play implements ports.MediaHandle.
// A finished track restarts from the beginning.
func (h *Handle) Play() error {
	return h.command(func() error {
		if h.finished {
			if err := h.src.Seek(0); err != nil {
				return domain.NewMediaError("play", h.uri, 0, "failed to rewind", errors.Join(domain.ErrPlaybackFailed, err))
			}
			h.finished = false
		}
		h.paused = false
		return nil
	})
}

// Pause implements ports.MediaHandle.
func (h *Handle) Pause() error {
	return h.command(func() error {
		h.paused = true
		return nil
	})
}

// SetPosition implements ports.MediaHandle.
func (h *Handle) SetPosition(position time.Duration) error {
	return h.command(func() error {
		if position < 0 || position > h.format.SampleRate.D(h.src.Len()) {
			return domain.ErrInvalidPosition
		}
		sample := min(h.format.SampleRate.N(position), h.src.Len())
		if err := h.src.Seek(sample); err != nil {
			return domain.NewMediaError("seek", h.uri, 0, "failed to seek", err)
		}
		// A paused handle at the end finishes once resumed, through Stream.
		h.finished = sample >= h.src.Len() && !h.paused
		if h.finished {
			h.signalEnded()
		}
		return nil
	})
}

// Stop implements ports.MediaHandle.
func (h *Handle) Stop() error {
	return h.command(func() error {
		h.paused = true
		h.finished = false
		if err := h.src.Seek(0); err != nil {
			return domain.NewMediaError("stop", h.uri, 0, "failed to rewind", err)
		}
		return nil
	})
}

// Unload implements ports.MediaHandle.
func (h *Handle) Unload() error {
	h.cmdMu.Lock()
	defer h.cmdMu.Unlock()

	h.out.Lock()
	if h.closed {
		h.out.Unlock()
		return domain.ErrHandleUnloaded
	}
	h.closed = true
	st := h.snapshot(false)
	h.out.Unlock()

	close(h.quit)
	h.wg.Wait()

	st.IsLoaded = false
	st.IsPlaying = false
	h.emit(st)

	if err := h.src.Close(); err != nil {
		h.logger.Warn("failed to close decoder", slog.String("uri", h.uri), slog.Any("error", err))
	}
	h.logger.Debug("handle unloaded", slog.String("uri", h.uri))
	return nil
}

// Metadata implements ports.MetadataProvider.
func (h *Handle) Metadata() *domain.HandleMetadata {
	md := *h.metadata
	return &md
}

func (h *Handle) command(fn func() error) error {
	h.cmdMu.Lock()
	defer h.cmdMu.Unlock()

	h.out.Lock()
	if h.closed {
		h.out.Unlock()
		return fmt.Errorf("%s: %w", h.uri, domain.ErrHandleUnloaded)
	}
	err := fn()
	st := h.snapshot(false)
	h.out.Unlock()

	if err != nil {
		return err
	}
	h.emit(st)
	return nil
}

// report delivers periodic snapshots while playing and the finish snapshot
// when the decoder runs dry.
func (h *Handle) report(interval time.Duration) {
	defer h.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.quit:
			return
		case <-ticker.C:
			h.out.Lock()
			st := h.snapshot(false)
			h.out.Unlock()
			if st.IsPlaying {
				h.emit(st)
			}
		case <-h.ended:
			h.out.Lock()
			finished := h.finished && !h.closed
			st := h.snapshot(finished)
			h.out.Unlock()
			if finished {
				h.emit(st)
			}
		}
	}
}

// snapshot must be called with the output lock held.
func (h *Handle) snapshot(justFinished bool) domain.StatusSnapshot {
	return domain.StatusSnapshot{
		IsLoaded:      !h.closed,
		IsPlaying:     !h.paused && !h.finished && !h.closed,
		Position:      h.format.SampleRate.D(h.src.Position()),
		Duration:      h.format.SampleRate.D(h.src.Len()),
		DidJustFinish: justFinished,
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
	_ beep.Streamer          = (*Handle)(nil)
)
