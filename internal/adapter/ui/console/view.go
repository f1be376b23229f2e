package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/tejashwikalptaru/tunestream/internal/ports"
)

const barWidth = 24

// LineView prints one line per state change. Consecutive identical lines
// are suppressed so periodic status ticks only print when the clock moves.
type LineView struct {
	w io.Writer

	mu   sync.Mutex
	last string

	title  lipgloss.Style
	muted  lipgloss.Style
	bar    lipgloss.Style
	track  lipgloss.Style
	errors lipgloss.Style
}

// NewLineView creates a view writing to w.
func NewLineView(w io.Writer) *LineView {
	accent := lipgloss.Color("212")
	return &LineView{
		w:      w,
		title:  lipgloss.NewStyle().Foreground(accent).Bold(true),
		muted:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		bar:    lipgloss.NewStyle().Foreground(accent),
		track:  lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		errors: lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	}
}

// Render implements ports.NowPlayingView.
func (v *LineView) Render(state ports.NowPlaying) {
	line := v.format(state)

	v.mu.Lock()
	defer v.mu.Unlock()
	if line == v.last {
		return
	}
	v.last = line
	_, _ = fmt.Fprintln(v.w, line)
}

func (v *LineView) format(s ports.NowPlaying) string {
	if s.Error != "" {
		return v.errors.Render("error: " + s.Error)
	}
	if s.Track == nil {
		return v.muted.Render("nothing playing")
	}

	icon := "||"
	switch {
	case s.Loading:
		icon = ".."
	case s.Playing:
		icon = "> "
	}

	var b strings.Builder
	b.WriteString(v.title.Render(icon + " " + s.Track.Name))
	b.WriteString(v.muted.Render(" by " + s.Track.ArtistName + " [" + s.Album + "]"))
	if !s.Loading {
		filled := int(float64(barWidth) * s.Progress)
		b.WriteString(" ")
		b.WriteString(v.bar.Render(strings.Repeat("=", filled)))
		b.WriteString(v.track.Render(strings.Repeat("-", barWidth-filled)))
		b.WriteString(" " + s.Elapsed + "/" + s.Total)
	}
	if n := len(s.UpNext); n > 0 {
		b.WriteString(v.muted.Render(fmt.Sprintf(" (+%d queued)", n)))
	}
	return b.String()
}

var _ ports.NowPlayingView = (*LineView)(nil)
