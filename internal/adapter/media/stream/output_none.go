//go:build !cgo && !windows && !darwin

package stream

import (
	"sync"

	"github.com/gopxl/beep/v2"

	"github.com/tejashwikalptaru/tunestream/internal/domain"
)

// AudioAvailable indicates whether audio playback is supported in this build.
// The linux speaker needs cgo for ALSA.
const AudioAvailable = false

// noOutput rejects initialization so Open reports domain.ErrAudioUnavailable.
type noOutput struct {
	mu sync.Mutex
}

// NewSpeakerOutput returns an output that is never available.
func NewSpeakerOutput() Output {
	return &noOutput{}
}

func (*noOutput) Init(beep.SampleRate) error { return domain.ErrAudioUnavailable }
func (*noOutput) Play(beep.Streamer)         {}
func (o *noOutput) Lock()                    { o.mu.Lock() }
func (o *noOutput) Unlock()                  { o.mu.Unlock() }
