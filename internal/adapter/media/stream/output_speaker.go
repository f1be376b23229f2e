//go:build cgo || windows || darwin

package stream

import (
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// AudioAvailable indicates whether audio playback is supported in this build.
const AudioAvailable = true

// speakerOutput plays through the platform speaker.
// The speaker is process-global, so every instance shares it.
type speakerOutput struct{}

var (
	speakerOnce sync.Once
	speakerErr  error
)

// NewSpeakerOutput returns the platform speaker output.
func NewSpeakerOutput() Output {
	return speakerOutput{}
}

func (speakerOutput) Init(rate beep.SampleRate) error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(rate, rate.N(time.Second/10))
	})
	return speakerErr
}

func (speakerOutput) Play(s beep.Streamer) { speaker.Play(s) }
func (speakerOutput) Lock()                { speaker.Lock() }
func (speakerOutput) Unlock()              { speaker.Unlock() }
