package stream

import (
	"bytes"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/dhowden/tag"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"github.com/tejashwikalptaru/tunestream/internal/domain"
)

type container string

const (
	containerUnknown container = ""
	containerMP3     container = "mp3"
	containerWAV     container = "wav"
	containerFLAC    container = "flac"
	containerOGG     container = "ogg"
)

// SupportedFormats returns the containers the stream player can decode.
func SupportedFormats() []string {
	return []string{string(containerMP3), string(containerWAV), string(containerFLAC), string(containerOGG)}
}

// detectContainer sniffs the payload first, then falls back to the
// Content-Type header and finally the URL extension.
func detectContainer(data []byte, contentType, uri string) container {
	if len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE" {
		return containerWAV
	}

	if _, ft, err := tag.Identify(bytes.NewReader(data)); err == nil {
		switch ft {
		case tag.MP3:
			return containerMP3
		case tag.FLAC:
			return containerFLAC
		case tag.OGG:
			return containerOGG
		}
	}

	// Bare MPEG audio frame sync
	if len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0 {
		return containerMP3
	}

	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mt {
		case "audio/mpeg", "audio/mp3":
			return containerMP3
		case "audio/wav", "audio/x-wav", "audio/wave":
			return containerWAV
		case "audio/flac", "audio/x-flac":
			return containerFLAC
		case "audio/ogg", "application/ogg", "audio/vorbis":
			return containerOGG
		}
	}

	p := uri
	if u, err := url.Parse(uri); err == nil {
		p = u.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".mp3":
		return containerMP3
	case ".wav":
		return containerWAV
	case ".flac":
		return containerFLAC
	case ".ogg", ".oga":
		return containerOGG
	}
	return containerUnknown
}

// nopCloser keeps the reader seekable, unlike io.NopCloser.
type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }

// decode returns a seekable streamer for data.
func decode(c container, data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	r := bytes.NewReader(data)
	switch c {
	case containerMP3:
		return mp3.Decode(nopCloser{r})
	case containerWAV:
		return wav.Decode(r)
	case containerFLAC:
		return flac.Decode(r)
	case containerOGG:
		return vorbis.Decode(nopCloser{r})
	default:
		return nil, beep.Format{}, domain.ErrUnsupportedFormat
	}
}

// probeMetadata reads embedded tags. Missing or unreadable tags yield a
// metadata value carrying only the container name.
func probeMetadata(c container, data []byte) *domain.HandleMetadata {
	md := &domain.HandleMetadata{Format: string(c)}
	m, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return md
	}
	md.Title = m.Title()
	md.Artist = m.Artist()
	md.Album = m.Album()
	return md
}
