// Package audio normalizes uploaded audio payloads into a container the
// transcription service accepts.  Known containers pass through untouched;
// raw PCM is wrapped in a WAV header.  Anything else is a conversion error
// and the turn is aborted before any message is persisted.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// Defaults assumed for raw PCM payloads that carry no container header.
const (
	DefaultSampleRate = 16000
	DefaultChannels   = 1
	DefaultBitDepth   = 16
)

// ErrEmptyPayload is returned for zero-length uploads.
var ErrEmptyPayload = errors.New("empty audio payload")

// Normalize inspects an uploaded payload and returns transcription-ready
// bytes plus a filename whose extension matches the actual container.  The
// uploaded filename is only a hint for raw PCM (".pcm"/".raw"); detection
// of real containers goes by magic bytes so a mislabeled upload still lands
// in the right format.
func Normalize(data []byte, filename string) ([]byte, string, error) {
	if len(data) == 0 {
		return nil, "", ErrEmptyPayload
	}
	if ext := sniffContainer(data); ext != "" {
		return data, "audio." + ext, nil
	}
	ext := strings.ToLower(strings.TrimPrefix(extOf(filename), "."))
	if ext == "pcm" || ext == "raw" || ext == "" {
		wrapped, err := WrapPCMAsWAV(data, DefaultSampleRate, DefaultChannels, DefaultBitDepth)
		if err != nil {
			return nil, "", err
		}
		return wrapped, "audio.wav", nil
	}
	return nil, "", fmt.Errorf("unsupported audio container %q", ext)
}

// sniffContainer identifies a container from its leading magic bytes and
// returns the matching file extension, or "" when unrecognized.
func sniffContainer(data []byte) string {
	switch {
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return "wav"
	case len(data) >= 3 && bytes.Equal(data[0:3], []byte("ID3")):
		return "mp3"
	case len(data) >= 2 && data[0] == 0xFF && (data[1]&0xE0) == 0xE0:
		return "mp3"
	case len(data) >= 4 && bytes.Equal(data[0:4], []byte("OggS")):
		return "ogg"
	case len(data) >= 4 && bytes.Equal(data[0:4], []byte("fLaC")):
		return "flac"
	case len(data) >= 4 && bytes.Equal(data[0:4], []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return "webm"
	case len(data) >= 12 && bytes.Equal(data[4:8], []byte("ftyp")):
		return "m4a"
	}
	return ""
}

func extOf(filename string) string {
	if i := strings.LastIndex(filename, "."); i >= 0 {
		return filename[i:]
	}
	return ""
}
