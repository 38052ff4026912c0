package audio

import "fmt"

const wavHeaderSize = 44

// WrapPCMAsWAV wraps raw little-endian signed PCM samples in a 44-byte WAV
// header so the payload can be uploaded to APIs that expect a file.  The
// payload length must be a whole number of sample frames.
func WrapPCMAsWAV(pcm []byte, sampleRate, channels, bitsPerSample int) ([]byte, error) {
	frameSize := channels * bitsPerSample / 8
	if frameSize <= 0 {
		return nil, fmt.Errorf("invalid pcm parameters: %d channels, %d bits", channels, bitsPerSample)
	}
	if len(pcm)%frameSize != 0 {
		return nil, fmt.Errorf("pcm payload of %d bytes is not aligned to %d-byte frames", len(pcm), frameSize)
	}

	dataSize := len(pcm)
	byteRate := sampleRate * frameSize

	wav := make([]byte, wavHeaderSize+dataSize)
	copy(wav[0:4], "RIFF")
	putLE32(wav[4:8], uint32(36+dataSize))
	copy(wav[8:12], "WAVE")

	copy(wav[12:16], "fmt ")
	putLE32(wav[16:20], 16) // PCM subchunk size
	putLE16(wav[20:22], 1)  // audio format 1 = PCM
	putLE16(wav[22:24], uint16(channels))
	putLE32(wav[24:28], uint32(sampleRate))
	putLE32(wav[28:32], uint32(byteRate))
	putLE16(wav[32:34], uint16(frameSize))
	putLE16(wav[34:36], uint16(bitsPerSample))

	copy(wav[36:40], "data")
	putLE32(wav[40:44], uint32(dataSize))
	copy(wav[44:], pcm)
	return wav, nil
}

func putLE16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
