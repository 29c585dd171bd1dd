// Package wavfile provides reading and writing of RIFF/WAVE PCM files.
//
// The writer emits the canonical 44-byte header (RIFF, "fmt " with the PCM
// format tag, "data") followed by interleaved little-endian frames. Chunk
// sizes are written as placeholders and patched in Close, so callers may
// stream frames without knowing the final count up front.
package wavfile

import (
	"errors"
	"fmt"
)

// Chunk identifiers.
const (
	ChunkIDRIFF = "RIFF"
	FormTypeWAV = "WAVE"
	ChunkIDFmt  = "fmt "
	ChunkIDData = "data"
)

// Header layout.
const (
	// HeaderSize is the size of the canonical PCM header in bytes.
	HeaderSize = 44

	// FormatPCM is the WAVE_FORMAT_PCM format tag.
	FormatPCM uint16 = 1

	// MaxSampleWidth is the widest integer PCM sample the package handles.
	MaxSampleWidth = 4

	// MaxDataSize is the largest data chunk that still fits the RIFF size field.
	MaxDataSize = 1<<32 - 1 - (HeaderSize - 8)

	riffSizeOffset = 4
	fmtChunkSize   = 16
	dataSizeOffset = 40
)

// Errors.
var (
	ErrNotWAV            = errors.New("wavfile: not a RIFF/WAVE file")
	ErrUnsupportedFormat = errors.New("wavfile: unsupported format")
	ErrInvalidFile       = errors.New("wavfile: invalid file structure")
	ErrMissingChunk      = errors.New("wavfile: missing required chunk")
	ErrPartialFrame      = errors.New("wavfile: data is not a whole number of frames")
	ErrHeaderWritten     = errors.New("wavfile: header already written")
	ErrNoHeader          = errors.New("wavfile: header not written")
	ErrTooLarge          = errors.New("wavfile: data exceeds 4 GiB RIFF limit")
)

// Format describes the PCM layout of a WAV file.
type Format struct {
	Channels    int // Interleaved channel count
	SampleWidth int // Bytes per sample per channel (1-4)
	SampleRate  int // Frames per second
}

// FrameSize returns the number of bytes in one frame (one sample per channel).
func (f Format) FrameSize() int {
	return f.Channels * f.SampleWidth
}

// ByteRate returns the number of payload bytes per second of audio.
func (f Format) ByteRate() int {
	return f.SampleRate * f.FrameSize()
}

// BitsPerSample returns the sample width in bits.
func (f Format) BitsPerSample() int {
	return f.SampleWidth * 8
}

// Validate checks that f can be represented in a PCM fmt chunk.
func (f Format) Validate() error {
	switch {
	case f.Channels < 1 || f.Channels > 0xFFFF:
		return fmt.Errorf("%w: channel count %d", ErrUnsupportedFormat, f.Channels)
	case f.SampleWidth < 1 || f.SampleWidth > MaxSampleWidth:
		return fmt.Errorf("%w: sample width %d", ErrUnsupportedFormat, f.SampleWidth)
	case f.SampleRate < 1 || int64(f.SampleRate)*int64(f.FrameSize()) > 0xFFFFFFFF:
		return fmt.Errorf("%w: sample rate %d", ErrUnsupportedFormat, f.SampleRate)
	}

	return nil
}
