// Package silence generates silent PCM audio files.
//
// A Spec describes the wanted output (duration and PCM layout). Encode turns
// it into a container header followed by FrameCount × NumChannels ×
// SampleWidth zero bytes, and Create does the same for a path on disk.
// The payload is streamed through a small reusable zero buffer, so memory use
// does not grow with the duration.
package silence

import (
	"errors"
	"fmt"
	"math"

	"silentwav/internal/aiff"
	"silentwav/pkg/wavfile"
)

// Defaults used by DefaultSpec.
const (
	DefaultSampleRate      = 44100
	DefaultNumChannels     = 1
	DefaultSampleWidth     = 2
	DefaultCompressionType = "NONE"
	DefaultCompressionName = "not compressed"
)

// Errors.
var (
	// ErrInvalidSpec is returned for any spec that cannot be encoded.
	// It is always returned before the output path is touched.
	ErrInvalidSpec = errors.New("silence: invalid audio spec")

	// ErrUnsupportedCompression is returned when the container does not
	// define the requested compression type. It matches ErrInvalidSpec.
	ErrUnsupportedCompression = fmt.Errorf("%w: unsupported compression type", ErrInvalidSpec)
)

// Spec describes a silent audio file.
type Spec struct {
	Duration        float64 // Seconds, >= 0
	SampleRate      int     // Frames per second, default 44100
	NumChannels     int     // Default 1 (mono)
	SampleWidth     int     // Bytes per sample per channel, default 2 (16-bit)
	CompressionType string  // Default "NONE"
	CompressionName string  // Default "not compressed"; stored only by AIFF-C
}

// DefaultSpec returns a Spec for the given duration with every other field
// set to its documented default.
func DefaultSpec(duration float64) Spec {
	return Spec{
		Duration:        duration,
		SampleRate:      DefaultSampleRate,
		NumChannels:     DefaultNumChannels,
		SampleWidth:     DefaultSampleWidth,
		CompressionType: DefaultCompressionType,
		CompressionName: DefaultCompressionName,
	}
}

// FrameCount returns floor(Duration × SampleRate).
func (s Spec) FrameCount() int64 {
	return int64(math.Floor(s.Duration * float64(s.SampleRate)))
}

// FrameSize returns the number of bytes in one frame.
func (s Spec) FrameSize() int64 {
	return int64(s.NumChannels) * int64(s.SampleWidth)
}

// PayloadSize returns the number of zero bytes in the payload.
func (s Spec) PayloadSize() int64 {
	return s.FrameCount() * s.FrameSize()
}

func (s Spec) wavFormat() wavfile.Format {
	return wavfile.Format{
		Channels:    s.NumChannels,
		SampleWidth: s.SampleWidth,
		SampleRate:  s.SampleRate,
	}
}

func (s Spec) aiffHeader(container Container) aiff.Header {
	return aiff.Header{
		Channels:        s.NumChannels,
		SampleWidth:     s.SampleWidth,
		SampleRate:      s.SampleRate,
		Compressed:      container == ContainerAIFC,
		CompressionType: s.CompressionType,
		CompressionName: s.CompressionName,
	}
}

// Validate checks that spec can be encoded into container.
// All failures wrap ErrInvalidSpec.
func Validate(spec Spec, container Container) error {
	switch {
	case math.IsNaN(spec.Duration) || math.IsInf(spec.Duration, 0):
		return fmt.Errorf("%w: duration %v is not finite", ErrInvalidSpec, spec.Duration)
	case spec.Duration < 0:
		return fmt.Errorf("%w: duration %v is negative", ErrInvalidSpec, spec.Duration)
	case spec.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate %d must be positive", ErrInvalidSpec, spec.SampleRate)
	case spec.NumChannels <= 0:
		return fmt.Errorf("%w: channel count %d must be positive", ErrInvalidSpec, spec.NumChannels)
	case spec.SampleWidth <= 0:
		return fmt.Errorf("%w: sample width %d must be positive", ErrInvalidSpec, spec.SampleWidth)
	}

	if err := validateCompression(spec, container); err != nil {
		return err
	}

	// Guard the float -> int64 conversion in FrameCount
	if spec.Duration*float64(spec.SampleRate) >= math.MaxInt64/float64(spec.FrameSize()) {
		return fmt.Errorf("%w: duration %vs is too long", ErrInvalidSpec, spec.Duration)
	}

	var maxPayload int64

	switch container {
	case ContainerWAV:
		if err := spec.wavFormat().Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSpec, err)
		}

		maxPayload = wavfile.MaxDataSize

	case ContainerAIFF, ContainerAIFC:
		h := spec.aiffHeader(container)
		if err := h.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSpec, err)
		}

		maxPayload = h.MaxDataSize()

	default:
		return fmt.Errorf("%w: unknown container %d", ErrInvalidSpec, container)
	}

	if size := spec.PayloadSize(); size > maxPayload {
		return fmt.Errorf("%w: %d payload bytes exceed the %s size limit", ErrInvalidSpec, size, container)
	}

	return nil
}

// validateCompression rejects compression types the container does not define.
// WAV and plain AIFF have no compression field, so only "NONE" is meaningful.
func validateCompression(spec Spec, container Container) error {
	if container == ContainerAIFC {
		if len(spec.CompressionType) != 4 || !aiff.SupportedCompression(spec.CompressionType) {
			return fmt.Errorf("%w: %q is not a PCM compression type for %s", ErrUnsupportedCompression, spec.CompressionType, container)
		}

		return nil
	}

	if spec.CompressionType != DefaultCompressionType {
		return fmt.Errorf("%w: %s only supports %q, got %q", ErrUnsupportedCompression, container, DefaultCompressionType, spec.CompressionType)
	}

	return nil
}
