package silence

import (
	"fmt"
	"path/filepath"
	"strings"

	"silentwav/pkg/wavfile"
)

// Container selects the output file format.
type Container int

// Supported containers.
const (
	ContainerWAV  Container = iota // RIFF/WAVE PCM
	ContainerAIFF                  // Plain AIFF, big-endian PCM
	ContainerAIFC                  // AIFF-C, carries the compression type and name
)

// String returns the short container name.
func (c Container) String() string {
	switch c {
	case ContainerWAV:
		return "wav"
	case ContainerAIFF:
		return "aiff"
	case ContainerAIFC:
		return "aifc"
	default:
		return fmt.Sprintf("container(%d)", int(c))
	}
}

// Extension returns the canonical file extension, including the dot.
func (c Container) Extension() string {
	switch c {
	case ContainerAIFF:
		return ".aiff"
	case ContainerAIFC:
		return ".aifc"
	default:
		return ".wav"
	}
}

// ContainerForPath picks the container from the file extension.
// Anything that is not .aif, .aiff or .aifc is written as WAV.
func ContainerForPath(path string) Container {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".aif", ".aiff":
		return ContainerAIFF
	case ".aifc":
		return ContainerAIFC
	default:
		return ContainerWAV
	}
}

// ParseContainer parses a container name as returned by String.
func ParseContainer(name string) (Container, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "wav", "wave":
		return ContainerWAV, nil
	case "aif", "aiff":
		return ContainerAIFF, nil
	case "aifc":
		return ContainerAIFC, nil
	}

	return 0, fmt.Errorf("%w: unknown container %q", ErrInvalidSpec, name)
}

// HeaderSize returns the number of bytes the container writes before the payload.
func HeaderSize(spec Spec, container Container) int64 {
	if container == ContainerWAV {
		return wavfile.HeaderSize
	}

	return int64(spec.aiffHeader(container).Size())
}

// FileSize returns the exact size of the encoded file.
// For WAV this is HeaderSize + PayloadSize; AIFF adds a pad byte to odd payloads.
func FileSize(spec Spec, container Container) int64 {
	size := HeaderSize(spec, container) + spec.PayloadSize()
	if container != ContainerWAV && spec.PayloadSize()%2 != 0 {
		size++
	}

	return size
}
