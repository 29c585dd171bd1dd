package silence

import (
	"errors"
	"fmt"
	"io"
	"os"

	"silentwav/internal/aiff"
	"silentwav/internal/pathprep"
	"silentwav/pkg/wavfile"
)

// zeroChunkSize bounds the zero buffer used to stream the payload.
const zeroChunkSize = 32 * 1024

// errFrameCount is returned if a container reports a frame count other than the spec's.
var errFrameCount = errors.New("silence: frame count mismatch after finalize")

// Result describes an encoded file.
type Result struct {
	Container    Container
	Frames       int64
	HeaderBytes  int64
	PayloadBytes int64
}

// TotalBytes returns the total size of the encoded file.
func (r Result) TotalBytes() int64 {
	size := r.HeaderBytes + r.PayloadBytes
	if r.Container != ContainerWAV && r.PayloadBytes%2 != 0 {
		size++
	}

	return size
}

// frameWriter is the part of the container writers that Encode drives.
type frameWriter interface {
	WriteFrames(p []byte) error
	FramesWritten() int64
	Close() error
}

// Create writes a silent audio file described by spec to path.
// The container is chosen from the file extension (see ContainerForPath).
func Create(path string, spec Spec) error {
	return CreateAs(path, spec, ContainerForPath(path))
}

// CreateAs writes a silent audio file to path using the given container.
//
// The spec is validated before anything touches the filesystem. Missing parent
// directories are created and an existing file is truncated. On I/O failure the
// partially written file is left in place and the error is returned unchanged
// apart from added context.
func CreateAs(path string, spec Spec, container Container) (err error) {
	if err := Validate(spec, container); err != nil {
		return err
	}

	if err := pathprep.Touch(path); err != nil {
		return err
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}

	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close output file: %w", closeErr)
		}
	}()

	_, err = Encode(file, spec, container)

	return err
}

// Encode writes the container header and the zero payload to w, then
// finalizes the container so the header frame count matches the frames written.
func Encode(w io.WriteSeeker, spec Spec, container Container) (Result, error) {
	if err := Validate(spec, container); err != nil {
		return Result{}, err
	}

	fw, err := openContainer(w, spec, container)
	if err != nil {
		return Result{}, err
	}

	if err := writeSilence(fw, spec.PayloadSize(), spec.FrameSize()); err != nil {
		return Result{}, err
	}

	if err := fw.Close(); err != nil {
		return Result{}, err
	}

	frames := fw.FramesWritten()
	if frames != spec.FrameCount() {
		return Result{}, fmt.Errorf("%w: wrote %d, want %d", errFrameCount, frames, spec.FrameCount())
	}

	return Result{
		Container:    container,
		Frames:       frames,
		HeaderBytes:  HeaderSize(spec, container),
		PayloadBytes: spec.PayloadSize(),
	}, nil
}

// openContainer writes the container header and returns a writer for the payload.
func openContainer(w io.WriteSeeker, spec Spec, container Container) (frameWriter, error) {
	switch container {
	case ContainerWAV:
		ww := wavfile.NewWriter(w)
		if err := ww.WriteHeader(spec.wavFormat()); err != nil {
			return nil, err
		}

		return ww, nil

	case ContainerAIFF, ContainerAIFC:
		aw := aiff.NewWriter(w)
		if err := aw.WriteHeader(spec.aiffHeader(container)); err != nil {
			return nil, err
		}

		return aw, nil
	}

	return nil, fmt.Errorf("%w: unknown container %d", ErrInvalidSpec, container)
}

// writeSilence streams size zero bytes in whole frames through one reusable buffer.
func writeSilence(fw frameWriter, size, frameSize int64) error {
	if size == 0 {
		return nil
	}

	chunk := max(zeroChunkSize/frameSize, 1) * frameSize
	zeros := make([]byte, min(chunk, size))

	for remaining := size; remaining > 0; {
		n := min(int64(len(zeros)), remaining)
		if err := fw.WriteFrames(zeros[:n]); err != nil {
			return err
		}

		remaining -= n
	}

	return nil
}
