package wavfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// formatExtensible is WAVE_FORMAT_EXTENSIBLE; its sub-format GUID starts with the real tag.
const formatExtensible uint16 = 0xFFFE

// Reader reads PCM WAV files.
type Reader struct {
	r          io.ReadSeeker
	format     Format
	dataOffset int64
	dataSize   int64
}

// NewReader creates a new Reader and parses the chunk headers up to the data chunk.
// Returns an error if the file is not a PCM WAV file.
func NewReader(r io.ReadSeeker) (*Reader, error) {
	reader := &Reader{r: r}

	if err := reader.readHeader(); err != nil {
		return nil, err
	}

	return reader, nil
}

// readHeader validates the RIFF header and walks chunks until it finds data.
func (r *Reader) readHeader() error {
	var riff [12]byte
	if _, err := io.ReadFull(r.r, riff[:]); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	if string(riff[0:4]) != ChunkIDRIFF || string(riff[8:12]) != FormTypeWAV {
		return ErrNotWAV
	}

	fileEnd, err := r.r.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	pos, err := r.r.Seek(12, io.SeekStart)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	fmtFound := false

	for {
		var chunkHeader [8]byte
		if _, err := io.ReadFull(r.r, chunkHeader[:]); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return fmt.Errorf("%w: %w", ErrInvalidFile, err)
		}

		pos += 8
		chunkID := string(chunkHeader[0:4])
		chunkSize := int64(binary.LittleEndian.Uint32(chunkHeader[4:8]))

		switch chunkID {
		case ChunkIDFmt:
			if err := r.parseFmt(chunkSize); err != nil {
				return err
			}

			fmtFound = true

		case ChunkIDData:
			if !fmtFound {
				return fmt.Errorf("%w: fmt chunk before data", ErrMissingChunk)
			}

			r.dataOffset = pos

			// Streaming writers leave 0 or 0xFFFFFFFF here; trust the file length instead
			r.dataSize = min(chunkSize, fileEnd-pos)
			if r.dataSize < 0 {
				r.dataSize = 0
			}

			return nil
		}

		// RIFF chunks are padded to even boundaries
		next := pos + chunkSize + chunkSize%2
		if pos, err = r.r.Seek(next, io.SeekStart); err != nil {
			return fmt.Errorf("%w: failed to skip chunk %s: %w", ErrInvalidFile, chunkID, err)
		}
	}

	if !fmtFound {
		return fmt.Errorf("%w: fmt chunk", ErrMissingChunk)
	}

	return fmt.Errorf("%w: data chunk", ErrMissingChunk)
}

// parseFmt reads the fmt chunk body. The reader is left at the end of the chunk body.
func (r *Reader) parseFmt(size int64) error {
	if size < fmtChunkSize {
		return fmt.Errorf("%w: fmt chunk too small", ErrInvalidFile)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r.r, body); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	tag := binary.LittleEndian.Uint16(body[0:2])
	if tag == formatExtensible && size >= 26 {
		tag = binary.LittleEndian.Uint16(body[24:26])
	}

	if tag != FormatPCM {
		return fmt.Errorf("%w: format tag 0x%04x is not PCM", ErrUnsupportedFormat, tag)
	}

	bits := int(binary.LittleEndian.Uint16(body[14:16]))

	r.format = Format{
		Channels:    int(binary.LittleEndian.Uint16(body[2:4])),
		SampleRate:  int(binary.LittleEndian.Uint32(body[4:8])),
		SampleWidth: (bits + 7) / 8,
	}

	return r.format.Validate()
}

// Format returns the PCM layout declared by the fmt chunk.
func (r *Reader) Format() Format {
	return r.format
}

// DataOffset returns the absolute byte offset of the first payload byte.
func (r *Reader) DataOffset() int64 {
	return r.dataOffset
}

// DataSize returns the payload size in bytes, clipped to the file length.
func (r *Reader) DataSize() int64 {
	return r.dataSize
}

// NumFrames returns the number of whole frames in the data chunk.
func (r *Reader) NumFrames() int64 {
	return r.dataSize / int64(r.format.FrameSize())
}

// Duration returns the duration of the audio in seconds.
func (r *Reader) Duration() float64 {
	return float64(r.NumFrames()) / float64(r.format.SampleRate)
}

// ReadAll returns the raw payload bytes.
func (r *Reader) ReadAll() ([]byte, error) {
	if _, err := r.r.Seek(r.dataOffset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	data := make([]byte, r.dataSize)
	if _, err := io.ReadFull(r.r, data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	return data, nil
}

// Samples decodes the payload to float32 in range [-1.0, 1.0].
// The result is organized as [channel][frame].
func (r *Reader) Samples() ([][]float32, error) {
	data, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	return Decode(data, r.format), nil
}

// Decode converts interleaved little-endian PCM bytes to per-channel float32 data.
// 8-bit samples are unsigned, wider samples are two's complement.
func Decode(data []byte, format Format) [][]float32 {
	width := format.SampleWidth
	numFrames := len(data) / format.FrameSize()

	out := make([][]float32, format.Channels)
	for ch := range out {
		out[ch] = make([]float32, numFrames)
	}

	offset := 0

	for frame := range numFrames {
		for ch := range format.Channels {
			var sample float32

			switch width {
			case 1:
				sample = (float32(data[offset]) - 128) / 128.0
			case 2:
				sample = float32(int16(binary.LittleEndian.Uint16(data[offset:]))) / 32768.0
			case 3:
				s := int32(data[offset]) | int32(data[offset+1])<<8 | int32(int8(data[offset+2]))<<16
				sample = float32(s) / 8388608.0
			case 4:
				sample = float32(int32(binary.LittleEndian.Uint32(data[offset:]))) / 2147483648.0
			}

			out[ch][frame] = sample
			offset += width
		}
	}

	return out
}
