package aiff

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Writer errors.
var (
	ErrHeaderWritten = errors.New("aiff: header already written")
	ErrNoHeader      = errors.New("aiff: header not written")
	ErrPartialFrame  = errors.New("aiff: data is not a whole number of frames")
	ErrTooLarge      = errors.New("aiff: data exceeds 4 GiB FORM limit")
)

// Validate checks that h can be written.
func (h Header) Validate() error {
	switch {
	case h.Channels < 1 || h.Channels > 0xFFFF:
		return fmt.Errorf("%w: channel count %d", ErrUnsupportedFormat, h.Channels)
	case h.SampleWidth < 1 || h.SampleWidth > 4:
		return fmt.Errorf("%w: sample width %d", ErrUnsupportedFormat, h.SampleWidth)
	case h.SampleRate < 1:
		return fmt.Errorf("%w: sample rate %d", ErrUnsupportedFormat, h.SampleRate)
	}

	if !h.Compressed {
		if h.CompressionType != "" && h.CompressionType != CompressionNone {
			return fmt.Errorf("%w: plain AIFF cannot carry compression type %q", ErrUnsupportedFormat, h.CompressionType)
		}

		return nil
	}

	if len(h.CompressionType) != 4 || !SupportedCompression(h.CompressionType) {
		return fmt.Errorf("%w: AIFC compression type %q not supported", ErrUnsupportedFormat, h.CompressionType)
	}

	if len(h.CompressionName) > maxNameLength {
		return fmt.Errorf("%w: compression name longer than %d bytes", ErrUnsupportedFormat, maxNameLength)
	}

	return nil
}

// MaxDataSize returns the largest SSND payload that still fits the FORM size field.
func (h Header) MaxDataSize() int64 {
	// FORM size counts everything after its own 8 bytes, plus one pad byte
	return 1<<32 - 1 - int64(h.Size()-8) - 1
}

// Writer writes an AIFF or AIFF-C file.
type Writer struct {
	w           io.WriteSeeker
	header      Header
	wroteHeader bool
	dataSize    int64
}

// NewWriter creates a new Writer that writes to w.
// The writer must support seeking so the frame count and chunk sizes can be patched in Close.
func NewWriter(w io.WriteSeeker) *Writer {
	return &Writer{w: w}
}

// WriteHeader writes the FORM, FVER (AIFF-C only), COMM and SSND headers.
// Frame count and sizes are written as zero and updated in Close.
func (w *Writer) WriteHeader(h Header) error {
	if w.wroteHeader {
		return ErrHeaderWritten
	}

	if err := h.Validate(); err != nil {
		return err
	}

	buf := make([]byte, 0, h.Size())

	formType := FormTypeAIFF
	if h.Compressed {
		formType = FormTypeAIFC
	}

	buf = append(buf, ChunkIDForm...)
	buf = binary.BigEndian.AppendUint32(buf, 0)
	buf = append(buf, formType...)

	if h.Compressed {
		buf = append(buf, ChunkIDFver...)
		buf = binary.BigEndian.AppendUint32(buf, 4)
		buf = binary.BigEndian.AppendUint32(buf, aifcVersion1)
	}

	// COMM
	buf = append(buf, ChunkIDComm...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(h.commSize()))
	buf = binary.BigEndian.AppendUint16(buf, uint16(h.Channels))
	buf = binary.BigEndian.AppendUint32(buf, 0) // frame count, patched in Close
	buf = binary.BigEndian.AppendUint16(buf, uint16(h.SampleWidth*8))

	rate := float64ToExtended(float64(h.SampleRate))
	buf = append(buf, rate[:]...)

	if h.Compressed {
		buf = append(buf, h.CompressionType...)
		buf = append(buf, byte(len(h.CompressionName)))
		buf = append(buf, h.CompressionName...)

		if len(h.CompressionName)%2 == 0 {
			buf = append(buf, 0)
		}
	}

	// SSND header with zero offset and block size
	buf = append(buf, ChunkIDSsnd...)
	buf = binary.BigEndian.AppendUint32(buf, 0)
	buf = binary.BigEndian.AppendUint32(buf, 0)
	buf = binary.BigEndian.AppendUint32(buf, 0)

	if _, err := w.w.Write(buf); err != nil {
		return fmt.Errorf("failed to write AIFF header: %w", err)
	}

	w.header = h
	w.wroteHeader = true

	return nil
}

// WriteFrames appends interleaved frame bytes to the SSND chunk.
// len(p) must be a multiple of the frame size.
func (w *Writer) WriteFrames(p []byte) error {
	if !w.wroteHeader {
		return ErrNoHeader
	}

	if len(p)%w.header.FrameSize() != 0 {
		return fmt.Errorf("%w: %d bytes with frame size %d", ErrPartialFrame, len(p), w.header.FrameSize())
	}

	if w.dataSize+int64(len(p)) > w.header.MaxDataSize() {
		return ErrTooLarge
	}

	n, err := w.w.Write(p)
	w.dataSize += int64(n)

	if err != nil {
		return fmt.Errorf("failed to write audio data: %w", err)
	}

	return nil
}

// FramesWritten returns the number of frames written so far.
func (w *Writer) FramesWritten() int64 {
	if !w.wroteHeader {
		return 0
	}

	return w.dataSize / int64(w.header.FrameSize())
}

// DataSize returns the number of sample bytes written so far, excluding padding.
func (w *Writer) DataSize() int64 {
	return w.dataSize
}

// Close pads the SSND chunk to an even length and patches the FORM size,
// COMM frame count and SSND size. It does not close the underlying writer.
func (w *Writer) Close() error {
	if !w.wroteHeader {
		return ErrNoHeader
	}

	if _, err := w.w.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}

	pad := w.dataSize % 2
	if pad != 0 {
		if _, err := w.w.Write([]byte{0}); err != nil {
			return fmt.Errorf("failed to write SSND pad byte: %w", err)
		}
	}

	headerSize := int64(w.header.Size())
	formSize := headerSize - 8 + w.dataSize + pad
	ssndSize := ssndPrefixSize + w.dataSize

	patches := []struct {
		name   string
		offset int64
		value  uint32
	}{
		{"FORM size", 4, uint32(formSize)},
		{"frame count", w.header.commOffset() + 2, uint32(w.FramesWritten())},
		{"SSND size", headerSize - ssndPrefixSize - 4, uint32(ssndSize)},
	}

	for _, p := range patches {
		if _, err := w.w.Seek(p.offset, io.SeekStart); err != nil {
			return fmt.Errorf("failed to seek to %s: %w", p.name, err)
		}

		if err := binary.Write(w.w, binary.BigEndian, p.value); err != nil {
			return fmt.Errorf("failed to patch %s: %w", p.name, err)
		}
	}

	if _, err := w.w.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}

	return nil
}
