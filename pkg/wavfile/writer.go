package wavfile

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Writer writes a PCM WAV file.
type Writer struct {
	w           io.WriteSeeker
	format      Format
	wroteHeader bool
	dataSize    int64
}

// NewWriter creates a new Writer that writes to w.
// The writer must support seeking so the chunk sizes can be patched in Close.
func NewWriter(w io.WriteSeeker) *Writer {
	return &Writer{w: w}
}

// WriteHeader writes the RIFF, fmt and data chunk headers.
// The RIFF and data sizes are written as zero and updated in Close.
func (w *Writer) WriteHeader(format Format) error {
	if w.wroteHeader {
		return ErrHeaderWritten
	}

	if err := format.Validate(); err != nil {
		return err
	}

	var hdr [HeaderSize]byte

	// RIFF chunk
	copy(hdr[0:4], ChunkIDRIFF)
	binary.LittleEndian.PutUint32(hdr[4:8], 0)
	copy(hdr[8:12], FormTypeWAV)

	// fmt chunk
	copy(hdr[12:16], ChunkIDFmt)
	binary.LittleEndian.PutUint32(hdr[16:20], fmtChunkSize)
	binary.LittleEndian.PutUint16(hdr[20:22], FormatPCM)
	binary.LittleEndian.PutUint16(hdr[22:24], uint16(format.Channels))
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(format.SampleRate))
	binary.LittleEndian.PutUint32(hdr[28:32], uint32(format.ByteRate()))
	binary.LittleEndian.PutUint16(hdr[32:34], uint16(format.FrameSize()))
	binary.LittleEndian.PutUint16(hdr[34:36], uint16(format.BitsPerSample()))

	// data chunk header
	copy(hdr[36:40], ChunkIDData)
	binary.LittleEndian.PutUint32(hdr[40:44], 0)

	if _, err := w.w.Write(hdr[:]); err != nil {
		return fmt.Errorf("failed to write WAV header: %w", err)
	}

	w.format = format
	w.wroteHeader = true

	return nil
}

// WriteFrames appends interleaved frame bytes to the data chunk.
// len(p) must be a multiple of the frame size.
func (w *Writer) WriteFrames(p []byte) error {
	if !w.wroteHeader {
		return ErrNoHeader
	}

	if len(p)%w.format.FrameSize() != 0 {
		return fmt.Errorf("%w: %d bytes with frame size %d", ErrPartialFrame, len(p), w.format.FrameSize())
	}

	if w.dataSize+int64(len(p)) > MaxDataSize {
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

	return w.dataSize / int64(w.format.FrameSize())
}

// DataSize returns the number of payload bytes written so far.
func (w *Writer) DataSize() int64 {
	return w.dataSize
}

// Close finalizes the file by patching the RIFF and data chunk sizes.
// It does not close the underlying writer.
func (w *Writer) Close() error {
	if !w.wroteHeader {
		return ErrNoHeader
	}

	riffSize := uint32(HeaderSize - 8 + w.dataSize)
	if err := w.patchUint32(riffSizeOffset, riffSize); err != nil {
		return fmt.Errorf("failed to patch RIFF size: %w", err)
	}

	if err := w.patchUint32(dataSizeOffset, uint32(w.dataSize)); err != nil {
		return fmt.Errorf("failed to patch data size: %w", err)
	}

	// Leave the file position at the end of the data
	if _, err := w.w.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}

	return nil
}

// patchUint32 overwrites a little-endian uint32 at the given absolute offset.
func (w *Writer) patchUint32(offset int64, v uint32) error {
	if _, err := w.w.Seek(offset, io.SeekStart); err != nil {
		return err
	}

	return binary.Write(w.w, binary.LittleEndian, v)
}
