// Package aiff provides reading and writing of AIFF and AIFF-C audio files.
//
// AIFF (Audio Interchange File Format) is an IFF-based format developed by Apple.
// This package supports:
//   - Standard AIFF files (uncompressed big-endian PCM)
//   - AIFF-C files with the "NONE", "twos" or "sowt" (little-endian PCM) compression types
//   - 8-bit, 16-bit, 24-bit and 32-bit sample depths
//
// AIFF-C files with real compression (ulaw, alaw, ima4, ...) are not supported.
package aiff

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Errors.
var (
	ErrNotAIFF           = errors.New("aiff: not an AIFF file")
	ErrUnsupportedFormat = errors.New("aiff: unsupported format")
	ErrInvalidFile       = errors.New("aiff: invalid file structure")
	ErrMissingChunk      = errors.New("aiff: missing required chunk")
)

// File represents a parsed AIFF file.
type File struct {
	// Audio metadata
	NumChannels   int
	SampleRate    float64
	BitsPerSample int
	NumFrames     int

	// AIFF-C only; CompressionType is "NONE" for plain AIFF
	Compressed      bool
	CompressionType string
	CompressionName string

	// Raw sample bytes as stored in the SSND chunk
	Raw []byte

	// Decoded audio data as float32 in range [-1.0, 1.0]
	// Organized as [channel][frame]
	Data [][]float32
}

// Parse reads and parses an AIFF file from the given reader.
// Returns a File containing the decoded audio data.
func Parse(r io.Reader) (*File, error) {
	// Read FORM chunk header
	var formHeader [12]byte
	if _, err := io.ReadFull(r, formHeader[:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	if string(formHeader[0:4]) != ChunkIDForm {
		return nil, ErrNotAIFF
	}

	formType := string(formHeader[8:12])
	if formType != FormTypeAIFF && formType != FormTypeAIFC {
		return nil, ErrNotAIFF
	}

	file := &File{
		Compressed:      formType == FormTypeAIFC,
		CompressionType: CompressionNone,
	}

	var commFound, ssndFound bool

	for {
		var chunkHeader [8]byte
		if _, err := io.ReadFull(r, chunkHeader[:]); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
		}

		chunkID := string(chunkHeader[0:4])
		chunkSize := binary.BigEndian.Uint32(chunkHeader[4:8])

		switch chunkID {
		case ChunkIDComm:
			if err := file.parseCOMM(r, chunkSize); err != nil {
				return nil, err
			}

			commFound = true

		case ChunkIDSsnd:
			raw, err := parseSSND(r, chunkSize)
			if err != nil {
				return nil, err
			}

			file.Raw = raw
			ssndFound = true

		default:
			if _, err := io.CopyN(io.Discard, r, int64(chunkSize)); err != nil {
				return nil, fmt.Errorf("%w: failed to skip chunk %s: %w", ErrInvalidFile, chunkID, err)
			}
		}

		// IFF chunks are padded to even boundaries; the pad may be missing at EOF
		if chunkSize%2 != 0 {
			_, _ = io.ReadFull(r, make([]byte, 1))
		}
	}

	if !commFound {
		return nil, fmt.Errorf("%w: COMM chunk", ErrMissingChunk)
	}

	if !ssndFound {
		return nil, fmt.Errorf("%w: SSND chunk", ErrMissingChunk)
	}

	file.decodeAudio()

	return file, nil
}

// parseCOMM parses the COMM (Common) chunk.
func (f *File) parseCOMM(r io.Reader, size uint32) error {
	// Basic COMM chunk is 18 bytes
	// AIFC adds compression type (4 bytes) and compression name (pascal string)
	if size < commSizeAIFF {
		return fmt.Errorf("%w: COMM chunk too small", ErrInvalidFile)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	f.NumChannels = int(binary.BigEndian.Uint16(body[0:2]))
	f.NumFrames = int(binary.BigEndian.Uint32(body[2:6]))
	f.BitsPerSample = int(binary.BigEndian.Uint16(body[6:8]))
	f.SampleRate = extendedToFloat64(body[8:18])

	if f.NumChannels < 1 {
		return fmt.Errorf("%w: unsupported channel count %d", ErrUnsupportedFormat, f.NumChannels)
	}

	if f.BitsPerSample != 8 && f.BitsPerSample != 16 && f.BitsPerSample != 24 && f.BitsPerSample != 32 {
		return fmt.Errorf("%w: unsupported bit depth %d", ErrUnsupportedFormat, f.BitsPerSample)
	}

	if f.SampleRate <= 0 {
		return fmt.Errorf("%w: invalid sample rate %v", ErrUnsupportedFormat, f.SampleRate)
	}

	if !f.Compressed || size < commSizeAIFF+4 {
		return nil
	}

	f.CompressionType = string(body[18:22])
	if !SupportedCompression(f.CompressionType) {
		return fmt.Errorf("%w: AIFC compression type %q not supported", ErrUnsupportedFormat, f.CompressionType)
	}

	if len(body) > 22 {
		n := int(body[22])
		if 23+n > len(body) {
			return fmt.Errorf("%w: compression name overruns COMM chunk", ErrInvalidFile)
		}

		f.CompressionName = string(body[23 : 23+n])
	}

	return nil
}

// parseSSND parses the SSND (Sound Data) chunk and returns raw audio bytes.
func parseSSND(r io.Reader, size uint32) ([]byte, error) {
	if size < ssndPrefixSize {
		return nil, fmt.Errorf("%w: SSND chunk too small", ErrInvalidFile)
	}

	// Read offset and block size
	var header [ssndPrefixSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	offset := binary.BigEndian.Uint32(header[0:4])
	if offset > size-ssndPrefixSize {
		return nil, fmt.Errorf("%w: SSND offset %d exceeds chunk", ErrInvalidFile, offset)
	}

	if offset > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(offset)); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
		}
	}

	data := make([]byte, size-ssndPrefixSize-offset)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	return data, nil
}

// decodeAudio converts raw PCM bytes to float32 audio data.
func (f *File) decodeAudio() {
	bytesPerSample := f.BitsPerSample / 8
	frameSize := bytesPerSample * f.NumChannels
	numFrames := len(f.Raw) / frameSize

	// Trust the data over the COMM frame count when the file is short
	if numFrames < f.NumFrames {
		f.NumFrames = numFrames
	}

	var order binary.ByteOrder = binary.BigEndian
	if f.CompressionType == CompressionSowt {
		order = binary.LittleEndian
	}

	f.Data = make([][]float32, f.NumChannels)
	for ch := range f.Data {
		f.Data[ch] = make([]float32, f.NumFrames)
	}

	data := f.Raw
	offset := 0

	for frame := range f.NumFrames {
		for ch := range f.NumChannels {
			var sample float32

			switch f.BitsPerSample {
			case 8:
				// 8-bit AIFF is signed
				sample = float32(int8(data[offset])) / 128.0

			case 16:
				sample = float32(int16(order.Uint16(data[offset:]))) / 32768.0

			case 24:
				var b [4]byte
				if order == binary.BigEndian {
					b = [4]byte{data[offset], data[offset+1], data[offset+2], 0}
				} else {
					b = [4]byte{data[offset+2], data[offset+1], data[offset], 0}
				}

				// Shift down from the top of an int32 to sign-extend
				sample = float32(int32(binary.BigEndian.Uint32(b[:]))>>8) / 8388608.0

			case 32:
				sample = float32(int32(order.Uint32(data[offset:]))) / 2147483648.0
			}

			f.Data[ch][frame] = sample
			offset += bytesPerSample
		}
	}
}

// Duration returns the duration of the audio file in seconds.
func (f *File) Duration() float64 {
	if f.SampleRate <= 0 {
		return 0
	}

	return float64(f.NumFrames) / f.SampleRate
}
